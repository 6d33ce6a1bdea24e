package testing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/core/drop"
	"github.com/LeJamon/goMarble/internal/core/registry"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
	"github.com/LeJamon/goMarble/internal/types"
)

// TestEnv is a chain on an in-memory store with both marketplace contract
// codes registered and a manual block clock.
type TestEnv struct {
	t     *testing.T
	ctx   context.Context
	chain *host.Chain
	clock *ManualClock

	accounts map[string]*Account
}

// NewTestEnv creates a new test environment. The store is closed when the
// test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	db, err := pebble.OpenInMemory()
	require.NoError(t, err, "failed to open in-memory store")
	t.Cleanup(func() { _ = db.Close() })

	clock := NewManualClock()
	chain := host.New(db, host.WithClock(clock), host.WithLogger(zaptest.NewLogger(t)))
	chain.Register(collection.CodeID, collection.New())
	chain.Register(registry.CodeID, registry.New())
	chain.Register(drop.CodeID, drop.New())

	return &TestEnv{
		t:        t,
		ctx:      context.Background(),
		chain:    chain,
		clock:    clock,
		accounts: make(map[string]*Account),
	}
}

// Chain returns the underlying chain.
func (e *TestEnv) Chain() *host.Chain {
	return e.chain
}

// Clock returns the block clock.
func (e *TestEnv) Clock() *ManualClock {
	return e.clock
}

// Context returns the context used for chain calls.
func (e *TestEnv) Context() context.Context {
	return e.ctx
}

// Now returns the current block time.
func (e *TestEnv) Now() time.Time {
	return e.clock.Now()
}

// AdvanceTime moves the block clock forward.
func (e *TestEnv) AdvanceTime(d time.Duration) {
	e.clock.Advance(d)
}

// Account returns the named account, creating it on first use.
func (e *TestEnv) Account(name string) *Account {
	if acc, ok := e.accounts[name]; ok {
		return acc
	}
	acc := NewAccount(name)
	e.accounts[name] = acc
	return acc
}

// ApplyGenesis writes g and returns the genesis contract addresses.
func (e *TestEnv) ApplyGenesis(g host.Genesis) []types.Address {
	e.t.Helper()
	addrs, err := e.chain.InitGenesis(e.ctx, g)
	require.NoError(e.t, err, "genesis failed")
	return addrs
}

// Execute runs msg against contract as acc.
func (e *TestEnv) Execute(acc *Account, contract types.Address, msg json.RawMessage, funds ...types.Coin) (*host.TxResult, error) {
	return e.chain.Execute(e.ctx, acc.Address, contract, msg, funds...)
}

// SendToken pays amount of token to contract with a receive hook.
func (e *TestEnv) SendToken(acc *Account, token, contract types.Address, amount uint64, msg json.RawMessage) (*host.TxResult, error) {
	return e.chain.SendToken(e.ctx, acc.Address, token, contract, uint256.NewInt(amount), msg)
}

// SendNft moves tokenID of tracker to contract with a receive_nft hook.
func (e *TestEnv) SendNft(acc *Account, tracker, contract types.Address, tokenID uint64, msg json.RawMessage) (*host.TxResult, error) {
	return e.chain.SendNft(e.ctx, acc.Address, tracker, contract, tokenID, msg)
}

// Submit signs tx with the account key at the account's next sequence and
// submits it.
func (e *TestEnv) Submit(acc *Account, tx host.Tx) (*host.TxResult, error) {
	e.t.Helper()
	seq, err := e.chain.Sequence(e.ctx, acc.Address)
	require.NoError(e.t, err)
	tx.Sequence = seq
	env, err := host.Sign(acc.Key, tx)
	require.NoError(e.t, err)
	return e.chain.Submit(e.ctx, env)
}

// Collection is a deployed collection and its token tracker.
type Collection struct {
	Address types.Address
	Tracker types.Address
}

// DeployCollection instantiates a collection owned by owner.
func (e *TestEnv) DeployCollection(owner *Account, msg collection.InstantiateMsg) Collection {
	e.t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(e.t, err)
	addr, _, err := e.chain.Instantiate(e.ctx, owner.Address, collection.CodeID, msg.Name, raw)
	require.NoError(e.t, err, "collection instantiate failed")
	cfg := e.CollectionConfig(addr)
	return Collection{Address: addr, Tracker: cfg.TokenContract}
}

// CollectionConfig queries the configuration of a collection.
func (e *TestEnv) CollectionConfig(addr types.Address) collection.Config {
	e.t.Helper()
	var cfg collection.Config
	e.Query(addr, collection.GetConfig{}, &cfg)
	return cfg
}

// Query runs a collection query and decodes the answer into out.
func (e *TestEnv) Query(contract types.Address, msg collection.QueryMsg, out interface{}) {
	e.t.Helper()
	raw, err := collection.EncodeQueryMsg(msg)
	require.NoError(e.t, err)
	data, err := e.chain.Query(e.ctx, contract, raw)
	require.NoError(e.t, err, "query failed")
	require.NoError(e.t, json.Unmarshal(data, out))
}

// Balance returns the balance of holder in asset.
func (e *TestEnv) Balance(holder types.Address, asset types.Asset) uint64 {
	e.t.Helper()
	b, err := e.chain.Balance(e.ctx, holder, asset)
	require.NoError(e.t, err)
	return b.Uint64()
}

// OwnerOf returns the holder of a tracker token.
func (e *TestEnv) OwnerOf(tracker types.Address, tokenID uint64) types.Address {
	e.t.Helper()
	owner, err := e.chain.OwnerOf(e.ctx, tracker, tokenID)
	require.NoError(e.t, err)
	return owner
}

// Height returns the height of the last committed transaction.
func (e *TestEnv) Height() uint64 {
	e.t.Helper()
	b, err := e.chain.LastBlock(e.ctx)
	require.NoError(e.t, err)
	return b.Height
}
