package host

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/registry"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/crypto"
	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
	"github.com/LeJamon/goMarble/internal/types"
)

const (
	owner  types.Address = "marble1owner"
	seller types.Address = "marble1seller"
	buyer  types.Address = "marble1buyer"
	fees   types.Address = "marble1fees"
	usdc   types.Address = "marble1usdc"
	poolA  types.Address = "marble1poola"
	poolB  types.Address = "marble1poolb"
)

var (
	umarble = types.NativeAsset("umarble")
	uatom   = types.NativeAsset("uatom")
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func amt(v uint64) *uint256.Int { return uint256.NewInt(v) }

func newChain(t *testing.T) (*Chain, *fixedClock) {
	t.Helper()
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := &fixedClock{t: time.Unix(1_000, 0)}
	c := New(db, WithClock(clock))
	c.Register(collection.CodeID, collection.New())
	c.Register(registry.CodeID, registry.New())

	_, err = c.InitGenesis(context.Background(), Genesis{
		Balances: []GenesisBalance{
			{Address: buyer, Coin: types.NewCoin("umarble", 10_000)},
			{Address: buyer, Coin: types.NewCoin("uatom", 10_000)},
		},
		Tokens: []GenesisToken{{
			Address: usdc,
			TokenInstantiateMsg: TokenInstantiateMsg{
				Name: "USD Coin", Symbol: "USDC", Decimals: 6,
				InitialBalances: []Holding{{Address: buyer, Amount: amt(5_000)}},
			},
		}},
		Pools: []Pool{
			{Address: poolA, AssetA: types.TokenAsset(usdc), AssetB: uatom, ReserveA: amt(1_000_000), ReserveB: amt(1_000_000)},
			{Address: poolB, AssetA: uatom, AssetB: umarble, ReserveA: amt(1_000_000), ReserveB: amt(1_000_000)},
		},
	})
	require.NoError(t, err)
	return c, clock
}

func deployCollection(t *testing.T, c *Chain) (types.Address, types.Address) {
	t.Helper()
	ctx := context.Background()
	msg := fmt.Sprintf(`{"token_code":%q,"name":"Marbles","symbol":"MRB","settlement_asset":"native:umarble",`+
		`"protocol_fee":{"address":%q,"rate":{"value":2,"scale":100}},`+
		`"swap":{"intermediate":"native:uatom","entry":[{"asset":"token:%s","pool":%q}],"exit":%q,"max_slippage_bps":0}}`,
		NftCode, fees, usdc, poolA, poolB)
	addr, res, err := c.Instantiate(ctx, owner, collection.CodeID, "Marbles", json.RawMessage(msg))
	require.NoError(t, err)
	assert.Len(t, res.EventsOf("instantiate"), 2)

	data, err := c.Query(ctx, addr, json.RawMessage(`{"get_config":{}}`))
	require.NoError(t, err)
	var cfg collection.Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	require.False(t, cfg.TokenContract.IsEmpty())
	return addr, cfg.TokenContract
}

func balance(t *testing.T, c *Chain, holder types.Address, asset types.Asset) uint64 {
	t.Helper()
	b, err := c.Balance(context.Background(), holder, asset)
	require.NoError(t, err)
	return b.Uint64()
}

func TestMarketplaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newChain(t)
	coll, tracker := deployCollection(t, c)

	_, err := c.Execute(ctx, owner, coll, json.RawMessage(`{"mint":{"uri":"ipfs://1","owner":"marble1seller"}}`))
	require.NoError(t, err)
	got, err := c.OwnerOf(ctx, tracker, 1)
	require.NoError(t, err)
	assert.Equal(t, seller, got)

	_, err = c.Execute(ctx, seller, coll, json.RawMessage(
		`{"start_sale":{"token_id":1,"sale_type":"fixed","duration_type":"unbounded","initial_price":"1000","royalty":{"rate":{"value":0,"scale":0}}}}`))
	require.NoError(t, err)
	got, err = c.OwnerOf(ctx, tracker, 1)
	require.NoError(t, err)
	assert.Equal(t, coll, got)

	_, err = c.Execute(ctx, buyer, coll, json.RawMessage(`{"propose":{"token_id":1,"price":"1000"}}`))
	require.NoError(t, err)

	// 1000 usdc -> 999 uatom -> 998 umarble; 2% protocol fee rounds down to 19.
	res, err := c.SendToken(ctx, buyer, usdc, coll, amt(1_000), json.RawMessage(`{"buy":{"token_id":1}}`))
	require.NoError(t, err)
	assert.Len(t, res.EventsOf("swap"), 2)
	settles := res.EventsOf("settle")
	require.Len(t, settles, 1)
	converted, _ := settles[0].Get("converted")
	assert.Equal(t, "998", converted)
	from, _ := settles[0].Get(ContractAttribute)
	assert.Equal(t, coll.String(), from)

	got, err = c.OwnerOf(ctx, tracker, 1)
	require.NoError(t, err)
	assert.Equal(t, buyer, got)
	assert.Equal(t, uint64(4_000), balance(t, c, buyer, types.TokenAsset(usdc)))
	assert.Equal(t, uint64(19), balance(t, c, fees, umarble))
	assert.Equal(t, uint64(979), balance(t, c, seller, umarble))
	assert.Equal(t, uint64(0), balance(t, c, coll, umarble))

	p, err := c.Pool(ctx, poolB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_999), p.ReserveA.Uint64())
	assert.Equal(t, uint64(999_002), p.ReserveB.Uint64())
}

func TestFailedTransactionWritesNothing(t *testing.T) {
	ctx := context.Background()
	c, _ := newChain(t)
	coll, _ := deployCollection(t, c)

	seq, err := c.Sequence(ctx, buyer)
	require.NoError(t, err)
	before, err := c.LastBlock(ctx)
	require.NoError(t, err)

	// Funds move before the contract fails; the whole transaction unwinds.
	_, err = c.Execute(ctx, buyer, coll, json.RawMessage(`{"buy":{"token_id":9}}`), types.NewCoin("umarble", 500))
	assert.ErrorIs(t, err, result.InvalidBuyParam)

	assert.Equal(t, uint64(10_000), balance(t, c, buyer, umarble))
	after, err := c.Sequence(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, seq, after)
	block, err := c.LastBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, block)
}

func TestSequenceAndSignatures(t *testing.T) {
	ctx := context.Background()
	c, clock := newChain(t)

	key, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	_, err = c.Transfer(ctx, buyer, key.Address(), umarble, amt(100))
	require.NoError(t, err)

	var committed []*TxResult
	c.AddHooks(&EventHooks{OnTransaction: func(res *TxResult) { committed = append(committed, res) }})

	asset := umarble
	env, err := Sign(key, Tx{Kind: TxTransfer, Sequence: 0, Asset: &asset, Amount: amt(40), Recipient: seller})
	require.NoError(t, err)
	clock.t = clock.t.Add(time.Minute)
	res, err := c.Submit(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_060), res.Time)
	assert.Equal(t, uint64(2), res.Height)
	require.Len(t, committed, 1)
	assert.Equal(t, res.Hash, committed[0].Hash)

	_, err = c.Submit(ctx, env)
	assert.ErrorIs(t, err, result.BadSequence)

	forged := *env
	forged.Tx.Amount = amt(60)
	forged.Tx.Sequence = 1
	_, err = c.Submit(ctx, &forged)
	assert.ErrorIs(t, err, result.BadSignature)

	other, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	stolen := *env
	stolen.PublicKey = other.PublicKeyHex()
	_, err = c.Submit(ctx, &stolen)
	assert.ErrorIs(t, err, result.BadSignature)

	assert.Equal(t, uint64(60), balance(t, c, key.Address(), umarble))
	assert.Equal(t, uint64(40), balance(t, c, seller, umarble))
	require.Len(t, committed, 1)
}

func TestSwapEnforcesMinimumReceive(t *testing.T) {
	c, _ := newChain(t)
	table := state.NewApplyStateTable(c.Store())
	defer table.Discard()

	require.NoError(t, credit(table, seller, uatom, amt(1_000)))

	_, err := execSwap(table, seller, instruction.Swap{
		Pool: poolB, Offer: uatom, Ask: umarble, Amount: amt(1_000), MinimumReceive: amt(1_000),
	})
	assert.ErrorIs(t, err, result.SlippageExceeded)

	_, err = execSwap(table, seller, instruction.Swap{
		Pool: poolB, Offer: uatom, Ask: uatom, Amount: amt(1_000),
	})
	assert.ErrorIs(t, err, result.InvalidMessage)

	_, err = execSwap(table, seller, instruction.Swap{
		Pool: poolB, Offer: uatom, Ask: umarble, Amount: amt(2_000), MinimumReceive: amt(1),
	})
	assert.ErrorIs(t, err, result.InsufficientFunds)

	got, err := execSwap(table, seller, instruction.Swap{
		Pool: poolB, Offer: uatom, Ask: umarble, Amount: amt(1_000), MinimumReceive: amt(999),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(999), got.Uint64())
}

func TestPoolQuote(t *testing.T) {
	p := &Pool{Address: poolA, AssetA: uatom, AssetB: umarble, ReserveA: amt(1_000), ReserveB: amt(2_000), FeeBps: 30}

	tests := []struct {
		name  string
		offer types.Asset
		in    uint64
		want  uint64
	}{
		{"zero", uatom, 0, 0},
		{"a to b", uatom, 100, 181},
		{"b to a", umarble, 100, 47},
		{"drain", uatom, 1_000_000, 1_997},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := p.Quote(tt.offer, amt(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Uint64())
		})
	}

	_, err := p.Quote(types.NativeAsset("uosmo"), amt(1))
	assert.ErrorIs(t, err, result.InvalidMessage)

	bad := *p
	bad.AssetB = bad.AssetA
	assert.ErrorIs(t, bad.Validate(), result.InvalidMessage)
}

func TestRegistryAddsCollections(t *testing.T) {
	ctx := context.Background()
	c, _ := newChain(t)

	reg, _, err := c.Instantiate(ctx, owner, registry.CodeID, "registry",
		json.RawMessage(fmt.Sprintf(`{"collection_code":%q}`, collection.CodeID)))
	require.NoError(t, err)

	_, err = c.Execute(ctx, seller, reg, json.RawMessage(fmt.Sprintf(
		`{"add_collection":{"token_code":%q,"name":"Pebbles","symbol":"PBL","settlement_asset":"native:umarble"}}`, NftCode)))
	require.NoError(t, err)

	data, err := c.Query(ctx, reg, json.RawMessage(`{"collection":{"id":1}}`))
	require.NoError(t, err)
	var entry registry.Collection
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.False(t, entry.TokenContract.IsEmpty())

	inst, err := c.Instance(ctx, entry.Contract)
	require.NoError(t, err)
	assert.Equal(t, collection.CodeID, inst.Code)
	assert.Equal(t, reg, inst.Admin)

	data, err = c.Query(ctx, entry.Contract, json.RawMessage(`{"get_config":{}}`))
	require.NoError(t, err)
	var cfg collection.Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, seller, cfg.Owner)
	assert.Equal(t, entry.TokenContract, cfg.TokenContract)

	data, err = c.Query(ctx, entry.TokenContract, json.RawMessage(`{"contract_info":{}}`))
	require.NoError(t, err)
	var info NftContractInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, entry.Contract, info.Minter)
}

func TestGenesisIsAppliedOnce(t *testing.T) {
	c, _ := newChain(t)
	addrs, err := c.InitGenesis(context.Background(), Genesis{
		Balances: []GenesisBalance{{Address: seller, Coin: types.NewCoin("umarble", 1)}},
	})
	require.NoError(t, err)
	assert.Nil(t, addrs)
	assert.Equal(t, uint64(0), balance(t, c, seller, umarble))

	data, err := c.Query(context.Background(), usdc, json.RawMessage(`{"balance":{"address":"marble1buyer"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"5000"}`, string(data))
}

func TestUnknownTargets(t *testing.T) {
	ctx := context.Background()
	c, _ := newChain(t)

	_, err := c.Execute(ctx, buyer, "marble1nowhere", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, result.UnknownContract)
	_, _, err = c.Instantiate(ctx, buyer, "no-such-code", "x", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, result.UnknownContract)
	_, err = c.Execute(ctx, buyer, usdc, json.RawMessage(`{"transfer":{}}`))
	assert.ErrorIs(t, err, result.UnknownContract)
	_, err = c.Transfer(ctx, buyer, seller, types.TokenAsset("marble1fake"), amt(1))
	assert.ErrorIs(t, err, result.UnknownContract)
	_, err = c.Transfer(ctx, buyer, seller, umarble, amt(1_000_000))
	assert.ErrorIs(t, err, result.InsufficientFunds)
}
