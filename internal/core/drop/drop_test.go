package drop

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
	"github.com/LeJamon/goMarble/internal/types"
)

const (
	self    types.Address = "marble1drop"
	owner   types.Address = "marble1owner"
	tracker types.Address = "marble1tracker"
	alice   types.Address = "marble1alice"
	bob     types.Address = "marble1bob"
	carol   types.Address = "marble1carol"
	usdc    types.Address = "marble1usdc"
)

type harness struct {
	t        *testing.T
	contract *Contract
	deps     vm.Deps
	time     uint64
}

func newHarness(t *testing.T, asset types.Asset) *harness {
	t.Helper()
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		t:        t,
		contract: New(),
		deps:     vm.Deps{Ctx: context.Background(), View: state.NewStore(db)},
		time:     1_000,
	}
	data, err := json.Marshal(InstantiateMsg{
		TokenContract: tracker,
		PayAsset:      asset,
		Price:         uint256.NewInt(10),
		Count:         3,
	})
	require.NoError(t, err)
	_, err = h.contract.Instantiate(h.deps, h.env(), vm.MessageInfo{Sender: owner}, data)
	require.NoError(t, err)
	return h
}

func (h *harness) env() vm.Env {
	return vm.Env{Block: vm.Block{Height: 1, Time: h.time}, Contract: self}
}

func (h *harness) exec(sender types.Address, msg string, funds ...types.Coin) (*vm.Response, error) {
	return h.contract.Execute(h.deps, h.env(), vm.MessageInfo{Sender: sender, Funds: funds}, json.RawMessage(msg))
}

func (h *harness) config() Config {
	var cfg Config
	data, err := h.contract.Query(h.deps, h.env(), json.RawMessage(`{"get_config":{}}`))
	require.NoError(h.t, err)
	require.NoError(h.t, json.Unmarshal(data, &cfg))
	return cfg
}

func handedOut(t *testing.T, resp *vm.Response) uint64 {
	t.Helper()
	for _, ins := range resp.Instructions {
		if nft, ok := ins.(instruction.TransferNft); ok {
			assert.Equal(t, tracker, nft.Contract)
			return nft.TokenID
		}
	}
	t.Fatalf("no nft transfer in %v", resp.Instructions)
	return 0
}

func TestInstantiateValidation(t *testing.T) {
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	deps := vm.Deps{View: state.NewStore(db)}

	for name, msg := range map[string]string{
		"no token":  `{"pay_asset":"native:umarble","price":"1","count":1}`,
		"no count":  `{"token_contract":"marble1tracker","pay_asset":"native:umarble","price":"1","count":0}`,
		"bad asset": `{"token_contract":"marble1tracker","pay_asset":"","price":"1","count":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New().Instantiate(deps, vm.Env{}, vm.MessageInfo{Sender: owner}, json.RawMessage(msg))
			assert.ErrorIs(t, err, result.InvalidMessage)
		})
	}
}

func TestBuyPicksByBlockTime(t *testing.T) {
	h := newHarness(t, types.NativeAsset("umarble"))

	// 1000 % 3 = 1, then 1000 % 2 = 0 over {1, 3}, then the last one.
	want := []uint64{2, 1, 3}
	for i, id := range want {
		resp, err := h.exec(alice, `{"buy":{}}`, types.NewCoin("umarble", 10))
		require.NoError(t, err, "buy %d", i)
		assert.Equal(t, id, handedOut(t, resp))

		pay := resp.Instructions[1].(instruction.TransferAsset)
		assert.Equal(t, owner, pay.Recipient)
		assert.Equal(t, uint64(10), pay.Amount.Uint64())
	}
	assert.Equal(t, uint64(3), h.config().SoldCount)

	_, err := h.exec(alice, `{"buy":{}}`, types.NewCoin("umarble", 10))
	assert.ErrorIs(t, err, result.SoldOut)
}

func TestBuyFunds(t *testing.T) {
	h := newHarness(t, types.NativeAsset("umarble"))

	_, err := h.exec(alice, `{"buy":{}}`, types.NewCoin("umarble", 9))
	assert.ErrorIs(t, err, result.IncorrectFunds)
	_, err = h.exec(alice, `{"buy":{}}`, types.NewCoin("uatom", 10))
	assert.ErrorIs(t, err, result.IncorrectFunds)
	_, err = h.exec(alice, `{"buy":{}}`)
	assert.ErrorIs(t, err, result.IncorrectFunds)
	assert.Equal(t, uint64(0), h.config().SoldCount)
}

func TestReceiveTokenPayment(t *testing.T) {
	h := newHarness(t, types.TokenAsset(usdc))

	_, err := h.exec(alice, `{"buy":{}}`, types.NewCoin("umarble", 10))
	assert.ErrorIs(t, err, result.IncorrectFunds)

	hook := `{"receive":{"sender":"marble1alice","amount":"10","msg":{"buy":{}}}}`
	_, err = h.exec("marble1other", hook)
	assert.ErrorIs(t, err, result.InvalidCw20Token)

	resp, err := h.exec(usdc, hook)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), handedOut(t, resp))
	nft := resp.Instructions[0].(instruction.TransferNft)
	assert.Equal(t, alice, nft.Recipient)
	pay := resp.Instructions[1].(instruction.TransferAsset)
	assert.Equal(t, types.TokenAsset(usdc), pay.Asset)

	_, err = h.exec(usdc, `{"receive":{"sender":"marble1alice","amount":"10","msg":{"claim":{}}}}`)
	assert.ErrorIs(t, err, result.InvalidMessage)
}

func TestSendByOwner(t *testing.T) {
	h := newHarness(t, types.NativeAsset("umarble"))

	_, err := h.exec(alice, `{"send":{"token_id":3,"address":"marble1alice"}}`)
	assert.ErrorIs(t, err, result.Unauthorized)

	resp, err := h.exec(owner, `{"send":{"token_id":3,"address":"marble1alice"}}`)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), handedOut(t, resp))

	_, err = h.exec(owner, `{"send":{"token_id":3,"address":"marble1bob"}}`)
	assert.ErrorIs(t, err, result.SoldOut)
	_, err = h.exec(owner, `{"send":{"token_id":4,"address":"marble1bob"}}`)
	assert.ErrorIs(t, err, result.SoldOut)

	data, err := h.contract.Query(h.deps, h.env(), json.RawMessage(`{"get_sold_state":{"token_id":3}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(data))
}

func TestMerkleTree(t *testing.T) {
	addrs := []types.Address{alice, bob, carol}
	tree := NewTree(addrs)
	for i, a := range addrs {
		var proof []Hash
		for _, p := range tree.Proof(i) {
			h, err := ParseHash(p)
			require.NoError(t, err)
			proof = append(proof, h)
		}
		assert.Equal(t, tree.Root(), Fold(Leaf(a), proof), "leaf %d", i)
	}
	assert.NotEqual(t, tree.Root(), Fold(Leaf("marble1mallory"), nil))
	assert.Equal(t, HashPair(Leaf(alice), Leaf(bob)), HashPair(Leaf(bob), Leaf(alice)))

	_, err := ParseHash("abcd")
	assert.Error(t, err)
	_, err = ParseHash("zz")
	assert.Error(t, err)
}

func proofJSON(t *testing.T, proof []string) string {
	data, err := json.Marshal(proof)
	require.NoError(t, err)
	return fmt.Sprintf(`{"claim":{"proof":%s}}`, data)
}

func TestClaim(t *testing.T) {
	h := newHarness(t, types.NativeAsset("umarble"))
	tree := NewTree([]types.Address{alice, bob, carol})

	_, err := h.exec(bob, proofJSON(t, tree.Proof(1)))
	assert.ErrorIs(t, err, result.Uninitialized)

	_, err = h.exec(alice, fmt.Sprintf(`{"register_merkle_root":{"merkle_root":"%s"}}`, tree.Root()))
	assert.ErrorIs(t, err, result.Unauthorized)
	_, err = h.exec(owner, `{"register_merkle_root":{"merkle_root":"00"}}`)
	assert.ErrorIs(t, err, result.InvalidMessage)
	_, err = h.exec(owner, fmt.Sprintf(
		`{"register_merkle_root":{"merkle_root":"%s","start":1500,"expiration":2000}}`, tree.Root()))
	require.NoError(t, err)

	_, err = h.exec(bob, proofJSON(t, tree.Proof(1)))
	assert.ErrorIs(t, err, result.StageNotBegun)

	h.time = 1_500
	_, err = h.exec(bob, proofJSON(t, tree.Proof(0)))
	assert.ErrorIs(t, err, result.VerificationFailed)
	_, err = h.exec("marble1mallory", proofJSON(t, tree.Proof(1)))
	assert.ErrorIs(t, err, result.VerificationFailed)

	resp, err := h.exec(bob, proofJSON(t, tree.Proof(1)))
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)
	// 1500 % 3 = 0
	assert.Equal(t, uint64(1), handedOut(t, resp))

	_, err = h.exec(bob, proofJSON(t, tree.Proof(1)))
	assert.ErrorIs(t, err, result.Claimed)

	data, err := h.contract.Query(h.deps, h.env(), json.RawMessage(`{"is_claimed":{"address":"marble1bob"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_claimed":true}`, string(data))

	h.time = 2_000
	_, err = h.exec(carol, proofJSON(t, tree.Proof(2)))
	assert.ErrorIs(t, err, result.StageExpired)
}

func TestEnabledGate(t *testing.T) {
	h := newHarness(t, types.NativeAsset("umarble"))

	_, err := h.exec(alice, `{"update_enabled":{"enabled":false}}`)
	assert.ErrorIs(t, err, result.Unauthorized)
	_, err = h.exec(owner, `{"update_enabled":{"enabled":false}}`)
	require.NoError(t, err)

	_, err = h.exec(alice, `{"buy":{}}`, types.NewCoin("umarble", 10))
	assert.ErrorIs(t, err, result.Disabled)

	_, err = h.exec(owner, `{"update_enabled":{"enabled":true}}`)
	require.NoError(t, err)
	_, err = h.exec(owner, `{"update_owner":{"owner":"marble1alice"}}`)
	require.NoError(t, err)
	assert.Equal(t, alice, h.config().Owner)
	assert.True(t, h.config().Enabled)
}

func TestUnknownMessages(t *testing.T) {
	h := newHarness(t, types.NativeAsset("umarble"))
	_, err := h.exec(alice, `{"steal":{}}`)
	assert.ErrorIs(t, err, result.InvalidMessage)
	_, err = h.contract.Query(h.deps, h.env(), json.RawMessage(`{"nope":{}}`))
	assert.ErrorIs(t, err, result.InvalidMessage)
	_, err = h.contract.Query(h.deps, h.env(), json.RawMessage(`{"merkle_root":{}}`))
	assert.ErrorIs(t, err, result.NotFound)
}
