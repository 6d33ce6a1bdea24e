package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/core/sale"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/mocks"
	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
	"github.com/LeJamon/goMarble/internal/types"
)

const (
	self    types.Address = "marble1collection"
	owner   types.Address = "marble1owner"
	tracker types.Address = "marble1tracker"
	seller  types.Address = "marble1seller"
	bidder  types.Address = "marble1bidder"
	fees    types.Address = "marble1fees"
	usdc    types.Address = "marble1usdc"
)

type harness struct {
	t        *testing.T
	contract *Contract
	deps     vm.Deps
	querier  *mocks.MockQuerier
	time     uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	q := mocks.NewMockQuerier(gomock.NewController(t))
	h := &harness{
		t:        t,
		contract: New(),
		deps:     vm.Deps{Ctx: context.Background(), View: state.NewStore(db), Querier: q},
		querier:  q,
		time:     1_000,
	}

	init := InstantiateMsg{
		TokenCode:       "marble-nft",
		Name:            "Marbles",
		Symbol:          "MRB",
		MaxTokens:       3,
		SettlementAsset: types.NativeAsset("umarble"),
		ProtocolFee:     Fee{Address: fees, Rate: royalty.Percent(2)},
	}
	data, err := json.Marshal(init)
	require.NoError(t, err)
	resp, err := h.contract.Instantiate(h.deps, h.env(), vm.MessageInfo{Sender: owner}, data)
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)
	inst := resp.Instructions[0].(instruction.Instantiate)
	assert.Equal(t, uint64(TrackerReplyID), inst.ReplyID)
	assert.Equal(t, "marble-nft", inst.Code)
	return h
}

func (h *harness) env() vm.Env {
	return vm.Env{Block: vm.Block{Height: 1, Time: h.time}, Contract: self}
}

func (h *harness) link() {
	_, err := h.contract.Reply(h.deps, h.env(), vm.Reply{ID: TrackerReplyID, ContractAddress: tracker})
	require.NoError(h.t, err)
}

func (h *harness) exec(sender types.Address, msg string, funds ...types.Coin) (*vm.Response, error) {
	return h.contract.Execute(h.deps, h.env(), vm.MessageInfo{Sender: sender, Funds: funds}, json.RawMessage(msg))
}

func (h *harness) query(msg string, out interface{}) error {
	data, err := h.contract.Query(h.deps, h.env(), json.RawMessage(msg))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (h *harness) listFixed(tokenID uint64, price uint64) {
	h.t.Helper()
	h.querier.EXPECT().OwnerOf(gomock.Any(), tracker, tokenID).Return(seller, nil)
	_, err := h.exec(seller, fmt.Sprintf(
		`{"start_sale":{"token_id":%d,"sale_type":"fixed","duration_type":"unbounded","initial_price":"%d","royalty":{"rate":{"value":0,"scale":0}}}}`,
		tokenID, price))
	require.NoError(h.t, err)
}

func TestInstantiateAndReply(t *testing.T) {
	h := newHarness(t)

	var cfg Config
	require.NoError(t, h.query(`{"get_config":{}}`, &cfg))
	assert.Equal(t, owner, cfg.Owner)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.TokenContract.IsEmpty())
	assert.Equal(t, uint64(1), cfg.UnusedTokenID)

	_, err := h.contract.Reply(h.deps, h.env(), vm.Reply{ID: 7, ContractAddress: tracker})
	assert.ErrorIs(t, err, result.InvalidReplyID)

	h.link()
	_, err = h.contract.Reply(h.deps, h.env(), vm.Reply{ID: TrackerReplyID, ContractAddress: "marble1other"})
	assert.ErrorIs(t, err, result.AlreadyLinked)

	require.NoError(t, h.query(`{"get_config":{}}`, &cfg))
	assert.Equal(t, tracker, cfg.TokenContract)
}

func TestInstantiateRejectsBadConfig(t *testing.T) {
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	deps := vm.Deps{View: state.NewStore(db)}

	_, err = New().Instantiate(deps, vm.Env{Contract: self}, vm.MessageInfo{Sender: owner},
		json.RawMessage(`{"token_code":"marble-nft","settlement_asset":"native:umarble","protocol_fee":{"rate":{"value":5,"scale":100}}}`))
	assert.ErrorIs(t, err, result.InvalidMessage)

	_, err = New().Instantiate(deps, vm.Env{Contract: self}, vm.MessageInfo{Sender: owner},
		json.RawMessage(`{"token_code":"marble-nft","settlement_asset":"native:umarble","protocol_fee":{"address":"a","rate":{"value":5,"scale":100}},"collection_royalty":{"address":"b","rate":{"value":5,"scale":1000000}}}`))
	assert.ErrorIs(t, err, result.InvalidMessage)
}

func TestMint(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(owner, `{"mint":{"uri":"ipfs://1"}}`)
	assert.ErrorIs(t, err, result.Uninitialized)

	h.link()
	_, err = h.exec(seller, `{"mint":{"uri":"ipfs://1"}}`)
	assert.ErrorIs(t, err, result.Unauthorized)

	resp, err := h.exec(owner, `{"mint":{"uri":"ipfs://1","owner":"marble1seller"}}`)
	require.NoError(t, err)
	m := resp.Instructions[0].(instruction.Mint)
	assert.Equal(t, uint64(1), m.TokenID)
	assert.Equal(t, seller, m.Owner)
	assert.Equal(t, tracker, m.Contract)

	_, err = h.exec(owner, `{"batch_mint":{"uri":["a","b"],"extension":[{}]}}`)
	assert.ErrorIs(t, err, result.CountNotMatch)

	_, err = h.exec(owner, `{"batch_mint":{"uri":["a","b","c"],"extension":[{},{},{}]}}`)
	assert.ErrorIs(t, err, result.SoldOut)

	resp, err = h.exec(owner, `{"batch_mint":{"uri":["a","b"],"extension":[{},{"k":"v"}]}}`)
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 2)
	assert.Equal(t, uint64(3), resp.Instructions[1].(instruction.Mint).TokenID)
	assert.Equal(t, owner, resp.Instructions[1].(instruction.Mint).Owner)

	_, err = h.exec(owner, `{"mint":{"uri":"ipfs://4"}}`)
	assert.ErrorIs(t, err, result.SoldOut)
}

func TestStartSaleThenGetSale(t *testing.T) {
	h := newHarness(t)
	h.link()

	h.querier.EXPECT().OwnerOf(gomock.Any(), tracker, uint64(2)).Return(seller, nil)
	resp, err := h.exec(seller, `{"start_sale":{"token_id":2,"sale_type":"auction","duration_type":{"time_bound":2000},"initial_price":"100","royalty":{"rate":{"value":5,"scale":100}}}}`)
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 1)
	assert.Equal(t, instruction.TransferNft{Contract: tracker, TokenID: 2, Recipient: self}, resp.Instructions[0])

	var r sale.Record
	require.NoError(t, h.query(`{"get_sale":{"token_id":2}}`, &r))
	assert.Empty(t, r.Requests)
	assert.Equal(t, uint32(0), r.WinningIndex)
	assert.Equal(t, sale.Auction, r.SaleType)
	assert.Equal(t, seller, r.Provider)

	h.querier.EXPECT().OwnerOf(gomock.Any(), tracker, uint64(3)).Return(bidder, nil)
	_, err = h.exec(seller, `{"start_sale":{"token_id":3,"sale_type":"offer","duration_type":"unbounded","initial_price":"1","royalty":{"rate":{"value":0,"scale":0}}}}`)
	assert.ErrorIs(t, err, result.Unauthorized)

	err = h.query(`{"get_sale":{"token_id":3}}`, &r)
	assert.ErrorIs(t, err, result.NotOnSale)
}

func TestStartSaleRejectsMixedRoyaltyScale(t *testing.T) {
	h := newHarness(t)
	h.link()
	h.querier.EXPECT().OwnerOf(gomock.Any(), tracker, uint64(2)).Return(seller, nil)
	_, err := h.exec(seller, `{"start_sale":{"token_id":2,"sale_type":"fixed","duration_type":"unbounded","initial_price":"100","royalty":{"rate":{"value":5,"scale":1000000}}}}`)
	assert.ErrorIs(t, err, result.InvalidMessage)
}

func TestReceiveNftListsToken(t *testing.T) {
	h := newHarness(t)
	h.link()

	hook := `{"receive_nft":{"sender":"marble1seller","token_id":4,"msg":{"start_sale":{"sale_type":"offer","duration_type":{"bid_bound":2},"initial_price":"100","royalty":{"rate":{"value":0,"scale":0}}}}}}`
	_, err := h.exec(seller, hook)
	assert.ErrorIs(t, err, result.Unauthorized)

	resp, err := h.exec(tracker, hook)
	require.NoError(t, err)
	assert.Empty(t, resp.Instructions)

	var r sale.Record
	require.NoError(t, h.query(`{"get_sale":{"token_id":4}}`, &r))
	assert.Equal(t, seller, r.Provider)
	assert.Equal(t, sale.NewBidBound(2), r.Duration)
}

func TestBuyWithNativeCoin(t *testing.T) {
	h := newHarness(t)
	h.link()
	h.listFixed(1, 1_000)

	_, err := h.exec(bidder, `{"propose":{"token_id":1,"price":"1000"}}`)
	require.NoError(t, err)

	_, err = h.exec(bidder, `{"buy":{"token_id":1}}`)
	assert.ErrorIs(t, err, result.IncorrectFunds)

	resp, err := h.exec(bidder, `{"buy":{"token_id":1}}`, types.NewCoin("umarble", 1_000))
	require.NoError(t, err)
	require.Len(t, resp.Instructions, 3)
	assert.Equal(t, instruction.TransferNft{Contract: tracker, TokenID: 1, Recipient: bidder}, resp.Instructions[0])
	assert.Equal(t, fees, resp.Instructions[1].(instruction.TransferAsset).Recipient)
	assert.Equal(t, uint64(20), resp.Instructions[1].(instruction.TransferAsset).Amount.Uint64())
	assert.Equal(t, seller, resp.Instructions[2].(instruction.TransferAsset).Recipient)
	assert.Equal(t, uint64(980), resp.Instructions[2].(instruction.TransferAsset).Amount.Uint64())

	require.Len(t, resp.Events, 1)
	ev := resp.Events[0]
	assert.Equal(t, "settle", ev.Type)
	v, _ := ev.Get("remainder")
	assert.Equal(t, "980", v)
	v, _ = ev.Get("buyer")
	assert.Equal(t, bidder.String(), v)

	_, err = h.exec(bidder, `{"buy":{"token_id":1}}`, types.NewCoin("umarble", 1_000))
	assert.ErrorIs(t, err, result.InvalidBuyParam)
}

func TestReceiveTokenPayment(t *testing.T) {
	h := newHarness(t)
	h.link()
	h.listFixed(1, 500)

	_, err := h.exec(bidder, `{"propose":{"token_id":1,"price":"500"}}`)
	require.NoError(t, err)

	// usdc has no entry pool
	_, err = h.exec(usdc, `{"receive":{"sender":"marble1bidder","amount":"500","msg":{"buy":{"token_id":1}}}}`)
	assert.ErrorIs(t, err, result.InvalidCw20Token)

	_, err = h.exec(usdc, `{"receive":{"sender":"marble1bidder","amount":"500","msg":{"list":{}}}}`)
	assert.ErrorIs(t, err, result.InvalidMessage)
}

func TestUpdatePriceAndRemoveSale(t *testing.T) {
	h := newHarness(t)
	h.link()
	h.listFixed(1, 500)
	h.listFixed(2, 500)

	_, err := h.exec(seller, `{"update_price":{"token_id":[1,2],"price":["1"]}}`)
	assert.ErrorIs(t, err, result.WrongLength)

	_, err = h.exec(seller, `{"update_price":{"token_id":[1,2],"price":["10","20"]}}`)
	require.NoError(t, err)

	var page SalesPage
	require.NoError(t, h.query(`{"get_sales":{}}`, &page))
	require.Len(t, page.Sales, 2)
	assert.Equal(t, uint64(10), page.Sales[0].InitialPrice.Uint64())
	assert.Equal(t, uint64(20), page.Sales[1].InitialPrice.Uint64())

	resp, err := h.exec(seller, `{"remove_sale":{"token_id":1}}`)
	require.NoError(t, err)
	assert.Equal(t, instruction.TransferNft{Contract: tracker, TokenID: 1, Recipient: seller}, resp.Instructions[0])

	require.NoError(t, h.query(`{"get_sales":{"start_after":1,"limit":50}}`, &page))
	require.Len(t, page.Sales, 1)
	assert.Equal(t, uint64(2), page.Sales[0].TokenID)
}

func TestEnabledGate(t *testing.T) {
	h := newHarness(t)
	h.link()

	_, err := h.exec(seller, `{"update_enabled":{"enabled":false}}`)
	assert.ErrorIs(t, err, result.Unauthorized)

	_, err = h.exec(owner, `{"update_enabled":{"enabled":false}}`)
	require.NoError(t, err)

	_, err = h.exec(owner, `{"mint":{"uri":"x"}}`)
	assert.ErrorIs(t, err, result.Disabled)
	_, err = h.exec(owner, `{"update_owner":{"owner":"marble1next"}}`)
	assert.ErrorIs(t, err, result.Disabled)
	_, err = h.exec(bidder, `{"propose":{"token_id":1,"price":"1"}}`)
	assert.ErrorIs(t, err, result.Disabled)

	var cfg Config
	require.NoError(t, h.query(`{"get_config":{}}`, &cfg), "queries stay available")
	assert.False(t, cfg.Enabled)

	_, err = h.exec(owner, `{"update_enabled":{"enabled":true}}`)
	require.NoError(t, err, "the owner can re-enable a disabled contract")
	_, err = h.exec(owner, `{"mint":{"uri":"x"}}`)
	require.NoError(t, err)
}

func TestOwnerOperations(t *testing.T) {
	h := newHarness(t)

	_, err := h.exec(seller, `{"update_owner":{"owner":"marble1seller"}}`)
	assert.ErrorIs(t, err, result.Unauthorized)

	_, err = h.exec(owner, `{"change_linked_contract":{"address":"marble1tracker2"}}`)
	require.NoError(t, err)
	_, err = h.exec(owner, `{"update_owner":{"owner":"marble1seller"}}`)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, h.query(`{"get_config":{}}`, &cfg))
	assert.Equal(t, seller, cfg.Owner)
	assert.Equal(t, types.Address("marble1tracker2"), cfg.TokenContract)
}

func TestChangeLinkedContractWhileListed(t *testing.T) {
	h := newHarness(t)
	h.link()
	h.listFixed(1, 500)

	_, err := h.exec(owner, `{"change_linked_contract":{"address":"marble1tracker2"}}`)
	assert.ErrorIs(t, err, result.AlreadyOnSale)

	var cfg Config
	require.NoError(t, h.query(`{"get_config":{}}`, &cfg))
	assert.Equal(t, tracker, cfg.TokenContract)

	resp, err := h.exec(seller, `{"remove_sale":{"token_id":1}}`)
	require.NoError(t, err)
	assert.Equal(t, instruction.TransferNft{Contract: tracker, TokenID: 1, Recipient: seller}, resp.Instructions[0])

	_, err = h.exec(owner, `{"change_linked_contract":{"address":"marble1tracker2"}}`)
	require.NoError(t, err, "an empty ledger may relink")
}

func TestGetBaseAmount(t *testing.T) {
	h := newHarness(t)

	var out BaseAmount
	require.NoError(t, h.query(`{"get_base_amount":{"asset":"native:umarble","amount":"77"}}`, &out))
	assert.Equal(t, uint256.NewInt(77), out.Amount)
	assert.Equal(t, 0, out.Hops)

	err := h.query(`{"get_base_amount":{"asset":"native:uluna","amount":"77"}}`, &out)
	assert.ErrorIs(t, err, result.IncorrectFunds)
}

func TestUnknownMessages(t *testing.T) {
	h := newHarness(t)
	_, err := h.exec(owner, `{"self_destruct":{}}`)
	assert.ErrorIs(t, err, result.InvalidMessage)
	err = h.query(`{"get_everything":{}}`, nil)
	assert.ErrorIs(t, err, result.InvalidMessage)
}
