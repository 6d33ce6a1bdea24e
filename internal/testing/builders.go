package testing

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/core/sale"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/types"
)

// GenesisBuilder assembles a genesis fluently.
type GenesisBuilder struct {
	g host.Genesis
}

// NewGenesis starts an empty genesis.
func NewGenesis() *GenesisBuilder {
	return &GenesisBuilder{}
}

// Fund credits amount of a native denom to acc.
func (b *GenesisBuilder) Fund(acc *Account, denom string, amount uint64) *GenesisBuilder {
	b.g.Balances = append(b.g.Balances, host.GenesisBalance{Address: acc.Address, Coin: types.NewCoin(denom, amount)})
	return b
}

// Token creates a fungible token at addr with the given holdings.
func (b *GenesisBuilder) Token(addr types.Address, symbol string, holders map[*Account]uint64) *GenesisBuilder {
	tok := host.GenesisToken{Address: addr}
	tok.Name, tok.Symbol, tok.Decimals = symbol, symbol, 6
	for acc, amount := range holders {
		tok.InitialBalances = append(tok.InitialBalances, host.Holding{Address: acc.Address, Amount: uint256.NewInt(amount)})
	}
	b.g.Tokens = append(b.g.Tokens, tok)
	return b
}

// Pool creates a constant-product pool.
func (b *GenesisBuilder) Pool(addr types.Address, assetA, assetB types.Asset, reserveA, reserveB, feeBps uint64) *GenesisBuilder {
	b.g.Pools = append(b.g.Pools, host.Pool{
		Address:  addr,
		AssetA:   assetA,
		AssetB:   assetB,
		ReserveA: uint256.NewInt(reserveA),
		ReserveB: uint256.NewInt(reserveB),
		FeeBps:   feeBps,
	})
	return b
}

// Build returns the genesis.
func (b *GenesisBuilder) Build() host.Genesis {
	return b.g
}

// CollectionMsg returns a fee-free collection settling in umarble with no
// swap route.
func CollectionMsg(owner *Account) collection.InstantiateMsg {
	return collection.InstantiateMsg{
		Owner:           owner.Address,
		TokenCode:       host.NftCode,
		Name:            "Marbles",
		Symbol:          "MRB",
		SettlementAsset: types.NativeAsset("umarble"),
	}
}

// WithProtocolFee sets the protocol fee of msg in percent.
func WithProtocolFee(msg collection.InstantiateMsg, collector *Account, percent uint64) collection.InstantiateMsg {
	msg.ProtocolFee = collection.Fee{Address: collector.Address, Rate: royalty.Percent(percent)}
	return msg
}

// WithSwap routes payments in entry through entryPool into intermediate,
// then through exit into the settlement asset.
func WithSwap(msg collection.InstantiateMsg, intermediate, entry types.Asset, entryPool, exit types.Address) collection.InstantiateMsg {
	msg.Swap = collection.SwapConfig{
		Intermediate: intermediate,
		Entry:        []collection.EntryPool{{Asset: entry, Pool: entryPool}},
		Exit:         exit,
	}
	return msg
}

func encode(msg collection.ExecuteMsg) json.RawMessage {
	raw, err := collection.EncodeExecuteMsg(msg)
	if err != nil {
		panic("failed to encode message: " + err.Error())
	}
	return raw
}

// Mint mints one token to owner.
func Mint(uri string, owner *Account) json.RawMessage {
	return encode(collection.Mint{URI: uri, Owner: owner.Address})
}

// StartSale lists tokenID with no seller royalty.
func StartSale(tokenID uint64, saleType sale.SaleType, duration sale.Duration, price uint64) json.RawMessage {
	return encode(collection.StartSale{
		TokenID:      tokenID,
		SaleType:     saleType,
		Duration:     duration,
		InitialPrice: uint256.NewInt(price),
	})
}

// StartSaleWithRoyalty lists tokenID with a seller royalty in percent.
func StartSaleWithRoyalty(tokenID uint64, saleType sale.SaleType, duration sale.Duration, price uint64, recipient *Account, percent uint64) json.RawMessage {
	return encode(collection.StartSale{
		TokenID:      tokenID,
		SaleType:     saleType,
		Duration:     duration,
		InitialPrice: uint256.NewInt(price),
		Royalty:      sale.Royalty{Address: recipient.Address, Rate: royalty.Percent(percent)},
	})
}

// Propose bids price on tokenID.
func Propose(tokenID, price uint64) json.RawMessage {
	return encode(collection.Propose{TokenID: tokenID, Price: uint256.NewInt(price)})
}

// Buy settles tokenID.
func Buy(tokenID uint64) json.RawMessage {
	return encode(collection.Buy{TokenID: tokenID})
}

// RemoveSale withdraws tokenID.
func RemoveSale(tokenID uint64) json.RawMessage {
	return encode(collection.RemoveSale{TokenID: tokenID})
}

// Coins builds funds of one native denom.
func Coins(denom string, amount uint64) []types.Coin {
	return []types.Coin{types.NewCoin(denom, amount)}
}
