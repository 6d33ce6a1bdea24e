package collection

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/sale"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// ExecuteMsg is the closed set of mutating messages.
type ExecuteMsg interface {
	executeName() string
}

// StartSale lists a token the sender holds.
type StartSale struct {
	TokenID      uint64        `json:"token_id"`
	SaleType     sale.SaleType `json:"sale_type"`
	Duration     sale.Duration `json:"duration_type"`
	InitialPrice *uint256.Int  `json:"initial_price"`
	Royalty      sale.Royalty  `json:"royalty"`
}

// Propose submits a bid or offer.
type Propose struct {
	TokenID uint64       `json:"token_id"`
	Price   *uint256.Int `json:"price"`
}

// Buy settles a sale with the native coin attached to the call.
type Buy struct {
	TokenID uint64 `json:"token_id"`
}

// Receive is the token contract hook. Msg carries a Buy or a Propose.
type Receive struct {
	Sender types.Address   `json:"sender"`
	Amount *uint256.Int    `json:"amount"`
	Msg    json.RawMessage `json:"msg"`
}

// ReceiveNft is the tracker hook fired after custody moved to the
// contract. Msg carries a StartSale whose token id is ignored.
type ReceiveNft struct {
	Sender  types.Address   `json:"sender"`
	TokenID uint64          `json:"token_id"`
	Msg     json.RawMessage `json:"msg"`
}

// UpdatePrice changes the initial price of listings without requests.
type UpdatePrice struct {
	TokenIDs []uint64       `json:"token_id"`
	Prices   []*uint256.Int `json:"price"`
}

// RemoveSale withdraws a listing and returns the token to its provider.
type RemoveSale struct {
	TokenID uint64 `json:"token_id"`
}

// Mint creates one token.
type Mint struct {
	URI       string          `json:"uri"`
	Extension json.RawMessage `json:"extension,omitempty"`
	Owner     types.Address   `json:"owner,omitempty"`
}

// BatchMint creates one token per URI.
type BatchMint struct {
	URIs       []string          `json:"uri"`
	Extensions []json.RawMessage `json:"extension"`
	Owner      types.Address     `json:"owner,omitempty"`
}

// ChangeLinkedContract replaces the token tracker address.
type ChangeLinkedContract struct {
	Address types.Address `json:"address"`
}

// UpdateOwner transfers contract ownership.
type UpdateOwner struct {
	Owner types.Address `json:"owner"`
}

// UpdateEnabled switches the contract on or off.
type UpdateEnabled struct {
	Enabled bool `json:"enabled"`
}

func (StartSale) executeName() string            { return "start_sale" }
func (Propose) executeName() string              { return "propose" }
func (Buy) executeName() string                  { return "buy" }
func (Receive) executeName() string              { return "receive" }
func (ReceiveNft) executeName() string           { return "receive_nft" }
func (UpdatePrice) executeName() string          { return "update_price" }
func (RemoveSale) executeName() string           { return "remove_sale" }
func (Mint) executeName() string                 { return "mint" }
func (BatchMint) executeName() string            { return "batch_mint" }
func (ChangeLinkedContract) executeName() string { return "change_linked_contract" }
func (UpdateOwner) executeName() string          { return "update_owner" }
func (UpdateEnabled) executeName() string        { return "update_enabled" }

// DecodeExecuteMsg parses an externally tagged execute message.
func DecodeExecuteMsg(data json.RawMessage) (ExecuteMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "start_sale":
		return decodeAs[StartSale](name, body)
	case "propose":
		return decodeAs[Propose](name, body)
	case "buy":
		return decodeAs[Buy](name, body)
	case "receive":
		return decodeAs[Receive](name, body)
	case "receive_nft":
		return decodeAs[ReceiveNft](name, body)
	case "update_price":
		return decodeAs[UpdatePrice](name, body)
	case "remove_sale":
		return decodeAs[RemoveSale](name, body)
	case "mint":
		return decodeAs[Mint](name, body)
	case "batch_mint":
		return decodeAs[BatchMint](name, body)
	case "change_linked_contract":
		return decodeAs[ChangeLinkedContract](name, body)
	case "update_owner":
		return decodeAs[UpdateOwner](name, body)
	case "update_enabled":
		return decodeAs[UpdateEnabled](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown execute message %q", name)
}

// QueryMsg is the closed set of read-only messages.
type QueryMsg interface {
	queryName() string
}

// GetConfig returns the contract configuration.
type GetConfig struct{}

// GetSale returns one sale record.
type GetSale struct {
	TokenID uint64 `json:"token_id"`
}

// GetSales pages through sale records.
type GetSales struct {
	StartAfter *uint64 `json:"start_after,omitempty"`
	Limit      uint32  `json:"limit,omitempty"`
}

// GetBaseAmount quotes the settlement value of a payment.
type GetBaseAmount struct {
	Asset  types.Asset  `json:"asset"`
	Amount *uint256.Int `json:"amount"`
}

func (GetConfig) queryName() string     { return "get_config" }
func (GetSale) queryName() string       { return "get_sale" }
func (GetSales) queryName() string      { return "get_sales" }
func (GetBaseAmount) queryName() string { return "get_base_amount" }

// DecodeQueryMsg parses an externally tagged query message.
func DecodeQueryMsg(data json.RawMessage) (QueryMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "get_config":
		return decodeAs[GetConfig](name, body)
	case "get_sale":
		return decodeAs[GetSale](name, body)
	case "get_sales":
		return decodeAs[GetSales](name, body)
	case "get_base_amount":
		return decodeAs[GetBaseAmount](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown query %q", name)
}

// EncodeExecuteMsg tags msg with its variant name.
func EncodeExecuteMsg(msg ExecuteMsg) (json.RawMessage, error) {
	return vm.Tagged(msg.executeName(), msg)
}

// EncodeQueryMsg tags msg with its variant name.
func EncodeQueryMsg(msg QueryMsg) (json.RawMessage, error) {
	return vm.Tagged(msg.queryName(), msg)
}

// hookMsg is the message embedded in a Receive hook.
type hookMsg interface {
	hookName() string
}

func (Buy) hookName() string     { return "buy" }
func (Propose) hookName() string { return "propose" }

func decodeHookMsg(data json.RawMessage) (hookMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "buy":
		return decodeAs[Buy](name, body)
	case "propose":
		return decodeAs[Propose](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown receive message %q", name)
}

func decodeAs[T any](name string, body json.RawMessage) (T, error) {
	var m T
	err := vm.DecodeBody(name, body, &m)
	return m, err
}
