// Package instruction defines the outbound effects a contract call asks the
// host to execute, in order, within the same transaction.
package instruction

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/types"
)

// Kind identifies an instruction variant.
type Kind int

const (
	KindTransferNft Kind = iota + 1
	KindTransferAsset
	KindSwap
	KindMint
	KindInstantiate
)

func (k Kind) String() string {
	switch k {
	case KindTransferNft:
		return "transfer_nft"
	case KindTransferAsset:
		return "transfer_asset"
	case KindSwap:
		return "swap"
	case KindMint:
		return "mint"
	case KindInstantiate:
		return "instantiate"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Instruction is implemented by every outbound effect. The set is closed.
type Instruction interface {
	Kind() Kind
	isInstruction()
}

// TransferNft moves custody of a token held by a tracker contract.
type TransferNft struct {
	Contract  types.Address `json:"contract"`
	TokenID   uint64        `json:"token_id"`
	Recipient types.Address `json:"recipient"`
}

// TransferAsset pays an amount of a native or token asset.
type TransferAsset struct {
	Asset     types.Asset   `json:"asset"`
	Recipient types.Address `json:"recipient"`
	Amount    *uint256.Int  `json:"amount"`
}

// Swap offers Amount of Offer to Pool and requires at least MinimumReceive
// of Ask back.
type Swap struct {
	Pool           types.Address `json:"pool"`
	Offer          types.Asset   `json:"offer"`
	Ask            types.Asset   `json:"ask"`
	Amount         *uint256.Int  `json:"amount"`
	MinimumReceive *uint256.Int  `json:"minimum_receive"`
}

// Mint creates a token on a tracker contract.
type Mint struct {
	Contract  types.Address   `json:"contract"`
	TokenID   uint64          `json:"token_id"`
	Owner     types.Address   `json:"owner"`
	URI       string          `json:"uri"`
	Extension json.RawMessage `json:"extension,omitempty"`
}

// Instantiate creates a contract instance. The host answers with a reply
// carrying ReplyID and the new address.
type Instantiate struct {
	Code    string          `json:"code"`
	Label   string          `json:"label"`
	Admin   types.Address   `json:"admin,omitempty"`
	Msg     json.RawMessage `json:"msg"`
	ReplyID uint64          `json:"reply_id"`
}

func (TransferNft) Kind() Kind   { return KindTransferNft }
func (TransferAsset) Kind() Kind { return KindTransferAsset }
func (Swap) Kind() Kind          { return KindSwap }
func (Mint) Kind() Kind          { return KindMint }
func (Instantiate) Kind() Kind   { return KindInstantiate }

func (TransferNft) isInstruction()   {}
func (TransferAsset) isInstruction() {}
func (Swap) isInstruction()          {}
func (Mint) isInstruction()          {}
func (Instantiate) isInstruction()   {}

// Marshal renders one instruction as {"<kind>": {...}}.
func Marshal(ins Instruction) ([]byte, error) {
	return json.Marshal(map[string]Instruction{ins.Kind().String(): ins})
}

// List is an ordered instruction queue.
type List []Instruction

// MarshalJSON encodes each instruction tagged with its kind.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(l))
	for _, ins := range l {
		data, err := Marshal(ins)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return json.Marshal(out)
}
