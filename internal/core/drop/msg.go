package drop

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// ExecuteMsg is the closed set of drop messages.
type ExecuteMsg interface {
	executeName() string
}

// Buy pays the price in the native pay asset.
type Buy struct{}

// Receive is the token contract hook. Msg is {"buy":{}}.
type Receive struct {
	Sender types.Address   `json:"sender"`
	Amount *uint256.Int    `json:"amount"`
	Msg    json.RawMessage `json:"msg"`
}

// Send hands a specific token out for free.
type Send struct {
	TokenID uint64        `json:"token_id"`
	Address types.Address `json:"address"`
}

// RegisterMerkleRoot opens a claim stage.
type RegisterMerkleRoot struct {
	MerkleRoot string  `json:"merkle_root"`
	Start      *uint64 `json:"start,omitempty"`
	Expiration *uint64 `json:"expiration,omitempty"`
}

// Claim redeems one token with a merkle proof of the sender.
type Claim struct {
	Proof []string `json:"proof"`
}

// UpdateOwner transfers ownership.
type UpdateOwner struct {
	Owner types.Address `json:"owner"`
}

// UpdateEnabled switches the drop on or off.
type UpdateEnabled struct {
	Enabled bool `json:"enabled"`
}

func (Buy) executeName() string                { return "buy" }
func (Receive) executeName() string            { return "receive" }
func (Send) executeName() string               { return "send" }
func (RegisterMerkleRoot) executeName() string { return "register_merkle_root" }
func (Claim) executeName() string              { return "claim" }
func (UpdateOwner) executeName() string        { return "update_owner" }
func (UpdateEnabled) executeName() string      { return "update_enabled" }

// DecodeExecuteMsg parses an externally tagged execute message.
func DecodeExecuteMsg(data json.RawMessage) (ExecuteMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "buy":
		return decodeAs[Buy](name, body)
	case "receive":
		return decodeAs[Receive](name, body)
	case "send":
		return decodeAs[Send](name, body)
	case "register_merkle_root":
		return decodeAs[RegisterMerkleRoot](name, body)
	case "claim":
		return decodeAs[Claim](name, body)
	case "update_owner":
		return decodeAs[UpdateOwner](name, body)
	case "update_enabled":
		return decodeAs[UpdateEnabled](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown execute message %q", name)
}

// QueryMsg is the closed set of drop queries.
type QueryMsg interface {
	queryName() string
}

type GetConfig struct{}

type GetSoldState struct {
	TokenID uint64 `json:"token_id"`
}

type MerkleRoot struct{}

type IsClaimed struct {
	Address types.Address `json:"address"`
}

func (GetConfig) queryName() string    { return "get_config" }
func (GetSoldState) queryName() string { return "get_sold_state" }
func (MerkleRoot) queryName() string   { return "merkle_root" }
func (IsClaimed) queryName() string    { return "is_claimed" }

// DecodeQueryMsg parses an externally tagged query.
func DecodeQueryMsg(data json.RawMessage) (QueryMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "get_config":
		return decodeAs[GetConfig](name, body)
	case "get_sold_state":
		return decodeAs[GetSoldState](name, body)
	case "merkle_root":
		return decodeAs[MerkleRoot](name, body)
	case "is_claimed":
		return decodeAs[IsClaimed](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown query %q", name)
}

func decodeAs[T any](name string, body json.RawMessage) (T, error) {
	var m T
	err := vm.DecodeBody(name, body, &m)
	return m, err
}
