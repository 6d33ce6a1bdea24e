// Package vm defines the contract execution interface between contracts
// and the host chain.
package vm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/types"
)

// Block is the block a call executes in.
type Block struct {
	Height uint64 `json:"height"`
	// Time is the block time in unix seconds.
	Time uint64 `json:"time"`
}

// Env is the host-supplied execution environment.
type Env struct {
	Block    Block         `json:"block"`
	Contract types.Address `json:"contract"`
}

// MessageInfo identifies the caller and the native funds sent along.
type MessageInfo struct {
	Sender types.Address `json:"sender"`
	Funds  []types.Coin  `json:"funds"`
}

// Querier answers synchronous reads against other contracts.
type Querier interface {
	OwnerOf(ctx context.Context, contract types.Address, tokenID uint64) (types.Address, error)
	QuoteSwap(ctx context.Context, pool types.Address, offer types.Asset, amount *uint256.Int) (*uint256.Int, error)
	QueryContract(ctx context.Context, contract types.Address, msg json.RawMessage) (json.RawMessage, error)
}

// Deps bundles what a contract call may touch.
type Deps struct {
	Ctx     context.Context
	View    state.View
	Querier Querier
	Logger  *zap.Logger
}

// Attribute is a key/value pair attached to a response or an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a typed group of attributes emitted by a contract.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// NewEvent creates an event of type typ.
func NewEvent(typ string) Event {
	return Event{Type: typ}
}

// Add appends an attribute.
func (e Event) Add(key string, value interface{}) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: fmt.Sprint(value)})
	return e
}

// Get returns the value of key.
func (e Event) Get(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Response is the outcome of a successful execute call.
type Response struct {
	Instructions instruction.List `json:"instructions"`
	Attributes   []Attribute      `json:"attributes"`
	Events       []Event          `json:"events"`
}

// NewResponse returns an empty response.
func NewResponse() *Response {
	return &Response{}
}

// AddInstruction appends outbound instructions.
func (r *Response) AddInstruction(ins ...instruction.Instruction) *Response {
	r.Instructions = append(r.Instructions, ins...)
	return r
}

// AddAttribute appends a response attribute.
func (r *Response) AddAttribute(key string, value interface{}) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: fmt.Sprint(value)})
	return r
}

// AddEvent appends an event.
func (r *Response) AddEvent(e Event) *Response {
	r.Events = append(r.Events, e)
	return r
}

// Attribute returns the value of a response attribute.
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Reply reports the outcome of an Instantiate instruction back to the
// contract that emitted it.
type Reply struct {
	ID              uint64        `json:"id"`
	ContractAddress types.Address `json:"contract_address"`
}

// Contract is implemented by every contract the host can run. Messages are
// JSON documents; the contract decodes them into its own closed message
// types.
type Contract interface {
	Instantiate(deps Deps, env Env, info MessageInfo, msg json.RawMessage) (*Response, error)
	Execute(deps Deps, env Env, info MessageInfo, msg json.RawMessage) (*Response, error)
	Query(deps Deps, env Env, msg json.RawMessage) (json.RawMessage, error)
	Reply(deps Deps, env Env, reply Reply) (*Response, error)
}
