package registry

import (
	"encoding/json"

	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// ExecuteMsg is the closed set of registry messages.
type ExecuteMsg interface {
	executeName() string
}

// AddCollection instantiates a collection with the given parameters. It
// is open to anyone; the caller becomes the collection owner unless one
// is named.
type AddCollection collection.InstantiateMsg

type RemoveCollection struct {
	ID uint64 `json:"id"`
}

type RemoveAllCollection struct{}

// UpdateConfig changes the owner and/or the collection code.
type UpdateConfig struct {
	Owner          *types.Address `json:"owner,omitempty"`
	CollectionCode *string        `json:"collection_code,omitempty"`
}

func (AddCollection) executeName() string       { return "add_collection" }
func (RemoveCollection) executeName() string    { return "remove_collection" }
func (RemoveAllCollection) executeName() string { return "remove_all_collection" }
func (UpdateConfig) executeName() string        { return "update_config" }

// DecodeExecuteMsg parses an externally tagged execute message.
func DecodeExecuteMsg(data json.RawMessage) (ExecuteMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "add_collection":
		return decodeAs[AddCollection](name, body)
	case "remove_collection":
		return decodeAs[RemoveCollection](name, body)
	case "remove_all_collection":
		return decodeAs[RemoveAllCollection](name, body)
	case "update_config":
		return decodeAs[UpdateConfig](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown execute message %q", name)
}

// QueryMsg is the closed set of registry queries.
type QueryMsg interface {
	queryName() string
}

type GetConfig struct{}

type GetCollection struct {
	ID uint64 `json:"id"`
}

type ListCollections struct {
	StartAfter *uint64 `json:"start_after,omitempty"`
	Limit      uint32  `json:"limit,omitempty"`
}

func (GetConfig) queryName() string       { return "config" }
func (GetCollection) queryName() string   { return "collection" }
func (ListCollections) queryName() string { return "list_collections" }

// DecodeQueryMsg parses an externally tagged query.
func DecodeQueryMsg(data json.RawMessage) (QueryMsg, error) {
	name, body, err := vm.SplitVariant(data)
	if err != nil {
		return nil, err
	}
	switch name {
	case "config":
		return decodeAs[GetConfig](name, body)
	case "collection":
		return decodeAs[GetCollection](name, body)
	case "list_collections":
		return decodeAs[ListCollections](name, body)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown query %q", name)
}

func decodeAs[T any](name string, body json.RawMessage) (T, error) {
	var m T
	err := vm.DecodeBody(name, body, &m)
	return m, err
}
