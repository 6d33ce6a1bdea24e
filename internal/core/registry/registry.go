// Package registry is the marketplace index: it instantiates collection
// contracts and keeps a numbered list of them with their token trackers.
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/codec"
	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

const (
	// CodeID is the code name under which the host registers this contract.
	CodeID = "marble-registry"

	// CollectionReplyID tags the collection instantiation reply.
	CollectionReplyID = 2

	DefaultLimit = 20
	MaxLimit     = 30
)

// Config is the registry configuration.
type Config struct {
	Owner           types.Address `json:"owner" codec:"owner"`
	CollectionCode  string        `json:"collection_code" codec:"collection_code"`
	MaxCollectionID uint64        `json:"max_collection_id" codec:"max_collection_id"`
}

// Collection is one registered collection.
type Collection struct {
	ID            uint64        `json:"id" codec:"id"`
	Contract      types.Address `json:"collection_addr" codec:"contract"`
	TokenContract types.Address `json:"cw721_addr" codec:"token"`
}

// InstantiateMsg creates a registry.
type InstantiateMsg struct {
	Owner          types.Address `json:"owner,omitempty"`
	CollectionCode string        `json:"collection_code"`
}

type pending struct {
	Name  string `codec:"name"`
	Owner string `codec:"owner"`
}

// Contract implements vm.Contract.
type Contract struct{}

// New returns the registry contract.
func New() *Contract {
	return &Contract{}
}

func loadConfig(v state.View) (*Config, error) {
	var cfg Config
	found, err := state.Load(v, state.Config(), &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.Uninitialized, "registry is not instantiated")
	}
	return &cfg, nil
}

func (*Contract) Instantiate(deps vm.Deps, env vm.Env, info vm.MessageInfo, msg json.RawMessage) (*vm.Response, error) {
	var init InstantiateMsg
	if err := vm.DecodeBody("instantiate", msg, &init); err != nil {
		return nil, err
	}
	if init.CollectionCode == "" {
		return nil, result.Wrap(result.InvalidMessage, "collection_code is required")
	}
	cfg := &Config{Owner: init.Owner, CollectionCode: init.CollectionCode}
	if cfg.Owner.IsEmpty() {
		cfg.Owner = info.Sender
	}
	if err := state.Save(deps.View, state.Config(), cfg); err != nil {
		return nil, err
	}
	return vm.NewResponse().AddAttribute("action", "instantiate").AddAttribute("owner", cfg.Owner), nil
}

func (*Contract) Execute(deps vm.Deps, env vm.Env, info vm.MessageInfo, raw json.RawMessage) (*vm.Response, error) {
	msg, err := DecodeExecuteMsg(raw)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.View)
	if err != nil {
		return nil, err
	}
	if _, open := msg.(AddCollection); !open && info.Sender != cfg.Owner {
		return nil, result.Wrap(result.Unauthorized, "%s is not the owner", info.Sender)
	}

	switch m := msg.(type) {
	case AddCollection:
		return addCollection(deps, env, info, cfg, m)
	case RemoveCollection:
		k := state.Collection(m.ID)
		found, err := deps.View.Exists(k)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, result.Wrap(result.NotFound, "collection %d", m.ID)
		}
		if err := deps.View.Erase(k); err != nil {
			return nil, err
		}
		return vm.NewResponse().AddAttribute("action", "remove_collection").AddAttribute("id", m.ID), nil
	case RemoveAllCollection:
		n, err := removeAll(deps.View)
		if err != nil {
			return nil, err
		}
		return vm.NewResponse().AddAttribute("action", "remove_all_collection").AddAttribute("removed", n), nil
	case UpdateConfig:
		if m.Owner != nil {
			cfg.Owner = *m.Owner
		}
		if m.CollectionCode != nil {
			if *m.CollectionCode == "" {
				return nil, result.Wrap(result.InvalidMessage, "collection_code is empty")
			}
			cfg.CollectionCode = *m.CollectionCode
		}
		if err := state.Save(deps.View, state.Config(), cfg); err != nil {
			return nil, err
		}
		return vm.NewResponse().AddAttribute("action", "update_config"), nil
	}
	return nil, fmt.Errorf("unhandled execute message %T", msg)
}

func addCollection(deps vm.Deps, env vm.Env, info vm.MessageInfo, cfg *Config, m AddCollection) (*vm.Response, error) {
	init := collection.InstantiateMsg(m)
	if init.Owner.IsEmpty() {
		init.Owner = info.Sender
	}
	body, err := json.Marshal(init)
	if err != nil {
		return nil, err
	}
	if err := state.Save(deps.View, state.PendingCollection(), &pending{Name: init.Name, Owner: init.Owner.String()}); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddInstruction(instruction.Instantiate{
			Code:    cfg.CollectionCode,
			Label:   init.Name,
			Admin:   env.Contract,
			Msg:     body,
			ReplyID: CollectionReplyID,
		}).
		AddAttribute("action", "add_collection").
		AddAttribute("name", init.Name), nil
}

func removeAll(v state.View) (int, error) {
	var keys []state.Keylet
	err := v.ForEach(state.SpacePrefix(state.SpaceCollection), nil, func(key, _ []byte) bool {
		k, err := state.FromBytes(key)
		if err == nil {
			keys = append(keys, k)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	for _, k := range keys {
		if err := v.Erase(k); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// Reply records the collection created by AddCollection along with the
// token tracker it linked.
func (*Contract) Reply(deps vm.Deps, env vm.Env, reply vm.Reply) (*vm.Response, error) {
	if reply.ID != CollectionReplyID {
		return nil, result.Wrap(result.InvalidReplyID, "unknown reply id %d", reply.ID)
	}
	var p pending
	found, err := state.Load(deps.View, state.PendingCollection(), &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.InvalidReplyID, "no collection is being added")
	}
	cfg, err := loadConfig(deps.View)
	if err != nil {
		return nil, err
	}

	ctx := deps.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := deps.Querier.QueryContract(ctx, reply.ContractAddress, json.RawMessage(`{"get_config":{}}`))
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", reply.ContractAddress, err)
	}
	var collCfg collection.Config
	if err := json.Unmarshal(raw, &collCfg); err != nil {
		return nil, fmt.Errorf("decode collection config: %w", err)
	}

	cfg.MaxCollectionID++
	entry := &Collection{ID: cfg.MaxCollectionID, Contract: reply.ContractAddress, TokenContract: collCfg.TokenContract}
	if err := state.Save(deps.View, state.Collection(entry.ID), entry); err != nil {
		return nil, err
	}
	if err := state.Save(deps.View, state.Config(), cfg); err != nil {
		return nil, err
	}
	if err := state.Remove(deps.View, state.PendingCollection()); err != nil {
		return nil, err
	}
	if deps.Logger != nil {
		deps.Logger.Named("registry").Info("collection registered",
			zap.Uint64("id", entry.ID),
			zap.String("name", p.Name),
			zap.String("collection", entry.Contract.String()),
			zap.String("token_contract", entry.TokenContract.String()))
	}
	return vm.NewResponse().
		AddAttribute("action", "instantiate_collection").
		AddAttribute("collection_address", entry.Contract).
		AddAttribute("cw721_address", entry.TokenContract), nil
}

func (*Contract) Query(deps vm.Deps, env vm.Env, raw json.RawMessage) (json.RawMessage, error) {
	msg, err := DecodeQueryMsg(raw)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(deps.View)
	if err != nil {
		return nil, err
	}

	switch m := msg.(type) {
	case GetConfig:
		return json.Marshal(cfg)
	case GetCollection:
		var c Collection
		found, err := state.Load(deps.View, state.Collection(m.ID), &c)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, result.Wrap(result.NotFound, "collection %d", m.ID)
		}
		return json.Marshal(c)
	case ListCollections:
		list, err := listCollections(deps.View, m.StartAfter, m.Limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(CollectionList{List: list})
	}
	return nil, fmt.Errorf("unhandled query %T", msg)
}

// CollectionList answers ListCollections.
type CollectionList struct {
	List []Collection `json:"list"`
}

func listCollections(v state.View, startAfter *uint64, limit uint32) ([]Collection, error) {
	n := int(limit)
	if n == 0 {
		n = DefaultLimit
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	var after []byte
	if startAfter != nil {
		after = state.Collection(*startAfter).Bytes()
	}

	list := make([]Collection, 0, n)
	var decodeErr error
	err := v.ForEach(state.SpacePrefix(state.SpaceCollection), after, func(_, data []byte) bool {
		var c Collection
		if decodeErr = codec.Unmarshal(data, &c); decodeErr != nil {
			return false
		}
		list = append(list, c)
		return len(list) < n
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode collection: %w", decodeErr)
	}
	return list, nil
}
