// Package collection is the marketplace contract: it mints a collection
// through a linked token tracker, lists tokens for sale and settles sales.
package collection

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/sale"
	"github.com/LeJamon/goMarble/internal/core/settlement"
	"github.com/LeJamon/goMarble/internal/core/swap"
	"github.com/LeJamon/goMarble/internal/core/vm"
)

// CodeID is the code name under which the host registers this contract.
const CodeID = "marble-collection"

// Contract implements vm.Contract. It holds no state of its own: every
// call loads what it needs from the view in Deps.
type Contract struct{}

// New returns the collection contract.
func New() *Contract {
	return &Contract{}
}

// call bundles the per-call collaborators.
type call struct {
	deps   vm.Deps
	env    vm.Env
	info   vm.MessageInfo
	cfg    *Config
	ledger *sale.Ledger
	logger *zap.Logger
}

func (c *call) router() *swap.Router {
	return swap.NewRouter(c.cfg.Topology(), c.deps.Querier,
		swap.WithMaxSlippage(c.cfg.Swap.MaxSlippageBps),
		swap.WithLogger(c.logger))
}

func (c *call) engine() *settlement.Engine {
	return settlement.NewEngine(c.ledger, c.router(), c.cfg.Settlement(), c.logger)
}

func newCall(deps vm.Deps, env vm.Env, info vm.MessageInfo) (*call, error) {
	cfg, err := loadConfig(deps.View)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &call{
		deps:   deps,
		env:    env,
		info:   info,
		cfg:    cfg,
		ledger: sale.NewLedger(deps.View),
		logger: logger.Named("collection").With(zap.String("contract", env.Contract.String())),
	}, nil
}

// Instantiate stores the configuration and asks the host to create the
// token tracker, which answers through Reply.
func (*Contract) Instantiate(deps vm.Deps, env vm.Env, info vm.MessageInfo, msg json.RawMessage) (*vm.Response, error) {
	var init InstantiateMsg
	if err := vm.DecodeBody("instantiate", msg, &init); err != nil {
		return nil, err
	}
	cfg := &Config{
		Owner:             init.Owner,
		Enabled:           true,
		TokenCode:         init.TokenCode,
		Name:              init.Name,
		Symbol:            init.Symbol,
		MaxTokens:         init.MaxTokens,
		UnusedTokenID:     1,
		SettlementAsset:   init.SettlementAsset,
		ProtocolFee:       init.ProtocolFee,
		CollectionRoyalty: init.CollectionRoyalty,
		Swap:              init.Swap,
	}
	if cfg.Owner.IsEmpty() {
		cfg.Owner = info.Sender
	}
	if err := cfg.Validate(); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "instantiate: %v", err)
	}
	if err := saveConfig(deps.View, cfg); err != nil {
		return nil, err
	}

	trackerMsg, err := json.Marshal(map[string]interface{}{
		"name":   cfg.Name,
		"symbol": cfg.Symbol,
		"minter": env.Contract,
	})
	if err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddInstruction(instruction.Instantiate{
			Code:    cfg.TokenCode,
			Label:   cfg.Name,
			Admin:   env.Contract,
			Msg:     trackerMsg,
			ReplyID: TrackerReplyID,
		}).
		AddAttribute("action", "instantiate").
		AddAttribute("owner", cfg.Owner), nil
}

// Reply links the token tracker created by Instantiate. It is accepted
// once.
func (*Contract) Reply(deps vm.Deps, env vm.Env, reply vm.Reply) (*vm.Response, error) {
	if reply.ID != TrackerReplyID {
		return nil, result.Wrap(result.InvalidReplyID, "unknown reply id %d", reply.ID)
	}
	cfg, err := loadConfig(deps.View)
	if err != nil {
		return nil, err
	}
	if !cfg.TokenContract.IsEmpty() {
		return nil, result.Wrap(result.AlreadyLinked, "token contract is %s", cfg.TokenContract)
	}
	cfg.TokenContract = reply.ContractAddress
	if err := saveConfig(deps.View, cfg); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "link_token_contract").
		AddAttribute("token_contract", reply.ContractAddress), nil
}

// Execute dispatches a mutating message.
func (*Contract) Execute(deps vm.Deps, env vm.Env, info vm.MessageInfo, raw json.RawMessage) (*vm.Response, error) {
	msg, err := DecodeExecuteMsg(raw)
	if err != nil {
		return nil, err
	}
	c, err := newCall(deps, env, info)
	if err != nil {
		return nil, err
	}
	if _, ok := msg.(UpdateEnabled); !ok && !c.cfg.Enabled {
		return nil, result.Wrap(result.Disabled, "%s", msg.executeName())
	}

	switch m := msg.(type) {
	case StartSale:
		return c.startSale(m)
	case Propose:
		return c.propose(m)
	case Buy:
		return c.buy(m)
	case Receive:
		return c.receive(m)
	case ReceiveNft:
		return c.receiveNft(m)
	case UpdatePrice:
		return c.updatePrice(m)
	case RemoveSale:
		return c.removeSale(m)
	case Mint:
		return c.mint(m)
	case BatchMint:
		return c.batchMint(m)
	case ChangeLinkedContract:
		return c.changeLinkedContract(m)
	case UpdateOwner:
		return c.updateOwner(m)
	case UpdateEnabled:
		return c.updateEnabled(m)
	}
	return nil, fmt.Errorf("unhandled execute message %T", msg)
}

// Query answers a read-only message.
func (*Contract) Query(deps vm.Deps, env vm.Env, raw json.RawMessage) (json.RawMessage, error) {
	msg, err := DecodeQueryMsg(raw)
	if err != nil {
		return nil, err
	}
	c, err := newCall(deps, env, vm.MessageInfo{})
	if err != nil {
		return nil, err
	}

	var out interface{}
	switch m := msg.(type) {
	case GetConfig:
		out = c.cfg
	case GetSale:
		out, err = c.ledger.Get(m.TokenID)
	case GetSales:
		out, err = c.getSales(m)
	case GetBaseAmount:
		out, err = c.getBaseAmount(m)
	default:
		err = fmt.Errorf("unhandled query %T", msg)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
