package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/crypto"
	"github.com/LeJamon/goMarble/internal/types"
)

// ContractAttribute tags every event with the contract that emitted it.
const ContractAttribute = "_contract_address"

// Instance is a deployed contract.
type Instance struct {
	Address types.Address `json:"address" codec:"-"`
	Code    string        `json:"code" codec:"code"`
	Label   string        `json:"label" codec:"label"`
	Admin   types.Address `json:"admin,omitempty" codec:"admin"`
	Creator types.Address `json:"creator" codec:"creator"`
}

func loadInstance(v state.View, addr types.Address) (*Instance, error) {
	var inst Instance
	found, err := state.Load(v, state.Instance(addr), &inst)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.UnknownContract, "no contract at %s", addr)
	}
	inst.Address = addr
	return &inst, nil
}

// txn is the execution context of one transaction.
type txn struct {
	chain  *Chain
	ctx    context.Context
	view   state.View
	block  vm.Block
	events []vm.Event
}

func (x *txn) env(contract types.Address) vm.Env {
	return vm.Env{Block: x.block, Contract: contract}
}

func (x *txn) deps(contract types.Address) vm.Deps {
	return contractDeps(x.ctx, x.chain, x.view, x.block, contract)
}

func contractDeps(ctx context.Context, c *Chain, v state.View, block vm.Block, contract types.Address) vm.Deps {
	return vm.Deps{
		Ctx:     ctx,
		View:    state.NewNamespaced(v, state.ContractNamespace(contract)),
		Querier: &querier{chain: c, view: v, block: block},
		Logger:  c.logger,
	}
}

func (x *txn) contract(addr types.Address) (vm.Contract, error) {
	inst, err := loadInstance(x.view, addr)
	if err != nil {
		return nil, err
	}
	impl, ok := x.chain.lookup(inst.Code)
	if !ok {
		return nil, result.Wrap(result.UnknownContract, "%s runs built-in code %s", addr, inst.Code)
	}
	return impl, nil
}

func (x *txn) dispatch(tx Tx) (json.RawMessage, error) {
	switch tx.Kind {
	case TxExecute:
		return nil, x.execute(tx.Contract, vm.MessageInfo{Sender: tx.Sender, Funds: tx.Funds}, tx.Msg, 0)

	case TxInstantiate:
		addr, err := x.instantiate(tx.Sender, tx.Code, tx.Label, tx.Sender, tx.Funds, tx.Msg, 0)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]types.Address{"contract_address": addr})

	case TxSendToken:
		if err := move(x.view, tx.Sender, tx.Contract, types.TokenAsset(tx.Token), tx.Amount); err != nil {
			return nil, err
		}
		hook, err := vm.Tagged("receive", map[string]interface{}{
			"sender": tx.Sender,
			"amount": types.AmountOrZero(tx.Amount),
			"msg":    tx.Msg,
		})
		if err != nil {
			return nil, err
		}
		return nil, x.execute(tx.Contract, vm.MessageInfo{Sender: tx.Token}, hook, 0)

	case TxSendNft:
		if err := x.sendNft(tx); err != nil {
			return nil, err
		}
		hook, err := vm.Tagged("receive_nft", map[string]interface{}{
			"sender":   tx.Sender,
			"token_id": tx.TokenID,
			"msg":      tx.Msg,
		})
		if err != nil {
			return nil, err
		}
		return nil, x.execute(tx.Contract, vm.MessageInfo{Sender: tx.Token}, hook, 0)

	case TxTransfer:
		if tx.Asset == nil || tx.Recipient.IsEmpty() {
			return nil, result.Wrap(result.InvalidMessage, "transfer needs an asset and a recipient")
		}
		return nil, move(x.view, tx.Sender, tx.Recipient, *tx.Asset, tx.Amount)
	}
	return nil, result.Wrap(result.InvalidMessage, "unknown transaction kind %q", tx.Kind)
}

func (x *txn) sendNft(tx Tx) error {
	n, err := loadNft(x.view, tx.Token, tx.TokenID)
	if err != nil {
		return err
	}
	if n.Owner != tx.Sender {
		return result.Wrap(result.Unauthorized, "%s does not own token %d", tx.Sender, tx.TokenID)
	}
	return transferNft(x.view, tx.Sender, tx.Token, tx.TokenID, tx.Contract)
}

func (x *txn) execute(addr types.Address, info vm.MessageInfo, msg json.RawMessage, depth int) error {
	if depth > maxDepth {
		return result.Wrap(result.Internal, "call depth exceeded")
	}
	impl, err := x.contract(addr)
	if err != nil {
		return err
	}
	if err := moveCoins(x.view, info.Sender, addr, info.Funds); err != nil {
		return err
	}
	resp, err := impl.Execute(x.deps(addr), x.env(addr), info, msg)
	if err != nil {
		return err
	}
	return x.handle(addr, resp, depth)
}

func (x *txn) instantiate(sender types.Address, code, label string, admin types.Address, funds []types.Coin, msg json.RawMessage, depth int) (types.Address, error) {
	if depth > maxDepth {
		return "", result.Wrap(result.Internal, "call depth exceeded")
	}
	n, err := readMeta(x.view, metaInstances)
	if err != nil {
		return "", err
	}
	n++
	if err := writeMeta(x.view, metaInstances, n); err != nil {
		return "", err
	}
	addr := crypto.ContractAddress(code, n)
	inst := &Instance{Address: addr, Code: code, Label: label, Admin: admin, Creator: sender}

	switch code {
	case NftCode:
		var m NftInstantiateMsg
		if err := vm.DecodeBody(code, msg, &m); err != nil {
			return "", err
		}
		if m.Minter.IsEmpty() {
			m.Minter = sender
		}
		if err := createTracker(x.view, addr, m); err != nil {
			return "", err
		}
	case TokenCode:
		var m TokenInstantiateMsg
		if err := vm.DecodeBody(code, msg, &m); err != nil {
			return "", err
		}
		if err := createToken(x.view, addr, m); err != nil {
			return "", err
		}
	}
	if err := state.Save(x.view, state.Instance(addr), inst); err != nil {
		return "", err
	}
	x.events = append(x.events, vm.NewEvent("instantiate").
		Add(ContractAttribute, addr).
		Add("code", code).
		Add("creator", sender))
	if code == NftCode || code == TokenCode {
		return addr, nil
	}

	impl, ok := x.chain.lookup(code)
	if !ok {
		return "", result.Wrap(result.UnknownContract, "no code %q", code)
	}
	if err := moveCoins(x.view, sender, addr, funds); err != nil {
		return "", err
	}
	resp, err := impl.Instantiate(x.deps(addr), x.env(addr), vm.MessageInfo{Sender: sender, Funds: funds}, msg)
	if err != nil {
		return "", err
	}
	if err := x.handle(addr, resp, depth); err != nil {
		return "", err
	}
	return addr, nil
}

// handle records a response's events and runs its instructions in order.
func (x *txn) handle(addr types.Address, resp *vm.Response, depth int) error {
	if resp == nil {
		return nil
	}
	if len(resp.Attributes) > 0 {
		ev := vm.Event{Type: "wasm", Attributes: []vm.Attribute{{Key: ContractAttribute, Value: addr.String()}}}
		ev.Attributes = append(ev.Attributes, resp.Attributes...)
		x.events = append(x.events, ev)
	}
	for _, e := range resp.Events {
		ev := vm.Event{Type: e.Type, Attributes: []vm.Attribute{{Key: ContractAttribute, Value: addr.String()}}}
		ev.Attributes = append(ev.Attributes, e.Attributes...)
		x.events = append(x.events, ev)
	}
	for i, ins := range resp.Instructions {
		if err := x.run(addr, ins, depth); err != nil {
			return fmt.Errorf("instruction %d (%s) from %s: %w", i, ins.Kind(), addr, err)
		}
	}
	return nil
}

func (x *txn) run(from types.Address, ins instruction.Instruction, depth int) error {
	switch in := ins.(type) {
	case instruction.TransferNft:
		return transferNft(x.view, from, in.Contract, in.TokenID, in.Recipient)

	case instruction.TransferAsset:
		return move(x.view, from, in.Recipient, in.Asset, in.Amount)

	case instruction.Swap:
		got, err := execSwap(x.view, from, in)
		if err != nil {
			return err
		}
		x.events = append(x.events, vm.NewEvent("swap").
			Add(ContractAttribute, in.Pool).
			Add("trader", from).
			Add("offer_asset", in.Offer).
			Add("offer_amount", types.AmountOrZero(in.Amount).Dec()).
			Add("ask_asset", in.Ask).
			Add("return_amount", got.Dec()))
		return nil

	case instruction.Mint:
		return mintNft(x.view, from, in)

	case instruction.Instantiate:
		addr, err := x.instantiate(from, in.Code, in.Label, in.Admin, nil, in.Msg, depth+1)
		if err != nil {
			return err
		}
		if in.ReplyID == 0 {
			return nil
		}
		impl, err := x.contract(from)
		if err != nil {
			return err
		}
		resp, err := impl.Reply(x.deps(from), x.env(from), vm.Reply{ID: in.ReplyID, ContractAddress: addr})
		if err != nil {
			return err
		}
		return x.handle(from, resp, depth+1)
	}
	return result.Wrap(result.Internal, "unsupported instruction %s", ins.Kind())
}

// querier serves contract queries against a transaction's view.
type querier struct {
	chain *Chain
	view  state.View
	block vm.Block
}

func (q *querier) OwnerOf(ctx context.Context, tracker types.Address, tokenID uint64) (types.Address, error) {
	n, err := loadNft(q.view, tracker, tokenID)
	if err != nil {
		return "", err
	}
	return n.Owner, nil
}

func (q *querier) QuoteSwap(ctx context.Context, pool types.Address, offer types.Asset, amount *uint256.Int) (*uint256.Int, error) {
	p, err := loadPool(q.view, pool)
	if err != nil {
		return nil, err
	}
	return p.Quote(offer, amount)
}

func (q *querier) QueryContract(ctx context.Context, addr types.Address, msg json.RawMessage) (json.RawMessage, error) {
	return queryContract(ctx, q.chain, q.view, q.block, addr, msg)
}

func queryContract(ctx context.Context, c *Chain, v state.View, block vm.Block, addr types.Address, msg json.RawMessage) (json.RawMessage, error) {
	inst, err := loadInstance(v, addr)
	if err != nil {
		return nil, err
	}
	if inst.Code == NftCode || inst.Code == TokenCode {
		return queryBuiltin(v, inst, msg)
	}
	impl, ok := c.lookup(inst.Code)
	if !ok {
		return nil, result.Wrap(result.UnknownContract, "no code %q", inst.Code)
	}
	return impl.Query(contractDeps(ctx, c, v, block, addr), vm.Env{Block: block, Contract: addr}, msg)
}
