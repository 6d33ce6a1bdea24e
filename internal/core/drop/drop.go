// Package drop is the primary sale contract: it hands out pre-minted
// tokens at random, either for a fixed price or against a merkle claim.
package drop

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// CodeID is the code name under which the host registers this contract.
const CodeID = "marble-drop"

// Config is the drop configuration. The contract holds tokens 1..Count of
// TokenContract.
type Config struct {
	Owner         types.Address `json:"owner"`
	Enabled       bool          `json:"enabled"`
	TokenContract types.Address `json:"token_contract"`
	PayAsset      types.Asset   `json:"pay_asset"`
	Price         *uint256.Int  `json:"price"`
	Count         uint64        `json:"count"`
	SoldCount     uint64        `json:"sold_count"`
}

// Stored form of Config. The price is a big-endian byte string.
type configWire struct {
	Owner         string      `codec:"owner"`
	Enabled       bool        `codec:"enabled"`
	TokenContract string      `codec:"token"`
	PayAsset      types.Asset `codec:"asset"`
	Price         []byte      `codec:"price"`
	Count         uint64      `codec:"count"`
	SoldCount     uint64      `codec:"sold"`
}

// Remaining returns the number of unsold tokens.
func (c *Config) Remaining() uint64 {
	return c.Count - c.SoldCount
}

// Stage is the registered merkle claim stage. Zero times are unset.
type Stage struct {
	MerkleRoot string `json:"merkle_root" codec:"root"`
	Start      uint64 `json:"start,omitempty" codec:"start"`
	Expiration uint64 `json:"expiration,omitempty" codec:"expiration"`
}

// InstantiateMsg creates a drop.
type InstantiateMsg struct {
	Owner         types.Address `json:"owner,omitempty"`
	TokenContract types.Address `json:"token_contract"`
	PayAsset      types.Asset   `json:"pay_asset"`
	Price         *uint256.Int  `json:"price"`
	Count         uint64        `json:"count"`
}

// Contract implements vm.Contract.
type Contract struct{}

// New returns the drop contract.
func New() *Contract {
	return &Contract{}
}

type call struct {
	deps   vm.Deps
	env    vm.Env
	info   vm.MessageInfo
	cfg    *Config
	logger *zap.Logger
}

func loadConfig(v state.View) (*Config, error) {
	var w configWire
	found, err := state.Load(v, state.Config(), &w)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.Uninitialized, "drop is not instantiated")
	}
	price, err := types.AmountFromBytes(w.Price)
	if err != nil {
		return nil, fmt.Errorf("decode drop config: %w", err)
	}
	return &Config{
		Owner:         types.Address(w.Owner),
		Enabled:       w.Enabled,
		TokenContract: types.Address(w.TokenContract),
		PayAsset:      w.PayAsset,
		Price:         price,
		Count:         w.Count,
		SoldCount:     w.SoldCount,
	}, nil
}

func saveConfig(v state.View, cfg *Config) error {
	return state.Save(v, state.Config(), &configWire{
		Owner:         cfg.Owner.String(),
		Enabled:       cfg.Enabled,
		TokenContract: cfg.TokenContract.String(),
		PayAsset:      cfg.PayAsset,
		Price:         types.AmountToBytes(cfg.Price),
		Count:         cfg.Count,
		SoldCount:     cfg.SoldCount,
	})
}

func (c *call) save() error {
	return saveConfig(c.deps.View, c.cfg)
}

func (*Contract) Instantiate(deps vm.Deps, env vm.Env, info vm.MessageInfo, msg json.RawMessage) (*vm.Response, error) {
	var init InstantiateMsg
	if err := vm.DecodeBody("instantiate", msg, &init); err != nil {
		return nil, err
	}
	cfg := &Config{
		Owner:         init.Owner,
		Enabled:       true,
		TokenContract: init.TokenContract,
		PayAsset:      init.PayAsset,
		Price:         types.AmountOrZero(init.Price),
		Count:         init.Count,
	}
	if cfg.Owner.IsEmpty() {
		cfg.Owner = info.Sender
	}
	switch {
	case cfg.TokenContract.IsEmpty():
		return nil, result.Wrap(result.InvalidMessage, "token_contract is required")
	case cfg.Count == 0:
		return nil, result.Wrap(result.InvalidMessage, "count must be positive")
	}
	if err := cfg.PayAsset.Validate(); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "pay_asset: %v", err)
	}
	if err := types.CheckAmount(cfg.Price); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "price: %v", err)
	}
	if err := saveConfig(deps.View, cfg); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("count", cfg.Count), nil
}

// Reply is unused: the drop never instantiates contracts.
func (*Contract) Reply(deps vm.Deps, env vm.Env, reply vm.Reply) (*vm.Response, error) {
	return nil, result.Wrap(result.InvalidReplyID, "unknown reply id %d", reply.ID)
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
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &call{deps: deps, env: env, info: info, cfg: cfg, logger: logger.Named("drop")}
	if _, ok := msg.(UpdateEnabled); !ok && !cfg.Enabled {
		return nil, result.Wrap(result.Disabled, "%s", msg.executeName())
	}

	switch m := msg.(type) {
	case Buy:
		return c.buyNative()
	case Receive:
		return c.receive(m)
	case Send:
		return c.send(m)
	case RegisterMerkleRoot:
		return c.registerMerkleRoot(m)
	case Claim:
		return c.claim(m)
	case UpdateOwner:
		if err := c.requireOwner(); err != nil {
			return nil, err
		}
		c.cfg.Owner = m.Owner
		return c.saved(vm.NewResponse().AddAttribute("action", "update_owner").AddAttribute("owner", m.Owner))
	case UpdateEnabled:
		if err := c.requireOwner(); err != nil {
			return nil, err
		}
		c.cfg.Enabled = m.Enabled
		return c.saved(vm.NewResponse().AddAttribute("action", "update_enabled").AddAttribute("enabled", m.Enabled))
	}
	return nil, fmt.Errorf("unhandled execute message %T", msg)
}

func (c *call) saved(resp *vm.Response) (*vm.Response, error) {
	if err := c.save(); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *call) requireOwner() error {
	if c.info.Sender != c.cfg.Owner {
		return result.Wrap(result.Unauthorized, "%s is not the owner", c.info.Sender)
	}
	return nil
}

// pick returns the (blockTime % remaining)-th unsold token id.
func (c *call) pick() (uint64, error) {
	remaining := c.cfg.Remaining()
	if remaining == 0 {
		return 0, result.Wrap(result.SoldOut, "all %d tokens sold", c.cfg.Count)
	}
	target := c.env.Block.Time % remaining
	var seen uint64
	for id := uint64(1); id <= c.cfg.Count; id++ {
		sold, err := c.deps.View.Exists(state.Sold(id))
		if err != nil {
			return 0, err
		}
		if sold {
			continue
		}
		if seen == target {
			return id, nil
		}
		seen++
	}
	return 0, fmt.Errorf("sold count %d out of sync with inventory", c.cfg.SoldCount)
}

// hand marks tokenID sold and transfers it to recipient.
func (c *call) hand(tokenID uint64, recipient types.Address) (*vm.Response, error) {
	sold, err := c.deps.View.Exists(state.Sold(tokenID))
	if err != nil {
		return nil, err
	}
	if sold || tokenID == 0 || tokenID > c.cfg.Count {
		return nil, result.Wrap(result.SoldOut, "token %d is not available", tokenID)
	}
	if err := c.deps.View.Insert(state.Sold(tokenID), []byte(recipient)); err != nil {
		return nil, err
	}
	c.cfg.SoldCount++
	if err := c.save(); err != nil {
		return nil, err
	}
	c.logger.Debug("handed out token", zap.Uint64("token_id", tokenID), zap.String("recipient", recipient.String()))
	return vm.NewResponse().
		AddInstruction(instruction.TransferNft{
			Contract:  c.cfg.TokenContract,
			TokenID:   tokenID,
			Recipient: recipient,
		}).
		AddAttribute("token_id", tokenID).
		AddAttribute("recipient", recipient), nil
}

func (c *call) sell(buyer types.Address, paid *uint256.Int) (*vm.Response, error) {
	if paid.Lt(c.cfg.Price) {
		return nil, result.Wrap(result.IncorrectFunds, "price is %s, got %s", c.cfg.Price.Dec(), paid.Dec())
	}
	id, err := c.pick()
	if err != nil {
		return nil, err
	}
	resp, err := c.hand(id, buyer)
	if err != nil {
		return nil, err
	}
	if !paid.IsZero() {
		resp.AddInstruction(instruction.TransferAsset{Asset: c.cfg.PayAsset, Recipient: c.cfg.Owner, Amount: paid})
	}
	return resp.AddAttribute("action", "buy").
		AddEvent(vm.NewEvent("drop_sale").
			Add("token_id", id).
			Add("buyer", buyer).
			Add("paid_asset", c.cfg.PayAsset).
			Add("paid_amount", paid.Dec())), nil
}

func (c *call) buyNative() (*vm.Response, error) {
	if !c.cfg.PayAsset.IsNative() {
		return nil, result.Wrap(result.IncorrectFunds, "this drop is paid in %s", c.cfg.PayAsset)
	}
	coin, err := vm.OneCoin(c.info)
	if err != nil {
		return nil, err
	}
	if coin.Denom != c.cfg.PayAsset.Denom {
		return nil, result.Wrap(result.IncorrectFunds, "this drop is paid in %s", c.cfg.PayAsset.Denom)
	}
	return c.sell(c.info.Sender, coin.Amount)
}

func (c *call) receive(m Receive) (*vm.Response, error) {
	if types.TokenAsset(c.info.Sender) != c.cfg.PayAsset {
		return nil, result.Wrap(result.InvalidCw20Token, "%s is not accepted", c.info.Sender)
	}
	name, _, err := vm.SplitVariant(m.Msg)
	if err != nil {
		return nil, err
	}
	if name != "buy" {
		return nil, result.Wrap(result.InvalidMessage, "unknown receive message %q", name)
	}
	return c.sell(m.Sender, types.AmountOrZero(m.Amount))
}

func (c *call) send(m Send) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	resp, err := c.hand(m.TokenID, m.Address)
	if err != nil {
		return nil, err
	}
	return resp.AddAttribute("action", "send"), nil
}

func (c *call) registerMerkleRoot(m RegisterMerkleRoot) (*vm.Response, error) {
	if err := c.requireOwner(); err != nil {
		return nil, err
	}
	if _, err := ParseHash(m.MerkleRoot); err != nil {
		return nil, result.Wrap(result.InvalidMessage, "merkle_root: %v", err)
	}
	stage := Stage{MerkleRoot: m.MerkleRoot}
	if m.Start != nil {
		stage.Start = *m.Start
	}
	if m.Expiration != nil {
		stage.Expiration = *m.Expiration
	}
	if err := state.Save(c.deps.View, state.MerkleStage(), &stage); err != nil {
		return nil, err
	}
	return vm.NewResponse().
		AddAttribute("action", "register_merkle_root").
		AddAttribute("merkle_root", m.MerkleRoot), nil
}

func (c *call) claim(m Claim) (*vm.Response, error) {
	var stage Stage
	found, err := state.Load(c.deps.View, state.MerkleStage(), &stage)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.Uninitialized, "no merkle root registered")
	}
	now := c.env.Block.Time
	if stage.Start != 0 && now < stage.Start {
		return nil, result.Wrap(result.StageNotBegun, "claims open at %d", stage.Start)
	}
	if stage.Expiration != 0 && now >= stage.Expiration {
		return nil, result.Wrap(result.StageExpired, "claims closed at %d", stage.Expiration)
	}
	claimed, err := c.deps.View.Exists(state.Claim(c.info.Sender))
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, result.Wrap(result.Claimed, "%s", c.info.Sender)
	}

	proof := make([]Hash, 0, len(m.Proof))
	for i, p := range m.Proof {
		h, err := ParseHash(p)
		if err != nil {
			return nil, result.Wrap(result.InvalidMessage, "proof[%d]: %v", i, err)
		}
		proof = append(proof, h)
	}
	root, err := ParseHash(stage.MerkleRoot)
	if err != nil {
		return nil, err
	}
	if Fold(Leaf(c.info.Sender), proof) != root {
		return nil, result.Wrap(result.VerificationFailed, "%s", c.info.Sender)
	}
	if err := c.deps.View.Insert(state.Claim(c.info.Sender), []byte{1}); err != nil {
		return nil, err
	}

	id, err := c.pick()
	if err != nil {
		return nil, err
	}
	resp, err := c.hand(id, c.info.Sender)
	if err != nil {
		return nil, err
	}
	return resp.AddAttribute("action", "claim").
		AddEvent(vm.NewEvent("claim").Add("token_id", id).Add("address", c.info.Sender)), nil
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

	var out interface{}
	switch m := msg.(type) {
	case GetConfig:
		out = cfg
	case GetSoldState:
		sold, err := deps.View.Exists(state.Sold(m.TokenID))
		if err != nil {
			return nil, err
		}
		out = sold
	case MerkleRoot:
		var stage Stage
		found, err := state.Load(deps.View, state.MerkleStage(), &stage)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, result.Wrap(result.NotFound, "no merkle root registered")
		}
		out = stage
	case IsClaimed:
		claimed, err := deps.View.Exists(state.Claim(m.Address))
		if err != nil {
			return nil, err
		}
		out = map[string]bool{"is_claimed": claimed}
	default:
		return nil, fmt.Errorf("unhandled query %T", msg)
	}
	return json.Marshal(out)
}
