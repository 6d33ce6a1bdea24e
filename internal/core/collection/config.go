package collection

import (
	"fmt"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/core/settlement"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/swap"
	"github.com/LeJamon/goMarble/internal/types"
)

// TrackerReplyID tags the instantiation of the token tracker.
const TrackerReplyID = 1

// Fee is a rate paid to an address.
type Fee struct {
	Address types.Address `json:"address" codec:"address"`
	Rate    royalty.Rate  `json:"rate" codec:"rate"`
}

// EntryPool converts a payment asset into the intermediate asset.
type EntryPool struct {
	Asset types.Asset   `json:"asset" codec:"asset"`
	Pool  types.Address `json:"pool" codec:"pool"`
}

// SwapConfig is the static pool layout used to convert payments.
type SwapConfig struct {
	Intermediate   types.Asset   `json:"intermediate" codec:"intermediate"`
	Entry          []EntryPool   `json:"entry" codec:"entry"`
	Exit           types.Address `json:"exit" codec:"exit"`
	MaxSlippageBps uint64        `json:"max_slippage_bps" codec:"max_slippage_bps"`
}

// Config is the collection contract configuration.
type Config struct {
	Owner             types.Address `json:"owner" codec:"owner"`
	Enabled           bool          `json:"enabled" codec:"enabled"`
	TokenCode         string        `json:"token_code" codec:"token_code"`
	TokenContract     types.Address `json:"token_contract" codec:"token_contract"`
	Name              string        `json:"name" codec:"name"`
	Symbol            string        `json:"symbol" codec:"symbol"`
	MaxTokens         uint64        `json:"max_tokens" codec:"max_tokens"`
	UnusedTokenID     uint64        `json:"unused_token_id" codec:"unused_token_id"`
	SettlementAsset   types.Asset   `json:"settlement_asset" codec:"settlement_asset"`
	ProtocolFee       Fee           `json:"protocol_fee" codec:"protocol_fee"`
	CollectionRoyalty Fee           `json:"collection_royalty" codec:"collection_royalty"`
	Swap              SwapConfig    `json:"swap" codec:"swap"`
}

// InstantiateMsg creates a collection.
type InstantiateMsg struct {
	Owner             types.Address `json:"owner,omitempty"`
	TokenCode         string        `json:"token_code"`
	Name              string        `json:"name"`
	Symbol            string        `json:"symbol"`
	MaxTokens         uint64        `json:"max_tokens"`
	SettlementAsset   types.Asset   `json:"settlement_asset"`
	ProtocolFee       Fee           `json:"protocol_fee"`
	CollectionRoyalty Fee           `json:"collection_royalty"`
	Swap              SwapConfig    `json:"swap"`
}

// Topology builds the router topology of the configuration.
func (c *Config) Topology() *swap.Topology {
	intermediate := c.Swap.Intermediate
	if intermediate.IsZero() {
		intermediate = c.SettlementAsset
	}
	topo := swap.NewTopology(c.SettlementAsset, intermediate, c.Swap.Exit)
	for _, e := range c.Swap.Entry {
		topo.AddEntry(e.Asset, e.Pool)
	}
	return topo
}

// Settlement returns the settlement engine parameters.
func (c *Config) Settlement() settlement.Config {
	return settlement.Config{
		TokenContract:       c.TokenContract,
		FeeCollector:        c.ProtocolFee.Address,
		ProtocolRate:        c.ProtocolFee.Rate,
		CollectionRecipient: c.CollectionRoyalty.Address,
		CollectionRate:      c.CollectionRoyalty.Rate,
	}
}

// Scale returns the rate scale fixed by the configured fees, or zero when
// both fees are zero.
func (c *Config) Scale() royalty.Scale {
	for _, r := range []royalty.Rate{c.ProtocolFee.Rate, c.CollectionRoyalty.Rate} {
		if !r.IsZero() {
			return r.Scale
		}
	}
	return 0
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Owner.IsEmpty() {
		return fmt.Errorf("owner is required")
	}
	if c.TokenCode == "" && c.TokenContract.IsEmpty() {
		return fmt.Errorf("token_code is required")
	}
	if err := c.SettlementAsset.Validate(); err != nil {
		return fmt.Errorf("settlement_asset: %w", err)
	}
	for name, fee := range map[string]Fee{"protocol_fee": c.ProtocolFee, "collection_royalty": c.CollectionRoyalty} {
		if err := fee.Rate.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if !fee.Rate.IsZero() && fee.Address.IsEmpty() {
			return fmt.Errorf("%s: address is required for a non-zero rate", name)
		}
	}
	// Both fees and every seller royalty must share one scale
	if _, err := royalty.Split(nil, c.ProtocolFee.Rate, royalty.Rate{}, c.CollectionRoyalty.Rate); err != nil {
		return err
	}
	if err := c.Topology().Validate(); err != nil {
		return fmt.Errorf("swap: %w", err)
	}
	return nil
}

func loadConfig(v state.View) (*Config, error) {
	var cfg Config
	found, err := state.Load(v, state.Config(), &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.Uninitialized, "collection is not instantiated")
	}
	return &cfg, nil
}

func saveConfig(v state.View, cfg *Config) error {
	return state.Save(v, state.Config(), cfg)
}
