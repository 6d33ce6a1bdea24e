package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/types"
)

// LoadGenesis reads a JSON genesis file.
func LoadGenesis(path string) (*host.Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}
	var g host.Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file %s: %w", path, err)
	}
	return &g, nil
}

// BuildGenesis loads the genesis file, if any, and appends one collection
// contract per configured collection.
func (c *Config) BuildGenesis() (*host.Genesis, error) {
	g := &host.Genesis{}
	if c.Genesis.File != "" {
		loaded, err := LoadGenesis(c.Genesis.File)
		if err != nil {
			return nil, err
		}
		g = loaded
	}
	for _, coll := range c.Genesis.Collections {
		instantiate, err := c.CollectionMsg(coll)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", coll.Label, err)
		}
		msg, err := json.Marshal(instantiate)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", coll.Label, err)
		}
		g.Contracts = append(g.Contracts, host.GenesisContract{
			Code:   collection.CodeID,
			Label:  coll.Label,
			Sender: types.Address(coll.Owner),
			Msg:    msg,
		})
	}
	return g, nil
}

// CollectionMsg builds the instantiate message of a configured collection
// from the market and swap sections.
func (c *Config) CollectionMsg(coll CollectionConfig) (collection.InstantiateMsg, error) {
	settlement, err := types.ParseAsset(c.Market.SettlementAsset)
	if err != nil {
		return collection.InstantiateMsg{}, fmt.Errorf("market settlement asset: %w", err)
	}
	maxTokens := coll.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.Market.DefaultMaxTokens
	}
	msg := collection.InstantiateMsg{
		Owner:           types.Address(coll.Owner),
		TokenCode:       c.Market.TokenCode,
		Name:            coll.Name,
		Symbol:          coll.Symbol,
		MaxTokens:       maxTokens,
		SettlementAsset: settlement,
		ProtocolFee: collection.Fee{
			Address: types.Address(c.Market.FeeCollector),
			Rate:    c.Market.ProtocolFee,
		},
		CollectionRoyalty: collection.Fee{
			Address: types.Address(c.Market.CollectionRecipient),
			Rate:    c.Market.CollectionRoyalty,
		},
	}
	if c.Swap.Intermediate != "" {
		if msg.Swap.Intermediate, err = types.ParseAsset(c.Swap.Intermediate); err != nil {
			return collection.InstantiateMsg{}, fmt.Errorf("swap intermediate: %w", err)
		}
		msg.Swap.Exit = types.Address(c.Swap.Exit)
		msg.Swap.MaxSlippageBps = c.Swap.MaxSlippageBps
		for _, e := range c.Swap.Entry {
			asset, err := types.ParseAsset(e.Asset)
			if err != nil {
				return collection.InstantiateMsg{}, fmt.Errorf("swap entry: %w", err)
			}
			msg.Swap.Entry = append(msg.Swap.Entry, collection.EntryPool{Asset: asset, Pool: types.Address(e.Pool)})
		}
	}
	return msg, nil
}
