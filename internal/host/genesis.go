package host

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// Genesis is the initial chain state.
type Genesis struct {
	Balances  []GenesisBalance  `json:"balances"`
	Tokens    []GenesisToken    `json:"tokens"`
	Pools     []Pool            `json:"pools"`
	Contracts []GenesisContract `json:"contracts"`
}

// GenesisBalance is an initial native balance.
type GenesisBalance struct {
	Address types.Address `json:"address"`
	Coin    types.Coin    `json:"coin"`
}

// GenesisToken is a fungible token created at a fixed address.
type GenesisToken struct {
	Address types.Address `json:"address"`
	TokenInstantiateMsg
}

// GenesisContract is a contract instantiated at genesis. Its address is
// derived like any other instance.
type GenesisContract struct {
	Code   string          `json:"code"`
	Label  string          `json:"label"`
	Sender types.Address   `json:"sender"`
	Msg    json.RawMessage `json:"msg"`
}

// InitGenesis writes g into an empty chain and returns the addresses of
// the genesis contracts. On a chain that already has a genesis it does
// nothing and returns no addresses.
func (c *Chain) InitGenesis(ctx context.Context, g Genesis) ([]types.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	table := state.NewApplyStateTable(c.store.WithContext(ctx))
	done, err := table.Exists(state.Meta(metaGenesis))
	if err != nil {
		return nil, err
	}
	if done {
		c.logger.Info("genesis already applied")
		return nil, nil
	}

	for _, b := range g.Balances {
		if err := credit(table, b.Address, types.NativeAsset(b.Coin.Denom), types.AmountOrZero(b.Coin.Amount)); err != nil {
			return nil, fmt.Errorf("genesis balance of %s: %w", b.Address, err)
		}
	}
	for _, t := range g.Tokens {
		if t.Address.IsEmpty() {
			return nil, result.Wrap(result.InvalidMessage, "genesis token %s has no address", t.Symbol)
		}
		if err := createToken(table, t.Address, t.TokenInstantiateMsg); err != nil {
			return nil, fmt.Errorf("genesis token %s: %w", t.Address, err)
		}
		inst := &Instance{Code: TokenCode, Label: t.Name}
		if err := state.Save(table, state.Instance(t.Address), inst); err != nil {
			return nil, err
		}
	}
	for i := range g.Pools {
		p := g.Pools[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("genesis pool: %w", err)
		}
		if err := savePool(table, &p); err != nil {
			return nil, err
		}
	}

	x := &txn{chain: c, ctx: ctx, view: table, block: vm.Block{Time: uint64(c.clock.Now().Unix())}}
	addrs := make([]types.Address, 0, len(g.Contracts))
	for _, gc := range g.Contracts {
		addr, err := x.instantiate(gc.Sender, gc.Code, gc.Label, gc.Sender, nil, gc.Msg, 0)
		if err != nil {
			return nil, fmt.Errorf("genesis contract %s: %w", gc.Label, err)
		}
		c.logger.Info("genesis contract", zap.String("label", gc.Label), zap.String("code", gc.Code), zap.String("address", addr.String()))
		addrs = append(addrs, addr)
	}

	if err := state.Put(table, state.Meta(metaGenesis), []byte{1}); err != nil {
		return nil, err
	}
	if _, err := table.Apply(); err != nil {
		return nil, fmt.Errorf("commit genesis: %w", err)
	}
	return addrs, nil
}
