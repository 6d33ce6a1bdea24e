package host

import (
	"context"
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/types"
)

// readOnly runs fn against committed state. Writes made by fn are
// discarded.
func (c *Chain) readOnly(ctx context.Context, fn func(v state.View, block vm.Block) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	table := state.NewApplyStateTable(c.store.WithContext(ctx))
	defer table.Discard()

	height, err := readMeta(table, metaHeight)
	if err != nil {
		return err
	}
	t, err := readMeta(table, metaTime)
	if err != nil {
		return err
	}
	return fn(table, vm.Block{Height: height, Time: t})
}

// Query runs a smart query against a contract or a built-in instance.
func (c *Chain) Query(ctx context.Context, contract types.Address, msg json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.readOnly(ctx, func(v state.View, block vm.Block) error {
		var err error
		out, err = queryContract(ctx, c, v, block, contract, msg)
		return err
	})
	return out, err
}

// Balance returns what holder owns of asset.
func (c *Chain) Balance(ctx context.Context, holder types.Address, asset types.Asset) (*uint256.Int, error) {
	var out *uint256.Int
	err := c.readOnly(ctx, func(v state.View, _ vm.Block) error {
		var err error
		out, err = balanceOf(v, holder, asset)
		return err
	})
	return out, err
}

// OwnerOf returns the owner of an NFT.
func (c *Chain) OwnerOf(ctx context.Context, tracker types.Address, tokenID uint64) (types.Address, error) {
	var out types.Address
	err := c.readOnly(ctx, func(v state.View, _ vm.Block) error {
		n, err := loadNft(v, tracker, tokenID)
		if err != nil {
			return err
		}
		out = n.Owner
		return nil
	})
	return out, err
}

// Pool returns a pool with its reserves.
func (c *Chain) Pool(ctx context.Context, addr types.Address) (*Pool, error) {
	var out *Pool
	err := c.readOnly(ctx, func(v state.View, _ vm.Block) error {
		var err error
		out, err = loadPool(v, addr)
		return err
	})
	return out, err
}

// Instance returns a deployed contract.
func (c *Chain) Instance(ctx context.Context, addr types.Address) (*Instance, error) {
	var out *Instance
	err := c.readOnly(ctx, func(v state.View, _ vm.Block) error {
		var err error
		out, err = loadInstance(v, addr)
		return err
	})
	return out, err
}
