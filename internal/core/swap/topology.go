package swap

import (
	"fmt"

	"github.com/LeJamon/goMarble/internal/types"
)

// Topology is the static pool layout the router walks. Every supported
// payment asset has one entry pool into Intermediate, and Exit converts
// Intermediate into Settlement. When Intermediate equals Settlement the
// entry pools pay out the settlement asset directly and Exit is unused.
type Topology struct {
	Settlement   types.Asset
	Intermediate types.Asset
	// Entry maps an asset key to the pool converting it into Intermediate.
	Entry map[string]types.Address
	Exit  types.Address
}

// NewTopology builds a topology with an empty entry table.
func NewTopology(settlement, intermediate types.Asset, exit types.Address) *Topology {
	return &Topology{
		Settlement:   settlement,
		Intermediate: intermediate,
		Entry:        make(map[string]types.Address),
		Exit:         exit,
	}
}

// AddEntry registers the pool converting asset into the intermediate asset.
func (t *Topology) AddEntry(asset types.Asset, pool types.Address) {
	if t.Entry == nil {
		t.Entry = make(map[string]types.Address)
	}
	t.Entry[asset.Key()] = pool
}

// Direct reports whether entry pools pay out the settlement asset.
func (t *Topology) Direct() bool {
	return t.Intermediate.IsZero() || t.Intermediate == t.Settlement
}

// Validate checks that the topology is walkable.
func (t *Topology) Validate() error {
	if err := t.Settlement.Validate(); err != nil {
		return fmt.Errorf("settlement asset: %w", err)
	}
	if t.Direct() {
		return nil
	}
	if err := t.Intermediate.Validate(); err != nil {
		return fmt.Errorf("intermediate asset: %w", err)
	}
	if t.Exit.IsEmpty() {
		return fmt.Errorf("exit pool is required when the intermediate asset differs from %s", t.Settlement)
	}
	for key, pool := range t.Entry {
		if pool.IsEmpty() {
			return fmt.Errorf("entry pool for %s is empty", key)
		}
	}
	return nil
}

// Supports reports whether asset can be routed.
func (t *Topology) Supports(asset types.Asset) bool {
	if asset == t.Settlement || (!t.Direct() && asset == t.Intermediate) {
		return true
	}
	_, ok := t.Entry[asset.Key()]
	return ok
}
