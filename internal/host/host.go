// Package host is an in-process deterministic chain. It stores native
// balances, fungible tokens, NFT trackers, swap pools and contract
// instances, and executes contracts together with the instructions they
// return. Every transaction runs on a state overlay that commits as one
// database batch or not at all.
package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/storage/database"
)

// Built-in code names. Instances of these codes are served by the host
// itself rather than by a registered contract.
const (
	NftCode   = "marble-nft"
	TokenCode = "marble-token"
)

// maxDepth bounds nested instantiate and reply calls.
const maxDepth = 8

const (
	metaHeight    = "height"
	metaTime      = "time"
	metaInstances = "instances"
	metaGenesis   = "genesis"
)

// Clock supplies block times.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// EventHooks receives committed transactions. Hooks run synchronously
// after the chain lock is released, in registration order.
type EventHooks struct {
	OnTransaction func(res *TxResult)
}

// Option configures a Chain.
type Option func(*Chain)

// WithClock sets the block clock.
func WithClock(clock Clock) Option {
	return func(c *Chain) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Chain) { c.logger = logger }
}

// Chain executes transactions against a key-value store.
type Chain struct {
	mu     sync.RWMutex
	store  *state.Store
	codes  map[string]vm.Contract
	clock  Clock
	logger *zap.Logger
	hooks  []*EventHooks
}

// New creates a chain over db.
func New(db database.DB, opts ...Option) *Chain {
	c := &Chain{
		store:  state.NewStore(db),
		codes:  make(map[string]vm.Contract),
		clock:  systemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("host")
	return c
}

// Register makes a contract available under a code name. It panics on
// duplicates, which is a wiring bug.
func (c *Chain) Register(code string, contract vm.Contract) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if code == NftCode || code == TokenCode {
		panic(fmt.Sprintf("host: code %q is built in", code))
	}
	if _, dup := c.codes[code]; dup {
		panic(fmt.Sprintf("host: code %q registered twice", code))
	}
	c.codes[code] = contract
}

// AddHooks subscribes to committed transactions.
func (c *Chain) AddHooks(h *EventHooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, h)
}

// Store returns the committed state.
func (c *Chain) Store() *state.Store {
	return c.store
}

// Logger returns the chain logger.
func (c *Chain) Logger() *zap.Logger {
	return c.logger
}

// LastBlock returns the height and time of the last committed transaction.
func (c *Chain) LastBlock(ctx context.Context) (vm.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := c.store.WithContext(ctx)
	height, err := readMeta(v, metaHeight)
	if err != nil {
		return vm.Block{}, err
	}
	t, err := readMeta(v, metaTime)
	if err != nil {
		return vm.Block{}, err
	}
	return vm.Block{Height: height, Time: t}, nil
}

func (c *Chain) lookup(code string) (vm.Contract, bool) {
	impl, ok := c.codes[code]
	return impl, ok
}

func readMeta(v state.View, name string) (uint64, error) {
	data, err := v.Read(state.Meta(name))
	if err != nil || data == nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("meta %s: corrupt value", name)
	}
	return binary.BigEndian.Uint64(data), nil
}

func writeMeta(v state.View, name string, value uint64) error {
	return state.Put(v, state.Meta(name), binary.BigEndian.AppendUint64(nil, value))
}
