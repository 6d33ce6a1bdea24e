// Package swap converts a payment asset into the settlement asset through
// a fixed set of liquidity pools.
package swap

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/types"
)

// BasisPoints is the denominator of the slippage tolerance.
const BasisPoints = 10_000

// PoolQuerier quotes the output of offering amount of offer to pool.
type PoolQuerier interface {
	QuoteSwap(ctx context.Context, pool types.Address, offer types.Asset, amount *uint256.Int) (*uint256.Int, error)
}

// Hop is one pool conversion of a route.
type Hop struct {
	Pool           types.Address `json:"pool"`
	Offer          types.Asset   `json:"offer"`
	Ask            types.Asset   `json:"ask"`
	Amount         *uint256.Int  `json:"amount"`
	Quoted         *uint256.Int  `json:"quoted"`
	MinimumReceive *uint256.Int  `json:"minimum_receive"`
}

// Route is the outcome of routing an input amount. Hops chain on quoted
// amounts and Output is the quote of the last hop. The swaps execute in the
// same transaction as the quotes, so Output is what the contract receives;
// each MinimumReceive only aborts the transaction when a pool falls short.
type Route struct {
	Input       types.Asset  `json:"input"`
	InputAmount *uint256.Int `json:"input_amount"`
	Output      *uint256.Int `json:"output"`
	Hops        []Hop        `json:"hops"`
}

// Instructions returns one swap instruction per hop.
func (r *Route) Instructions() instruction.List {
	out := make(instruction.List, 0, len(r.Hops))
	for _, h := range r.Hops {
		out = append(out, instruction.Swap{
			Pool:           h.Pool,
			Offer:          h.Offer,
			Ask:            h.Ask,
			Amount:         h.Amount,
			MinimumReceive: h.MinimumReceive,
		})
	}
	return out
}

// Router walks a Topology using pool quotes.
type Router struct {
	topo        *Topology
	querier     PoolQuerier
	maxSlippage uint64
	logger      *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithMaxSlippage sets the tolerated shortfall of an executed swap against
// its quote, in basis points.
func WithMaxSlippage(bps uint64) Option {
	return func(r *Router) {
		if bps > BasisPoints {
			bps = BasisPoints
		}
		r.maxSlippage = bps
	}
}

// WithLogger sets the router logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		r.logger = logger.Named("swap")
	}
}

// NewRouter creates a router over topo.
func NewRouter(topo *Topology, querier PoolQuerier, opts ...Option) *Router {
	r := &Router{
		topo:    topo,
		querier: querier,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Topology returns the routed topology.
func (r *Router) Topology() *Topology {
	return r.topo
}

// Route computes the hops converting amount of asset into the settlement
// asset. The settlement asset and a zero amount route without hops.
func (r *Router) Route(ctx context.Context, asset types.Asset, amount *uint256.Int) (*Route, error) {
	amount = types.AmountOrZero(amount)
	route := &Route{Input: asset, InputAmount: amount, Output: amount}

	steps, err := r.path(asset)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 || amount.IsZero() {
		return route, nil
	}

	in := amount
	for _, s := range steps {
		quoted, err := r.querier.QuoteSwap(ctx, s.pool, s.offer, in)
		if err != nil {
			return nil, fmt.Errorf("quote %s on %s: %w", s.offer, s.pool, err)
		}
		if quoted == nil || quoted.IsZero() {
			return nil, result.Wrap(result.IncorrectFunds, "pool %s quotes nothing for %s %s", s.pool, in.Dec(), s.offer)
		}
		min := r.minimumReceive(quoted)
		if min.IsZero() {
			return nil, result.Wrap(result.IncorrectFunds, "pool %s minimum receive is zero for %s %s", s.pool, in.Dec(), s.offer)
		}
		route.Hops = append(route.Hops, Hop{
			Pool:           s.pool,
			Offer:          s.offer,
			Ask:            s.ask,
			Amount:         in,
			Quoted:         quoted,
			MinimumReceive: min,
		})
		in = quoted
	}
	route.Output = in

	r.logger.Debug("routed payment",
		zap.String("asset", asset.String()),
		zap.String("amount", amount.Dec()),
		zap.Int("hops", len(route.Hops)),
		zap.String("output", route.Output.Dec()))
	return route, nil
}

func (r *Router) minimumReceive(quoted *uint256.Int) *uint256.Int {
	if r.maxSlippage == 0 {
		return new(uint256.Int).Set(quoted)
	}
	min, _ := new(uint256.Int).MulDivOverflow(quoted,
		uint256.NewInt(BasisPoints-r.maxSlippage), uint256.NewInt(BasisPoints))
	return min
}

type step struct {
	pool       types.Address
	offer, ask types.Asset
}

func (r *Router) path(asset types.Asset) ([]step, error) {
	t := r.topo
	if asset == t.Settlement {
		return nil, nil
	}

	exit := step{pool: t.Exit, offer: t.Intermediate, ask: t.Settlement}
	if !t.Direct() && asset == t.Intermediate {
		return []step{exit}, nil
	}

	pool, ok := t.Entry[asset.Key()]
	if !ok {
		if asset.IsNative() {
			return nil, result.Wrap(result.IncorrectFunds, "no route for native %s", asset.Denom)
		}
		return nil, result.Wrap(result.InvalidCw20Token, "no route for token %s", asset.Contract)
	}
	if t.Direct() {
		return []step{{pool: pool, offer: asset, ask: t.Settlement}}, nil
	}
	return []step{{pool: pool, offer: asset, ask: t.Intermediate}, exit}, nil
}
