package host

import (
	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/instruction"
	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/core/swap"
	"github.com/LeJamon/goMarble/internal/types"
)

// Pool is a constant-product liquidity pool between two assets. The pool
// record holds its own reserves.
type Pool struct {
	Address  types.Address `json:"address"`
	AssetA   types.Asset   `json:"asset_a"`
	AssetB   types.Asset   `json:"asset_b"`
	ReserveA *uint256.Int  `json:"reserve_a"`
	ReserveB *uint256.Int  `json:"reserve_b"`
	FeeBps   uint64        `json:"fee_bps"`
}

type poolWire struct {
	AssetA   types.Asset `codec:"a"`
	AssetB   types.Asset `codec:"b"`
	ReserveA []byte      `codec:"ra"`
	ReserveB []byte      `codec:"rb"`
	FeeBps   uint64      `codec:"fee"`
}

// Validate checks the pool parameters.
func (p *Pool) Validate() error {
	if p.Address.IsEmpty() {
		return result.Wrap(result.InvalidMessage, "pool address is required")
	}
	for _, a := range []types.Asset{p.AssetA, p.AssetB} {
		if err := a.Validate(); err != nil {
			return result.Wrap(result.InvalidMessage, "pool %s: %v", p.Address, err)
		}
	}
	if p.AssetA == p.AssetB {
		return result.Wrap(result.InvalidMessage, "pool %s trades %s against itself", p.Address, p.AssetA)
	}
	if p.FeeBps >= swap.BasisPoints {
		return result.Wrap(result.InvalidMessage, "pool %s fee %d bps", p.Address, p.FeeBps)
	}
	for _, r := range []*uint256.Int{p.ReserveA, p.ReserveB} {
		if err := types.CheckAmount(types.AmountOrZero(r)); err != nil {
			return result.Wrap(result.InvalidMessage, "pool %s reserve: %v", p.Address, err)
		}
	}
	return nil
}

// sides returns the reserves ordered as (offer, ask).
func (p *Pool) sides(offer types.Asset) (in, out *uint256.Int, ask types.Asset, err error) {
	switch offer {
	case p.AssetA:
		return p.ReserveA, p.ReserveB, p.AssetB, nil
	case p.AssetB:
		return p.ReserveB, p.ReserveA, p.AssetA, nil
	}
	return nil, nil, types.Asset{}, result.Wrap(result.InvalidMessage, "pool %s does not trade %s", p.Address, offer)
}

// Quote returns the output of offering amount:
// amount*(1-fee)*reserveOut / (reserveIn + amount*(1-fee)).
func (p *Pool) Quote(offer types.Asset, amount *uint256.Int) (*uint256.Int, error) {
	in, out, _, err := p.sides(offer)
	if err != nil {
		return nil, err
	}
	if amount == nil || amount.IsZero() || in.IsZero() || out.IsZero() {
		return new(uint256.Int), nil
	}
	net := new(uint256.Int).Mul(amount, uint256.NewInt(swap.BasisPoints-p.FeeBps))
	den := new(uint256.Int).Mul(in, uint256.NewInt(swap.BasisPoints))
	den.Add(den, net)
	q, overflow := new(uint256.Int).MulDivOverflow(net, out, den)
	if overflow {
		return nil, result.Wrap(result.Internal, "pool %s quote overflows", p.Address)
	}
	return q, nil
}

func loadPool(v state.View, addr types.Address) (*Pool, error) {
	var w poolWire
	found, err := state.Load(v, state.Pool(addr), &w)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, result.Wrap(result.UnknownContract, "no pool at %s", addr)
	}
	ra, err := types.AmountFromBytes(w.ReserveA)
	if err != nil {
		return nil, err
	}
	rb, err := types.AmountFromBytes(w.ReserveB)
	if err != nil {
		return nil, err
	}
	return &Pool{Address: addr, AssetA: w.AssetA, AssetB: w.AssetB, ReserveA: ra, ReserveB: rb, FeeBps: w.FeeBps}, nil
}

func savePool(v state.View, p *Pool) error {
	return state.Save(v, state.Pool(p.Address), &poolWire{
		AssetA:   p.AssetA,
		AssetB:   p.AssetB,
		ReserveA: types.AmountToBytes(p.ReserveA),
		ReserveB: types.AmountToBytes(p.ReserveB),
		FeeBps:   p.FeeBps,
	})
}

// execSwap trades on behalf of trader and returns the amount received.
func execSwap(v state.View, trader types.Address, s instruction.Swap) (*uint256.Int, error) {
	p, err := loadPool(v, s.Pool)
	if err != nil {
		return nil, err
	}
	_, _, ask, err := p.sides(s.Offer)
	if err != nil {
		return nil, err
	}
	if ask != s.Ask {
		return nil, result.Wrap(result.InvalidMessage, "pool %s pays %s, not %s", p.Address, ask, s.Ask)
	}
	got, err := p.Quote(s.Offer, s.Amount)
	if err != nil {
		return nil, err
	}
	if got.IsZero() {
		return nil, result.Wrap(result.SlippageExceeded, "pool %s returns nothing for %s", p.Address, types.AmountOrZero(s.Amount).Dec())
	}
	if s.MinimumReceive != nil && got.Lt(s.MinimumReceive) {
		return nil, result.Wrap(result.SlippageExceeded, "pool %s returns %s, minimum %s", p.Address, got.Dec(), s.MinimumReceive.Dec())
	}
	if err := debit(v, trader, s.Offer, s.Amount); err != nil {
		return nil, err
	}
	if s.Offer == p.AssetA {
		p.ReserveA = new(uint256.Int).Add(p.ReserveA, s.Amount)
		p.ReserveB = new(uint256.Int).Sub(p.ReserveB, got)
	} else {
		p.ReserveB = new(uint256.Int).Add(p.ReserveB, s.Amount)
		p.ReserveA = new(uint256.Int).Sub(p.ReserveA, got)
	}
	if err := savePool(v, p); err != nil {
		return nil, err
	}
	if err := credit(v, trader, s.Ask, got); err != nil {
		return nil, err
	}
	return got, nil
}
