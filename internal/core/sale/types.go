package sale

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/types"
)

// SaleType selects how requests are accepted and how the winner is chosen.
type SaleType uint8

const (
	Fixed SaleType = iota + 1
	Auction
	Offer
)

func (s SaleType) String() string {
	switch s {
	case Fixed:
		return "fixed"
	case Auction:
		return "auction"
	case Offer:
		return "offer"
	}
	return fmt.Sprintf("sale_type(%d)", uint8(s))
}

// Valid reports whether s is a known sale type.
func (s SaleType) Valid() bool {
	return s >= Fixed && s <= Offer
}

func (s SaleType) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown sale type %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *SaleType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "fixed":
		*s = Fixed
	case "auction":
		*s = Auction
	case "offer":
		*s = Offer
	default:
		return fmt.Errorf("unknown sale type %q", text)
	}
	return nil
}

// DurationKind tells the duration gates apart.
type DurationKind uint8

const (
	Unbounded DurationKind = iota
	TimeBound
	BidBound
)

func (k DurationKind) String() string {
	switch k {
	case Unbounded:
		return "unbounded"
	case TimeBound:
		return "time_bound"
	case BidBound:
		return "bid_bound"
	}
	return fmt.Sprintf("duration(%d)", uint8(k))
}

// Duration is the gate deciding when requests stop being accepted and
// settlement becomes possible.
type Duration struct {
	Kind DurationKind
	// End is the last block time (unix seconds) accepting requests.
	End uint64
	// MaxRequests closes the sale once that many requests exist.
	MaxRequests uint32
}

// NewUnbounded returns a duration that never closes.
func NewUnbounded() Duration {
	return Duration{Kind: Unbounded}
}

// NewTimeBound returns a duration closing at block time end.
func NewTimeBound(end uint64) Duration {
	return Duration{Kind: TimeBound, End: end}
}

// NewBidBound returns a duration closing after n requests.
func NewBidBound(n uint32) Duration {
	return Duration{Kind: BidBound, MaxRequests: n}
}

func (d Duration) String() string {
	switch d.Kind {
	case TimeBound:
		return fmt.Sprintf("time_bound(%d)", d.End)
	case BidBound:
		return fmt.Sprintf("bid_bound(%d)", d.MaxRequests)
	}
	return d.Kind.String()
}

// acceptsRequests reports whether the gate is still open for submissions.
func (d Duration) acceptsRequests(now uint64, count int) bool {
	switch d.Kind {
	case TimeBound:
		return now <= d.End
	case BidBound:
		return count < int(d.MaxRequests)
	}
	return true
}

// Settleable reports whether the gate allows settlement.
func (d Duration) Settleable(now uint64, count int) bool {
	switch d.Kind {
	case TimeBound:
		return now >= d.End
	case BidBound:
		return count >= int(d.MaxRequests)
	}
	return true
}

// MarshalJSON encodes "unbounded", {"time_bound":end} or {"bid_bound":n}.
func (d Duration) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case Unbounded:
		return json.Marshal("unbounded")
	case TimeBound:
		return json.Marshal(map[string]uint64{"time_bound": d.End})
	case BidBound:
		return json.Marshal(map[string]uint32{"bid_bound": d.MaxRequests})
	}
	return nil, fmt.Errorf("unknown duration kind %d", d.Kind)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name != "unbounded" {
			return fmt.Errorf("unknown duration %q", name)
		}
		*d = NewUnbounded()
		return nil
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if len(tagged) != 1 {
		return fmt.Errorf("invalid duration: want exactly one variant, got %d", len(tagged))
	}
	for key, raw := range tagged {
		switch key {
		case "unbounded":
			*d = NewUnbounded()
		case "time_bound":
			var end uint64
			if err := json.Unmarshal(raw, &end); err != nil {
				return fmt.Errorf("invalid time_bound: %w", err)
			}
			*d = NewTimeBound(end)
		case "bid_bound":
			var n uint32
			if err := json.Unmarshal(raw, &n); err != nil {
				return fmt.Errorf("invalid bid_bound: %w", err)
			}
			*d = NewBidBound(n)
		default:
			return fmt.Errorf("unknown duration %q", key)
		}
	}
	return nil
}

// Request is one bid or offer.
type Request struct {
	Address types.Address `json:"address"`
	Price   *uint256.Int  `json:"price"`
}

// Royalty is the seller-chosen royalty paid on settlement. An empty Address
// pays the provider.
type Royalty struct {
	Address types.Address `json:"address,omitempty"`
	Rate    royalty.Rate  `json:"rate"`
}

// Record is the sale state of one listed token.
type Record struct {
	TokenID      uint64        `json:"token_id"`
	Provider     types.Address `json:"provider"`
	SaleType     SaleType      `json:"sale_type"`
	Duration     Duration      `json:"duration_type"`
	InitialPrice *uint256.Int  `json:"initial_price"`
	Royalty      Royalty       `json:"royalty"`
	Requests     []Request     `json:"requests"`
	WinningIndex uint32        `json:"winning_index"`
}

// Winner returns the winning request, or false when there is none.
func (r *Record) Winner() (Request, bool) {
	if len(r.Requests) == 0 || int(r.WinningIndex) >= len(r.Requests) {
		return Request{}, false
	}
	return r.Requests[r.WinningIndex], true
}

// RoyaltyRecipient returns the address paid the seller royalty.
func (r *Record) RoyaltyRecipient() types.Address {
	if r.Royalty.Address.IsEmpty() {
		return r.Provider
	}
	return r.Royalty.Address
}

// top is the price every new auction bid has to beat.
func (r *Record) top() *uint256.Int {
	if w, ok := r.Winner(); ok {
		return w.Price
	}
	return r.InitialPrice
}

// pickWinner recomputes WinningIndex after an append.
func (r *Record) pickWinner() {
	last := uint32(len(r.Requests) - 1)
	if r.SaleType != Offer {
		r.WinningIndex = last
		return
	}
	best := uint32(0)
	for i := 1; i < len(r.Requests); i++ {
		// Strictly greater keeps the earliest of equal prices
		if r.Requests[i].Price.Gt(r.Requests[best].Price) {
			best = uint32(i)
		}
	}
	r.WinningIndex = best
}
