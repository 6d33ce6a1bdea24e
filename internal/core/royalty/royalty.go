// Package royalty computes the four-way split of a settlement amount.
package royalty

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Scale is the denominator of a fixed-point rate.
type Scale uint64

const (
	// ScalePercent expresses rates in parts per hundred.
	ScalePercent Scale = 100
	// ScaleMillionths expresses rates in parts per million.
	ScaleMillionths Scale = 1_000_000
)

var (
	ErrInvalidScale  = errors.New("invalid rate scale")
	ErrScaleMismatch = errors.New("rates use different scales")
	ErrRateOverflow  = errors.New("rates exceed the whole amount")
)

// ParseScale accepts the two supported denominators.
func ParseScale(v uint64) (Scale, error) {
	s := Scale(v)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidScale, v)
	}
	return s, nil
}

// Valid reports whether s is a supported denominator.
func (s Scale) Valid() bool {
	return s == ScalePercent || s == ScaleMillionths
}

// Rate is Value/Scale. The zero Rate is valid under any scale.
type Rate struct {
	Value uint64 `json:"value" codec:"value" mapstructure:"value"`
	Scale Scale  `json:"scale" codec:"scale" mapstructure:"scale"`
}

// NewRate builds a rate.
func NewRate(value uint64, scale Scale) Rate {
	return Rate{Value: value, Scale: scale}
}

// Percent builds a parts-per-hundred rate.
func Percent(value uint64) Rate {
	return Rate{Value: value, Scale: ScalePercent}
}

// Millionths builds a parts-per-million rate.
func Millionths(value uint64) Rate {
	return Rate{Value: value, Scale: ScaleMillionths}
}

// IsZero reports whether the rate takes nothing.
func (r Rate) IsZero() bool {
	return r.Value == 0
}

// Validate checks the scale and that the rate does not exceed one.
func (r Rate) Validate() error {
	if r.IsZero() {
		return nil
	}
	if !r.Scale.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidScale, r.Scale)
	}
	if r.Value > uint64(r.Scale) {
		return fmt.Errorf("%w: %d/%d", ErrRateOverflow, r.Value, r.Scale)
	}
	return nil
}

func (r Rate) String() string {
	if r.IsZero() {
		return "0"
	}
	return fmt.Sprintf("%d/%d", r.Value, r.Scale)
}

// Of returns floor(amount * rate).
func (r Rate) Of(amount *uint256.Int) *uint256.Int {
	if r.IsZero() || amount.IsZero() {
		return new(uint256.Int)
	}
	out, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(r.Value), uint256.NewInt(uint64(r.Scale)))
	return out
}

// Shares is the result of a split. The four legs always sum to the total.
type Shares struct {
	Protocol   *uint256.Int `json:"protocol"`
	Seller     *uint256.Int `json:"seller"`
	Collection *uint256.Int `json:"collection"`
	Remainder  *uint256.Int `json:"remainder"`
}

// Sum adds the four legs.
func (s Shares) Sum() *uint256.Int {
	sum := new(uint256.Int).Add(s.Protocol, s.Seller)
	sum.Add(sum, s.Collection)
	return sum.Add(sum, s.Remainder)
}

// Split divides total into the protocol fee, the seller royalty, the
// collection royalty and the remainder. Each named leg is floored, the
// remainder absorbs the rounding loss.
func Split(total *uint256.Int, protocol, seller, collection Rate) (Shares, error) {
	if total == nil {
		total = new(uint256.Int)
	}

	var scale Scale
	var sum uint64
	for _, r := range []Rate{protocol, seller, collection} {
		if err := r.Validate(); err != nil {
			return Shares{}, err
		}
		if r.IsZero() {
			continue
		}
		if scale == 0 {
			scale = r.Scale
		} else if r.Scale != scale {
			return Shares{}, fmt.Errorf("%w: %d and %d", ErrScaleMismatch, scale, r.Scale)
		}
		sum += r.Value
	}
	if scale != 0 && sum > uint64(scale) {
		return Shares{}, fmt.Errorf("%w: %d/%d", ErrRateOverflow, sum, scale)
	}

	s := Shares{
		Protocol:   protocol.Of(total),
		Seller:     seller.Of(total),
		Collection: collection.Of(total),
	}
	remainder := new(uint256.Int).Sub(total, s.Protocol)
	remainder.Sub(remainder, s.Seller)
	s.Remainder = remainder.Sub(remainder, s.Collection)
	return s, nil
}
