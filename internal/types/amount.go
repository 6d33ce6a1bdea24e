package types

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// AmountBits is the width of every on-chain amount. Intermediate math is
// carried out on 256 bits so products of an amount and a rate never overflow.
const AmountBits = 128

// ErrAmountOverflow is returned when a value does not fit in AmountBits.
var ErrAmountOverflow = errors.New("amount exceeds 128 bits")

// MaxAmount is the largest representable amount (2^128 - 1).
var MaxAmount = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), AmountBits),
	uint256.NewInt(1),
)

// NewAmount returns a fresh amount holding v.
func NewAmount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// ZeroAmount returns a fresh zero amount.
func ZeroAmount() *uint256.Int {
	return new(uint256.Int)
}

// ParseAmount parses a base-10 amount and checks its range.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if err := CheckAmount(v); err != nil {
		return nil, err
	}
	return v, nil
}

// CheckAmount rejects nil amounts and values wider than AmountBits.
func CheckAmount(v *uint256.Int) error {
	if v == nil {
		return errors.New("amount is required")
	}
	if v.BitLen() > AmountBits {
		return ErrAmountOverflow
	}
	return nil
}

// AmountToBytes encodes an amount as minimal big-endian bytes.
func AmountToBytes(v *uint256.Int) []byte {
	if v == nil || v.IsZero() {
		return []byte{}
	}
	return v.Bytes()
}

// AmountFromBytes decodes AmountToBytes output.
func AmountFromBytes(b []byte) (*uint256.Int, error) {
	if len(b) > 32 {
		return nil, fmt.Errorf("amount encoding too long: %d bytes", len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}

// AmountOrZero returns a copy of v, or zero when v is nil.
func AmountOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
