package vm

import (
	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/types"
)

// OneCoin returns the single non-zero coin attached to a call. Anything
// else is IncorrectFunds.
func OneCoin(info MessageInfo) (types.Coin, error) {
	var found []types.Coin
	for _, c := range info.Funds {
		if c.Amount != nil && !c.Amount.IsZero() {
			found = append(found, c)
		}
	}
	if len(found) != 1 {
		return types.Coin{}, result.Wrap(result.IncorrectFunds, "expected exactly one coin, got %d", len(found))
	}
	return found[0], nil
}

// AmountOf returns how much of denom was attached to a call.
func AmountOf(info MessageInfo, denom string) *uint256.Int {
	sum := new(uint256.Int)
	for _, c := range info.Funds {
		if c.Denom == denom && c.Amount != nil {
			sum.Add(sum, c.Amount)
		}
	}
	return sum
}

// NoFunds rejects calls carrying native funds.
func NoFunds(info MessageInfo) error {
	for _, c := range info.Funds {
		if c.Amount != nil && !c.Amount.IsZero() {
			return result.Wrap(result.IncorrectFunds, "unexpected funds %s", c)
		}
	}
	return nil
}
