package host

import (
	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/result"
	"github.com/LeJamon/goMarble/internal/core/state"
	"github.com/LeJamon/goMarble/internal/types"
)

func readAmount(v state.View, k state.Keylet) (*uint256.Int, error) {
	data, err := v.Read(k)
	if err != nil {
		return nil, err
	}
	return types.AmountFromBytes(data)
}

func writeAmount(v state.View, k state.Keylet, amount *uint256.Int) error {
	if amount.IsZero() {
		return state.Remove(v, k)
	}
	return state.Put(v, k, types.AmountToBytes(amount))
}

func balanceKey(v state.View, holder types.Address, asset types.Asset) (state.Keylet, error) {
	switch asset.Kind {
	case types.AssetNative:
		return state.Balance(holder, asset.Denom), nil
	case types.AssetToken:
		known, err := v.Exists(state.TokenInfo(asset.Contract))
		if err != nil {
			return state.Keylet{}, err
		}
		if !known {
			return state.Keylet{}, result.Wrap(result.UnknownContract, "no token at %s", asset.Contract)
		}
		return state.TokenBalance(asset.Contract, holder), nil
	}
	return state.Keylet{}, result.Wrap(result.InvalidMessage, "invalid asset %v", asset)
}

func balanceOf(v state.View, holder types.Address, asset types.Asset) (*uint256.Int, error) {
	k, err := balanceKey(v, holder, asset)
	if err != nil {
		return nil, err
	}
	return readAmount(v, k)
}

func credit(v state.View, holder types.Address, asset types.Asset, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	k, err := balanceKey(v, holder, asset)
	if err != nil {
		return err
	}
	bal, err := readAmount(v, k)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow || types.CheckAmount(sum) != nil {
		return result.Wrap(result.Internal, "balance of %s in %s overflows", holder, asset)
	}
	return writeAmount(v, k, sum)
}

func debit(v state.View, holder types.Address, asset types.Asset, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	k, err := balanceKey(v, holder, asset)
	if err != nil {
		return err
	}
	bal, err := readAmount(v, k)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return result.Wrap(result.InsufficientFunds, "%s holds %s %s, needs %s", holder, bal.Dec(), asset, amount.Dec())
	}
	return writeAmount(v, k, new(uint256.Int).Sub(bal, amount))
}

func move(v state.View, from, to types.Address, asset types.Asset, amount *uint256.Int) error {
	if err := types.CheckAmount(types.AmountOrZero(amount)); err != nil {
		return result.Wrap(result.InvalidMessage, "%v", err)
	}
	if err := debit(v, from, asset, amount); err != nil {
		return err
	}
	return credit(v, to, asset, amount)
}

func moveCoins(v state.View, from, to types.Address, coins []types.Coin) error {
	for _, c := range coins {
		if err := move(v, from, to, types.NativeAsset(c.Denom), c.Amount); err != nil {
			return err
		}
	}
	return nil
}
