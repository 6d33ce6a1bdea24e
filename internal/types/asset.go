package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// AssetKind tells native bank denominations apart from token contracts.
type AssetKind uint8

const (
	// AssetNative is a bank denomination such as "ujuno".
	AssetNative AssetKind = iota + 1
	// AssetToken is a fungible token contract (cw20).
	AssetToken
)

const (
	nativePrefix = "native:"
	tokenPrefix  = "token:"
)

// Asset names a fungible asset. Exactly one of Denom or Contract is set,
// depending on Kind.
type Asset struct {
	Kind     AssetKind `json:"kind" codec:"kind"`
	Denom    string    `json:"denom,omitempty" codec:"denom,omitempty"`
	Contract Address   `json:"contract,omitempty" codec:"contract,omitempty"`
}

// NativeAsset returns the asset for a bank denomination.
func NativeAsset(denom string) Asset {
	return Asset{Kind: AssetNative, Denom: denom}
}

// TokenAsset returns the asset for a token contract.
func TokenAsset(contract Address) Asset {
	return Asset{Kind: AssetToken, Contract: contract}
}

// IsNative reports whether the asset is a bank denomination.
func (a Asset) IsNative() bool {
	return a.Kind == AssetNative
}

// IsZero reports whether the asset is unset.
func (a Asset) IsZero() bool {
	return a == Asset{}
}

// Key returns the canonical "native:<denom>" or "token:<address>" form.
func (a Asset) Key() string {
	switch a.Kind {
	case AssetNative:
		return nativePrefix + a.Denom
	case AssetToken:
		return tokenPrefix + a.Contract.String()
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (a Asset) String() string {
	return a.Key()
}

// Validate checks that the asset is well formed.
func (a Asset) Validate() error {
	switch a.Kind {
	case AssetNative:
		if a.Denom == "" || a.Contract != "" {
			return fmt.Errorf("native asset needs a denom only")
		}
	case AssetToken:
		if a.Contract == "" || a.Denom != "" {
			return fmt.Errorf("token asset needs a contract only")
		}
	default:
		return fmt.Errorf("unknown asset kind %d", a.Kind)
	}
	return nil
}

// MarshalText encodes the asset in its Key form. The zero asset encodes as
// an empty string.
func (a Asset) MarshalText() ([]byte, error) {
	if a.IsZero() {
		return []byte{}, nil
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return []byte(a.Key()), nil
}

// UnmarshalText decodes the Key form of an asset.
func (a *Asset) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Asset{}
		return nil
	}
	parsed, err := ParseAsset(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAsset parses the Key form of an asset.
func ParseAsset(s string) (Asset, error) {
	switch {
	case strings.HasPrefix(s, nativePrefix) && len(s) > len(nativePrefix):
		return NativeAsset(strings.TrimPrefix(s, nativePrefix)), nil
	case strings.HasPrefix(s, tokenPrefix) && len(s) > len(tokenPrefix):
		return TokenAsset(Address(strings.TrimPrefix(s, tokenPrefix))), nil
	default:
		return Asset{}, fmt.Errorf("invalid asset %q: want native:<denom> or token:<address>", s)
	}
}

// Coin is an amount of a native denomination attached to a message.
type Coin struct {
	Denom  string       `json:"denom"`
	Amount *uint256.Int `json:"amount"`
}

// NewCoin builds a coin from a plain integer amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: uint256.NewInt(amount)}
}

// String renders the coin as "<amount><denom>".
func (c Coin) String() string {
	return AmountOrZero(c.Amount).Dec() + c.Denom
}
