package types

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAsset(t *testing.T) {
	native, err := ParseAsset("native:ujuno")
	require.NoError(t, err)
	assert.Equal(t, NativeAsset("ujuno"), native)
	assert.True(t, native.IsNative())

	token, err := ParseAsset("token:marble1abc")
	require.NoError(t, err)
	assert.Equal(t, TokenAsset("marble1abc"), token)
	assert.Equal(t, "token:marble1abc", token.Key())

	for _, bad := range []string{"", "native:", "token:", "ujuno", "cw20:x"} {
		_, err := ParseAsset(bad)
		assert.Error(t, err, bad)
	}
}

func TestAssetValidate(t *testing.T) {
	assert.NoError(t, NativeAsset("ujuno").Validate())
	assert.NoError(t, TokenAsset("marble1abc").Validate())
	assert.Error(t, Asset{}.Validate())
	assert.Error(t, Asset{Kind: AssetNative, Denom: "ujuno", Contract: "x"}.Validate())
	assert.Error(t, Asset{Kind: AssetToken}.Validate())
}

func TestAmountRange(t *testing.T) {
	v, err := ParseAmount("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.True(t, v.Eq(MaxAmount))

	_, err = ParseAmount("340282366920938463463374607431768211456")
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = ParseAmount("12abc")
	assert.Error(t, err)

	assert.Error(t, CheckAmount(nil))
}

func TestAmountBytes(t *testing.T) {
	assert.Empty(t, AmountToBytes(nil))
	assert.Empty(t, AmountToBytes(uint256.NewInt(0)))

	v := uint256.NewInt(1_000_000_007)
	decoded, err := AmountFromBytes(AmountToBytes(v))
	require.NoError(t, err)
	assert.True(t, decoded.Eq(v))

	_, err = AmountFromBytes(make([]byte, 33))
	assert.Error(t, err)
}

func TestAssetText(t *testing.T) {
	text, err := TokenAsset("marble1pool").MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "token:marble1pool", string(text))

	var a Asset
	require.NoError(t, a.UnmarshalText([]byte("native:uatom")))
	assert.Equal(t, NativeAsset("uatom"), a)

	text, err = Asset{}.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, text)

	_, err = Asset{Kind: AssetToken}.MarshalText()
	assert.Error(t, err)
}
