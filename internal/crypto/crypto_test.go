package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	k, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte(`{"kind":"execute"}`)
	sig := k.Sign(msg)
	require.NoError(t, Verify(k.PublicKey(), msg, sig))

	assert.ErrorIs(t, Verify(k.PublicKey(), []byte("other"), sig), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(k.PublicKey(), msg, sig[:10]), ErrInvalidSignature)
	assert.ErrorIs(t, Verify([]byte{1, 2, 3}, msg, sig), ErrInvalidPublicKey)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(other.PublicKey(), msg, sig), ErrInvalidSignature)
}

func TestKeyPairFromHex(t *testing.T) {
	k, err := GenerateKeyPair()
	require.NoError(t, err)

	loaded, err := KeyPairFromHex(k.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, k.PublicKeyHex(), loaded.PublicKeyHex())
	assert.Equal(t, k.Address(), loaded.Address())

	loaded, err = KeyPairFromHex("00" + k.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, k.Address(), loaded.Address())

	for _, bad := range []string{"", "abcd", "zz" + k.PrivateKeyHex()[2:], "0000000000000000000000000000000000000000000000000000000000000000"} {
		_, err := KeyPairFromHex(bad)
		assert.ErrorIs(t, err, ErrInvalidPrivateKey, bad)
	}
}

func TestAddresses(t *testing.T) {
	// RIPEMD160(SHA256("")) is a fixed vector.
	id := CalcAccountID(nil)
	assert.Equal(t, "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb", hex.EncodeToString(id[:]))

	k, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, ValidateAddress(k.Address()))

	a := ContractAddress("marble-collection", 1)
	b := ContractAddress("marble-collection", 2)
	assert.NotEqual(t, a, b)
	require.NoError(t, ValidateAddress(a))

	assert.Error(t, ValidateAddress("cosmos1abc"))
	assert.Error(t, ValidateAddress("marble1zz"))
}
