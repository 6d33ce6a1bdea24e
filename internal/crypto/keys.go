package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/LeJamon/goMarble/internal/types"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// KeyPair is a secp256k1 signing key.
type KeyPair struct {
	priv *btcec.PrivateKey
}

// GenerateKeyPair creates a random key.
func GenerateKeyPair() (*KeyPair, error) {
	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	raw := k.Serialize()
	defer erase(raw)
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return &KeyPair{priv: priv}, nil
}

// KeyPairFromHex loads a hex encoded 32-byte private key. A leading "00"
// byte is accepted.
func KeyPairFromHex(s string) (*KeyPair, error) {
	s = strings.TrimSpace(s)
	if len(s) == 66 && strings.HasPrefix(s, "00") {
		s = s[2:]
	}
	if len(s) != 64 {
		return nil, ErrInvalidPrivateKey
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	defer erase(raw)
	priv, _ := btcec.PrivKeyFromBytes(raw)
	if priv.Key.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return &KeyPair{priv: priv}, nil
}

// PrivateKeyHex returns the private key in hex.
func (k *KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(k.priv.Serialize())
}

// PublicKey returns the compressed public key.
func (k *KeyPair) PublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// PublicKeyHex returns the compressed public key in hex.
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKey())
}

// Address returns the account address of the key.
func (k *KeyPair) Address() types.Address {
	return AddressFromPublicKey(k.PublicKey())
}

// Sign returns the DER signature of sha256(message).
func (k *KeyPair) Sign(message []byte) []byte {
	hash := sha256.Sum256(message)
	return btcecdsa.Sign(k.priv, hash[:]).Serialize()
}

// Verify checks a DER signature of sha256(message) against a compressed
// or uncompressed public key.
func Verify(publicKey, message, signature []byte) error {
	pub, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	hash := sha256.Sum256(message)
	if !sig.Verify(hash[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}

func erase(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
