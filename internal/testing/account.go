package testing

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/LeJamon/goMarble/internal/crypto"
	"github.com/LeJamon/goMarble/internal/types"
)

// Account is a test account with a deterministic key.
type Account struct {
	// Name is a human-readable identifier for the account (used for debugging).
	Name    string
	Key     *crypto.KeyPair
	Address types.Address
}

// NewAccount creates an account whose key is derived from the name. Using
// the same name always produces the same account.
func NewAccount(name string) *Account {
	seed := sha256.Sum256([]byte("marble-test-account/" + name))
	key, err := crypto.KeyPairFromHex(hex.EncodeToString(seed[:]))
	if err != nil {
		panic("failed to derive key for account " + name + ": " + err.Error())
	}
	return &Account{
		Name:    name,
		Key:     key,
		Address: key.Address(),
	}
}

// String returns the account name and address.
func (a *Account) String() string {
	return a.Name + "(" + a.Address.String() + ")"
}
