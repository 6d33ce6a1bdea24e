// Package crypto derives account and contract addresses and signs
// transaction envelopes with secp256k1 keys.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/crypto/ripemd160"

	"github.com/LeJamon/goMarble/internal/types"
)

// AddressPrefix starts every account and contract address.
const AddressPrefix = "marble1"

// AccountIDSize is the size of an account id in bytes.
const AccountIDSize = 20

// CalcAccountID computes RIPEMD160(SHA256(publicKey)).
func CalcAccountID(publicKey []byte) [AccountIDSize]byte {
	sum := sha256.Sum256(publicKey)

	h := ripemd160.New()
	h.Write(sum[:])

	var id [AccountIDSize]byte
	copy(id[:], h.Sum(nil))
	return id
}

// AddressFromPublicKey returns the account address owning publicKey.
func AddressFromPublicKey(publicKey []byte) types.Address {
	id := CalcAccountID(publicKey)
	return types.Address(AddressPrefix + hex.EncodeToString(id[:]))
}

// ContractAddress returns the address of the seq-th contract instance.
// Seq is a chain-wide counter so addresses never repeat.
func ContractAddress(code string, seq uint64) types.Address {
	buf := make([]byte, 0, len(code)+1+8)
	buf = append(buf, code...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, seq)
	id := CalcAccountID(buf)
	return types.Address(AddressPrefix + hex.EncodeToString(id[:]))
}

// ValidateAddress checks the marble1<40 hex> form.
func ValidateAddress(addr types.Address) error {
	s := addr.String()
	if !strings.HasPrefix(s, AddressPrefix) {
		return fmt.Errorf("address %q lacks the %s prefix", s, AddressPrefix)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(s, AddressPrefix))
	if err != nil || len(b) != AccountIDSize {
		return fmt.Errorf("address %q is not %d hex bytes", s, AccountIDSize)
	}
	return nil
}
