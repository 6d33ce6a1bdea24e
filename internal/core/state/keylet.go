package state

import (
	"encoding/binary"
	"fmt"

	"github.com/LeJamon/goMarble/internal/types"
)

// Space identifiers prefix every stored key. Keys inside a space are laid
// out so that bytewise order matches the natural order of their ids, which
// is what paginated queries rely on.
type Space byte

const (
	// Contract-local spaces
	SpaceConfig     Space = 'c' // Contract configuration (singleton)
	SpaceSale       Space = 's' // Sale record by token id
	SpacePrice      Space = 'q' // Primary sale price by token id
	SpaceSold       Space = 'S' // Sold marker by token id
	SpaceMerkle     Space = 'M' // Merkle claim stage (singleton)
	SpaceClaim      Space = 'C' // Claimed marker by address
	SpaceCollection Space = 'R' // Registered collection by id
	SpacePending    Space = 'P' // Registry entry awaiting its reply

	// Host spaces
	SpaceContract Space = 'x' // Namespaced contract state
	SpaceInstance Space = 'i' // Contract instance metadata
	SpaceAccount  Space = 'a' // Account sequence
	SpaceBank     Space = 'b' // Native balances
	SpaceToken    Space = 't' // Token (cw20) balances
	SpaceTokenDef Space = 'T' // Token (cw20) metadata
	SpaceNft      Space = 'n' // NFT ownership
	SpaceNftInfo  Space = 'N' // NFT tracker metadata
	SpacePool     Space = 'p' // Liquidity pools
	SpaceMeta     Space = 'm' // Chain metadata (height, counters)
)

// Keylet represents an addressable location in contract or host state.
type Keylet struct {
	Space Space
	Key   []byte
}

// Bytes returns the encoded key: the space byte followed by the key body.
func (k Keylet) Bytes() []byte {
	out := make([]byte, 0, 1+len(k.Key))
	out = append(out, byte(k.Space))
	return append(out, k.Key...)
}

// String renders the keylet for logs.
func (k Keylet) String() string {
	return fmt.Sprintf("%c/%x", k.Space, k.Key)
}

// FromBytes decodes an encoded key.
func FromBytes(b []byte) (Keylet, error) {
	if len(b) == 0 {
		return Keylet{}, fmt.Errorf("empty key")
	}
	return Keylet{Space: Space(b[0]), Key: append([]byte(nil), b[1:]...)}, nil
}

// SpacePrefix returns the encoded prefix shared by every key of a space.
func SpacePrefix(space Space) []byte {
	return []byte{byte(space)}
}

func u64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// lengthPrefixed encodes a variable length component so that composite keys
// stay unambiguous.
func lengthPrefixed(s string) []byte {
	out := make([]byte, 2, 2+len(s))
	binary.BigEndian.PutUint16(out, uint16(len(s)))
	return append(out, s...)
}

// Uint64FromKey decodes the trailing 8-byte id of a key body.
func Uint64FromKey(key []byte) (uint64, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("key too short for an id: %d bytes", len(key))
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), nil
}

// Config returns the keylet of the contract configuration singleton.
func Config() Keylet {
	return Keylet{Space: SpaceConfig}
}

// Sale returns the keylet of a sale record.
func Sale(tokenID uint64) Keylet {
	return Keylet{Space: SpaceSale, Key: u64(tokenID)}
}

// Price returns the keylet of a primary sale price.
func Price(tokenID uint64) Keylet {
	return Keylet{Space: SpacePrice, Key: u64(tokenID)}
}

// Sold returns the keylet marking a token as sold by a drop.
func Sold(tokenID uint64) Keylet {
	return Keylet{Space: SpaceSold, Key: u64(tokenID)}
}

// MerkleStage returns the keylet of the claim stage singleton.
func MerkleStage() Keylet {
	return Keylet{Space: SpaceMerkle}
}

// Claim returns the keylet marking an address as claimed.
func Claim(addr types.Address) Keylet {
	return Keylet{Space: SpaceClaim, Key: lengthPrefixed(addr.String())}
}

// Collection returns the keylet of a registry entry.
func Collection(id uint64) Keylet {
	return Keylet{Space: SpaceCollection, Key: u64(id)}
}

// PendingCollection returns the keylet of the registry entry awaiting its
// instantiation reply.
func PendingCollection() Keylet {
	return Keylet{Space: SpacePending}
}

// ContractNamespace returns the key prefix of a contract's private state.
func ContractNamespace(addr types.Address) []byte {
	return lengthPrefixed(addr.String())
}

// Instance returns the keylet of a contract instance record.
func Instance(addr types.Address) Keylet {
	return Keylet{Space: SpaceInstance, Key: lengthPrefixed(addr.String())}
}

// Account returns the keylet of an account's sequence record.
func Account(addr types.Address) Keylet {
	return Keylet{Space: SpaceAccount, Key: lengthPrefixed(addr.String())}
}

// Balance returns the keylet of a native balance.
func Balance(addr types.Address, denom string) Keylet {
	key := lengthPrefixed(addr.String())
	return Keylet{Space: SpaceBank, Key: append(key, lengthPrefixed(denom)...)}
}

// TokenBalance returns the keylet of a token holder's balance.
func TokenBalance(token, holder types.Address) Keylet {
	key := lengthPrefixed(token.String())
	return Keylet{Space: SpaceToken, Key: append(key, lengthPrefixed(holder.String())...)}
}

// TokenInfo returns the keylet of a token contract's metadata.
func TokenInfo(token types.Address) Keylet {
	return Keylet{Space: SpaceTokenDef, Key: lengthPrefixed(token.String())}
}

// Nft returns the keylet of one NFT held by a tracker contract.
func Nft(tracker types.Address, tokenID uint64) Keylet {
	key := lengthPrefixed(tracker.String())
	return Keylet{Space: SpaceNft, Key: append(key, u64(tokenID)...)}
}

// NftPrefix returns the encoded prefix of every NFT held by a tracker.
func NftPrefix(tracker types.Address) []byte {
	return Keylet{Space: SpaceNft, Key: lengthPrefixed(tracker.String())}.Bytes()
}

// NftInfo returns the keylet of a tracker contract's metadata.
func NftInfo(tracker types.Address) Keylet {
	return Keylet{Space: SpaceNftInfo, Key: lengthPrefixed(tracker.String())}
}

// Pool returns the keylet of a liquidity pool.
func Pool(addr types.Address) Keylet {
	return Keylet{Space: SpacePool, Key: lengthPrefixed(addr.String())}
}

// Meta returns the keylet of a named chain metadata value.
func Meta(name string) Keylet {
	return Keylet{Space: SpaceMeta, Key: []byte(name)}
}
