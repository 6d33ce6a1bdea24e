package drop

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/LeJamon/goMarble/internal/types"
)

// Hash is a merkle tree node.
type Hash [sha256.Size]byte

// Leaf returns the leaf committed for addr: sha256(addr || "1").
func Leaf(addr types.Address) Hash {
	return sha256.Sum256([]byte(addr.String() + "1"))
}

// HashPair hashes two nodes in sorted order, so proofs carry no
// left/right flags.
func HashPair(a, b Hash) Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	buf := make([]byte, 0, 2*sha256.Size)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return sha256.Sum256(buf)
}

// Fold applies a proof to a leaf and returns the resulting root.
func Fold(leaf Hash, proof []Hash) Hash {
	h := leaf
	for _, p := range proof {
		h = HashPair(h, p)
	}
	return h
}

// ParseHash decodes a hex encoded node.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("want %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Tree builds sorted-pair merkle trees over address leaves. An odd node
// at the end of a level is promoted unchanged.
type Tree struct {
	levels [][]Hash
}

// NewTree builds the tree of addrs.
func NewTree(addrs []types.Address) *Tree {
	level := make([]Hash, len(addrs))
	for i, a := range addrs {
		level[i] = Leaf(a)
	}
	t := &Tree{levels: [][]Hash{level}}
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, HashPair(level[i], level[i+1]))
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t
}

// Root returns the tree root.
func (t *Tree) Root() Hash {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return Hash{}
	}
	return top[0]
}

// Proof returns the hex encoded proof of leaf i.
func (t *Tree) Proof(i int) []string {
	var proof []string
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := i ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling].String())
		}
		i /= 2
	}
	return proof
}
