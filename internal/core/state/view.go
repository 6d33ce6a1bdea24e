package state

import (
	"errors"

	"github.com/LeJamon/goMarble/internal/codec"
)

var (
	// ErrEntryExists is returned when inserting over an existing entry.
	ErrEntryExists = errors.New("entry already exists")
	// ErrEntryNotFound is returned when updating or erasing a missing entry.
	ErrEntryNotFound = errors.New("entry not found")
)

// View is read/write access to keyed state. Read returns nil data and a nil
// error for an absent entry.
type View interface {
	Read(k Keylet) ([]byte, error)
	Exists(k Keylet) (bool, error)
	Insert(k Keylet, data []byte) error
	Update(k Keylet, data []byte) error
	Erase(k Keylet) error

	// ForEach visits entries whose encoded key starts with prefix, in
	// ascending key order, beginning strictly after the encoded key `after`
	// when it is non-nil. Returning false from fn stops the iteration.
	ForEach(prefix, after []byte, fn func(key, data []byte) bool) error
}

// Put inserts or updates an entry.
func Put(v View, k Keylet, data []byte) error {
	exists, err := v.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return v.Update(k, data)
	}
	return v.Insert(k, data)
}

// Load reads an entry and decodes it into dst. It reports whether the entry
// was present.
func Load(v View, k Keylet, dst interface{}) (bool, error) {
	data, err := v.Read(k)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := codec.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Save encodes src and stores it under k.
func Save(v View, k Keylet, src interface{}) error {
	data, err := codec.Marshal(src)
	if err != nil {
		return err
	}
	return Put(v, k, data)
}

// Remove erases k if present.
func Remove(v View, k Keylet) error {
	exists, err := v.Exists(k)
	if err != nil || !exists {
		return err
	}
	return v.Erase(k)
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
