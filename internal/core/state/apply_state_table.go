package state

import (
	"bytes"
	"sort"
)

// Action represents the type of modification to a state entry
type Action int

const (
	// ActionCache means the entry was read but not modified
	ActionCache Action = iota
	// ActionInsert means a new entry was created
	ActionInsert
	// ActionModify means an existing entry was modified
	ActionModify
	// ActionErase means an entry was deleted
	ActionErase
)

func (a Action) String() string {
	switch a {
	case ActionCache:
		return "cache"
	case ActionInsert:
		return "insert"
	case ActionModify:
		return "modify"
	case ActionErase:
		return "erase"
	}
	return "unknown"
}

// TrackedEntry represents a state entry being tracked for changes
type TrackedEntry struct {
	Action   Action
	Original []byte // Original state (nil for inserts)
	Current  []byte // Current state (state before deletion for erases)
}

// Change is one committed modification, keyed by its encoded key.
type Change struct {
	Action Action
	Key    []byte
	Data   []byte
}

// BatchApplier is implemented by views able to commit a change set
// atomically.
type BatchApplier interface {
	ApplyBatch(changes []Change) error
}

// ApplyStateTable wraps a View and buffers every modification until Apply.
// Discarding the table leaves the base untouched.
type ApplyStateTable struct {
	base  View
	items map[string]*TrackedEntry
}

// NewApplyStateTable creates a new ApplyStateTable wrapping the given base view
func NewApplyStateTable(base View) *ApplyStateTable {
	return &ApplyStateTable{
		base:  base,
		items: make(map[string]*TrackedEntry),
	}
}

// Read reads an entry, tracking it as cached
func (t *ApplyStateTable) Read(k Keylet) ([]byte, error) {
	key := string(k.Bytes())
	if entry, exists := t.items[key]; exists {
		if entry.Action == ActionErase {
			return nil, nil
		}
		return entry.Current, nil
	}

	data, err := t.base.Read(k)
	if err != nil {
		return nil, err
	}

	// Only track entries that exist in the base
	if data != nil {
		t.items[key] = &TrackedEntry{
			Action:   ActionCache,
			Original: data,
			Current:  data,
		}
	}
	return data, nil
}

// Exists checks if an entry exists
func (t *ApplyStateTable) Exists(k Keylet) (bool, error) {
	if entry, exists := t.items[string(k.Bytes())]; exists {
		return entry.Action != ActionErase, nil
	}
	return t.base.Exists(k)
}

// Insert adds a new entry
func (t *ApplyStateTable) Insert(k Keylet, data []byte) error {
	key := string(k.Bytes())
	if entry, exists := t.items[key]; exists {
		if entry.Action != ActionErase {
			return ErrEntryExists
		}
		// Re-inserting a deleted entry becomes a modify
		entry.Action = ActionModify
		entry.Current = data
		return nil
	}

	exists, err := t.base.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return ErrEntryExists
	}

	t.items[key] = &TrackedEntry{
		Action:  ActionInsert,
		Current: data,
	}
	return nil
}

// Update modifies an existing entry
func (t *ApplyStateTable) Update(k Keylet, data []byte) error {
	key := string(k.Bytes())
	if entry, exists := t.items[key]; exists {
		if entry.Action == ActionErase {
			return ErrEntryNotFound
		}
		if entry.Action == ActionCache {
			entry.Action = ActionModify
		}
		// An insert stays an insert with new data
		entry.Current = data
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	if original == nil {
		return ErrEntryNotFound
	}

	t.items[key] = &TrackedEntry{
		Action:   ActionModify,
		Original: original,
		Current:  data,
	}
	return nil
}

// Erase removes an entry
func (t *ApplyStateTable) Erase(k Keylet) error {
	key := string(k.Bytes())
	if entry, exists := t.items[key]; exists {
		switch entry.Action {
		case ActionErase:
			return ErrEntryNotFound
		case ActionInsert:
			// Inserting then deleting is no change
			delete(t.items, key)
			return nil
		}
		entry.Action = ActionErase
		return nil
	}

	original, err := t.base.Read(k)
	if err != nil {
		return err
	}
	if original == nil {
		return ErrEntryNotFound
	}

	t.items[key] = &TrackedEntry{
		Action:   ActionErase,
		Original: original,
		Current:  original,
	}
	return nil
}

// IsErased returns true if the entry at the given key has been erased.
func (t *ApplyStateTable) IsErased(k Keylet) bool {
	if entry, exists := t.items[string(k.Bytes())]; exists {
		return entry.Action == ActionErase
	}
	return false
}

// ForEach merges the base entries with the pending modifications, in key
// order.
func (t *ApplyStateTable) ForEach(prefix, after []byte, fn func(key, data []byte) bool) error {
	pending := t.pendingKeys(prefix, after)

	stopped := false
	i := 0
	// emitPending flushes tracked entries ordered before limit (all of them
	// when limit is nil).
	emitPending := func(limit []byte) bool {
		for i < len(pending) {
			key := pending[i]
			if limit != nil && bytes.Compare([]byte(key), limit) >= 0 {
				return true
			}
			i++
			entry := t.items[key]
			if entry.Action == ActionErase {
				continue
			}
			if !fn([]byte(key), entry.Current) {
				return false
			}
		}
		return true
	}

	err := t.base.ForEach(prefix, after, func(key, data []byte) bool {
		if !emitPending(key) {
			stopped = true
			return false
		}
		if entry, tracked := t.items[string(key)]; tracked {
			// Emitted from the pending list (or hidden when erased)
			if i < len(pending) && pending[i] == string(key) {
				i++
				if entry.Action == ActionErase {
					return true
				}
				if !fn(key, entry.Current) {
					stopped = true
					return false
				}
			}
			return true
		}
		if !fn(key, data) {
			stopped = true
			return false
		}
		return true
	})
	if err != nil || stopped {
		return err
	}
	emitPending(nil)
	return nil
}

func (t *ApplyStateTable) pendingKeys(prefix, after []byte) []string {
	keys := make([]string, 0, len(t.items))
	for key := range t.items {
		kb := []byte(key)
		if !hasPrefix(kb, prefix) {
			continue
		}
		if after != nil && bytes.Compare(kb, after) <= 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Changes returns the modifications that Apply would commit, in key order.
func (t *ApplyStateTable) Changes() []Change {
	keys := make([]string, 0, len(t.items))
	for key := range t.items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changes := make([]Change, 0, len(keys))
	for _, key := range keys {
		entry := t.items[key]
		switch entry.Action {
		case ActionCache:
			continue
		case ActionModify:
			// Skip if no actual change
			if bytes.Equal(entry.Original, entry.Current) {
				continue
			}
		}
		change := Change{Action: entry.Action, Key: []byte(key)}
		if entry.Action != ActionErase {
			change.Data = entry.Current
		}
		changes = append(changes, change)
	}
	return changes
}

// Apply commits all changes to the base view and resets the table.
func (t *ApplyStateTable) Apply() ([]Change, error) {
	changes := t.Changes()

	if applier, ok := t.base.(BatchApplier); ok {
		if err := applier.ApplyBatch(changes); err != nil {
			return nil, err
		}
		t.Discard()
		return changes, nil
	}

	for _, c := range changes {
		k, err := FromBytes(c.Key)
		if err != nil {
			return nil, err
		}
		switch c.Action {
		case ActionInsert:
			err = t.base.Insert(k, c.Data)
		case ActionModify:
			err = t.base.Update(k, c.Data)
		case ActionErase:
			err = t.base.Erase(k)
		}
		if err != nil {
			return nil, err
		}
	}
	t.Discard()
	return changes, nil
}

// Discard drops every pending modification.
func (t *ApplyStateTable) Discard() {
	t.items = make(map[string]*TrackedEntry)
}

// Base returns the wrapped view.
func (t *ApplyStateTable) Base() View {
	return t.base
}
