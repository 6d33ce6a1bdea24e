package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebble.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func collect(t *testing.T, v View, prefix, after []byte) []uint64 {
	t.Helper()
	var ids []uint64
	err := v.ForEach(prefix, after, func(key, data []byte) bool {
		id, err := Uint64FromKey(key)
		require.NoError(t, err)
		ids = append(ids, id)
		return true
	})
	require.NoError(t, err)
	return ids
}

func TestKeyletOrdering(t *testing.T) {
	// Big-endian ids keep numeric order bytewise
	a := Sale(2).Bytes()
	b := Sale(256).Bytes()
	assert.Less(t, string(a), string(b))

	k, err := FromBytes(Sale(42).Bytes())
	require.NoError(t, err)
	assert.Equal(t, SpaceSale, k.Space)
	id, err := Uint64FromKey(k.Key)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = FromBytes(nil)
	assert.Error(t, err)
}

func TestStoreCrud(t *testing.T) {
	s := newStore(t)
	k := Sale(1)

	data, err := s.Read(k)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.Insert(k, []byte("a")))
	assert.ErrorIs(t, s.Insert(k, []byte("b")), ErrEntryExists)
	require.NoError(t, s.Update(k, []byte("b")))

	data, err = s.Read(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), data)

	require.NoError(t, s.Erase(k))
	assert.ErrorIs(t, s.Erase(k), ErrEntryNotFound)
	assert.ErrorIs(t, s.Update(k, []byte("c")), ErrEntryNotFound)
}

func TestApplyStateTable(t *testing.T) {
	t.Run("discard leaves base untouched", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(Sale(1), []byte("one")))

		table := NewApplyStateTable(s)
		require.NoError(t, table.Insert(Sale(2), []byte("two")))
		require.NoError(t, table.Erase(Sale(1)))
		assert.True(t, table.IsErased(Sale(1)))

		table.Discard()
		ok, err := s.Exists(Sale(1))
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = s.Exists(Sale(2))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("apply commits in one batch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(Sale(1), []byte("one")))
		require.NoError(t, s.Insert(Sale(3), []byte("three")))

		table := NewApplyStateTable(s)
		require.NoError(t, table.Insert(Sale(2), []byte("two")))
		require.NoError(t, table.Update(Sale(3), []byte("THREE")))
		require.NoError(t, table.Erase(Sale(1)))

		changes, err := table.Apply()
		require.NoError(t, err)
		require.Len(t, changes, 3)
		assert.Equal(t, ActionErase, changes[0].Action)
		assert.Equal(t, ActionInsert, changes[1].Action)
		assert.Equal(t, ActionModify, changes[2].Action)

		assert.Equal(t, []uint64{2, 3}, collect(t, s, SpacePrefix(SpaceSale), nil))
		data, err := s.Read(Sale(3))
		require.NoError(t, err)
		assert.Equal(t, []byte("THREE"), data)
	})

	t.Run("insert then erase is no change", func(t *testing.T) {
		table := NewApplyStateTable(newStore(t))
		require.NoError(t, table.Insert(Sale(9), []byte("x")))
		require.NoError(t, table.Erase(Sale(9)))
		assert.Empty(t, table.Changes())
	})

	t.Run("erase then insert becomes modify", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(Sale(1), []byte("a")))
		table := NewApplyStateTable(s)
		require.NoError(t, table.Erase(Sale(1)))
		require.NoError(t, table.Insert(Sale(1), []byte("b")))
		changes := table.Changes()
		require.Len(t, changes, 1)
		assert.Equal(t, ActionModify, changes[0].Action)
	})

	t.Run("unchanged modify is skipped", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(Sale(1), []byte("a")))
		table := NewApplyStateTable(s)
		require.NoError(t, table.Update(Sale(1), []byte("a")))
		assert.Empty(t, table.Changes())
	})

	t.Run("for each merges pending entries", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []uint64{1, 3, 5} {
			require.NoError(t, s.Insert(Sale(id), []byte{byte(id)}))
		}
		require.NoError(t, s.Insert(Config(), []byte("cfg")))

		table := NewApplyStateTable(s)
		require.NoError(t, table.Insert(Sale(4), []byte{4}))
		require.NoError(t, table.Insert(Sale(6), []byte{6}))
		require.NoError(t, table.Erase(Sale(3)))
		require.NoError(t, table.Update(Sale(5), []byte{50}))

		assert.Equal(t, []uint64{1, 4, 5, 6}, collect(t, table, SpacePrefix(SpaceSale), nil))
		assert.Equal(t, []uint64{5, 6}, collect(t, table, SpacePrefix(SpaceSale), Sale(4).Bytes()))

		var seen []byte
		require.NoError(t, table.ForEach(SpacePrefix(SpaceSale), nil, func(key, data []byte) bool {
			seen = append(seen, data...)
			return len(seen) < 2
		}))
		assert.Equal(t, []byte{1, 4}, seen)

		var five []byte
		require.NoError(t, table.ForEach(Sale(5).Bytes(), nil, func(key, data []byte) bool {
			five = data
			return true
		}))
		assert.Equal(t, []byte{50}, five)
	})

	t.Run("nested tables", func(t *testing.T) {
		s := newStore(t)
		outer := NewApplyStateTable(s)
		require.NoError(t, outer.Insert(Sale(1), []byte("a")))

		inner := NewApplyStateTable(outer)
		require.NoError(t, inner.Update(Sale(1), []byte("b")))
		require.NoError(t, inner.Insert(Sale(2), []byte("c")))
		_, err := inner.Apply()
		require.NoError(t, err)

		_, err = outer.Apply()
		require.NoError(t, err)
		data, err := s.Read(Sale(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), data)
		assert.Equal(t, []uint64{1, 2}, collect(t, s, SpacePrefix(SpaceSale), nil))
	})
}

func TestNamespaced(t *testing.T) {
	s := newStore(t)
	a := NewNamespaced(s, ContractNamespace("marble1aaaa"))
	b := NewNamespaced(s, ContractNamespace("marble1bbbb"))

	require.NoError(t, a.Insert(Sale(1), []byte("a1")))
	require.NoError(t, a.Insert(Sale(2), []byte("a2")))
	require.NoError(t, b.Insert(Sale(1), []byte("b1")))

	data, err := b.Read(Sale(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("b1"), data)

	assert.Equal(t, []uint64{1, 2}, collect(t, a, SpacePrefix(SpaceSale), nil))
	assert.Equal(t, []uint64{2}, collect(t, a, SpacePrefix(SpaceSale), Sale(1).Bytes()))
	assert.Equal(t, []uint64{1}, collect(t, b, SpacePrefix(SpaceSale), nil))

	ok, err := s.Exists(Sale(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadSave(t *testing.T) {
	type entry struct {
		Name  string `codec:"name"`
		Count uint64 `codec:"count"`
	}
	s := newStore(t)

	var got entry
	found, err := Load(s, Config(), &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, Save(s, Config(), entry{Name: "x", Count: 1}))
	require.NoError(t, Save(s, Config(), entry{Name: "x", Count: 2}))
	found, err = Load(s, Config(), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(2), got.Count)

	require.NoError(t, Remove(s, Config()))
	require.NoError(t, Remove(s, Config()))
}
