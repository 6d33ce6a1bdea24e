package state

import (
	"context"
	"errors"

	"github.com/LeJamon/goMarble/internal/storage/database"
)

// Store is a View persisted in a key-value database.
type Store struct {
	db  database.DB
	ctx context.Context
}

// NewStore wraps db.
func NewStore(db database.DB) *Store {
	return &Store{db: db, ctx: context.Background()}
}

// WithContext returns a copy of the store bound to ctx.
func (s *Store) WithContext(ctx context.Context) *Store {
	return &Store{db: s.db, ctx: ctx}
}

// DB returns the underlying database.
func (s *Store) DB() database.DB {
	return s.db
}

func (s *Store) Read(k Keylet) ([]byte, error) {
	data, err := s.db.Read(s.ctx, k.Bytes())
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	}
	return data, err
}

func (s *Store) Exists(k Keylet) (bool, error) {
	return s.db.Has(s.ctx, k.Bytes())
}

func (s *Store) Insert(k Keylet, data []byte) error {
	exists, err := s.Exists(k)
	if err != nil {
		return err
	}
	if exists {
		return ErrEntryExists
	}
	return s.db.Write(s.ctx, k.Bytes(), data)
}

func (s *Store) Update(k Keylet, data []byte) error {
	exists, err := s.Exists(k)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEntryNotFound
	}
	return s.db.Write(s.ctx, k.Bytes(), data)
}

func (s *Store) Erase(k Keylet) error {
	exists, err := s.Exists(k)
	if err != nil {
		return err
	}
	if !exists {
		return ErrEntryNotFound
	}
	return s.db.Delete(s.ctx, k.Bytes())
}

func (s *Store) ForEach(prefix, after []byte, fn func(key, data []byte) bool) error {
	start := prefix
	if after != nil {
		start = append(append([]byte(nil), after...), 0)
	}
	it, err := s.db.Iterator(s.ctx, start, database.PrefixEnd(prefix))
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

// ApplyBatch writes a set of changes in one atomic database batch.
func (s *Store) ApplyBatch(changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	ops := make([]database.BatchOperation, 0, len(changes))
	for _, c := range changes {
		if c.Action == ActionErase {
			ops = append(ops, database.BatchOperation{Type: database.BatchDelete, Key: c.Key})
			continue
		}
		ops = append(ops, database.BatchOperation{Type: database.BatchPut, Key: c.Key, Value: c.Data})
	}
	return s.db.Batch(s.ctx, ops)
}
