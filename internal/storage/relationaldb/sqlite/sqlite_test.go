package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
)

func openMemory(t *testing.T) *relationaldb.SQLDatabase {
	t.Helper()
	db, err := NewDatabase(relationaldb.SQLiteConfig(":memory:"))
	require.NoError(t, err)
	require.NoError(t, db.Open(context.Background()))
	t.Cleanup(func() { _ = db.Close(context.Background()) })
	return db
}

func settlement(hash string, height, tokenID uint64) relationaldb.Settlement {
	return relationaldb.Settlement{
		TxHash:            hash,
		EventIndex:        1,
		Height:            height,
		Time:              1_000 + height,
		Contract:          "marble1coll",
		TokenID:           tokenID,
		Buyer:             "marble1buyer",
		Provider:          "marble1seller",
		SaleType:          "fixed",
		Price:             "340282366920938463463374607431768211455",
		PaidAsset:         "native:umarble",
		PaidAmount:        "1000",
		SettlementAsset:   "native:umarble",
		Converted:         "1000",
		ProtocolFee:       "20",
		SellerRoyalty:     "0",
		CollectionRoyalty: "0",
		Remainder:         "980",
	}
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	height, err := db.LastHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), height)

	for i := uint64(1); i <= 3; i++ {
		hash := fmt.Sprintf("TX%d", i)
		require.NoError(t, db.Record(ctx, &relationaldb.Batch{
			Settlements: []relationaldb.Settlement{settlement(hash, i, 1+i%2)},
			Events: []relationaldb.EventRecord{
				{TxHash: hash, EventIndex: 0, Height: i, Type: "wasm", Contract: "marble1coll", Attributes: json.RawMessage(`[]`)},
				{TxHash: hash, EventIndex: 1, Height: i, Type: "settle", Contract: "marble1coll", Attributes: json.RawMessage(`[{"key":"token_id","value":"1"}]`)},
			},
		}))
	}

	history, err := db.History(ctx, "marble1coll", 2, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "TX3", history[0].TxHash)
	assert.Equal(t, "TX1", history[1].TxHash)
	assert.Equal(t, settlement("TX3", 3, 2), history[0])

	recent, err := db.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].Height)
	assert.Equal(t, uint64(2), recent[1].Height)

	events, err := db.Events(ctx, "TX2")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "settle", events[1].Type)
	assert.JSONEq(t, `[{"key":"token_id","value":"1"}]`, string(events[1].Attributes))

	height, err = db.LastHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), height)
}

func TestRecordIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	require.NoError(t, db.Record(ctx, &relationaldb.Batch{
		Settlements: []relationaldb.Settlement{settlement("TX1", 1, 1)},
	}))

	err := db.Record(ctx, &relationaldb.Batch{
		Events:      []relationaldb.EventRecord{{TxHash: "TX2", Height: 2, Type: "wasm", Contract: "c", Attributes: json.RawMessage(`[]`)}},
		Settlements: []relationaldb.Settlement{settlement("TX1", 1, 1)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, relationaldb.ErrDuplicateEntry)

	events, err := db.Events(ctx, "TX2")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestInvalidLimitAndClosed(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	_, err := db.Recent(ctx, 0)
	assert.ErrorIs(t, err, relationaldb.ErrInvalidLimit)

	require.NoError(t, db.Close(ctx))
	_, err = db.Recent(ctx, 1)
	assert.ErrorIs(t, err, relationaldb.ErrDatabaseClosed)
	assert.ErrorIs(t, db.Ping(ctx), relationaldb.ErrDatabaseClosed)
	assert.ErrorIs(t, db.Record(ctx, &relationaldb.Batch{}), relationaldb.ErrDatabaseClosed)
}
