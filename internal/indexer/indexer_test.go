package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb/sqlite"
)

const coll = "marble1coll"

func settleResult(hash string, height, tokenID uint64) *host.TxResult {
	return &host.TxResult{
		Hash:   hash,
		Height: height,
		Time:   1_000 + height,
		Events: []vm.Event{
			vm.NewEvent("wasm").Add(host.ContractAttribute, coll).Add("action", "settle"),
			vm.NewEvent("settle").
				Add(host.ContractAttribute, coll).
				Add("token_id", tokenID).
				Add("buyer", "marble1buyer").
				Add("provider", "marble1seller").
				Add("sale_type", "auction").
				Add("price", "1000").
				Add("paid_asset", "token:marble1usdc").
				Add("paid_amount", "1000").
				Add("settlement_asset", "native:umarble").
				Add("converted", "998").
				Add("protocol", "19").
				Add("seller", "0").
				Add("collection", "0").
				Add("remainder", "979"),
		},
	}
}

func newIndexer(t *testing.T, opts ...Option) *Indexer {
	t.Helper()
	db, err := sqlite.NewDatabase(relationaldb.SQLiteConfig(":memory:"))
	require.NoError(t, err)
	require.NoError(t, db.Open(context.Background()))
	t.Cleanup(func() { _ = db.Close(context.Background()) })

	ix, err := New(db, opts...)
	require.NoError(t, err)
	return ix
}

func TestExtract(t *testing.T) {
	batch, err := Extract(settleResult("TX1", 7, 3))
	require.NoError(t, err)
	require.Len(t, batch.Events, 2)
	require.Len(t, batch.Settlements, 1)

	s := batch.Settlements[0]
	assert.Equal(t, "TX1", s.TxHash)
	assert.Equal(t, 1, s.EventIndex)
	assert.Equal(t, uint64(7), s.Height)
	assert.Equal(t, uint64(1_007), s.Time)
	assert.Equal(t, coll, s.Contract)
	assert.Equal(t, uint64(3), s.TokenID)
	assert.Equal(t, "auction", s.SaleType)
	assert.Equal(t, "998", s.Converted)
	assert.Equal(t, "19", s.ProtocolFee)
	assert.Equal(t, "979", s.Remainder)

	assert.Equal(t, coll, batch.Events[0].Contract)
	assert.JSONEq(t, `[{"key":"_contract_address","value":"marble1coll"},{"key":"action","value":"settle"}]`,
		string(batch.Events[0].Attributes))

	bad := settleResult("TX2", 1, 1)
	bad.Events[1].Attributes[1].Value = "x"
	_, err = Extract(bad)
	assert.Error(t, err)

	empty, err := Extract(&host.TxResult{Hash: "TX3"})
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestHistoryIsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	ix := newIndexer(t, WithHistoryLimit(10))

	require.NoError(t, ix.Index(ctx, settleResult("TX1", 1, 5)))

	h, err := ix.History(ctx, coll, 5)
	require.NoError(t, err)
	require.Len(t, h, 1)
	_, err = ix.History(ctx, coll, 5)
	require.NoError(t, err)
	stats := ix.CacheStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)

	require.NoError(t, ix.Index(ctx, settleResult("TX2", 2, 5)))
	h, err = ix.History(ctx, coll, 5)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "TX2", h[0].TxHash)

	recent, err := ix.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	events, err := ix.Events(ctx, "TX2")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRunDrainsHooks(t *testing.T) {
	ix := newIndexer(t, WithQueueSize(4))
	hooks := ix.Hooks()
	hooks.OnTransaction(settleResult("TX1", 1, 1))
	hooks.OnTransaction(settleResult("TX2", 2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("indexer did not stop")
	}

	recent, err := ix.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestNewRejectsBadLimit(t *testing.T) {
	_, err := New(nil, WithHistoryLimit(-1))
	assert.Error(t, err)
}
