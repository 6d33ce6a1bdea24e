// Package indexer archives committed marketplace events and serves the
// settlement history of tokens.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
	"github.com/LeJamon/goMarble/internal/types"
)

// SettleEvent is the event type emitted by a settled sale.
const SettleEvent = "settle"

// Archive is the storage the indexer writes to.
type Archive interface {
	Record(ctx context.Context, b *relationaldb.Batch) error
	History(ctx context.Context, contract string, tokenID uint64, limit int) ([]relationaldb.Settlement, error)
	Recent(ctx context.Context, limit int) ([]relationaldb.Settlement, error)
	Events(ctx context.Context, txHash string) ([]relationaldb.EventRecord, error)
}

// Indexer converts committed transactions into archive rows.
type Indexer struct {
	archive      Archive
	cache        *Cache
	logger       *zap.Logger
	historyLimit int
	timeout      time.Duration
	queue        chan *host.TxResult
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(ix *Indexer) { ix.logger = logger }
}

// WithHistoryLimit caps the settlements returned per token.
func WithHistoryLimit(n int) Option {
	return func(ix *Indexer) { ix.historyLimit = n }
}

// WithCacheSize sets how many token histories are cached.
func WithCacheSize(n int) Option {
	return func(ix *Indexer) {
		if c, err := NewCache(n); err == nil {
			ix.cache = c
		}
	}
}

// WithQueueSize sets how many committed transactions may wait for Run.
func WithQueueSize(n int) Option {
	return func(ix *Indexer) { ix.queue = make(chan *host.TxResult, n) }
}

// New creates an indexer over archive.
func New(archive Archive, opts ...Option) (*Indexer, error) {
	cache, err := NewCache(0)
	if err != nil {
		return nil, err
	}
	ix := &Indexer{
		archive:      archive,
		cache:        cache,
		logger:       zap.NewNop(),
		historyLimit: 50,
		timeout:      10 * time.Second,
		queue:        make(chan *host.TxResult, 256),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.historyLimit <= 0 {
		return nil, fmt.Errorf("history limit must be positive, got %d", ix.historyLimit)
	}
	ix.logger = ix.logger.Named("indexer")
	return ix, nil
}

// Hooks returns host hooks that queue committed transactions for Run.
func (ix *Indexer) Hooks() *host.EventHooks {
	return &host.EventHooks{
		OnTransaction: func(res *host.TxResult) {
			ix.queue <- res
		},
	}
}

// Run indexes queued transactions until ctx is done, then drains what is
// already queued.
func (ix *Indexer) Run(ctx context.Context) error {
	for {
		select {
		case res := <-ix.queue:
			ix.indexLogged(res)
		case <-ctx.Done():
			for {
				select {
				case res := <-ix.queue:
					ix.indexLogged(res)
				default:
					return nil
				}
			}
		}
	}
}

func (ix *Indexer) indexLogged(res *host.TxResult) {
	ctx, cancel := context.WithTimeout(context.Background(), ix.timeout)
	defer cancel()
	if err := ix.Index(ctx, res); err != nil {
		ix.logger.Error("failed to index transaction", zap.String("hash", res.Hash), zap.Error(err))
	}
}

// Index archives the events of a committed transaction.
func (ix *Indexer) Index(ctx context.Context, res *host.TxResult) error {
	batch, err := Extract(res)
	if err != nil {
		return err
	}
	if batch.Empty() {
		return nil
	}
	if err := ix.archive.Record(ctx, batch); err != nil {
		return fmt.Errorf("archive %s: %w", res.Hash, err)
	}
	for _, s := range batch.Settlements {
		ix.cache.Invalidate(types.Address(s.Contract), s.TokenID)
	}
	ix.logger.Debug("indexed transaction",
		zap.String("hash", res.Hash),
		zap.Uint64("height", res.Height),
		zap.Int("events", len(batch.Events)),
		zap.Int("settlements", len(batch.Settlements)))
	return nil
}

// History returns the settlements of a token, newest first.
func (ix *Indexer) History(ctx context.Context, contract types.Address, tokenID uint64) ([]relationaldb.Settlement, error) {
	if h, ok := ix.cache.Get(contract, tokenID); ok {
		return h, nil
	}
	h, err := ix.archive.History(ctx, contract.String(), tokenID, ix.historyLimit)
	if err != nil {
		return nil, err
	}
	ix.cache.Put(contract, tokenID, h)
	return h, nil
}

// Recent returns the latest settlements. limit is clamped to the history
// limit.
func (ix *Indexer) Recent(ctx context.Context, limit int) ([]relationaldb.Settlement, error) {
	if limit <= 0 || limit > ix.historyLimit {
		limit = ix.historyLimit
	}
	return ix.archive.Recent(ctx, limit)
}

// Events returns the archived events of a transaction.
func (ix *Indexer) Events(ctx context.Context, txHash string) ([]relationaldb.EventRecord, error) {
	return ix.archive.Events(ctx, txHash)
}

// CacheStats returns the history cache statistics.
func (ix *Indexer) CacheStats() CacheStats {
	return ix.cache.Stats()
}

// Extract builds the archive rows of a committed transaction.
func Extract(res *host.TxResult) (*relationaldb.Batch, error) {
	batch := &relationaldb.Batch{}
	for i, ev := range res.Events {
		contract, _ := ev.Get(host.ContractAttribute)
		attrs, err := json.Marshal(ev.Attributes)
		if err != nil {
			return nil, err
		}
		batch.Events = append(batch.Events, relationaldb.EventRecord{
			TxHash:     res.Hash,
			EventIndex: i,
			Height:     res.Height,
			Type:       ev.Type,
			Contract:   contract,
			Attributes: attrs,
		})
		if ev.Type != SettleEvent {
			continue
		}
		s, err := settlementOf(ev)
		if err != nil {
			return nil, fmt.Errorf("settle event %d of %s: %w", i, res.Hash, err)
		}
		s.TxHash, s.EventIndex, s.Height, s.Time, s.Contract = res.Hash, i, res.Height, res.Time, contract
		batch.Settlements = append(batch.Settlements, s)
	}
	return batch, nil
}

func settlementOf(ev vm.Event) (relationaldb.Settlement, error) {
	var s relationaldb.Settlement
	get := func(key string) string {
		v, _ := ev.Get(key)
		return v
	}
	id, err := strconv.ParseUint(get("token_id"), 10, 64)
	if err != nil {
		return s, fmt.Errorf("token_id: %w", err)
	}
	s.TokenID = id
	s.Buyer = get("buyer")
	s.Provider = get("provider")
	s.SaleType = get("sale_type")
	s.Price = get("price")
	s.PaidAsset = get("paid_asset")
	s.PaidAmount = get("paid_amount")
	s.SettlementAsset = get("settlement_asset")
	s.Converted = get("converted")
	s.ProtocolFee = get("protocol")
	s.SellerRoyalty = get("seller")
	s.CollectionRoyalty = get("collection")
	s.Remainder = get("remainder")
	return s, nil
}
