package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/holiman/uint256"

	"github.com/LeJamon/goMarble/internal/core/vm"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/indexer"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
	"github.com/LeJamon/goMarble/internal/types"
)

// Chain is the chain surface the RPC methods use.
type Chain interface {
	Submit(ctx context.Context, e *host.Envelope) (*host.TxResult, error)
	Query(ctx context.Context, contract types.Address, msg json.RawMessage) (json.RawMessage, error)
	Balance(ctx context.Context, holder types.Address, asset types.Asset) (*uint256.Int, error)
	Sequence(ctx context.Context, addr types.Address) (uint64, error)
	LastBlock(ctx context.Context) (vm.Block, error)
}

// SaleArchive serves indexed settlements.
type SaleArchive interface {
	History(ctx context.Context, contract types.Address, tokenID uint64) ([]relationaldb.Settlement, error)
	Recent(ctx context.Context, limit int) ([]relationaldb.Settlement, error)
	Events(ctx context.Context, txHash string) ([]relationaldb.EventRecord, error)
	CacheStats() indexer.CacheStats
}

// Services holds what the methods need. Archive is nil when indexing is
// disabled.
type Services struct {
	Chain         Chain
	Archive       SaleArchive
	Subscriptions *SubscriptionManager
	Version       string
	StartTime     time.Time
}
