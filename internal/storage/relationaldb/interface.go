package relationaldb

import (
	"context"
	"encoding/json"
)

// Settlement is one archived sale settlement. Amounts are decimal strings
// so 128-bit values survive every backend unchanged.
type Settlement struct {
	TxHash            string `json:"tx_hash"`
	EventIndex        int    `json:"event_index"`
	Height            uint64 `json:"height"`
	Time              uint64 `json:"time"`
	Contract          string `json:"contract"`
	TokenID           uint64 `json:"token_id"`
	Buyer             string `json:"buyer"`
	Provider          string `json:"provider"`
	SaleType          string `json:"sale_type"`
	Price             string `json:"price"`
	PaidAsset         string `json:"paid_asset"`
	PaidAmount        string `json:"paid_amount"`
	SettlementAsset   string `json:"settlement_asset"`
	Converted         string `json:"converted"`
	ProtocolFee       string `json:"protocol_fee"`
	SellerRoyalty     string `json:"seller_royalty"`
	CollectionRoyalty string `json:"collection_royalty"`
	Remainder         string `json:"remainder"`
}

// EventRecord is one archived contract event.
type EventRecord struct {
	TxHash     string          `json:"tx_hash"`
	EventIndex int             `json:"event_index"`
	Height     uint64          `json:"height"`
	Type       string          `json:"type"`
	Contract   string          `json:"contract"`
	Attributes json.RawMessage `json:"attributes"`
}

// Batch is everything archived for one committed transaction.
type Batch struct {
	Settlements []Settlement
	Events      []EventRecord
}

// Empty reports whether the batch has nothing to write.
func (b *Batch) Empty() bool {
	return len(b.Settlements) == 0 && len(b.Events) == 0
}

// Database is the settlement archive.
type Database interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Ping(ctx context.Context) error

	// Record writes a batch in one database transaction.
	Record(ctx context.Context, b *Batch) error

	// History returns the settlements of a token, newest first.
	History(ctx context.Context, contract string, tokenID uint64, limit int) ([]Settlement, error)
	// Recent returns the latest settlements across all contracts.
	Recent(ctx context.Context, limit int) ([]Settlement, error)
	// Events returns the events archived for a transaction, in order.
	Events(ctx context.Context, txHash string) ([]EventRecord, error)
	// LastHeight returns the highest archived block height, or 0.
	LastHeight(ctx context.Context) (uint64, error)
}
