// Package postgres is the PostgreSQL settlement archive.
package postgres

import (
	"strconv"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
)

// Schema creates the archive tables. Amounts are NUMERIC so they sort and
// sum in SQL while round-tripping as decimal text.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS settlements (
		tx_hash VARCHAR(64) NOT NULL,
		event_index INTEGER NOT NULL,
		height BIGINT NOT NULL,
		block_time BIGINT NOT NULL,
		contract TEXT NOT NULL,
		token_id BIGINT NOT NULL,
		buyer TEXT NOT NULL,
		provider TEXT NOT NULL,
		sale_type VARCHAR(16) NOT NULL,
		price NUMERIC(39,0) NOT NULL,
		paid_asset TEXT NOT NULL,
		paid_amount NUMERIC(39,0) NOT NULL,
		settlement_asset TEXT NOT NULL,
		converted NUMERIC(39,0) NOT NULL,
		protocol_fee NUMERIC(39,0) NOT NULL,
		seller_royalty NUMERIC(39,0) NOT NULL,
		collection_royalty NUMERIC(39,0) NOT NULL,
		remainder NUMERIC(39,0) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (tx_hash, event_index)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		tx_hash VARCHAR(64) NOT NULL,
		event_index INTEGER NOT NULL,
		height BIGINT NOT NULL,
		type TEXT NOT NULL,
		contract TEXT NOT NULL,
		attributes TEXT NOT NULL,
		PRIMARY KEY (tx_hash, event_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_token ON settlements(contract, token_id, height)`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_height ON settlements(height)`,
	`CREATE INDEX IF NOT EXISTS idx_events_height ON events(height)`,
}

// Dialect is the PostgreSQL dialect.
var Dialect = relationaldb.Dialect{
	DriverName: "postgres",
	Schema:     Schema,
	Placeholder: func(n int) string {
		return "$" + strconv.Itoa(n)
	},
}

// NewDatabase returns an unopened PostgreSQL archive.
func NewDatabase(config *relationaldb.Config) (*relationaldb.SQLDatabase, error) {
	return relationaldb.NewSQLDatabase(config, Dialect)
}
