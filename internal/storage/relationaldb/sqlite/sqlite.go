// Package sqlite is the embedded settlement archive.
package sqlite

import (
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
)

// Schema creates the archive tables.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS settlements (
		tx_hash TEXT NOT NULL,
		event_index INTEGER NOT NULL,
		height INTEGER NOT NULL,
		block_time INTEGER NOT NULL,
		contract TEXT NOT NULL,
		token_id INTEGER NOT NULL,
		buyer TEXT NOT NULL,
		provider TEXT NOT NULL,
		sale_type TEXT NOT NULL,
		price TEXT NOT NULL,
		paid_asset TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		settlement_asset TEXT NOT NULL,
		converted TEXT NOT NULL,
		protocol_fee TEXT NOT NULL,
		seller_royalty TEXT NOT NULL,
		collection_royalty TEXT NOT NULL,
		remainder TEXT NOT NULL,
		PRIMARY KEY (tx_hash, event_index)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		tx_hash TEXT NOT NULL,
		event_index INTEGER NOT NULL,
		height INTEGER NOT NULL,
		type TEXT NOT NULL,
		contract TEXT NOT NULL,
		attributes TEXT NOT NULL,
		PRIMARY KEY (tx_hash, event_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_token ON settlements(contract, token_id, height)`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_height ON settlements(height)`,
	`CREATE INDEX IF NOT EXISTS idx_events_height ON events(height)`,
}

// Dialect is the SQLite dialect. SQLite accepts "?" markers as is.
var Dialect = relationaldb.Dialect{
	DriverName: "sqlite",
	Schema:     Schema,
}

// NewDatabase returns an unopened SQLite archive.
func NewDatabase(config *relationaldb.Config) (*relationaldb.SQLDatabase, error) {
	return relationaldb.NewSQLDatabase(config, Dialect)
}
