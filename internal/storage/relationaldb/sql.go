package relationaldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// DriverName is the database/sql driver to open.
	DriverName string
	// Schema is run on open. Statements must be idempotent.
	Schema []string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLDatabase implements Database on database/sql.
type SQLDatabase struct {
	db      *sql.DB
	config  *Config
	dialect Dialect
}

// NewSQLDatabase validates config and returns an unopened database.
func NewSQLDatabase(config *Config, dialect Dialect) (*SQLDatabase, error) {
	if err := config.Validate(); err != nil {
		return nil, NewError("new_database", KindConfiguration, err)
	}
	return &SQLDatabase{config: config, dialect: dialect}, nil
}

// Open connects and initializes the schema.
func (d *SQLDatabase) Open(ctx context.Context) error {
	connStr, err := d.config.BuildConnectionString()
	if err != nil {
		return NewError("open", KindConfiguration, err)
	}
	sqlDB, err := sql.Open(d.dialect.DriverName, connStr)
	if err != nil {
		return NewError("open", KindConnection, err)
	}
	sqlDB.SetMaxOpenConns(d.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(d.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(d.config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, d.config.DefaultTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return NewError("open", KindConnection, err)
	}
	for _, stmt := range d.dialect.Schema {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			sqlDB.Close()
			return NewError("open", KindSchema, err)
		}
	}
	d.db = sqlDB
	return nil
}

// Close closes the connection pool.
func (d *SQLDatabase) Close(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return NewError("close", KindConnection, err)
	}
	return nil
}

// Ping tests the connection.
func (d *SQLDatabase) Ping(ctx context.Context) error {
	if d.db == nil {
		return ErrDatabaseClosed
	}
	ctx, cancel := context.WithTimeout(ctx, d.config.DefaultTimeout)
	defer cancel()
	if err := d.db.PingContext(ctx); err != nil {
		return NewError("ping", KindConnection, err)
	}
	return nil
}

// bind rewrites "?" markers into the dialect's placeholders.
func (d *SQLDatabase) bind(query string) string {
	if d.dialect.Placeholder == nil {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const settlementColumns = `tx_hash, event_index, height, block_time, contract, token_id, buyer, provider,
	sale_type, price, paid_asset, paid_amount, settlement_asset, converted,
	protocol_fee, seller_royalty, collection_royalty, remainder`

// Record writes b in one transaction.
func (d *SQLDatabase) Record(ctx context.Context, b *Batch) error {
	if d.db == nil {
		return ErrDatabaseClosed
	}
	if b == nil || b.Empty() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, d.config.DefaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Classify(err, "record")
	}
	defer tx.Rollback()

	insertEvent := d.bind(`INSERT INTO events (tx_hash, event_index, height, type, contract, attributes)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for _, e := range b.Events {
		if _, err := tx.ExecContext(ctx, insertEvent,
			e.TxHash, e.EventIndex, int64(e.Height), e.Type, e.Contract, string(e.Attributes)); err != nil {
			return Classify(err, "record_event")
		}
	}

	insertSettlement := d.bind(`INSERT INTO settlements (` + settlementColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, s := range b.Settlements {
		if _, err := tx.ExecContext(ctx, insertSettlement,
			s.TxHash, s.EventIndex, int64(s.Height), int64(s.Time), s.Contract, int64(s.TokenID),
			s.Buyer, s.Provider, s.SaleType, s.Price, s.PaidAsset, s.PaidAmount, s.SettlementAsset,
			s.Converted, s.ProtocolFee, s.SellerRoyalty, s.CollectionRoyalty, s.Remainder); err != nil {
			return Classify(err, "record_settlement")
		}
	}

	if err := tx.Commit(); err != nil {
		return Classify(err, "record_commit")
	}
	return nil
}

// History returns the settlements of a token, newest first.
func (d *SQLDatabase) History(ctx context.Context, contract string, tokenID uint64, limit int) ([]Settlement, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return d.querySettlements(ctx, "history", `SELECT `+settlementColumns+` FROM settlements
		WHERE contract = ? AND token_id = ?
		ORDER BY height DESC, event_index DESC LIMIT ?`, contract, int64(tokenID), limit)
}

// Recent returns the latest settlements, newest first.
func (d *SQLDatabase) Recent(ctx context.Context, limit int) ([]Settlement, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return d.querySettlements(ctx, "recent", `SELECT `+settlementColumns+` FROM settlements
		ORDER BY height DESC, event_index DESC LIMIT ?`, limit)
}

func (d *SQLDatabase) querySettlements(ctx context.Context, op, query string, args ...interface{}) ([]Settlement, error) {
	if d.db == nil {
		return nil, ErrDatabaseClosed
	}
	ctx, cancel := context.WithTimeout(ctx, d.config.DefaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, d.bind(query), args...)
	if err != nil {
		return nil, Classify(err, op)
	}
	defer rows.Close()

	var out []Settlement
	for rows.Next() {
		var (
			s                   Settlement
			height, at, tokenID int64
		)
		if err := rows.Scan(&s.TxHash, &s.EventIndex, &height, &at, &s.Contract, &tokenID,
			&s.Buyer, &s.Provider, &s.SaleType, &s.Price, &s.PaidAsset, &s.PaidAmount,
			&s.SettlementAsset, &s.Converted, &s.ProtocolFee, &s.SellerRoyalty,
			&s.CollectionRoyalty, &s.Remainder); err != nil {
			return nil, Classify(err, op)
		}
		s.Height, s.Time, s.TokenID = uint64(height), uint64(at), uint64(tokenID)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err, op)
	}
	return out, nil
}

// Events returns the events of a transaction in emission order.
func (d *SQLDatabase) Events(ctx context.Context, txHash string) ([]EventRecord, error) {
	if d.db == nil {
		return nil, ErrDatabaseClosed
	}
	ctx, cancel := context.WithTimeout(ctx, d.config.DefaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, d.bind(`SELECT tx_hash, event_index, height, type, contract, attributes
		FROM events WHERE tx_hash = ? ORDER BY event_index`), txHash)
	if err != nil {
		return nil, Classify(err, "events")
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var (
			e      EventRecord
			height int64
			attrs  string
		)
		if err := rows.Scan(&e.TxHash, &e.EventIndex, &height, &e.Type, &e.Contract, &attrs); err != nil {
			return nil, Classify(err, "events")
		}
		e.Height = uint64(height)
		e.Attributes = []byte(attrs)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err, "events")
	}
	return out, nil
}

// LastHeight returns the highest archived height.
func (d *SQLDatabase) LastHeight(ctx context.Context) (uint64, error) {
	if d.db == nil {
		return 0, ErrDatabaseClosed
	}
	ctx, cancel := context.WithTimeout(ctx, d.config.DefaultTimeout)
	defer cancel()

	var height sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(height) FROM events`).Scan(&height); err != nil {
		return 0, Classify(err, "last_height")
	}
	if !height.Valid {
		return 0, nil
	}
	return uint64(height.Int64), nil
}

// String describes the database.
func (d *SQLDatabase) String() string {
	return fmt.Sprintf("%s archive (%s)", d.dialect.DriverName, d.config.Database)
}
