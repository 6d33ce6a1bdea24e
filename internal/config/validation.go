package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/LeJamon/goMarble/internal/storage/database"
	"github.com/LeJamon/goMarble/internal/types"
)

// ValidateConfig checks every section of the configuration.
func ValidateConfig(config *Config) error {
	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration validation failed: %w", err)
	}
	if err := config.Database.Validate(); err != nil {
		return fmt.Errorf("database configuration validation failed: %w", err)
	}
	if err := config.Index.Validate(); err != nil {
		return fmt.Errorf("index configuration validation failed: %w", err)
	}
	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log configuration validation failed: %w", err)
	}
	if err := config.Market.Validate(); err != nil {
		return fmt.Errorf("market configuration validation failed: %w", err)
	}
	if err := config.Swap.Validate(); err != nil {
		return fmt.Errorf("swap configuration validation failed: %w", err)
	}
	for i, c := range config.Genesis.Collections {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("genesis collection %d validation failed: %w", i, err)
		}
	}
	return nil
}

// Validate checks the server section.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if !strings.HasPrefix(s.WebSocketPath, "/") {
		return fmt.Errorf("ws_path must start with '/', got %q", s.WebSocketPath)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	for _, ip := range s.Admin {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("invalid admin IP %q", ip)
		}
	}
	return nil
}

// GetBindAddress returns the host:port the RPC server listens on.
func (s *ServerConfig) GetBindAddress() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// IsAdmin reports whether ip may call admin methods.
func (s *ServerConfig) IsAdmin(ip string) bool {
	for _, a := range s.Admin {
		if a == ip {
			return true
		}
	}
	return false
}

// Validate checks the database section.
func (d *DatabaseConfig) Validate() error {
	switch d.Backend {
	case database.BackendPebble, database.BackendLevelDB:
		if d.Path == "" {
			return fmt.Errorf("path is required for the %s backend", d.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q: want pebble, leveldb or memory", d.Backend)
	}
	return nil
}

// BackendMemory keeps state in an in-memory pebble instance.
const BackendMemory = "memory"

// Validate checks the index section.
func (i *IndexConfig) Validate() error {
	if !i.Enabled {
		return nil
	}
	if i.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", i.HistoryLimit)
	}
	if i.CacheSize < 0 || i.QueueSize < 0 {
		return fmt.Errorf("cache_size and queue_size cannot be negative")
	}
	if err := i.Archive.Validate(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

// Validate checks the log section.
func (l *LogConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", l.Level)
	}
	if !l.Console && l.File == "" {
		return fmt.Errorf("either console or file output is required")
	}
	return nil
}

// Validate checks the market section.
func (m *MarketConfig) Validate() error {
	if _, err := types.ParseAsset(m.SettlementAsset); err != nil {
		return fmt.Errorf("settlement_asset: %w", err)
	}
	if err := m.ProtocolFee.Validate(); err != nil {
		return fmt.Errorf("protocol_fee: %w", err)
	}
	if err := m.CollectionRoyalty.Validate(); err != nil {
		return fmt.Errorf("collection_royalty: %w", err)
	}
	if !m.ProtocolFee.IsZero() && m.FeeCollector == "" {
		return fmt.Errorf("fee_collector is required for a non-zero protocol_fee")
	}
	if !m.CollectionRoyalty.IsZero() && m.CollectionRecipient == "" {
		return fmt.Errorf("collection_recipient is required for a non-zero collection_royalty")
	}
	if m.TokenCode == "" {
		return fmt.Errorf("token_code is required")
	}
	return nil
}

// Validate checks the swap section. An empty section disables conversion.
func (s *SwapConfig) Validate() error {
	if s.MaxSlippageBps > 10_000 {
		return fmt.Errorf("max_slippage_bps must not exceed 10000, got %d", s.MaxSlippageBps)
	}
	if s.Intermediate == "" {
		if len(s.Entry) > 0 || s.Exit != "" {
			return fmt.Errorf("entry and exit pools need an intermediate asset")
		}
		return nil
	}
	if _, err := types.ParseAsset(s.Intermediate); err != nil {
		return fmt.Errorf("intermediate: %w", err)
	}
	for _, e := range s.Entry {
		if _, err := types.ParseAsset(e.Asset); err != nil {
			return fmt.Errorf("entry: %w", err)
		}
		if e.Pool == "" {
			return fmt.Errorf("entry for %s has no pool", e.Asset)
		}
	}
	return nil
}

// Validate checks a genesis collection.
func (c *CollectionConfig) Validate() error {
	if c.Label == "" {
		return fmt.Errorf("label is required")
	}
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if c.Name == "" || c.Symbol == "" {
		return fmt.Errorf("name and symbol are required")
	}
	return nil
}
