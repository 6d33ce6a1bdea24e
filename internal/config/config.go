package config

import (
	"path/filepath"
	"time"

	"github.com/LeJamon/goMarble/internal/core/royalty"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
)

// Config is the complete marbled configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Database DatabaseConfig `toml:"database" mapstructure:"database"`
	Index    IndexConfig    `toml:"index" mapstructure:"index"`
	Log      LogConfig      `toml:"log" mapstructure:"log"`
	Market   MarketConfig   `toml:"market" mapstructure:"market"`
	Swap     SwapConfig     `toml:"swap" mapstructure:"swap"`
	Genesis  GenesisConfig  `toml:"genesis" mapstructure:"genesis"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ServerConfig is the RPC listener.
type ServerConfig struct {
	Host            string        `toml:"host" mapstructure:"host"`
	Port            int           `toml:"port" mapstructure:"port"`
	WebSocketPath   string        `toml:"ws_path" mapstructure:"ws_path"`
	ReadTimeout     time.Duration `toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// Admin lists client IPs allowed to call admin methods.
	Admin []string `toml:"admin" mapstructure:"admin"`
}

// DatabaseConfig is the contract state store.
type DatabaseConfig struct {
	// Backend is "pebble", "leveldb" or "memory".
	Backend string `toml:"backend" mapstructure:"backend"`
	Path    string `toml:"path" mapstructure:"path"`
}

// IndexConfig is the settlement archive.
type IndexConfig struct {
	Enabled      bool                `toml:"enabled" mapstructure:"enabled"`
	HistoryLimit int                 `toml:"history_limit" mapstructure:"history_limit"`
	CacheSize    int                 `toml:"cache_size" mapstructure:"cache_size"`
	QueueSize    int                 `toml:"queue_size" mapstructure:"queue_size"`
	Archive      relationaldb.Config `toml:"archive" mapstructure:"archive"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level   string `toml:"level" mapstructure:"level"`
	File    string `toml:"file" mapstructure:"file"`
	Console bool   `toml:"console" mapstructure:"console"`
}

// MarketConfig holds the fee schedule shared by configured collections.
type MarketConfig struct {
	SettlementAsset     string       `toml:"settlement_asset" mapstructure:"settlement_asset"`
	FeeCollector        string       `toml:"fee_collector" mapstructure:"fee_collector"`
	ProtocolFee         royalty.Rate `toml:"protocol_fee" mapstructure:"protocol_fee"`
	CollectionRecipient string       `toml:"collection_recipient" mapstructure:"collection_recipient"`
	CollectionRoyalty   royalty.Rate `toml:"collection_royalty" mapstructure:"collection_royalty"`
	TokenCode           string       `toml:"token_code" mapstructure:"token_code"`
	DefaultMaxTokens    uint64       `toml:"default_max_tokens" mapstructure:"default_max_tokens"`
}

// EntryConfig maps a payment asset to the pool that converts it into the
// intermediate asset.
type EntryConfig struct {
	Asset string `toml:"asset" mapstructure:"asset"`
	Pool  string `toml:"pool" mapstructure:"pool"`
}

// SwapConfig is the pool layout used to convert payments.
type SwapConfig struct {
	Intermediate   string        `toml:"intermediate" mapstructure:"intermediate"`
	Exit           string        `toml:"exit" mapstructure:"exit"`
	Entry          []EntryConfig `toml:"entry" mapstructure:"entry"`
	MaxSlippageBps uint64        `toml:"max_slippage_bps" mapstructure:"max_slippage_bps"`
}

// CollectionConfig deploys a collection at genesis.
type CollectionConfig struct {
	Label     string `toml:"label" mapstructure:"label"`
	Owner     string `toml:"owner" mapstructure:"owner"`
	Name      string `toml:"name" mapstructure:"name"`
	Symbol    string `toml:"symbol" mapstructure:"symbol"`
	MaxTokens uint64 `toml:"max_tokens" mapstructure:"max_tokens"`
}

// GenesisConfig seeds an empty chain.
type GenesisConfig struct {
	// File is an optional JSON genesis with balances, tokens and pools.
	File        string             `toml:"file" mapstructure:"file"`
	Collections []CollectionConfig `toml:"collections" mapstructure:"collections"`
}

// ConfigPaths holds the paths to configuration files.
type ConfigPaths struct {
	Main string // Path to the main config file (marbled.toml)
}

// DefaultConfigPaths returns the default configuration file paths.
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{Main: "marbled.toml"}
}

// ConfigPathsFromDir returns configuration paths for a directory.
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{Main: filepath.Join(configDir, "marbled.toml")}
}

// GetConfigPath returns the path of the loaded file, or "" when only
// defaults and the environment were used.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
