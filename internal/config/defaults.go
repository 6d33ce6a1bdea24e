package config

import "github.com/spf13/viper"

// EnvPrefix prefixes environment overrides, e.g. MARBLED_SERVER_PORT.
const EnvPrefix = "MARBLED"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 26657)
	v.SetDefault("server.ws_path", "/ws")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.admin", []string{"127.0.0.1"})

	v.SetDefault("database.backend", "pebble")
	v.SetDefault("database.path", "/var/lib/marbled/state")

	v.SetDefault("index.enabled", true)
	v.SetDefault("index.history_limit", 50)
	v.SetDefault("index.cache_size", 1024)
	v.SetDefault("index.queue_size", 256)
	v.SetDefault("index.archive.driver", "sqlite")
	v.SetDefault("index.archive.database", "/var/lib/marbled/archive.db")
	v.SetDefault("index.archive.host", "localhost")
	v.SetDefault("index.archive.port", 5432)
	v.SetDefault("index.archive.username", "marble")
	v.SetDefault("index.archive.ssl_mode", "prefer")
	v.SetDefault("index.archive.max_open_conns", 1)
	v.SetDefault("index.archive.max_idle_conns", 1)
	v.SetDefault("index.archive.conn_max_lifetime", "1h")
	v.SetDefault("index.archive.default_timeout", "10s")
	v.SetDefault("index.archive.max_retries", 3)
	v.SetDefault("index.archive.retry_delay", "100ms")
	v.SetDefault("index.archive.enable_wal_mode", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)

	v.SetDefault("market.settlement_asset", "native:umarble")
	v.SetDefault("market.protocol_fee.value", 0)
	v.SetDefault("market.protocol_fee.scale", 100)
	v.SetDefault("market.collection_royalty.value", 0)
	v.SetDefault("market.collection_royalty.scale", 100)
	v.SetDefault("market.token_code", "marble-nft")
	v.SetDefault("market.default_max_tokens", 0)

	v.SetDefault("swap.max_slippage_bps", 0)
}
