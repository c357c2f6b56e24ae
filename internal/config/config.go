package config

import "time"

// GathererConfig is the root configuration for a gatherer instance.
type GathererConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Logging   LoggingConfig   `yaml:"logging"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Contracts ContractsConfig `yaml:"contracts"`
	Provider  ProviderConfig  `yaml:"provider"`
	Database  DatabaseConfig  `yaml:"database"`
	Poller    PollerConfig    `yaml:"poller"`
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this gatherer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// GatewayConfig holds brokerage market-data gateway settings.
type GatewayConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Path           string        `yaml:"path"`      // Websocket path on the gateway
	ClientID       int           `yaml:"client_id"` // Client identity sent in the hello handshake
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	QuoteWait      time.Duration `yaml:"quote_wait"` // Fixed wait for market data per contract
	PingInterval   time.Duration `yaml:"ping_interval"`
}

// ContractsConfig describes the futures horizon.
type ContractsConfig struct {
	Root          string `yaml:"root"`     // Display root for identifiers (e.g., "VX")
	Symbol        string `yaml:"symbol"`   // Underlying symbol used to qualify (e.g., "VIX")
	Exchange      string `yaml:"exchange"` // e.g., "CFE"
	Currency      string `yaml:"currency"`
	HorizonMonths int    `yaml:"horizon_months"`
}

// ProviderConfig holds the secondary quote provider settings.
type ProviderConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Symbol     string        `yaml:"symbol"`   // e.g., "^VIX"
	Range      string        `yaml:"range"`    // History window (e.g., "1d")
	Interval   string        `yaml:"interval"` // Bar size (e.g., "1d")
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DatabaseConfig holds the TimescaleDB connection for snapshot storage.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
	Migrate   bool     `yaml:"migrate"` // Create tables on startup if missing
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PollerConfig holds scheduled cycle settings.
type PollerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
}

// ServerConfig holds the HTTP invocation server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}
