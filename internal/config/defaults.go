package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"
	DefaultGatewayHost           = "127.0.0.1"
	DefaultGatewayPort           = 7497
	DefaultGatewayPath           = "/v1/ws"
	DefaultGatewayConnectTimeout = 10 * time.Second
	DefaultGatewayRequestTimeout = 10 * time.Second
	DefaultQuoteWait             = 1 * time.Second
	DefaultPingInterval          = 15 * time.Second
	DefaultContractRoot          = "VX"
	DefaultContractSymbol        = "VIX"
	DefaultContractExchange      = "CFE"
	DefaultContractCurrency      = "USD"
	DefaultHorizonMonths         = 9
	DefaultProviderBaseURL       = "https://query1.finance.yahoo.com"
	DefaultProviderSymbol        = "^VIX"
	DefaultProviderRange         = "1d"
	DefaultProviderInterval      = "1d"
	DefaultProviderUserAgent     = "Mozilla/5.0 (compatible; vix-data/1.0)"
	DefaultProviderTimeout       = 15 * time.Second
	DefaultProviderMaxRetries    = 3
	DefaultDBPort                = 5432
	DefaultDBSSLMode             = "prefer"
	DefaultMaxConns              = 4
	DefaultMinConns              = 1
	DefaultPollInterval          = 15 * time.Minute
	DefaultCycleTimeout          = 2 * time.Minute
	DefaultServerPort            = 8080
	DefaultShutdownTimeout       = 10 * time.Second
	DefaultMetricsPath           = "/metrics"
)

func (c *GathererConfig) applyDefaults() {
	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Gateway defaults
	if c.Gateway.Host == "" {
		c.Gateway.Host = DefaultGatewayHost
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = DefaultGatewayPort
	}
	if c.Gateway.Path == "" {
		c.Gateway.Path = DefaultGatewayPath
	}
	if c.Gateway.ConnectTimeout == 0 {
		c.Gateway.ConnectTimeout = DefaultGatewayConnectTimeout
	}
	if c.Gateway.RequestTimeout == 0 {
		c.Gateway.RequestTimeout = DefaultGatewayRequestTimeout
	}
	if c.Gateway.QuoteWait == 0 {
		c.Gateway.QuoteWait = DefaultQuoteWait
	}
	if c.Gateway.PingInterval == 0 {
		c.Gateway.PingInterval = DefaultPingInterval
	}

	// Contracts defaults
	if c.Contracts.Root == "" {
		c.Contracts.Root = DefaultContractRoot
	}
	if c.Contracts.Symbol == "" {
		c.Contracts.Symbol = DefaultContractSymbol
	}
	if c.Contracts.Exchange == "" {
		c.Contracts.Exchange = DefaultContractExchange
	}
	if c.Contracts.Currency == "" {
		c.Contracts.Currency = DefaultContractCurrency
	}
	if c.Contracts.HorizonMonths == 0 {
		c.Contracts.HorizonMonths = DefaultHorizonMonths
	}

	// Provider defaults
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = DefaultProviderBaseURL
	}
	if c.Provider.Symbol == "" {
		c.Provider.Symbol = DefaultProviderSymbol
	}
	if c.Provider.Range == "" {
		c.Provider.Range = DefaultProviderRange
	}
	if c.Provider.Interval == "" {
		c.Provider.Interval = DefaultProviderInterval
	}
	if c.Provider.UserAgent == "" {
		c.Provider.UserAgent = DefaultProviderUserAgent
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultProviderMaxRetries
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.CycleTimeout == 0 {
		c.Poller.CycleTimeout = DefaultCycleTimeout
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
