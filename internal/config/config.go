// Package config provides centralized configuration management for the
// engine. It loads settings from environment variables with sensible
// defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Submit   SubmitConfig
	Forms    FormsConfig
	Browser  BrowserConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown, including
	// draining in-flight jobs (default: 60s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"60s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize is the maximum request body size in bytes (default: 32MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"33554432"`
}

// DatabaseConfig holds database connection settings. URL may be left empty,
// in which case jobs are kept in process memory and lost on restart.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// SubmitConfig holds job execution settings.
type SubmitConfig struct {
	// DefaultBatchSize is used when a job does not name one (default: 50)
	DefaultBatchSize int `env:"SUBMIT_DEFAULT_BATCH_SIZE" default:"50"`

	// MaxBatchSize caps the batch size a job may request (default: 500)
	MaxBatchSize int `env:"SUBMIT_MAX_BATCH_SIZE" default:"500"`

	// DefaultBatchDelay is the pause between consecutive batches when a job
	// does not name one (default: 2s)
	DefaultBatchDelay time.Duration `env:"SUBMIT_DEFAULT_BATCH_DELAY" default:"2s"`

	// RecordDelay paces individual submissions within a batch (default: 250ms)
	RecordDelay time.Duration `env:"SUBMIT_RECORD_DELAY" default:"250ms"`

	// Strategy is the default submission strategy: direct or simulated
	// (default: direct)
	Strategy string `env:"SUBMIT_STRATEGY" default:"direct"`

	// JobTimeout is the maximum duration for a single job (default: 30m)
	JobTimeout time.Duration `env:"SUBMIT_JOB_TIMEOUT" default:"30m"`

	// MaxConcurrentJobs is the maximum number of jobs running at once (default: 4)
	MaxConcurrentJobs int `env:"SUBMIT_MAX_CONCURRENT_JOBS" default:"4"`

	// SlotWait is how long a new job waits for a free slot (default: 10s)
	SlotWait time.Duration `env:"SUBMIT_SLOT_WAIT" default:"10s"`
}

// FormsConfig holds settings for talking to the target form service.
type FormsConfig struct {
	// APIToken is a static bearer token for the structured metadata API.
	// Leave empty to rely on structural scanning alone.
	APIToken string `env:"FORMS_API_TOKEN"`

	// OAuth client-credentials settings, used instead of APIToken when all
	// three are set.
	OAuthTokenURL     string `env:"FORMS_OAUTH_TOKEN_URL"`
	OAuthClientID     string `env:"FORMS_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `env:"FORMS_OAUTH_CLIENT_SECRET"`

	// HTTPTimeout bounds outbound requests to the form service (default: 30s)
	HTTPTimeout time.Duration `env:"FORMS_HTTP_TIMEOUT" default:"30s"`
}

// BrowserConfig holds settings for the simulated submission strategy.
type BrowserConfig struct {
	// ExecPath is the browser binary to launch; empty uses the default
	// lookup order.
	ExecPath string `env:"BROWSER_EXEC_PATH"`

	// PageTimeout bounds a single simulated submission (default: 45s)
	PageTimeout time.Duration `env:"BROWSER_PAGE_TIMEOUT" default:"45s"`

	// ConfirmationText is the page text that marks a successful submission
	ConfirmationText string `env:"BROWSER_CONFIRMATION_TEXT" default:"Your response has been recorded"`
}

// RateLimitConfig holds rate limiting settings for the HTTP surface.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// JobLimit is requests per minute for the job-creation endpoint (default: 10)
	JobLimit int `env:"RATE_LIMIT_JOBS" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// forwarding headers may be trusted
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey gates the /api surface behind X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
