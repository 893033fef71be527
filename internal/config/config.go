// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage backends, rate limiting, third-party credentials (Neynar,
// OpenAI, EVM RPC), and observability settings.
package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS     bool
	HSTSMaxAge     time.Duration
	FrameAncestors []string // origins allowed to embed the mini app
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "farcasturd-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the relational store.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite path
	URL    string // Postgres DSN (DATABASE_URL)
}

// NeynarConfig holds social-graph API settings and bot credentials.
type NeynarConfig struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string // NEYNAR_WEBHOOK_SECRET, HMAC-SHA512 key
	Timeout       time.Duration
	RPS           float64 // outbound request pacing

	BotFID        int64
	BotHandle     string // without '@'
	BotSignerUUID string
	CronSecret    string
}

// OpenAIConfig holds image generation settings.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Size         string
	Quality      string
	Timeout      time.Duration
	Attempts     int
	BackoffStart time.Duration
}

// ChainConfig holds EVM RPC and contract settings.
type ChainConfig struct {
	RPCURL          string
	ContractAddress string
	MinterKey       string        // hex private key, server mode only
	Mode            string        // server|wallet
	PriceETH        string        // fixed price in ETH
	PriceSource     string        // fixed|chain
	ClaimTTL        time.Duration // how long a pending mint claim blocks re-mints
}

// S3Config holds the blob artifact backend settings.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// AuthConfig holds session token and nonce settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	NonceTTL  time.Duration
	Domain    string // sign-in message domain; defaults to APP_BASE_URL's host
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 120s, generation is slow
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	AppBaseURL                   string // absolute URL used in metadata links
	ArtifactBackend              string // db|s3
	GenerationPlaceholderProfile bool   // substitute a synthetic profile on lookup failure
	ProfileCacheTTL              time.Duration

	// Storage
	DB       DBConfig
	RedisURL string
	S3       S3Config

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Integrations
	Neynar NeynarConfig
	OpenAI OpenAIConfig
	Chain  ChainConfig
	Auth   AuthConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 120*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// App
		AppBaseURL:                   strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),
		ArtifactBackend:              strings.ToLower(getenv("ARTIFACT_BACKEND", "db")),
		GenerationPlaceholderProfile: getbool("GENERATION_PLACEHOLDER_PROFILE", false),
		ProfileCacheTTL:              getdur("PROFILE_CACHE_TTL", 5*time.Minute),

		// Storage
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "farcasturd.db"),
			URL:    getenv("DATABASE_URL", ""),
		},
		RedisURL: getenv("REDIS_URL", ""),
		S3: S3Config{
			Bucket:          getenv("S3_BUCKET", ""),
			Region:          getenv("S3_REGION", "auto"),
			Endpoint:        getenv("S3_ENDPOINT", ""),
			AccessKeyID:     getenv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getenv("S3_SECRET_ACCESS_KEY", ""),
			Prefix:          strings.Trim(getenv("S3_PREFIX", "farcasturds"), "/"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS:     getbool("ENABLE_HSTS", false),
			HSTSMaxAge:     getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			FrameAncestors: splitCSV(getenv("FRAME_ANCESTORS",
				"'self',https://warpcast.com,https://*.warpcast.com,https://*.farcaster.xyz")),
		},

		// Integrations
		Neynar: NeynarConfig{
			APIKey:        getenv("NEYNAR_API_KEY", ""),
			BaseURL:       strings.TrimRight(getenv("NEYNAR_BASE_URL", "https://api.neynar.com"), "/"),
			WebhookSecret: getenv("NEYNAR_WEBHOOK_SECRET", ""),
			Timeout:       getdur("NEYNAR_TIMEOUT", 10*time.Second),
			RPS:           getfloat("NEYNAR_RPS", 5.0),
			BotFID:        int64(getint("BOT_FID", 0)),
			BotHandle:     strings.ToLower(strings.TrimPrefix(getenv("BOT_HANDLE", "farcasturd"), "@")),
			BotSignerUUID: getenv("BOT_SIGNER_UUID", ""),
			CronSecret:    getenv("CRON_SECRET", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:       getenv("OPENAI_API_KEY", ""),
			BaseURL:      strings.TrimRight(getenv("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
			Model:        getenv("OPENAI_IMAGE_MODEL", "dall-e-3"),
			Size:         getenv("OPENAI_IMAGE_SIZE", "1024x1024"),
			Quality:      getenv("OPENAI_IMAGE_QUALITY", "standard"),
			Timeout:      getdur("OPENAI_TIMEOUT", 60*time.Second),
			Attempts:     getint("OPENAI_ATTEMPTS", 2),
			BackoffStart: getdur("OPENAI_BACKOFF", 2*time.Second),
		},
		Chain: ChainConfig{
			RPCURL:          getenv("BASE_RPC_URL", ""),
			ContractAddress: getenv("FARCASTURDS_ADDRESS", getenv("NEXT_PUBLIC_FARCASTURDS_ADDRESS", "")),
			MinterKey:       getenv("FARCASTURDS_MINTER_PRIVATE_KEY", ""),
			Mode:            strings.ToLower(getenv("MINT_MODE", "server")),
			PriceETH:        getenv("MINT_PRICE_ETH", "0"),
			PriceSource:     strings.ToLower(getenv("MINT_PRICE_SOURCE", "fixed")),
			ClaimTTL:        getdur("MINT_CLAIM_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret: getenv("AUTH_JWT_SECRET", ""),
			TokenTTL:  getdur("AUTH_TOKEN_TTL", 24*time.Hour),
			NonceTTL:  getdur("AUTH_NONCE_TTL", 10*time.Minute),
			Domain:    strings.TrimSpace(getenv("AUTH_DOMAIN", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "farcasturd-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	switch cfg.ArtifactBackend {
	case "db":
	case "s3":
		if strings.TrimSpace(cfg.S3.Bucket) == "" {
			return cfg, errors.New("S3_BUCKET is required when ARTIFACT_BACKEND=s3")
		}
	default:
		return cfg, errors.New("ARTIFACT_BACKEND must be one of: db, s3")
	}
	switch cfg.Chain.Mode {
	case "server", "wallet":
	default:
		return cfg, errors.New("MINT_MODE must be one of: server, wallet")
	}
	switch cfg.Chain.PriceSource {
	case "fixed", "chain":
	default:
		return cfg, errors.New("MINT_PRICE_SOURCE must be one of: fixed, chain")
	}
	if cfg.Chain.ClaimTTL <= 0 {
		return cfg, errors.New("MINT_CLAIM_TTL must be > 0")
	}
	if cfg.OpenAI.Attempts < 1 {
		return cfg, errors.New("OPENAI_ATTEMPTS must be >= 1")
	}
	if cfg.OpenAI.BackoffStart < 0 {
		return cfg, errors.New("OPENAI_BACKOFF must be >= 0")
	}
	if cfg.Neynar.BotFID < 0 {
		return cfg, errors.New("BOT_FID must be >= 0")
	}
	if cfg.Neynar.BotHandle == "" {
		return cfg, errors.New("BOT_HANDLE must not be empty")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.Auth.TokenTTL <= 0 || cfg.Auth.NonceTTL <= 0 {
		return cfg, errors.New("AUTH_TOKEN_TTL and AUTH_NONCE_TTL must be > 0")
	}
	if cfg.Auth.Domain == "" {
		u, err := url.Parse(cfg.AppBaseURL)
		if err != nil || u.Host == "" {
			return cfg, errors.New("APP_BASE_URL must be an absolute URL when AUTH_DOMAIN is unset")
		}
		cfg.Auth.Domain = u.Host
	}
	if cfg.ProfileCacheTTL < 0 {
		return cfg, errors.New("PROFILE_CACHE_TTL must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
