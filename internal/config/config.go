package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisURL string

	JWTSecret     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	CatalogFile   string
	DirectoryFile string

	BridgeURL            string
	BridgeSession        string
	BridgeTimeout        time.Duration
	BridgeConnectRetries int

	StatsCacheTTL           time.Duration
	StatsMessagesLimit      int
	StatsRecentLimit        int
	StatsFanoutLimit        int
	StatsInvalidateOnUpload bool

	StagingEndpoint  string
	StagingRegion    string
	StagingBucket    string
	StagingAccessKey string
	StagingSecretKey string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 45*time.Second),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),

		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:  getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL: getDuration("JWT_REFRESH_TTL", 168*time.Hour),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),

		CatalogFile:   getEnv("CATALOG_FILE", ""),
		DirectoryFile: getEnv("DIRECTORY_FILE", "./state/channels.json"),

		BridgeURL:            getEnv("BRIDGE_URL", "http://localhost:8484"),
		BridgeSession:        strings.TrimSpace(os.Getenv("BRIDGE_SESSION")),
		BridgeTimeout:        getDuration("BRIDGE_TIMEOUT", 30*time.Second),
		BridgeConnectRetries: getInt("BRIDGE_CONNECT_RETRIES", 5),

		StatsCacheTTL:           getDuration("STATS_CACHE_TTL", 60*time.Second),
		StatsMessagesLimit:      getInt("STATS_MESSAGES_LIMIT", 50),
		StatsRecentLimit:        getInt("STATS_RECENT_LIMIT", 5),
		StatsFanoutLimit:        getInt("STATS_FANOUT_LIMIT", 8),
		StatsInvalidateOnUpload: getBool("STATS_INVALIDATE_ON_UPLOAD", false),

		StagingEndpoint:  getEnv("STAGING_ENDPOINT", ""),
		StagingRegion:    getEnv("STAGING_REGION", "us-east-1"),
		StagingBucket:    getEnv("STAGING_BUCKET", "notedrop-staging"),
		StagingAccessKey: strings.TrimSpace(os.Getenv("STAGING_ACCESS_KEY")),
		StagingSecretKey: strings.TrimSpace(os.Getenv("STAGING_SECRET_KEY")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if strings.TrimSpace(c.BridgeURL) == "" {
		return fmt.Errorf("BRIDGE_URL cannot be empty")
	}

	if strings.TrimSpace(c.DirectoryFile) == "" {
		return fmt.Errorf("DIRECTORY_FILE cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.StatsCacheTTL <= 0 {
		return fmt.Errorf("STATS_CACHE_TTL must be positive")
	}

	if c.StatsFanoutLimit <= 0 {
		return fmt.Errorf("STATS_FANOUT_LIMIT must be positive")
	}

	if c.StatsMessagesLimit <= 0 {
		return fmt.Errorf("STATS_MESSAGES_LIMIT must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
