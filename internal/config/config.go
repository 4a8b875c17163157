package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxOpenConns int
	DBLockTimeout  time.Duration
	AutoMigrate    bool

	ServerPort string

	JWTSecret string
	JWTExpiry time.Duration

	LogLevel  string
	LogFormat string

	// Empty RedisURL disables the role cache.
	RedisURL     string
	RoleCacheTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("⚠️  No .env file found, using system environment variables")
	}

	return &Config{
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "taskboard"),
		DBPassword:     getEnv("DB_PASSWORD", "taskboard"),
		DBName:         getEnv("DB_NAME", "taskboard"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),
		DBLockTimeout:  getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second),
		AutoMigrate:    getEnvBool("AUTO_MIGRATE", true),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "supersecretkey"),
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RedisURL:       getEnv("REDIS_URL", ""),
		RoleCacheTTL:   getEnvDuration("ROLE_CACHE_TTL", 30*time.Second),
	}
}

// DSN is the keyword/value connection string used by the gorm postgres
// driver. lock_timeout is sent as a runtime parameter so every pooled
// connection carries it.
func (c *Config) DSN() string {
	pairs := []string{
		"host=" + quoteDSN(c.DBHost),
		"port=" + quoteDSN(c.DBPort),
		"user=" + quoteDSN(c.DBUser),
		"password=" + quoteDSN(c.DBPassword),
		"dbname=" + quoteDSN(c.DBName),
		"sslmode=" + quoteDSN(c.DBSSLMode),
	}
	if c.DBLockTimeout > 0 {
		pairs = append(pairs, fmt.Sprintf("lock_timeout=%d", c.DBLockTimeout.Milliseconds()))
	}
	return strings.Join(pairs, " ")
}

// quoteDSN single-quotes a keyword/value DSN value, escaping backslashes
// and quotes the way libpq reads them.
func quoteDSN(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return "'" + escaped + "'"
}

// MigrationURL is the connection URL for golang-migrate's pgx/v5 driver.
func (c *Config) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer, using default")
		return defaultVal
	}
	return parsed
}

func getEnvBool(key string, defaultVal bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid boolean, using default")
		return defaultVal
	}
	return parsed
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid duration, using default")
		return defaultVal
	}
	return parsed
}
