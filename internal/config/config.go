package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Record store drivers.
const (
	RecordsPostgres = "postgres"
	RecordsMongo    = "mongo"
)

// Media store drivers.
const (
	MediaMinIO = "minio"
	MediaS3    = "s3"
)

// Config aggregates runtime configuration for the bucket list service.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Records  RecordsConfig
	MinIO    MinIOConfig
	S3       S3Config
	Media    MediaConfig
	Auth     AuthConfig
	Metrics  MetricsConfig
	CORS     CORSConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// SecureCookies marks session cookies Secure; enable behind TLS.
	SecureCookies bool
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// ApplySchema creates missing tables on startup.
	ApplySchema bool
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MongoConfig carries MongoDB connection details for the alternative record store.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// RecordsConfig selects where item records live.
type RecordsConfig struct {
	Driver string
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// S3Config carries AWS S3 settings. Without static keys credentials come
// from the default AWS chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
}

// MediaConfig groups settings for uploaded item images.
type MediaConfig struct {
	Driver    string
	Prefix    string
	URLTTL    time.Duration
	MaxUpload int64
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// CORSConfig lists origins allowed to call the JSON API.
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:          getString("BUCKETLIST_HOST", "0.0.0.0"),
			Port:          getInt("BUCKETLIST_PORT", 8080),
			ReadTimeout:   getDuration("BUCKETLIST_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:  getDuration("BUCKETLIST_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:   getDuration("BUCKETLIST_IDLE_TIMEOUT", 60*time.Second),
			SecureCookies: getBool("BUCKETLIST_SECURE_COOKIES", false),
		},
		Postgres: PostgresConfig{
			Host:        getString("POSTGRES_HOST", "localhost"),
			Port:        getInt("POSTGRES_PORT", 5432),
			User:        getString("POSTGRES_USER", "bucketlist_app"),
			Password:    getString("POSTGRES_PASSWORD", "change-me"),
			Database:    getString("POSTGRES_DB", "bucketlist"),
			SSLMode:     strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			ApplySchema: getBool("POSTGRES_APPLY_SCHEMA", true),
		},
		Mongo: MongoConfig{
			URI:        getString("MONGO_URI", "mongodb://localhost:27017"),
			Database:   getString("MONGO_DB", "bucketlist"),
			Collection: getString("MONGO_ITEMS_COLLECTION", "items"),
		},
		Records: RecordsConfig{
			Driver: strings.ToLower(getString("RECORDS_DRIVER", RecordsPostgres)),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "bucketlist"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "bucketlist"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		S3: S3Config{
			Bucket:          getString("S3_BUCKET", "bucketlist"),
			Region:          getString("AWS_REGION", "us-east-1"),
			Endpoint:        getString("S3_ENDPOINT", ""),
			UsePathStyle:    getBool("S3_USE_PATH_STYLE", false),
			AccessKeyID:     getString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getString("S3_SECRET_ACCESS_KEY", ""),
		},
		Media: MediaConfig{
			Driver:    strings.ToLower(getString("MEDIA_DRIVER", MediaMinIO)),
			Prefix:    getString("MEDIA_PREFIX", "media"),
			URLTTL:    getDuration("MEDIA_URL_TTL", 15*time.Minute),
			MaxUpload: int64(getInt("MEDIA_MAX_UPLOAD_BYTES", 10<<20)),
		},
		Auth: loadAuthConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("BUCKETLIST_METRICS_PATH", "/metrics"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("BUCKETLIST_CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Records.Driver {
	case RecordsPostgres, RecordsMongo:
	default:
		return fmt.Errorf("unknown RECORDS_DRIVER %q", c.Records.Driver)
	}
	switch c.Media.Driver {
	case MediaMinIO, MediaS3:
	default:
		return fmt.Errorf("unknown MEDIA_DRIVER %q", c.Media.Driver)
	}
	if c.Media.URLTTL <= 0 {
		return fmt.Errorf("MEDIA_URL_TTL must be positive")
	}
	if strings.Trim(c.Media.Prefix, "/") == "" {
		return fmt.Errorf("MEDIA_PREFIX must not be empty")
	}
	return nil
}

// MediaBucket returns the object bucket of the selected media driver.
func (c Config) MediaBucket() string {
	if c.Media.Driver == MediaS3 {
		return c.S3.Bucket
	}
	return c.MinIO.Bucket
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadAuthConfig() AuthConfig {
	cost := getInt("BUCKETLIST_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("BUCKETLIST_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("BUCKETLIST_JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("BUCKETLIST_AUTH_ACCESS_TOKEN_TTL", 12*time.Hour),
		RefreshTokenTTL:    getDuration("BUCKETLIST_AUTH_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:         cost,
	}
}
