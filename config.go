package classifieds

import (
	"time"
)

// Config holds the settings of the service. Fields carry env tags so
// binaries can overlay environment variables on DefaultConfig.
type Config struct {
	Database DatabaseConfig `json:"database" envPrefix:"DB_"`
	Blob     BlobConfig     `json:"blob" envPrefix:"BLOB_"`
	Session  SessionConfig  `json:"session" envPrefix:"SESSION_"`
	Schema   SchemaConfig   `json:"schema" envPrefix:"SCHEMA_"`
	Query    QueryConfig    `json:"query" envPrefix:"QUERY_"`
	Logging  LoggingConfig  `json:"logging" envPrefix:"LOG_"`
	Server   ServerConfig   `json:"server"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" env:"HOST"`
	Port            int           `json:"port" env:"PORT"`
	Database        string        `json:"database" env:"NAME"`
	Username        string        `json:"username" env:"USER"`
	Password        string        `json:"password" env:"PASSWORD"`
	SSLMode         string        `json:"sslMode" env:"SSL_MODE"`
	MaxConnections  int           `json:"maxConnections" env:"MAX_CONNECTIONS"`
	MaxIdleConns    int           `json:"maxIdleConns" env:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" env:"CONN_MAX_IDLE_TIME"`
	Timeout         time.Duration `json:"timeout" env:"TIMEOUT"`
	// UseIAM replaces the password with a short-lived IAM auth token per connection.
	UseIAM    bool   `json:"useIAM" env:"USE_IAM"`
	AWSRegion string `json:"awsRegion" env:"AWS_REGION"`
}

// BlobConfig selects where listing images are stored.
type BlobConfig struct {
	Provider string `json:"provider" env:"PROVIDER"` // s3 or local

	// S3
	Bucket         string `json:"bucket" env:"BUCKET"`
	Region         string `json:"region" env:"REGION"`
	Endpoint       string `json:"endpoint" env:"ENDPOINT"`
	AccessKeyID    string `json:"accessKeyId" env:"ACCESS_KEY_ID"`
	SecretKey      string `json:"-" env:"SECRET_ACCESS_KEY"`
	PublicBaseURL  string `json:"publicBaseUrl" env:"PUBLIC_BASE_URL"`
	KeyPrefix      string `json:"keyPrefix" env:"KEY_PREFIX"`
	ForcePathStyle bool   `json:"forcePathStyle" env:"FORCE_PATH_STYLE"`

	// Local
	MountDir  string `json:"mountDir" env:"MOUNT_DIR"`
	URLPrefix string `json:"urlPrefix" env:"URL_PREFIX"`

	DeleteConcurrency int `json:"deleteConcurrency" env:"DELETE_CONCURRENCY"`
	// Deletion failures that open the breaker, and how long it stays open.
	BreakerThreshold int           `json:"breakerThreshold" env:"BREAKER_THRESHOLD"`
	BreakerCooldown  time.Duration `json:"breakerCooldown" env:"BREAKER_COOLDOWN"`
}

// SessionConfig selects how bearer credentials resolve to an actor.
type SessionConfig struct {
	Provider      string        `json:"provider" env:"PROVIDER"` // jwt or redis
	JWTSecret     string        `json:"-" env:"JWT_SECRET"`
	RedisAddr     string        `json:"redisAddr" env:"REDIS_ADDR"`
	RedisPassword string        `json:"-" env:"REDIS_PASSWORD"`
	RedisDB       int           `json:"redisDb" env:"REDIS_DB"`
	KeyPrefix     string        `json:"keyPrefix" env:"KEY_PREFIX"`
	TTL           time.Duration `json:"ttl" env:"TTL"`
}

// SchemaConfig controls attribute schema loading.
type SchemaConfig struct {
	// CacheTTL of zero disables caching so every mutation sees the live schema.
	CacheTTL time.Duration `json:"cacheTTL" env:"CACHE_TTL"`
}

// QueryConfig contains query execution settings
type QueryConfig struct {
	DefaultPageSize int `json:"defaultPageSize" env:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int `json:"maxPageSize" env:"MAX_PAGE_SIZE"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" env:"LEVEL"`
	Format string `json:"format" env:"FORMAT"`
}

type ServerConfig struct {
	Port            string        `json:"port" env:"PORT"`
	ReadTimeout     time.Duration `json:"readTimeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"writeTimeout" env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `json:"maxUploadBytes" env:"MAX_UPLOAD_BYTES"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "classifieds",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
		},
		Blob: BlobConfig{
			Provider:          "local",
			MountDir:          "./data",
			URLPrefix:         "/images",
			KeyPrefix:         "listings",
			DeleteConcurrency: 4,
			BreakerThreshold:  5,
			BreakerCooldown:   30 * time.Second,
		},
		Session: SessionConfig{
			Provider:  "jwt",
			KeyPrefix: "session:",
			TTL:       24 * time.Hour,
		},
		Query: QueryConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.UseIAM && c.Database.AWSRegion == "" {
		return &ConfigError{Field: "database.awsRegion", Message: "is required when useIAM is set"}
	}

	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}

	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be greater than or equal to defaultPageSize"}
	}

	if c.Schema.CacheTTL < 0 {
		return &ConfigError{Field: "schema.cacheTTL", Message: "must not be negative"}
	}

	switch c.Blob.Provider {
	case "s3":
		if c.Blob.Bucket == "" {
			return &ConfigError{Field: "blob.bucket", Message: "is required for the s3 provider"}
		}
	case "local":
		if c.Blob.MountDir == "" {
			return &ConfigError{Field: "blob.mountDir", Message: "is required for the local provider"}
		}
	default:
		return &ConfigError{Field: "blob.provider", Message: "must be s3 or local"}
	}

	if c.Blob.DeleteConcurrency <= 0 {
		return &ConfigError{Field: "blob.deleteConcurrency", Message: "must be greater than 0"}
	}

	switch c.Session.Provider {
	case "jwt":
		if c.Session.JWTSecret == "" {
			return &ConfigError{Field: "session.jwtSecret", Message: "is required for the jwt provider"}
		}
	case "redis":
		if c.Session.RedisAddr == "" {
			return &ConfigError{Field: "session.redisAddr", Message: "is required for the redis provider"}
		}
	default:
		return &ConfigError{Field: "session.provider", Message: "must be jwt or redis"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
