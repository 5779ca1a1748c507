package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Content store (posts, votes, comments, reports, photos)
	MongoDB MongoDBConfig `json:"mongodb"`

	// Profile store
	Database DatabaseConfig `json:"database"`

	Firebase FirebaseConfig `json:"firebase"`
	Auth     AuthConfig     `json:"auth"`

	Redis    RedisConfig    `json:"redis"`
	Kafka    KafkaConfig    `json:"kafka"`
	Realtime RealtimeConfig `json:"realtime"`
	Feed     FeedConfig     `json:"feed"`
	Upload   UploadConfig   `json:"upload"`

	Logging LoggingConfig `json:"logging"`
	Sentry  SentryConfig  `json:"sentry"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port           string   `json:"port"`
	Host           string   `json:"host"`
	GRPCHealthPort string   `json:"grpc_health_port"`
	ReadTimeout    int      `json:"read_timeout"`  // seconds
	WriteTimeout   int      `json:"write_timeout"` // seconds
	Environment    string   `json:"environment"`   // development, staging, production
	MediaBaseURL   string   `json:"media_base_url"`
	AllowedOrigins []string `json:"allowed_origins"`
	MetricsEnabled bool     `json:"metrics_enabled"`
}

type MongoDBConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	URI      string `json:"-"` // overrides the fields above when set
}

// DatabaseConfig contains MySQL connection configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// FirebaseConfig contains Firebase Admin configuration used for ID token verification
type FirebaseConfig struct {
	ProjectID           string `json:"project_id"`
	CredentialsFilePath string `json:"credentials_file_path"`
	Enabled             bool   `json:"enabled"`
}

// AuthConfig selects the identity verifier.
type AuthConfig struct {
	Mode      string        `json:"mode"` // firebase, jwt
	JWTSecret string        `json:"-"`
	JWTIssuer string        `json:"jwt_issuer"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

type RedisConfig struct {
	Addr     string        `json:"addr"`
	Password string        `json:"-"`
	DB       int           `json:"db"`
	CountTTL time.Duration `json:"count_ttl"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

// RealtimeConfig contains websocket fan-out configuration
type RealtimeConfig struct {
	Enabled           bool `json:"enabled"`
	Workers           int  `json:"workers"`             // Number of dispatcher goroutines
	ChannelBufferSize int  `json:"channel_buffer_size"` // Dispatcher queue size
	ClientBufferSize  int  `json:"client_buffer_size"`  // Per-connection send queue
}

type FeedConfig struct {
	PaginationEnabled bool `json:"pagination_enabled"`
	DefaultPageSize   int  `json:"default_page_size"`
	MaxPageSize       int  `json:"max_page_size"`
}

type UploadConfig struct {
	MaxImageBytes int64 `json:"max_image_bytes"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // json, text
	OutputPath string `json:"output_path"` // stdout, stderr, or file path
}

type SentryConfig struct {
	DSN              string  `json:"-"`
	Environment      string  `json:"environment"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

const (
	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
)

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			Host:           getEnv("HOST", "0.0.0.0"),
			GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", "5001"),
			ReadTimeout:    getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			Environment:    getEnv("APP_ENV", "development"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		MongoDB: MongoDBConfig{
			Host:     getEnv("MONGO_HOST", "localhost"),
			Port:     getEnv("MONGO_PORT", "27017"),
			Username: getEnv("MONGO_USERNAME", ""),
			Password: getEnv("MONGO_PASSWORD", ""),
			Database: getEnv("MONGO_DATABASE", "linkcamp"),
			URI:      getEnv("MONGO_URI", ""),
		},
		Database: DatabaseConfig{
			Host:         getEnv("MYSQL_HOST", "localhost"),
			Port:         getEnv("MYSQL_PORT", "3306"),
			Username:     getEnv("MYSQL_USERNAME", "linkcamp"),
			Password:     getEnv("MYSQL_PASSWORD", "linkcamp123"),
			DatabaseName: getEnv("MYSQL_DATABASE", "linkcamp"),
			MaxOpenConns: getEnvAsInt("MYSQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("MYSQL_MAX_IDLE_CONNS", 5),
		},
		Firebase: FirebaseConfig{
			ProjectID:           getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFilePath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			Enabled:             getEnvAsBool("FIREBASE_ENABLED", false),
		},
		Auth: AuthConfig{
			Mode:      strings.ToLower(getEnv("AUTH_MODE", AuthModeJWT)),
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", "linkcamp"),
			TokenTTL:  time.Duration(getEnvAsInt("JWT_TTL_HOURS", 24)) * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CountTTL: time.Duration(getEnvAsInt("VOTE_COUNT_TTL_SECONDS", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC", "linkcamp.feed-events"),
		},
		Realtime: RealtimeConfig{
			Enabled:           getEnvAsBool("REALTIME_ENABLED", true),
			Workers:           getEnvAsInt("REALTIME_WORKERS", 4),
			ChannelBufferSize: getEnvAsInt("REALTIME_BUFFER", 1000),
			ClientBufferSize:  getEnvAsInt("REALTIME_CLIENT_BUFFER", 64),
		},
		Feed: FeedConfig{
			PaginationEnabled: getEnvAsBool("FEED_PAGINATION_ENABLED", true),
			DefaultPageSize:   getEnvAsInt("FEED_DEFAULT_LIMIT", 20),
			MaxPageSize:       getEnvAsInt("FEED_MAX_LIMIT", 50),
		},
		Upload: UploadConfig{
			MaxImageBytes: int64(getEnvAsInt("UPLOAD_MAX_MB", 8)) << 20,
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Environment:      getEnv("SENTRY_ENVIRONMENT", getEnv("APP_ENV", "development")),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
		},
	}

	cfg.Server.MediaBaseURL = getEnv("MEDIA_BASE_URL",
		fmt.Sprintf("http://localhost:%s/media/", cfg.Server.Port))

	return cfg
}

// Validate reports configuration combinations the server cannot start with.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Auth.Mode {
	case AuthModeFirebase:
		if !cfg.Firebase.Enabled {
			errs = append(errs, errors.New("AUTH_MODE=firebase requires FIREBASE_ENABLED=true"))
		}
	case AuthModeJWT:
		if cfg.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("AUTH_MODE=jwt requires JWT_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", cfg.Auth.Mode))
	}

	if cfg.Feed.DefaultPageSize < 1 || cfg.Feed.MaxPageSize < cfg.Feed.DefaultPageSize {
		errs = append(errs, fmt.Errorf("invalid feed page sizes: default=%d max=%d",
			cfg.Feed.DefaultPageSize, cfg.Feed.MaxPageSize))
	}
	if cfg.Realtime.Enabled && cfg.Realtime.Workers < 1 {
		errs = append(errs, errors.New("REALTIME_WORKERS must be at least 1"))
	}

	return errors.Join(errs...)
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.URI != "" {
		return cfg.MongoDB.URI
	}
	if cfg.MongoDB.Username != "" && cfg.MongoDB.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
			cfg.MongoDB.Username,
			cfg.MongoDB.Password,
			cfg.MongoDB.Host,
			cfg.MongoDB.Port,
			cfg.MongoDB.Database,
		)
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
}

func (cfg *Config) IsProduction() bool {
	return cfg.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Invalid integer for %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
