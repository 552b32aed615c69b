package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIServerConfig holds the HTTP API server settings.
type APIServerConfig struct {
	Host            string        `mapstructure:"HOST"`
	Port            string        `mapstructure:"PORT"`
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `mapstructure:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CORS            CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RedisConfig holds configuration for Redis. An empty Addr disables the
// token blacklist and the request throttle.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	LogFormat  string          `mapstructure:"LOG_FORMAT"`
	APIServer  APIServerConfig `mapstructure:"API_SERVER"`
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	RateLimit  RateLimitConfig `mapstructure:"RATE_LIMIT"`
}

// KafkaConfig holds configuration for the friend request event stream.
type KafkaConfig struct {
	Enabled            bool     `mapstructure:"ENABLED"`
	Brokers            []string `mapstructure:"BROKERS"`
	ClientID           string   `mapstructure:"CLIENT_ID"`
	FriendRequestTopic string   `mapstructure:"FRIEND_REQUEST_TOPIC"`
	ConsumerGroup      string   `mapstructure:"CONSUMER_GROUP"`
	Protocol           string   `mapstructure:"PROTOCOL"`
}

// DatabaseConfig holds configuration for the database.
// Type is "postgres" or "memory"; the latter keeps everything in process.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
	LogSQL   bool   `mapstructure:"LOG_SQL"`
}

// AuthConfig holds configuration for authentication (JWT and passwords).
type AuthConfig struct {
	JWTSecretKey      string        `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer         string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL    time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL   time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	MinPasswordLength int           `mapstructure:"MIN_PASSWORD_LENGTH"`
}

// RateLimitConfig bounds how many friend requests a user may create per window.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"ENABLED"`
	Requests int64         `mapstructure:"REQUESTS"`
	Window   time.Duration `mapstructure:"WINDOW"`
}

// Addr returns the listen address of the API server.
func (c APIServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory, when present, is loaded into the
// process environment first.
func LoadConfig(path string) (config Config, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("APP_NAME", "friendnet")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "8081")
	v.SetDefault("API_SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("API_SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("API_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("API_SERVER.SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length", "Retry-After"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300) // 5 minutes

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "friendnet")
	v.SetDefault("KAFKA.FRIEND_REQUEST_TOPIC", "friendnet-friend-requests")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "friendnet-admin")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "friendnet")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.LOG_SQL", false)

	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_ISSUER", "friendnet")
	v.SetDefault("AUTH.ACCESS_TOKEN_TTL", 5*time.Minute)
	v.SetDefault("AUTH.REFRESH_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("AUTH.MIN_PASSWORD_LENGTH", 8)

	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("RATE_LIMIT.ENABLED", true)
	v.SetDefault("RATE_LIMIT.REQUESTS", 100)
	v.SetDefault("RATE_LIMIT.WINDOW", 24*time.Hour)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// API_SERVER_PORT overrides API_SERVER.PORT, and so on.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		// defaults are enough to run without a file
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
