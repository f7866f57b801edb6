package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIServerConfig holds the HTTP server settings.
type APIServerConfig struct {
	Host            string        `mapstructure:"HOST"`
	Port            string        `mapstructure:"PORT"`
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
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

// RedisConfig holds configuration for Redis. Redis only backs the token
// blacklist, so it can be switched off for local development.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"ENABLED"`
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
	APIServer  APIServerConfig `mapstructure:"API_SERVER"`
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Storage    StorageConfig   `mapstructure:"STORAGE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	Metrics    MetricsConfig   `mapstructure:"METRICS"`
}

// KafkaConfig holds configuration for the domain event producer.
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"ENABLED"`
	Brokers         []string `mapstructure:"BROKERS"`
	ClientID        string   `mapstructure:"CLIENT_ID"`
	Protocol        string   `mapstructure:"PROTOCOL"`
	FriendshipTopic string   `mapstructure:"FRIENDSHIP_TOPIC"`
	PostTopic       string   `mapstructure:"POST_TOPIC"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type        string `mapstructure:"TYPE"`
	Host        string `mapstructure:"HOST"`
	Port        int    `mapstructure:"PORT"`
	User        string `mapstructure:"USER"`
	Password    string `mapstructure:"PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	SSLMode     string `mapstructure:"SSL_MODE"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`
}

// StorageConfig holds configuration for uploaded post images.
type StorageConfig struct {
	Type          string `mapstructure:"TYPE"` // only "local" for now
	LocalPath     string `mapstructure:"LOCAL_PATH"`
	BaseURL       string `mapstructure:"BASE_URL"`
	MaxFileSizeMB int64  `mapstructure:"MAX_FILE_SIZE_MB"`
}

// AuthConfig holds configuration for authentication (e.g., JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
	Issuer       string        `mapstructure:"ISSUER"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"ENABLED"`
	Path    string `mapstructure:"PATH"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory is loaded into the process
// environment first, so it participates in the env override step.
func LoadConfig(path string) (config Config, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring unreadable .env file: %v", err)
	}

	v := viper.New()

	v.SetDefault("APP_NAME", "brewfeed")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "3000")
	v.SetDefault("API_SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("API_SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("API_SERVER.SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", false)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300)

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "brewfeed-api")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")
	v.SetDefault("KAFKA.FRIENDSHIP_TOPIC", "brewfeed-friendships")
	v.SetDefault("KAFKA.POST_TOPIC", "brewfeed-posts")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "brewfeed")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)

	v.SetDefault("STORAGE.TYPE", "local")
	v.SetDefault("STORAGE.LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE.BASE_URL", "/uploads")
	v.SetDefault("STORAGE.MAX_FILE_SIZE_MB", 10)

	v.SetDefault("AUTH.JWT_SECRET_KEY", "change_me_in_production")
	v.SetDefault("AUTH.JWT_EXPIRY", 7*24*time.Hour)
	v.SetDefault("AUTH.ISSUER", "brewfeed")

	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("METRICS.ENABLED", true)
	v.SetDefault("METRICS.PATH", "/metrics")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// API_SERVER_PORT overrides API_SERVER.PORT, and so on.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		// Defaults are enough to boot without a file.
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
