package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	// Relational is the store of record
	Relational struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"` // postgres | sqlite
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		SQLitePath      string `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		BatchSize       int    `yaml:"batch_size" env:"DB_BATCH_SIZE"`
	} `yaml:"relational"`

	Graph struct {
		Enabled  bool   `yaml:"enabled" env:"GRAPH_ENABLED"`
		Driver   string `yaml:"driver" env:"GRAPH_DRIVER"` // neo4j | memory
		URI      string `yaml:"uri" env:"NEO4J_URI"`
		User     string `yaml:"user" env:"NEO4J_USER"`
		Password string `yaml:"password" env:"NEO4J_PASSWORD"`
		Database string `yaml:"database" env:"NEO4J_DATABASE"`
	} `yaml:"graph"`

	Document struct {
		Enabled    bool   `yaml:"enabled" env:"DOCUMENT_ENABLED"`
		Driver     string `yaml:"driver" env:"DOCUMENT_DRIVER"` // mongo | memory
		URI        string `yaml:"uri" env:"MONGO_URI"`
		Database   string `yaml:"database" env:"MONGO_DATABASE"`
		Collection string `yaml:"collection" env:"MONGO_COLLECTION"`
	} `yaml:"document"`

	Cache struct {
		Enabled  bool   `yaml:"enabled" env:"CACHE_ENABLED"`
		Driver   string `yaml:"driver" env:"CACHE_DRIVER"` // redis | memory
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"cache"`

	Search struct {
		Enabled        bool   `yaml:"enabled" env:"SEARCH_ENABLED"`
		Driver         string `yaml:"driver" env:"SEARCH_DRIVER"` // elastic | memory
		Addresses      string `yaml:"addresses" env:"ELASTIC_ADDRESSES"` // comma separated
		Username       string `yaml:"username" env:"ELASTIC_USERNAME"`
		Password       string `yaml:"password" env:"ELASTIC_PASSWORD"`
		SessionsIndex  string `yaml:"sessions_index" env:"ELASTIC_SESSIONS_INDEX"`
		MaterialsIndex string `yaml:"materials_index" env:"ELASTIC_MATERIALS_INDEX"`
	} `yaml:"search"`

	// Reports is where run reports are archived
	Reports struct {
		Driver   string `yaml:"driver" env:"REPORTS_DRIVER"` // local | s3 | memory
		Path     string `yaml:"path" env:"REPORTS_PATH"`
		Bucket   string `yaml:"bucket" env:"REPORTS_S3_BUCKET"`
		Region   string `yaml:"region" env:"REPORTS_S3_REGION"`
		Endpoint string `yaml:"endpoint" env:"REPORTS_S3_ENDPOINT"`
		Prefix   string `yaml:"prefix" env:"REPORTS_S3_PREFIX"`
	} `yaml:"reports"`

	Retry struct {
		MaxAttempts     int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
		InitialInterval time.Duration `yaml:"initial_interval" env:"RETRY_INITIAL_INTERVAL"`
		MaxInterval     time.Duration `yaml:"max_interval" env:"RETRY_MAX_INTERVAL"`
		CallTimeout     time.Duration `yaml:"call_timeout" env:"RETRY_CALL_TIMEOUT"`
	} `yaml:"retry"`

	// Generation holds the synthetic dataset parameters. Levels are written as
	// "N" (N per parent), "MIN-MAX" (drawn per parent) or "=N" (N in total).
	Generation struct {
		Seed               int64  `yaml:"seed" env:"GEN_SEED"`
		Organizations      int    `yaml:"organizations" env:"GEN_ORGANIZATIONS"`
		Divisions          string `yaml:"divisions" env:"GEN_DIVISIONS"`
		Departments        string `yaml:"departments" env:"GEN_DEPARTMENTS"`
		Specialties        string `yaml:"specialties" env:"GEN_SPECIALTIES"`
		Courses            string `yaml:"courses" env:"GEN_COURSES"`
		Sessions           string `yaml:"sessions" env:"GEN_SESSIONS"`
		Materials          string `yaml:"materials" env:"GEN_MATERIALS"`
		Groups             string `yaml:"groups" env:"GEN_GROUPS"`
		Students           string `yaml:"students" env:"GEN_STUDENTS"`
		Slots              string `yaml:"slots" env:"GEN_SLOTS"`
		OccurrencesPerSlot string `yaml:"occurrences_per_slot" env:"GEN_OCCURRENCES"`
		AttendanceFrom     string `yaml:"attendance_from" env:"GEN_ATTENDANCE_FROM"`
		AttendanceTo       string `yaml:"attendance_to" env:"GEN_ATTENDANCE_TO"`
		MaxUniqueRetries   int    `yaml:"max_unique_retries" env:"GEN_MAX_UNIQUE_RETRIES"`
	} `yaml:"generation"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file, a .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env values never override variables already present in the environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "release"

	config.Relational.Driver = "postgres"
	config.Relational.Host = "localhost"
	config.Relational.Port = "5432"
	config.Relational.User = "postgres"
	config.Relational.Password = "postgres"
	config.Relational.DBName = "university"
	config.Relational.SSLMode = "disable"
	config.Relational.SQLitePath = "unisync.db"
	config.Relational.MaxIdleConns = 2
	config.Relational.MaxOpenConns = 10
	config.Relational.ConnMaxLifetime = "1h"
	config.Relational.BatchSize = 500

	config.Graph.Enabled = true
	config.Graph.Driver = "neo4j"
	config.Graph.URI = "neo4j://localhost:7687"
	config.Graph.User = "neo4j"
	config.Graph.Password = "password"
	config.Graph.Database = "neo4j"

	config.Document.Enabled = true
	config.Document.Driver = "mongo"
	config.Document.URI = "mongodb://localhost:27017"
	config.Document.Database = "university"
	config.Document.Collection = "organizations"

	config.Cache.Enabled = true
	config.Cache.Driver = "redis"
	config.Cache.Addr = "localhost:6379"

	config.Search.Enabled = true
	config.Search.Driver = "elastic"
	config.Search.Addresses = "http://localhost:9200"
	config.Search.SessionsIndex = "sessions"
	config.Search.MaterialsIndex = "session_materials"

	config.Reports.Driver = "local"
	config.Reports.Path = "./reports"

	config.Retry.MaxAttempts = 3
	config.Retry.InitialInterval = 200 * time.Millisecond
	config.Retry.MaxInterval = 2 * time.Second
	config.Retry.CallTimeout = 5 * time.Second

	config.Generation.Seed = 1
	config.Generation.Organizations = 1
	config.Generation.Divisions = "2-4"
	config.Generation.Departments = "2-3"
	config.Generation.Specialties = "2"
	config.Generation.Courses = "2-3"
	config.Generation.Sessions = "3-6"
	config.Generation.Materials = "1-2"
	config.Generation.Groups = "1-2"
	config.Generation.Students = "15-25"
	config.Generation.Slots = "2-4"
	config.Generation.OccurrencesPerSlot = "1-3"
	config.Generation.AttendanceFrom = "2024-09-02"
	config.Generation.AttendanceTo = "2024-12-27"
	config.Generation.MaxUniqueRetries = 64

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return applyEnv(reflect.ValueOf(config))
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	var errs []error

	switch config.Relational.Driver {
	case "postgres":
		if config.Relational.Host == "" {
			errs = append(errs, fmt.Errorf("database host is required"))
		}
		if _, err := time.ParseDuration(config.Relational.ConnMaxLifetime); err != nil {
			errs = append(errs, fmt.Errorf("invalid connection max lifetime: %w", err))
		}
	case "sqlite":
		if config.Relational.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("sqlite path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", config.Relational.Driver))
	}

	if config.Relational.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive"))
	}

	for name, pair := range map[string][2]string{
		"graph":    {config.Graph.Driver, "neo4j"},
		"document": {config.Document.Driver, "mongo"},
		"cache":    {config.Cache.Driver, "redis"},
		"search":   {config.Search.Driver, "elastic"},
	} {
		if pair[0] != pair[1] && pair[0] != "memory" {
			errs = append(errs, fmt.Errorf("unsupported %s driver %q", name, pair[0]))
		}
	}

	switch config.Reports.Driver {
	case "local", "memory":
	case "s3":
		if config.Reports.Bucket == "" {
			errs = append(errs, fmt.Errorf("reports bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported reports driver %q", config.Reports.Driver))
	}

	if config.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry max attempts must be at least 1"))
	}
	if config.Retry.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("retry call timeout must be positive"))
	}

	return errors.Join(errs...)
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Relational.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Relational.User,
		c.Relational.Password,
		c.Relational.Host,
		c.Relational.Port,
		c.Relational.DBName,
		sslMode,
	)
}

// SearchAddresses splits the configured elasticsearch addresses
func (c *Config) SearchAddresses() []string {
	var out []string
	for _, a := range strings.Split(c.Search.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
