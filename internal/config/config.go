// Package config handles loading and parsing application configuration.
// It supports two sources for the file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Every value in the file can be overridden by its environment variable.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers understood by Config.StorageDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultMaxStudentsPerCourse applies when neither the file nor the
// environment sets max_students_per_course.
const DefaultMaxStudentsPerCourse = 20

// Config is the root configuration structure.
// env-required:"true" means the app refuses to start if that value is
// missing. The validate tags are checked after loading.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StorageDriver selects the relational backend.
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"sqlite" validate:"oneof=sqlite postgres"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" validate:"required_if=StorageDriver sqlite"`

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL" validate:"required_if=StorageDriver postgres"`

	// MaxStudentsPerCourse is the enrollment limit applied to every
	// course create and update. An explicit 0 is rejected rather than
	// replaced by the default.
	MaxStudentsPerCourse int `yaml:"max_students_per_course" env:"MAX_STUDENTS_PER_COURSE" validate:"gt=0"`

	HTTPServer `yaml:"http_server"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:8082".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`

	// AllowedOrigins lists the CORS origins permitted to call the API,
	// typically the admin console.
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Load reads the config file at path, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is not set: use --config flag or CONFIG_PATH env var")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	limitSet, err := limitConfigured(path)
	if err != nil {
		return nil, err
	}
	if !limitSet {
		cfg.MaxStudentsPerCourse = DefaultMaxStudentsPerCourse
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path from CONFIG_PATH or --config and
// loads it. It exits the process on any failure, so if it returns the
// config is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}

// limitConfigured reports whether max_students_per_course is present in
// the file or the environment. cleanenv cannot tell an absent key from
// an explicit zero.
func limitConfigured(path string) (bool, error) {
	if _, ok := os.LookupEnv("MAX_STUDENTS_PER_COURSE"); ok {
		return true, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("cannot read config: %w", err)
	}

	var keys struct {
		MaxStudentsPerCourse *int `yaml:"max_students_per_course"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return false, fmt.Errorf("cannot read config: %w", err)
	}
	return keys.MaxStudentsPerCourse != nil, nil
}
