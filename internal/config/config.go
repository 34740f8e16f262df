package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all ucrf configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Models   ModelConfig    `yaml:"models"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
	// ReferenceYear is the year vehicle ages are computed against.
	ReferenceYear int `yaml:"reference_year"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ModelConfig selects where trained artifacts are loaded from.
type ModelConfig struct {
	Store          string `yaml:"store"` // "dir" or "s3"
	Dir            string `yaml:"dir"`
	RuntimeLibrary string `yaml:"runtime_library"`
	ClassifierName string `yaml:"classifier_name"`
	RegressorName  string `yaml:"regressor_name"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3Region       string `yaml:"s3_region"`
	AWSProfile     string `yaml:"aws_profile"`
}

// DatabaseConfig holds repository connection settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// DatabaseDisabled is the database URL that turns persistence off.
const DatabaseDisabled = "none"

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" && !strings.EqualFold(d.URL, DatabaseDisabled)
}

// CacheConfig enables the forecast cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// CatalogConfig points at the make/model taxonomy file.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig holds defaults for ucrf-ingest runs.
type IngestConfig struct {
	Sources       []string `yaml:"sources"`
	OutputCSV     string   `yaml:"output_csv"`
	OutputXLSX    string   `yaml:"output_xlsx"`
	NHTSAEndpoint string   `yaml:"nhtsa_endpoint"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration. The reference year is the
// current calendar year.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Models: ModelConfig{
			Store:          "dir",
			Dir:            "models",
			ClassifierName: "reliability_clf",
			RegressorName:  "cost_reg",
		},
		Database: DatabaseConfig{
			URL:             "sqlite:ucrf.db",
			MaxConns:        10,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
			DialTimeout:     5 * time.Second,
		},
		Cache: CacheConfig{TTL: 10 * time.Minute},
		Log:   LogConfig{Level: "info", Format: "text"},

		ReferenceYear: time.Now().Year(),
	}
}

// Load reads configuration. A .env file in the working directory is loaded
// first when present. If UCRF_CONFIG names a YAML file it replaces the
// defaults, and UCRF_* environment variables override both.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("UCRF_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	s := &cfg.Server
	s.Addr = getenv("UCRF_ADDR", s.Addr)
	s.AllowedOrigins = getenvList("UCRF_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.ReadTimeout = getenvDuration("UCRF_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getenvDuration("UCRF_WRITE_TIMEOUT", s.WriteTimeout)
	s.ShutdownTimeout = getenvDuration("UCRF_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	m := &cfg.Models
	m.Store = strings.ToLower(getenv("UCRF_MODEL_STORE", m.Store))
	m.Dir = getenv("UCRF_MODEL_DIR", m.Dir)
	m.RuntimeLibrary = getenv("UCRF_ONNX_LIB", m.RuntimeLibrary)
	m.ClassifierName = getenv("UCRF_CLASSIFIER_NAME", m.ClassifierName)
	m.RegressorName = getenv("UCRF_REGRESSOR_NAME", m.RegressorName)
	m.S3Bucket = getenv("UCRF_S3_BUCKET", m.S3Bucket)
	m.S3Prefix = getenv("UCRF_S3_PREFIX", m.S3Prefix)
	m.S3Region = getenv("UCRF_S3_REGION", m.S3Region)
	m.AWSProfile = getenv("UCRF_AWS_PROFILE", m.AWSProfile)

	d := &cfg.Database
	d.URL = getenv("UCRF_DATABASE_URL", d.URL)
	d.MaxConns = getenvInt("UCRF_DB_MAX_CONNS", d.MaxConns)
	d.MinConns = getenvInt("UCRF_DB_MIN_CONNS", d.MinConns)
	d.MaxConnLifetime = getenvDuration("UCRF_DB_CONN_LIFETIME", d.MaxConnLifetime)
	d.MaxConnIdleTime = getenvDuration("UCRF_DB_CONN_IDLE_TIME", d.MaxConnIdleTime)
	d.DialTimeout = getenvDuration("UCRF_DB_DIAL_TIMEOUT", d.DialTimeout)

	cfg.Cache.RedisURL = getenv("UCRF_REDIS_URL", cfg.Cache.RedisURL)
	cfg.Cache.TTL = getenvDuration("UCRF_CACHE_TTL", cfg.Cache.TTL)
	cfg.Catalog.Path = getenv("UCRF_CATALOG_PATH", cfg.Catalog.Path)

	in := &cfg.Ingest
	in.Sources = getenvList("UCRF_SOURCES", in.Sources)
	in.OutputCSV = getenv("UCRF_OUTPUT_CSV", in.OutputCSV)
	in.OutputXLSX = getenv("UCRF_OUTPUT_XLSX", in.OutputXLSX)
	in.NHTSAEndpoint = getenv("UCRF_NHTSA_ENDPOINT", in.NHTSAEndpoint)

	cfg.Log.Level = getenv("UCRF_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(getenv("UCRF_LOG_FORMAT", cfg.Log.Format))
	cfg.ReferenceYear = getenvInt("UCRF_REFERENCE_YEAR", cfg.ReferenceYear)

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	switch c.Models.Store {
	case "dir":
		if c.Models.Dir == "" {
			errs = append(errs, errors.New("model dir is required when model store is dir"))
		}
	case "s3":
		if c.Models.S3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is required when model store is s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model store %q (want dir or s3)", c.Models.Store))
	}
	if c.Models.ClassifierName == "" || c.Models.RegressorName == "" {
		errs = append(errs, errors.New("classifier and regressor names are required"))
	}
	if c.ReferenceYear < 1900 {
		errs = append(errs, fmt.Errorf("reference year %d is out of range", c.ReferenceYear))
	}
	if c.Database.MinConns > c.Database.MaxConns && c.Database.MaxConns > 0 {
		errs = append(errs, fmt.Errorf("db min conns %d exceeds max conns %d", c.Database.MinConns, c.Database.MaxConns))
	}
	if c.Cache.RedisURL != "" && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache ttl must be positive when redis is configured"))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getenvList splits a comma-separated variable, dropping blank items.
func getenvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
