// Package config loads tablewipe settings. Sources are layered, later ones
// winning: built-in defaults, an optional YAML file, a .env file, then
// TABLEWIPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/errs"
	"github.com/koustreak/tablewipe/internal/filestore"
	"github.com/koustreak/tablewipe/internal/logger"
	"go.yaml.in/yaml/v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TABLEWIPE_"

// Config holds every setting of the CLI and the reset server.
type Config struct {
	Driver  string        `yaml:"driver" env:"DRIVER"`
	DSN     string        `yaml:"dsn" env:"DSN"`
	Verbose bool          `yaml:"verbose" env:"VERBOSE"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Report  ReportConfig  `yaml:"report" envPrefix:"REPORT_"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the metrics after a one-shot run.
	Textfile string `yaml:"textfile" env:"TEXTFILE"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// ReportConfig points at the object store that archives run reports.
// Archiving is off while Endpoint or Bucket is empty.
type ReportConfig struct {
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
	Region    string `yaml:"region" env:"REGION"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Driver:  string(database.DriverPostgres),
		Timeout: 5 * time.Minute,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty), the first existing file among envFiles (".env"
// when none are given) and the process environment.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("parse %s", path), err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("load %s", f), err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse environment", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errs.New(errs.ErrKindInvalidInput, "dsn is required (set "+EnvPrefix+"DSN)")
	}
	if _, err := database.ParseDriver(c.Driver); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return errs.New(errs.ErrKindInvalidInput, "timeout must not be negative")
	}
	if c.Report.Bucket != "" && c.Report.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "report.bucket needs report.endpoint")
	}
	return nil
}

// Database returns the connection settings for the configured driver.
func (c *Config) Database() (*database.Config, error) {
	driver, err := database.ParseDriver(c.Driver)
	if err != nil {
		return nil, err
	}
	dbCfg := database.DefaultConfig(c.DSN)
	dbCfg.Driver = driver
	dbCfg.QueryTimeout = c.Timeout
	return dbCfg, nil
}

// Logger returns the logger settings, writing to stderr.
func (c *Config) Logger() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Format = c.Log.Format
	return lc
}

// Filestore returns the report archive settings.
func (c *Config) Filestore() *filestore.Config {
	return &filestore.Config{
		Endpoint:  c.Report.Endpoint,
		AccessKey: c.Report.AccessKey,
		SecretKey: c.Report.SecretKey,
		UseSSL:    c.Report.UseSSL,
		Region:    c.Report.Region,
		Bucket:    c.Report.Bucket,
		Prefix:    c.Report.Prefix,
	}
}
