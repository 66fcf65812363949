// Package config provides configuration loading and management for the addon service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// StorageTypeMemory keeps all platform data in process memory
	StorageTypeMemory = "memory"

	// StorageTypeDatabase stores platform data in PostgreSQL
	StorageTypeDatabase = "database"
)

const (
	// BrokerInMemory runs queued jobs in process
	BrokerInMemory = "inmemory"

	// BrokerRedis pushes queued jobs to Redis lists
	BrokerRedis = "redis"
)

// EnvPrefix is the prefix of environment variables read by the CLI
const EnvPrefix = "WEBLATE_OMP"

// CIUsernameEnv overrides SyncConfig.CIUsername.
const CIUsernameEnv = "WEBLATE_CI_USERNAME"

// Defaults applied by LoadConfig when a value is not set
const (
	DefaultCIUsername          = "weblate-ci"
	DefaultStatePath           = "./data/addons-state.json"
	DefaultVCSRoot             = "./data/vcs"
	DefaultRemote              = "origin"
	DefaultMemoryPath          = "./data/memory.bleve"
	DefaultRetryMaxTries       = 5
	DefaultRetryInitial        = "1s"
	DefaultRetryMax            = "30s"
	DefaultWorkers             = 4
	DefaultDailyInterval       = "24h"
	DefaultRedisURL            = "redis://localhost:6379/0"
	DefaultTelemetryService    = "weblate-omp"
	DefaultTelemetryEndpoint   = "localhost:4318"
	DefaultTelemetryInterval   = "60s"
	defaultDatabaseSSLMode     = "require"
	defaultDatabasePasswordEnv = "WEBLATE_OMP_DATABASE_PASSWORD"
)

// DefaultQueues are consumed when queue.queues is empty
var DefaultQueues = []string{"translate", "memory", "addons", "celery"}

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// EvalSymlinks also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Sync           SyncConfig           `yaml:"sync"`
	Storage        StorageConfig        `yaml:"storage"`
	Database       *DatabaseConfig      `yaml:"database,omitempty"`
	VCS            VCSConfig            `yaml:"vcs"`
	Memory         MemoryConfig         `yaml:"memory"`
	Queue          QueueConfig          `yaml:"queue"`
	Daily          DailyConfig          `yaml:"daily"`
	CommitMessages CommitMessagesConfig `yaml:"commitMessages"`
	Telemetry      *TelemetryConfig     `yaml:"telemetry,omitempty"`
}

// SyncConfig configures the translation synchronization addon
type SyncConfig struct {
	// CIUsername is the service account used for removals, memory imports
	// and automatic translation. WEBLATE_CI_USERNAME takes precedence.
	CIUsername string `yaml:"ciUsername,omitempty"`

	// StatePath is the file recording components where the addon already ran
	// its first pass. Empty keeps the record in memory.
	StatePath string `yaml:"statePath,omitempty"`
}

// GetCIUsername returns the service account name, preferring the environment
func (s *SyncConfig) GetCIUsername() string {
	if v := strings.TrimSpace(os.Getenv(CIUsernameEnv)); v != "" {
		return v
	}
	return s.CIUsername
}

// StorageConfig selects the platform data backend
type StorageConfig struct {
	Type string `yaml:"type"`
}

// VCSConfig configures where component repositories are checked out
type VCSConfig struct {
	Root   string `yaml:"root"`
	Remote string `yaml:"remote,omitempty"`
}

// MemoryConfig configures the translation memory index
type MemoryConfig struct {
	Path  string      `yaml:"path"`
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig bounds retries of index writes that hit the index lock
type RetryConfig struct {
	MaxTries        uint   `yaml:"maxTries"`
	InitialInterval string `yaml:"initialInterval"`
	MaxInterval     string `yaml:"maxInterval"`
}

// GetInitialInterval parses InitialInterval
func (r *RetryConfig) GetInitialInterval() time.Duration {
	d, _ := time.ParseDuration(r.InitialInterval)
	return d
}

// GetMaxInterval parses MaxInterval
func (r *RetryConfig) GetMaxInterval() time.Duration {
	d, _ := time.ParseDuration(r.MaxInterval)
	return d
}

// QueueConfig configures the background job queue
type QueueConfig struct {
	Broker  string            `yaml:"broker"`
	Redis   RedisConfig       `yaml:"redis"`
	Queues  []string          `yaml:"queues,omitempty"`
	Workers int               `yaml:"workers"`
	Routes  map[string]string `yaml:"routes,omitempty"`
}

// RedisConfig locates the Redis broker
type RedisConfig struct {
	URL string `yaml:"url,omitempty"`
}

// GetURL returns the broker URL. REDIS_HOST, REDIS_PORT and REDIS_DB
// override the configured URL when REDIS_HOST is set.
func (r *RedisConfig) GetURL() string {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return r.URL
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := os.Getenv("REDIS_DB")
	if db == "" {
		db = "0"
	}
	return fmt.Sprintf("redis://%s:%s/%s", host, port, db)
}

// DailyConfig configures the daily addon tick
type DailyConfig struct {
	Interval string `yaml:"interval"`
}

// GetInterval parses Interval
func (d *DailyConfig) GetInterval() time.Duration {
	v, _ := time.ParseDuration(d.Interval)
	return v
}

// CommitMessagesConfig holds text/template sources used for change details
type CommitMessagesConfig struct {
	Add    string `yaml:"add,omitempty"`
	Delete string `yaml:"delete,omitempty"`
}

// TelemetryConfig configures OpenTelemetry metrics export
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`

	// Interval is the export period, such as "60s"
	Interval string `yaml:"interval,omitempty"`

	// Attributes are added to the exported resource, e.g. deployment.environment
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// GetInterval parses Interval
func (t *TelemetryConfig) GetInterval() time.Duration {
	d, _ := time.ParseDuration(t.Interval)
	return d
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// PasswordFile contains only the password, with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	Database string `yaml:"database"`

	// SSLMode is one of disable, require, verify-ca, verify-full
	SSLMode string `yaml:"sslMode,omitempty"`

	MaxConns int32 `yaml:"maxConns,omitempty"`

	// ConnMaxLifetime is a duration such as "1h" or "30m"
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from WEBLATE_OMP_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(defaultDatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", defaultDatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL URL with the password escaped
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = defaultDatabaseSSLMode
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, password),
		Host:     d.Host + ":" + strconv.Itoa(d.Port),
		Path:     "/" + d.Database,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String(), nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Sync.CIUsername == "" {
		c.Sync.CIUsername = DefaultCIUsername
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageTypeMemory
	}
	if c.VCS.Root == "" {
		c.VCS.Root = DefaultVCSRoot
	}
	if c.VCS.Remote == "" {
		c.VCS.Remote = DefaultRemote
	}
	if c.Memory.Path == "" {
		c.Memory.Path = DefaultMemoryPath
	}
	if c.Memory.Retry.MaxTries == 0 {
		c.Memory.Retry.MaxTries = DefaultRetryMaxTries
	}
	if c.Memory.Retry.InitialInterval == "" {
		c.Memory.Retry.InitialInterval = DefaultRetryInitial
	}
	if c.Memory.Retry.MaxInterval == "" {
		c.Memory.Retry.MaxInterval = DefaultRetryMax
	}
	if c.Queue.Broker == "" {
		c.Queue.Broker = BrokerInMemory
	}
	if c.Queue.Redis.URL == "" {
		c.Queue.Redis.URL = DefaultRedisURL
	}
	if len(c.Queue.Queues) == 0 {
		c.Queue.Queues = slices.Clone(DefaultQueues)
	}
	if c.Queue.Workers == 0 {
		c.Queue.Workers = DefaultWorkers
	}
	if c.Daily.Interval == "" {
		c.Daily.Interval = DefaultDailyInterval
	}
	if c.Telemetry != nil {
		if c.Telemetry.ServiceName == "" {
			c.Telemetry.ServiceName = DefaultTelemetryService
		}
		if c.Telemetry.Endpoint == "" {
			c.Telemetry.Endpoint = DefaultTelemetryEndpoint
		}
		if c.Telemetry.Interval == "" {
			c.Telemetry.Interval = DefaultTelemetryInterval
		}
	}
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if strings.TrimSpace(c.Sync.CIUsername) == "" {
		return fmt.Errorf("sync: ciUsername is required")
	}

	if err := validateStorage(c.Storage, c.Database); err != nil {
		return err
	}
	if err := validateRetry(&c.Memory.Retry, "memory.retry"); err != nil {
		return err
	}
	if err := validateQueue(&c.Queue, "queue"); err != nil {
		return err
	}

	if d, err := time.ParseDuration(c.Daily.Interval); err != nil || d <= 0 {
		return fmt.Errorf("daily: interval must be a positive duration (e.g., '24h'), got %q", c.Daily.Interval)
	}
	if c.Telemetry != nil {
		if d, err := time.ParseDuration(c.Telemetry.Interval); err != nil || d <= 0 {
			return fmt.Errorf("telemetry: interval must be a positive duration, got %q", c.Telemetry.Interval)
		}
	}

	return nil
}

func validateStorage(s StorageConfig, db *DatabaseConfig) error {
	switch s.Type {
	case StorageTypeMemory:
		return nil
	case StorageTypeDatabase:
		if db == nil {
			return fmt.Errorf("storage: database configuration is required when type is %s", StorageTypeDatabase)
		}
		return validateDatabase(db, "database")
	default:
		return fmt.Errorf("storage: type must be %s or %s, got %q", StorageTypeMemory, StorageTypeDatabase, s.Type)
	}
}

func validateDatabase(db *DatabaseConfig, prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s: host is required", prefix)
	}
	if db.Port == 0 {
		return fmt.Errorf("%s: port is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s: user is required", prefix)
	}
	if db.Database == "" {
		return fmt.Errorf("%s: database is required", prefix)
	}
	if db.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(db.ConnMaxLifetime); err != nil {
			return fmt.Errorf("%s: connMaxLifetime must be a valid duration: %w", prefix, err)
		}
	}
	return nil
}

func validateRetry(r *RetryConfig, prefix string) error {
	initial, err := time.ParseDuration(r.InitialInterval)
	if err != nil || initial <= 0 {
		return fmt.Errorf("%s: initialInterval must be a positive duration, got %q", prefix, r.InitialInterval)
	}
	maxInterval, err := time.ParseDuration(r.MaxInterval)
	if err != nil || maxInterval < initial {
		return fmt.Errorf("%s: maxInterval must be a duration not below initialInterval, got %q", prefix, r.MaxInterval)
	}
	return nil
}

func validateQueue(q *QueueConfig, prefix string) error {
	switch q.Broker {
	case BrokerInMemory:
	case BrokerRedis:
		if _, err := url.Parse(q.Redis.GetURL()); err != nil {
			return fmt.Errorf("%s: redis.url is invalid: %w", prefix, err)
		}
	default:
		return fmt.Errorf("%s: broker must be %s or %s, got %q", prefix, BrokerInMemory, BrokerRedis, q.Broker)
	}
	if q.Workers < 0 {
		return fmt.Errorf("%s: workers cannot be negative", prefix)
	}
	for task, queue := range q.Routes {
		if queue == "" {
			return fmt.Errorf("%s: route for %s has an empty queue", prefix, task)
		}
	}
	return nil
}
