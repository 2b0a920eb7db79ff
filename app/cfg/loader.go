package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	Mode string `long:"mode" env:"MODE" default:"all" choice:"all" choice:"worker" choice:"scheduler" description:"Which pipeline roles this process runs"`

	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"postgres" choice:"postgres" choice:"sqlite" description:"Database driver"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"Database host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"5432" description:"Database port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"cti" description:"Database user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" default:"cti_secret" description:"Database password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"cti_portal" description:"Database name"`
	DBSSLMode  string `long:"db-sslmode" env:"DB_SSLMODE" default:"disable" description:"Postgres sslmode"`
	SQLitePath string `long:"sqlite-path" env:"SQLITE_PATH" default:"./cti.db" description:"SQLite database file (db-driver=sqlite)"`

	// Queue configuration
	QueueDriver   string `long:"queue-driver" env:"QUEUE_DRIVER" default:"memory" choice:"memory" choice:"redis" description:"Job queue backend"`
	QueueName     string `long:"queue-name" env:"QUEUE_NAME" default:"ingest" description:"Job queue name"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database index"`

	// Ingestion configuration
	WorkerConcurrency int `long:"worker-concurrency" env:"WORKER_CONCURRENCY" default:"3" description:"Number of fetch jobs processed in parallel"`
	FetchTimeout      int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Upstream fetch timeout in seconds"`
	JobTimeout        int `long:"job-timeout" env:"JOB_TIMEOUT" default:"300" description:"Whole job timeout in seconds"`
	ReconcileInterval int `long:"reconcile-interval" env:"RECONCILE_INTERVAL" default:"0" description:"Periodic schedule reconciliation in seconds (0 disables)"`

	// Seed configuration
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory with *.yml source definitions (seed tool)"`

	// HTTP configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"CTI Comb/1.0 (Threat Intelligence Aggregator)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses flags and environment into the global configuration.
// The dotenv file named by ENV_FILE (default .env) is applied first and never
// overrides variables already present in the environment.
// A nil config with nil error means help was printed.
func Load() (*Cfg, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Cfg, error) {
	if err := loadEnvFile(cmp.Or(os.Getenv("ENV_FILE"), ".env")); err != nil {
		return nil, err
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		Mode:              raw.Mode,
		DBDriver:          raw.DBDriver,
		DBHost:            raw.DBHost,
		DBPort:            raw.DBPort,
		DBUser:            raw.DBUser,
		DBPassword:        raw.DBPassword,
		DBName:            raw.DBName,
		DBSSLMode:         raw.DBSSLMode,
		SQLitePath:        raw.SQLitePath,
		QueueDriver:       raw.QueueDriver,
		QueueName:         raw.QueueName,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		RedisDB:           raw.RedisDB,
		WorkerConcurrency: raw.WorkerConcurrency,
		FetchTimeout:      time.Duration(raw.FetchTimeout) * time.Second,
		JobTimeout:        time.Duration(raw.JobTimeout) * time.Second,
		ReconcileInterval: time.Duration(raw.ReconcileInterval) * time.Second,
		SourcesDir:        raw.SourcesDir,
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}
}

func (c *Cfg) validate() error {
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("worker-concurrency must be at least 1, got %d", c.WorkerConcurrency)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive")
	}
	if c.JobTimeout < c.FetchTimeout {
		return fmt.Errorf("job-timeout (%s) must not be shorter than fetch-timeout (%s)", c.JobTimeout, c.FetchTimeout)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("reconcile-interval must not be negative")
	}
	// Split roles only share state through an external queue.
	if c.Mode != ModeAll && c.QueueDriver != QueueRedis {
		return fmt.Errorf("mode %q requires queue-driver=redis", c.Mode)
	}
	return nil
}

// PostgresDSN builds a pgx connection string from the database options.
func (c *Cfg) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
