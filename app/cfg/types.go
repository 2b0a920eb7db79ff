package cfg

import "time"

type Cfg struct {
	Mode string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Queue configuration
	QueueDriver   string
	QueueName     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Ingestion configuration
	WorkerConcurrency int
	FetchTimeout      time.Duration
	JobTimeout        time.Duration
	ReconcileInterval time.Duration
	SourcesDir        string

	// HTTP configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

const (
	ModeAll       = "all"
	ModeWorker    = "worker"
	ModeScheduler = "scheduler"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// RunsWorker reports whether the process consumes fetch jobs.
func (c *Cfg) RunsWorker() bool {
	return c.Mode == ModeAll || c.Mode == ModeWorker
}

// RunsScheduler reports whether the process owns the repeating job set.
func (c *Cfg) RunsScheduler() bool {
	return c.Mode == ModeAll || c.Mode == ModeScheduler
}
