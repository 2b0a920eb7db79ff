package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withoutEnvFile(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	withoutEnvFile(t)

	c, err := load(nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, ModeAll, c.Mode)
	assert.Equal(t, DriverPostgres, c.DBDriver)
	assert.Equal(t, QueueMemory, c.QueueDriver)
	assert.Equal(t, "ingest", c.QueueName)
	assert.Equal(t, 3, c.WorkerConcurrency)
	assert.Equal(t, 30*time.Second, c.FetchTimeout)
	assert.Equal(t, 5*time.Minute, c.JobTimeout)
	assert.Zero(t, c.ReconcileInterval)
	assert.Equal(t, "./sources", c.SourcesDir)
	assert.True(t, c.RunsWorker())
	assert.True(t, c.RunsScheduler())
	assert.Same(t, c, Get())
}

func TestLoadFlags(t *testing.T) {
	withoutEnvFile(t)

	c, err := load([]string{
		"--db-driver", "sqlite",
		"--sqlite-path", "/tmp/x.db",
		"--worker-concurrency", "8",
		"--reconcile-interval", "600",
	})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, "/tmp/x.db", c.SQLitePath)
	assert.Equal(t, 8, c.WorkerConcurrency)
	assert.Equal(t, 10*time.Minute, c.ReconcileInterval)
}

func TestLoadRejectsSplitModeWithMemoryQueue(t *testing.T) {
	withoutEnvFile(t)

	_, err := load([]string{"--mode", "worker"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue-driver=redis")

	c, err := load([]string{"--mode", "worker", "--queue-driver", "redis"})
	require.NoError(t, err)
	assert.True(t, c.RunsWorker())
	assert.False(t, c.RunsScheduler())
}

func TestLoadRejectsInvalidConcurrency(t *testing.T) {
	withoutEnvFile(t)

	_, err := load([]string{"--worker-concurrency", "0"})
	assert.Error(t, err)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("WORKER_CONCURRENCY=7\nQUEUE_NAME=alt\n"), 0o600))
	t.Setenv("ENV_FILE", envFile)

	// Register cleanup, then make sure godotenv is the one setting the values.
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("QUEUE_NAME", "")
	require.NoError(t, os.Unsetenv("WORKER_CONCURRENCY"))
	require.NoError(t, os.Unsetenv("QUEUE_NAME"))

	c, err := load(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, c.WorkerConcurrency)
	assert.Equal(t, "alt", c.QueueName)
}

func TestPostgresDSN(t *testing.T) {
	c := &Cfg{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", c.PostgresDSN())
}
