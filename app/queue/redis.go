package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Queue = (*RedisQueue)(nil)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Name     string
}

// RedisQueue shares jobs and repeat entries between processes. Waiting jobs
// live in a list, repeat entries in a hash, and fire times in a sorted set.
type RedisQueue struct {
	client    *redis.Client
	waitKey   string
	repeatKey string
	nextKey   string
}

func NewRedisQueue(ctx context.Context, opts RedisOptions) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", opts.Addr, "queue", opts.Name)

	return NewRedisQueueWithClient(client, opts.Name), nil
}

func NewRedisQueueWithClient(client *redis.Client, name string) *RedisQueue {
	prefix := "cti:" + name + ":"
	return &RedisQueue{
		client:    client,
		waitKey:   prefix + "wait",
		repeatKey: prefix + "repeat",
		nextKey:   prefix + "repeat:next",
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	if err := q.client.LPush(ctx, q.waitKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, wait, q.waitKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) AddRepeatable(ctx context.Context, entry RepeatEntry) error {
	entry, err := prepareEntry(entry, time.Now())
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal repeat entry %s: %w", entry.Key, err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.repeatKey, entry.Key, data)
		pipe.ZAdd(ctx, q.nextKey, redis.Z{Score: score(entry.Next), Member: entry.Key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add repeat entry %s: %w", entry.Key, err)
	}
	return nil
}

func (q *RedisQueue) RepeatableJobs(ctx context.Context) ([]RepeatEntry, error) {
	all, err := q.client.HGetAll(ctx, q.repeatKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list repeat entries: %w", err)
	}

	entries := make([]RepeatEntry, 0, len(all))
	for key, raw := range all {
		var e RepeatEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to decode repeat entry %s: %w", key, err)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (q *RedisQueue) RemoveRepeatable(ctx context.Context, key string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, q.repeatKey, key)
		pipe.ZRem(ctx, q.nextKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove repeat entry %s: %w", key, err)
	}
	return nil
}

// PromoteDue claims each due key with ZREM so that only one process fires it
// when several promoters share the queue.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.nextKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due entries: %w", err)
	}

	promoted := 0
	var firstErr error
	for _, key := range due {
		claimed, err := q.client.ZRem(ctx, q.nextKey, key).Result()
		if err != nil {
			firstErr = firstError(firstErr, fmt.Errorf("failed to claim %s: %w", key, err))
			continue
		}
		if claimed == 0 {
			continue
		}

		raw, err := q.client.HGet(ctx, q.repeatKey, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			firstErr = firstError(firstErr, fmt.Errorf("failed to load %s: %w", key, err))
			continue
		}

		var entry RepeatEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			firstErr = firstError(firstErr, fmt.Errorf("failed to decode %s: %w", key, err))
			continue
		}

		next, err := nextRun(entry.Pattern, now)
		if err != nil {
			firstErr = firstError(firstErr, err)
			continue
		}
		entry.Next = next
		if err := q.rearm(ctx, raw, entry); err != nil {
			firstErr = firstError(firstErr, err)
		}

		if err := q.Enqueue(ctx, entry.job()); err != nil {
			firstErr = firstError(firstErr, err)
			continue
		}
		promoted++
	}
	return promoted, firstErr
}

// Re-arms only if the entry was not replaced or removed since it was read.
var rearmScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) ~= ARGV[2] then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[3])
redis.call("ZADD", KEYS[2], ARGV[4], ARGV[1])
return 1
`)

func (q *RedisQueue) rearm(ctx context.Context, previous string, entry RepeatEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal repeat entry %s: %w", entry.Key, err)
	}
	keys := []string{q.repeatKey, q.nextKey}
	if err := rearmScript.Run(ctx, q.client, keys, entry.Key, previous, data, entry.Next.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("failed to re-arm %s: %w", entry.Key, err)
	}
	return nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Len is the number of jobs waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.waitKey).Result()
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
