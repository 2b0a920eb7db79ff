package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrEmptyPattern = errors.New("empty cron pattern")

// Five-field patterns, an optional leading seconds field, and @descriptors.
var patternParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func ParsePattern(pattern string) (cron.Schedule, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	schedule, err := patternParser.Parse(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid cron pattern %q: %w", pattern, err)
	}
	return schedule, nil
}

// ValidPattern reports whether pattern can drive a repeatable job.
func ValidPattern(pattern string) bool {
	_, err := ParsePattern(pattern)
	return err == nil
}

func nextRun(pattern string, after time.Time) (time.Time, error) {
	schedule, err := ParsePattern(pattern)
	if err != nil {
		return time.Time{}, err
	}
	next := schedule.Next(after)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron pattern %q never fires", pattern)
	}
	return next.UTC(), nil
}

func prepareEntry(entry RepeatEntry, now time.Time) (RepeatEntry, error) {
	if entry.Key == "" {
		return entry, errors.New("repeatable job needs a key")
	}
	if entry.Name == "" {
		entry.Name = JobFetchSource
	}
	if entry.Next.IsZero() {
		next, err := nextRun(entry.Pattern, now)
		if err != nil {
			return entry, err
		}
		entry.Next = next
	} else if _, err := ParsePattern(entry.Pattern); err != nil {
		return entry, err
	}
	return entry, nil
}
