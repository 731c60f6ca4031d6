package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Marti-code/pizzeria-operating-systems/seating/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas nas chaves de série temporal.
	// total, size e class são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackSizes bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSizes(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackSizes = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:        rdb,
		prefix:     "pizzeria:stats",
		ttl:        24 * time.Hour,
		bucket:     "minute",
		trackSizes: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.SeatingEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := string(ev.Kind)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)
	if ev.Waited > 0 {
		pipe.HIncrBy(ctx, s.prefix+":total", "waited_ms", ev.Waited.Milliseconds())
	}

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if ev.Kind == domain.EventSeated {
		pipe.HIncrBy(ctx, s.prefix+":class", ev.Class.String(), 1)
	}

	if s.trackSizes && ev.GroupSize > 0 {
		pipe.HIncrBy(ctx, s.prefix+":size", strconv.Itoa(ev.GroupSize)+":"+field, 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}
