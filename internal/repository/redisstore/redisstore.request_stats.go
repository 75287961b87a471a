// FilePath: internal/repository/redisstore/redisstore.request_stats.go
package redisstore

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/ChilliBits/particulate-matter-api/internal/errors"
	"github.com/ChilliBits/particulate-matter-api/internal/models"
	"github.com/ChilliBits/particulate-matter-api/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix      = "pmapi:requests:"
	keyTotal       = keyPrefix + "total"
	dayKeyLayout   = "2006-01-02"
	dayKeyLifetime = 72 * time.Hour
)

var _ repository.RequestStatsRepository = (*RequestStatsRepo)(nil)

type RequestStatsRepo struct {
	client *redis.Client
}

func NewRequestStatsRepository(client *redis.Client) *RequestStatsRepo {
	return &RequestStatsRepo{client: client}
}

// DayKey returns the counter key of the UTC day containing at.
func DayKey(at time.Time) string {
	return keyPrefix + at.UTC().Format(dayKeyLayout)
}

func (r *RequestStatsRepo) Increment(ctx context.Context, at time.Time) error {
	day := DayKey(at)

	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, keyTotal)
	pipe.Incr(ctx, day)
	pipe.Expire(ctx, day, dayKeyLifetime)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.NewDataAccessError("failed to count request", err)
	}
	return nil
}

func (r *RequestStatsRepo) Counts(ctx context.Context, at time.Time) (models.RequestCounts, error) {
	values, err := r.client.MGet(ctx, keyTotal, DayKey(at), DayKey(at.AddDate(0, 0, -1))).Result()
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return models.RequestCounts{}, errors.NewDataAccessError("failed to read request counters", err)
	}

	counts := make([]int64, 3)
	for i, v := range values {
		if i >= len(counts) {
			break
		}
		counts[i] = parseCounter(v)
	}
	return models.RequestCounts{Total: counts[0], Today: counts[1], Yesterday: counts[2]}, nil
}

func parseCounter(v any) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
