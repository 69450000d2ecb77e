package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/consult-assist-server/internal/domain"
)

const keyPrefix = "consult-assist:summary:"

// RedisArchive keeps summaries in Redis with a TTL, behind a circuit breaker.
type RedisArchive struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	logger  *logrus.Logger
}

// NewRedisArchive connects to Redis from the cache settings.
func NewRedisArchive(ctx context.Context, config domain.CacheConfig, logger *logrus.Logger) (*RedisArchive, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisArchiveWithClient(client, config.SummaryTTL, logger), nil
}

// NewRedisArchiveWithClient wraps an existing client.
func NewRedisArchiveWithClient(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisArchive {
	if ttl <= 0 {
		ttl = time.Hour
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "SummaryArchive",
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &RedisArchive{
		client:  client,
		breaker: breaker,
		ttl:     ttl,
		logger:  logger,
	}
}

func summaryKey(consultationID string) string {
	return keyPrefix + consultationID
}

// Put stores a summary with the archive TTL.
func (a *RedisArchive) Put(ctx context.Context, summary *domain.ConsultationSummary) error {
	if summary == nil || summary.ConsultationID == "" {
		return domain.NewValidationError("consultation_id", "summary must carry a consultation id", nil)
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = a.breaker.Execute(func() (interface{}, error) {
		return nil, a.client.Set(ctx, summaryKey(summary.ConsultationID), data, a.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to archive summary %s: %w", summary.ConsultationID, err)
	}

	a.logger.WithFields(logrus.Fields{
		"consultation_id": summary.ConsultationID,
		"ttl":             a.ttl.String(),
	}).Debug("Archived consultation summary")
	return nil
}

// Get returns an archived summary. Corrupted entries are removed and reported as missing.
func (a *RedisArchive) Get(ctx context.Context, consultationID string) (*domain.ConsultationSummary, error) {
	key := summaryKey(consultationID)

	result, err := a.breaker.Execute(func() (interface{}, error) {
		val, err := a.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, fmt.Errorf("summary %s: %w", consultationID, domain.ErrNotFound)
		}
		return val, err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get summary %s: %w", consultationID, err)
	}

	var summary domain.ConsultationSummary
	if err := json.Unmarshal(result.([]byte), &summary); err != nil {
		a.client.Del(ctx, key)
		a.logger.WithError(err).WithField("consultation_id", consultationID).Warn("Dropped corrupted archived summary")
		return nil, fmt.Errorf("summary %s: %w", consultationID, domain.ErrNotFound)
	}
	return &summary, nil
}

// Health pings Redis.
func (a *RedisArchive) Health(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (a *RedisArchive) Close() error {
	return a.client.Close()
}
