package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/consult-assist-server/internal/domain"
)

// CachedDirectory fronts a patient directory with an in-memory LRU cache and a circuit breaker.
// While the breaker is open, cached profiles are still served, including expired ones.
type CachedDirectory struct {
	backend domain.PatientDirectory
	cache   *lru.Cache
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
	logger  *logrus.Logger

	stats   CacheStats
	statsMu sync.Mutex
}

// CacheStats represents cache performance statistics
type CacheStats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServed int64 `json:"stale_served"`
	Errors      int64 `json:"errors"`
}

type cacheEntry struct {
	profile  *domain.PatientProfile
	cachedAt time.Time
}

// CachedDirectoryConfig configures the cache in front of a directory.
type CachedDirectoryConfig struct {
	Size int
	TTL  time.Duration
}

// NewCachedDirectory creates a new cached directory
func NewCachedDirectory(backend domain.PatientDirectory, config CachedDirectoryConfig, logger *logrus.Logger) (*CachedDirectory, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend directory is required")
	}
	if config.Size == 0 {
		config.Size = 256
	}
	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}

	cache, err := lru.New(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "PatientDirectory",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrPatientNotFound)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &CachedDirectory{
		backend: backend,
		cache:   cache,
		breaker: breaker,
		ttl:     config.TTL,
		logger:  logger,
	}, nil
}

// GetPatient returns the cached profile when fresh, otherwise asks the backend.
func (d *CachedDirectory) GetPatient(ctx context.Context, id string) (*domain.PatientProfile, error) {
	entry, cached := d.lookup(id)
	if cached && time.Since(entry.cachedAt) < d.ttl {
		d.count(func(s *CacheStats) { s.Hits++ })
		return entry.profile, nil
	}
	d.count(func(s *CacheStats) { s.Misses++ })

	result, err := d.breaker.Execute(func() (interface{}, error) {
		return d.backend.GetPatient(ctx, id)
	})
	if err != nil {
		if cached && !errors.Is(err, domain.ErrPatientNotFound) {
			d.count(func(s *CacheStats) { s.StaleServed++ })
			d.logger.WithError(err).WithField("patient_id", id).Warn("Serving cached patient profile, directory unavailable")
			return entry.profile, nil
		}
		if errors.Is(err, domain.ErrPatientNotFound) {
			d.cache.Remove(id)
			return nil, err
		}
		d.count(func(s *CacheStats) { s.Errors++ })
		if err == gobreaker.ErrOpenState {
			return nil, fmt.Errorf("patient directory unavailable: %w", err)
		}
		return nil, err
	}

	profile := result.(*domain.PatientProfile)
	d.cache.Add(id, &cacheEntry{profile: profile, cachedAt: time.Now()})
	return profile, nil
}

// ListPatients always asks the backend and refreshes the cache with the result.
func (d *CachedDirectory) ListPatients(ctx context.Context) ([]*domain.PatientProfile, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		return d.backend.ListPatients(ctx)
	})
	if err != nil {
		d.count(func(s *CacheStats) { s.Errors++ })
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	profiles := result.([]*domain.PatientProfile)
	now := time.Now()
	for _, p := range profiles {
		d.cache.Add(p.ID, &cacheEntry{profile: p, cachedAt: now})
	}
	return profiles, nil
}

// ListByCondition asks the backend for the patients diagnosed with a condition.
func (d *CachedDirectory) ListByCondition(ctx context.Context, condition string) ([]*domain.PatientProfile, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		return ListByCondition(ctx, d.backend, condition)
	})
	if err != nil {
		d.count(func(s *CacheStats) { s.Errors++ })
		return nil, fmt.Errorf("failed to list patients with %s: %w", condition, err)
	}
	return result.([]*domain.PatientProfile), nil
}

// Invalidate drops a cached profile.
func (d *CachedDirectory) Invalidate(id string) {
	d.cache.Remove(id)
}

// Stats returns cache performance statistics
func (d *CachedDirectory) Stats() CacheStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	return d.stats
}

// BreakerState returns the current circuit breaker state.
func (d *CachedDirectory) BreakerState() gobreaker.State {
	return d.breaker.State()
}

func (d *CachedDirectory) lookup(id string) (*cacheEntry, bool) {
	value, ok := d.cache.Get(id)
	if !ok {
		return nil, false
	}
	entry, ok := value.(*cacheEntry)
	return entry, ok
}

func (d *CachedDirectory) count(update func(*CacheStats)) {
	d.statsMu.Lock()
	update(&d.stats)
	d.statsMu.Unlock()
}
