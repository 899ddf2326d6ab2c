package captcha

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ChallengeStore tracks issued challenges until they are used or expire.
type ChallengeStore interface {
	Put(ctx context.Context, id string, expiresAt time.Time) error
	// Consume removes id and reports whether it was known and not expired
	// at now. It must be atomic with respect to concurrent callers.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// MemoryStore is a process-local ChallengeStore.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]time.Time)}
}

func (s *MemoryStore) Put(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[id] = expiresAt
	return nil
}

func (s *MemoryStore) Consume(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.challenges[id]
	if !ok {
		return false, nil
	}
	delete(s.challenges, id)
	return now.Before(expiresAt), nil
}

func (s *MemoryStore) Purge(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, expiresAt := range s.challenges {
		if !now.Before(expiresAt) {
			delete(s.challenges, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// Janitor purges expired challenges from a store on a fixed interval.
type Janitor struct {
	store    ChallengeStore
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewJanitor(store ChallengeStore, interval time.Duration, logger zerolog.Logger) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger.With().Str("component", "captcha_janitor").Logger(),
		now:      time.Now,
	}
}

// Start runs until ctx is done. Purge failures are logged and retried on
// the next tick.
func (j *Janitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := j.store.Purge(ctx, j.now())
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				j.logger.Warn().Err(err).Msg("purge expired captcha challenges")
				continue
			}
			if n > 0 {
				j.logger.Debug().Int64("purged", n).Msg("expired captcha challenges removed")
			}
		}
	}
}
