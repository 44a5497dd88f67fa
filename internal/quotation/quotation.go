package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ecobalance/impact-balance/internal/models"
)

// DefaultCacheTTL is the fixed time-to-live for a cached quotation value.
const DefaultCacheTTL = 5 * time.Minute

// Source is the storage contract the service reads quotations from.
// A nil quotation (with nil error) means the feed has never written one.
type Source interface {
	Latest(ctx context.Context) (*models.Quotation, error)
}

// Listener receives quotation updates pushed after a refresh. Consumers
// must treat the value as eventually consistent: an update may arrive at
// any time and does not invalidate calculations already in flight.
type Listener func(q *models.Quotation)

// Service serves the live UCS quotation with a TTL cache. A stale value
// may be served without contacting the store; ForceRefresh bypasses and
// clears the cache.
type Service struct {
	source Source
	ttl    time.Duration

	mu        sync.Mutex
	cached    *models.Quotation
	expiresAt time.Time

	subMu     sync.Mutex
	nextSubID int
	listeners map[int]Listener
}

// NewService creates a quotation service. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewService(source Source, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		source:    source,
		ttl:       ttl,
		listeners: map[int]Listener{},
	}
}

// Current returns the live quotation, from cache when fresh. A nil
// quotation with nil error means none is available.
func (s *Service) Current(ctx context.Context) (*models.Quotation, error) {
	s.mu.Lock()
	if s.cached != nil && time.Now().Before(s.expiresAt) {
		q := s.cached
		s.mu.Unlock()
		return q, nil
	}
	s.mu.Unlock()

	return s.refresh(ctx)
}

// ForceRefresh clears the cache and fetches the quotation from the store.
func (s *Service) ForceRefresh(ctx context.Context) (*models.Quotation, error) {
	s.mu.Lock()
	s.cached = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	return s.refresh(ctx)
}

// Subscribe registers a listener for quotation updates and returns an
// unsubscribe function.
func (s *Service) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.listeners, id)
		s.subMu.Unlock()
	}
}

func (s *Service) refresh(ctx context.Context) (*models.Quotation, error) {
	q, err := s.source.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch quotation: %w", err)
	}
	if q == nil {
		slog.Debug("no quotation available from feed")
		return nil, nil
	}

	s.mu.Lock()
	s.cached = q
	s.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()

	s.notify(q)
	return q, nil
}

func (s *Service) notify(q *models.Quotation) {
	s.subMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(q)
	}
}
