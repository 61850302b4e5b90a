package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytpod/internal/shared"
)

// FetchFunc loads the value for a key.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	value     any
	has       bool
	stale     bool
	fetchedAt time.Time
	gen       uint64
	cancel    context.CancelCauseFunc
}

type subscription struct {
	key Key
	ch  chan struct{}
}

// Store is a concurrency-safe cache of backend resources.
type Store struct {
	mu      sync.Mutex
	entries map[Key]*entry
	subs    map[int]subscription
	nextSub int
	logger  *log.Logger
}

// NewStore creates an empty store. A nil logger discards output.
func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Store{
		entries: make(map[Key]*entry),
		subs:    make(map[int]subscription),
		logger:  logger,
	}
}

func (s *Store) entry(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Get returns the cached value for key, fetching it when absent or stale.
func (s *Store) Get(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.has && !e.stale {
		v := e.value
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	return s.Refetch(ctx, key, fetch)
}

// Refetch always calls fetch. An in-flight fetch of the same key is cancelled with
// [shared.ErrAutocancelled] and its result discarded.
func (s *Store) Refetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	fctx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	e := s.entry(key)
	if e.cancel != nil {
		s.logger.Debug("superseding in-flight fetch", "key", key)
		e.cancel(shared.ErrAutocancelled)
	}
	e.gen++
	gen := e.gen
	e.cancel = cancel
	s.mu.Unlock()

	v, err := fetch(fctx)
	cause := context.Cause(fctx)

	s.mu.Lock()
	current := e.gen == gen
	if current {
		e.cancel = nil
		if err == nil {
			e.value, e.has, e.stale = v, true, false
			e.fetchedAt = time.Now()
		}
	}
	s.mu.Unlock()
	cancel(nil)

	if err != nil {
		if errors.Is(cause, shared.ErrAutocancelled) && !errors.Is(err, shared.ErrAutocancelled) {
			err = fmt.Errorf("%w: %w", shared.ErrAutocancelled, err)
		}
		return nil, err
	}
	if !current {
		return nil, fmt.Errorf("%w: %s", shared.ErrAutocancelled, key)
	}
	return v, nil
}

// Peek returns the cached value without fetching. Stale values are returned.
func (s *Store) Peek(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && e.has {
		return e.value, true
	}
	return nil, false
}

// FetchedAt returns when key was last fetched successfully.
func (s *Store) FetchedAt(key Key) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.fetchedAt
	}
	return time.Time{}
}

// Invalidate marks every entry matched by the patterns stale and signals their subscribers.
func (s *Store) Invalidate(patterns ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range patterns {
		for k, e := range s.entries {
			if p.Matches(k) {
				e.stale = true
			}
		}
		for _, sub := range s.subs {
			if p.Matches(sub.key) || sub.key.Matches(p) {
				select {
				case sub.ch <- struct{}{}:
				default:
				}
			}
		}
		s.logger.Debug("invalidated", "key", p)
	}
}

// Clear drops every cached value, as when the signed-in user changes.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.cancel != nil {
			e.cancel(shared.ErrAutocancelled)
			e.cancel = nil
		}
		e.gen++
		e.value = nil
		e.has = false
		e.stale = true
	}
	s.logger.Debug("cleared", "entries", len(s.entries))
}

// Subscribe returns a channel that receives after each invalidation touching key, and a function
// that ends the subscription. Signals coalesce while unread.
func (s *Store) Subscribe(key Key) (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = subscription{key: key, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Fetch is [Store.Get] for a typed value.
func Fetch[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := s.Get(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Refresh is [Store.Refetch] for a typed value.
func Refresh[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	v, err := s.Refetch(ctx, key, func(ctx context.Context) (any, error) { return fn(ctx) })
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}
