// Package store implements the reducer-managed state container at the
// heart of the bridge. A store owns a canonical state snapshot and evolves
// it exclusively through a producer function; subscribers observe each
// committed snapshot in order.
package store

import (
	"fmt"
	"log/slog"
	stdSync "sync"

	bridgeErrors "github.com/c0deZ3R0/go-bridge-kit/errors"
	"github.com/c0deZ3R0/go-bridge-kit/logging"
	"github.com/c0deZ3R0/go-bridge-kit/state"
)

// Producer computes the next state for an event. It receives a draft deep
// copy of the current snapshot, may mutate it in place, and returns the
// next state (conventionally the mutated draft). Returning a state
// structurally identical to the previous one makes the dispatch a no-op.
type Producer func(draft state.Value, event Event) state.Value

// Listener observes committed snapshots.
type Listener func(snapshot state.Value)

type subscriber struct {
	fn      Listener
	removed bool
}

// Store is a single state container. All methods are safe for use from
// listener callbacks; a listener that dispatches again has its event
// queued until the current dispatch fully settles.
type Store struct {
	id       string
	producer Producer
	logger   *slog.Logger

	mu          stdSync.Mutex
	initial     state.Value
	current     state.Value
	subscribers []*subscriber
	dispatching bool
	queue       []Event
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for queued-dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store with the given key, initial state, and producer.
// The initial state is normalized to canonical form; non-serializable
// initial states are rejected.
func New(id string, initial interface{}, producer Producer, opts ...Option) (*Store, error) {
	if id == "" {
		return nil, fmt.Errorf("store id must not be empty")
	}
	if producer == nil {
		return nil, fmt.Errorf("store %q: producer must not be nil", id)
	}
	norm, err := state.Normalize(initial)
	if err != nil {
		return nil, fmt.Errorf("store %q: %w", id, err)
	}
	s := &Store{
		id:       id,
		producer: producer,
		logger:   logging.Default().Logger,
		initial:  norm,
		current:  state.Clone(norm),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID returns the store key.
func (s *Store) ID() string {
	return s.id
}

// GetSnapshot returns the current committed snapshot. Snapshots are
// immutable by contract: the store never mutates a committed value in
// place, and holders must not either.
func (s *Store) GetSnapshot() state.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers a listener invoked with every committed snapshot,
// in subscription order. The returned function unsubscribes; it is
// idempotent and safe to call from within the listener itself.
func (s *Store) Subscribe(fn Listener) func() {
	sub := &subscriber{fn: fn}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		for i, candidate := range s.subscribers {
			if candidate == sub {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				break
			}
		}
	}
}

// Dispatch runs the producer against a draft of the current state and
// commits the result. If the produced state is structurally identical to
// the previous one, no commit happens and no listener fires. A dispatch
// issued from inside a listener is queued and runs after the current
// dispatch settles; its error, having no caller to return to, is logged.
func (s *Store) Dispatch(event Event) error {
	s.mu.Lock()
	if s.dispatching {
		s.queue = append(s.queue, event)
		s.mu.Unlock()
		return nil
	}
	s.dispatching = true
	s.mu.Unlock()

	err := s.dispatchOne(event)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.mu.Unlock()
			break
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if queuedErr := s.dispatchOne(next); queuedErr != nil {
			s.logger.Error("queued dispatch failed",
				"store", s.id,
				"event_type", next.Type,
				"error", queuedErr)
		}
	}
	return err
}

func (s *Store) dispatchOne(event Event) error {
	s.mu.Lock()
	prev := s.current
	s.mu.Unlock()

	next, err := s.runProducer(prev, event)
	if err != nil {
		return err
	}
	norm, err := state.Normalize(next)
	if err != nil {
		return bridgeErrors.NewReducerError(bridgeErrors.OpDispatch,
			fmt.Errorf("store %q produced unserializable state: %w", s.id, err))
	}
	if state.Equal(prev, norm) {
		return nil
	}
	s.commit(norm)
	return nil
}

// runProducer isolates producer panics so a throwing producer fails the
// dispatch while the prior snapshot stays authoritative.
func (s *Store) runProducer(prev state.Value, event Event) (next state.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = bridgeErrors.NewReducerError(bridgeErrors.OpDispatch,
				fmt.Errorf("store %q producer panicked on %q: %v", s.id, event.Type, r))
		}
	}()
	return s.producer(state.Clone(prev), event), nil
}

// Reset restores the initial state and notifies listeners as a dispatch
// would, including the identical-state suppression rule.
func (s *Store) Reset() {
	s.mu.Lock()
	if state.Equal(s.current, s.initial) {
		s.mu.Unlock()
		return
	}
	restored := state.Clone(s.initial)
	s.mu.Unlock()
	s.commit(restored)
}

func (s *Store) commit(snapshot state.Value) {
	s.mu.Lock()
	s.current = snapshot
	subs := make([]*subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	// Iterate a snapshot of the list so listeners may unsubscribe
	// themselves or others mid-notification.
	for _, sub := range subs {
		s.mu.Lock()
		skip := sub.removed
		s.mu.Unlock()
		if !skip {
			sub.fn(snapshot)
		}
	}
}
