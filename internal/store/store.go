// Package store holds observable client state that is shared across views.
//
// State lives in an [App] that is created once per session and passed explicitly or through a
// context. Views subscribe to the stores they render instead of reading globals.
package store

import (
	"sync"
)

// Store is an observable value of type T.
type Store[T any] struct {
	mu        sync.Mutex
	value     T
	version   uint64
	listeners map[int]func(T)
	nextID    int

	notifyMu  sync.Mutex // serializes delivery; held while listeners run
	delivered uint64
}

// New creates a store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, listeners: make(map[int]func(T))}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) and notifies subscribers. Subscribers never see an
// older value after a newer one. Listeners may read the store but must not write to it.
func (s *Store[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	s.version++
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	v, version := s.value, s.version
	fns := make([]func(T), 0, len(s.listeners))
	for _, l := range s.listeners {
		fns = append(fns, l)
	}
	s.mu.Unlock()

	if version <= s.delivered {
		return
	}
	s.delivered = version
	for _, l := range fns {
		l(v)
	}
}

// Subscribe calls fn after every change. The returned func unsubscribes.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
