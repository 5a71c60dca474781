// Package reactive provides an observable, insertion-ordered name→value map
// with optional get/set/delete hooks.
//
// A hook may veto a write by returning Veto; the store then leaves the slot
// untouched so the hook owner can take full control of how it is updated
// (typically by calling Put or Remove itself). Without hooks the store has
// plain ordered-map semantics.
//
// The store knows nothing about Nodes. graph.Graph is built on a Store whose
// hooks implement the Node lifecycle.
package reactive

import (
	"errors"

	"github.com/roach88/mathgraph/internal/value"
)

// Veto is the sentinel a set or delete hook returns to cancel the default
// write.
var Veto = errors.New("reactive: write vetoed by hook")

// GetHook intercepts reads. It receives the stored value and whether the key
// exists, and returns what the caller observes.
type GetHook func(key string, stored value.Value, ok bool) (value.Value, bool)

// SetHook intercepts writes. Returning Veto cancels the default write; any
// other non-nil error aborts the write and is returned to the caller.
type SetHook func(key string, v value.Value) error

// DeleteHook intercepts deletes with the same contract as SetHook.
type DeleteHook func(key string) error

// Hooks groups the three optional callback slots.
type Hooks struct {
	Get    GetHook
	Set    SetHook
	Delete DeleteHook
}

// Store is an insertion-ordered map from name to value.
//
// Not safe for concurrent use: the engine is single-writer.
type Store struct {
	hooks  Hooks
	keys   []string
	values map[string]value.Value
}

// New creates an empty store with the given hooks.
func New(hooks Hooks) *Store {
	return &Store{
		hooks:  hooks,
		values: make(map[string]value.Value),
	}
}

// SetHooks replaces the hooks. Used when the hook owner is constructed
// after the store.
func (s *Store) SetHooks(h Hooks) {
	s.hooks = h
}

// Get returns the value under key, routed through the get-hook if present.
func (s *Store) Get(key string) (value.Value, bool) {
	v, ok := s.values[key]
	if s.hooks.Get != nil {
		return s.hooks.Get(key, v, ok)
	}
	return v, ok
}

// Set writes v under key. The set-hook runs first; Veto leaves the slot to
// the hook, nil lets the store write.
func (s *Store) Set(key string, v value.Value) error {
	if s.hooks.Set != nil {
		if err := s.hooks.Set(key, v); err != nil {
			if errors.Is(err, Veto) {
				return nil
			}
			return err
		}
	}
	s.Put(key, v)
	return nil
}

// Delete removes key. The delete-hook runs first with the same veto
// contract as Set.
func (s *Store) Delete(key string) error {
	if s.hooks.Delete != nil {
		if err := s.hooks.Delete(key); err != nil {
			if errors.Is(err, Veto) {
				return nil
			}
			return err
		}
	}
	s.Remove(key)
	return nil
}

// Put writes without running hooks. New keys are appended to the order;
// existing keys keep their position.
func (s *Store) Put(key string, v value.Value) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// Remove deletes without running hooks. Removing an absent key is a no-op.
func (s *Store) Remove(key string) {
	if _, exists := s.values[key]; !exists {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Has reports whether key is stored (hooks are not consulted).
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return len(s.keys)
}
