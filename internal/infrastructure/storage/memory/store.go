// Package memory provides an in-process implementation of every treasury
// repository with transactional semantics.
//
// Transactions run on a private copy of the committed state and replace it
// on commit. Writers are serialized; readers outside a transaction see the
// last committed snapshot and never block writers.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"treasury/internal/core/entity"
	"treasury/internal/core/id"
	"treasury/internal/core/tx"
	"treasury/internal/domain"
)

type refKey struct {
	kind  entity.AccountKind
	refID string
}

type serialKey struct {
	checkbook id.ID
	serial    int64
}


type state struct {
	accounts    map[id.ID]entity.Account
	accountRefs map[refKey]id.ID

	documents map[id.ID]entity.Document
	entries   []entity.Entry
	reversals map[id.ID]id.ID

	checks     map[id.ID]entity.Check
	serials    map[serialKey]id.ID
	movements  []entity.CheckMovement
	checkbooks map[id.ID]entity.Checkbook

	sequences map[string]int64
	events    []domain.Event
	audit     []domain.AuditEntry
}

func newState() *state {
	return &state{
		accounts:    make(map[id.ID]entity.Account),
		accountRefs: make(map[refKey]id.ID),
		documents:   make(map[id.ID]entity.Document),
		reversals:   make(map[id.ID]id.ID),
		checks:      make(map[id.ID]entity.Check),
		serials:     make(map[serialKey]id.ID),
		checkbooks:  make(map[id.ID]entity.Checkbook),
		sequences:   make(map[string]int64),
	}
}

// clone copies every container. Stored values hold no shared mutable data
// except pointer fields that are never written through.
func (s *state) clone() *state {
	return &state{
		accounts:    maps.Clone(s.accounts),
		accountRefs: maps.Clone(s.accountRefs),
		documents:   maps.Clone(s.documents),
		entries:     slices.Clip(s.entries),
		reversals:   maps.Clone(s.reversals),
		checks:      maps.Clone(s.checks),
		serials:     maps.Clone(s.serials),
		movements:   slices.Clip(s.movements),
		checkbooks:  maps.Clone(s.checkbooks),
		sequences:   maps.Clone(s.sequences),
		events:      slices.Clip(s.events),
		audit:       slices.Clip(s.audit),
	}
}

// Store is the in-memory backing store.
type Store struct {
	writeMu   sync.Mutex
	mu        sync.RWMutex
	committed *state
}

// Ensure compile-time interface compliance.
var _ tx.Manager = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{committed: newState()}
}

type txKey struct{}

type txState struct {
	st *state
}

// RunInTransaction executes fn against a private copy of the state and
// commits it only if fn succeeds. Nested calls reuse the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	work := s.committed.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, &txState{st: work})); err != nil {
		return err
	}

	s.mu.Lock()
	s.committed = work
	s.mu.Unlock()
	return nil
}

// InTransaction reports whether ctx carries a store transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// read returns the state visible to ctx. Callers must not modify it.
func (s *Store) read(ctx context.Context) *state {
	if ts, ok := ctx.Value(txKey{}).(*txState); ok {
		return ts.st
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// write applies fn inside the caller's transaction, or in a transaction of its own.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if ts, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ts.st)
	}
	return s.RunInTransaction(ctx, func(ctx context.Context) error {
		return fn(s.read(ctx))
	})
}

// Events returns committed domain events, oldest first.
func (s *Store) Events() []domain.Event {
	return slices.Clone(s.read(context.Background()).events)
}

