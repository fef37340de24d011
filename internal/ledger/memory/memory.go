// Package memory is a ledger backend that serves a snapshot held in memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ynabmetrics/internal/core"
	"ynabmetrics/internal/ledger"
)

type Store struct {
	mu   sync.RWMutex
	snap ledger.Snapshot
}

var _ ledger.Client = (*Store)(nil)

func New(snap ledger.Snapshot) *Store {
	return &Store{snap: snap}
}

// NewFromFile loads the snapshot from a JSON fixture.
func NewFromFile(path string) (*Store, error) {
	snap, err := ledger.ReadSnapshotFile(path)
	if err != nil {
		return nil, err
	}
	return New(snap), nil
}

// Replace swaps the served snapshot.
func (s *Store) Replace(snap ledger.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func (s *Store) Budget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap.Budget.ID == "" {
		return core.Budget{}, core.ErrNoBudget
	}
	if id != "" && id != s.snap.Budget.ID {
		return core.Budget{}, core.Errorf(core.KindNoBudget, "budget %s not found", id)
	}
	return s.snap.Budget, nil
}

func (s *Store) Transactions(_ context.Context, budgetID string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(budgetID); err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), s.snap.Transactions...), nil
}

func (s *Store) CategoryGroups(_ context.Context, budgetID string) ([]core.CategoryGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(budgetID); err != nil {
		return nil, err
	}
	out := make([]core.CategoryGroup, len(s.snap.CategoryGroups))
	for i, g := range s.snap.CategoryGroups {
		g.Categories = append([]core.Category(nil), g.Categories...)
		out[i] = g
	}
	return out, nil
}

func (s *Store) Accounts(_ context.Context, budgetID string) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(budgetID); err != nil {
		return nil, err
	}
	return append([]core.Account(nil), s.snap.Accounts...), nil
}

func (s *Store) check(budgetID string) error {
	if budgetID != s.snap.Budget.ID {
		return fmt.Errorf("unknown budget %q", budgetID)
	}
	return nil
}
