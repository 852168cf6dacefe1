package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used in tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	wallets  map[string]bool
	attempts map[string][]*Attempt
	passed   map[string]*Attempt
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:  make(map[string]bool),
		attempts: make(map[string][]*Attempt),
		passed:   make(map[string]*Attempt),
	}
}

// EnsureWallet registers a wallet if absent.
func (s *MemoryStore) EnsureWallet(ctx context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[strings.ToLower(wallet)] = true
	return nil
}

// RecordAttempt appends an attempt, newest first.
func (s *MemoryStore) RecordAttempt(ctx context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(attempt.Wallet, attempt.AchievementID)
	s.attempts[key] = append([]*Attempt{attempt}, s.attempts[key]...)
	return nil
}

// HasPassed reports whether the pair has a pass record.
func (s *MemoryStore) HasPassed(ctx context.Context, wallet, achievementID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.passed[pairKey(wallet, achievementID)]
	return ok, nil
}

// ClaimPass claims the pair; false when already claimed.
func (s *MemoryStore) ClaimPass(ctx context.Context, wallet, achievementID string, attempt *Attempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(wallet, achievementID)
	if _, ok := s.passed[key]; ok {
		return false, nil
	}
	s.passed[key] = attempt
	return true, nil
}

// LatestPassed returns the pass record, or nil.
func (s *MemoryStore) LatestPassed(ctx context.Context, wallet, achievementID string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passed[pairKey(wallet, achievementID)], nil
}

// Attempts returns all attempts for the pair, newest first.
func (s *MemoryStore) Attempts(ctx context.Context, wallet, achievementID string) ([]*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Attempt, len(s.attempts[pairKey(wallet, achievementID)]))
	copy(out, s.attempts[pairKey(wallet, achievementID)])
	return out, nil
}
