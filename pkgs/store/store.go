// Package store persists completion attempts and enforces the at-most-one
// passed completion guarantee per wallet+achievement pair.
package store

import "context"

// Attempt is one immutable completion attempt. Every submission, passed or
// failed, is recorded for audit and retry tracking.
type Attempt struct {
	ID            string   `json:"id"`
	Wallet        string   `json:"wallet"`
	AchievementID string   `json:"achievementId"`
	Kind          string   `json:"kind"`
	Passed        bool     `json:"passed"`
	Score         *float64 `json:"score,omitempty"`
	MaxScore      *float64 `json:"maxScore,omitempty"`
	Feedback      string   `json:"feedback,omitempty"`
	SubmittedAt   int64    `json:"submittedAt"`
}

// Store is the completion persistence contract.
type Store interface {
	// EnsureWallet registers a wallet if absent.
	EnsureWallet(ctx context.Context, wallet string) error

	// RecordAttempt appends an immutable attempt row.
	RecordAttempt(ctx context.Context, attempt *Attempt) error

	// HasPassed reports whether a passed completion exists for the pair.
	HasPassed(ctx context.Context, wallet, achievementID string) (bool, error)

	// ClaimPass atomically claims the single passed completion for the
	// pair, storing the attempt as the pass record. It returns false when
	// the pair was already claimed - that failure is the authoritative
	// conflict signal.
	ClaimPass(ctx context.Context, wallet, achievementID string, attempt *Attempt) (bool, error)

	// LatestPassed returns the pass record for the pair, or nil.
	LatestPassed(ctx context.Context, wallet, achievementID string) (*Attempt, error)

	// Attempts returns all recorded attempts for the pair, newest first.
	Attempts(ctx context.Context, wallet, achievementID string) ([]*Attempt, error)
}
