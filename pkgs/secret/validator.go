// Package secret validates secret-code submissions against an externally
// hosted answer table.
package secret

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/dataloader"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/metrics"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/submissions"
)

// ErrNoSecret signals that the answer table has no entry for an achievement.
var ErrNoSecret = errors.New("no secret configured for achievement")

// Entry is one configured secret answer. ExpiresAt (unix seconds) is a hard
// cutoff after which every submission fails non-retryably; zero means no
// cutoff.
type Entry struct {
	Answer    string `json:"answer"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

// Table is the external secret-answer document, keyed by achievement id.
type Table map[string]*Entry

// TableProvider supplies the secret entry for an achievement.
type TableProvider interface {
	SecretEntry(ctx context.Context, achievementID string) (*Entry, error)
}

// HTTPTableProvider serves entries from an externally hosted JSON document
// behind a TTL cache.
type HTTPTableProvider struct {
	doc *dataloader.CachedDocument[Table]
}

// NewHTTPTableProvider creates a provider for the secret table at url.
func NewHTTPTableProvider(url string, ttl time.Duration, client *http.Client, clock dataloader.Clock) *HTTPTableProvider {
	return &HTTPTableProvider{
		doc: dataloader.NewCachedDocument[Table](url, ttl, client, clock),
	}
}

// SecretEntry returns the entry for an achievement id. A missing entry or
// unconfigured source maps to ErrNoSecret.
func (p *HTTPTableProvider) SecretEntry(ctx context.Context, achievementID string) (*Entry, error) {
	table, err := p.doc.Get(ctx)
	if err != nil {
		if errors.Is(err, dataloader.ErrNotConfigured) {
			return nil, ErrNoSecret
		}
		metrics.ExternalFetchErrors.WithLabelValues("secret_table").Inc()
		return nil, err
	}

	entry, ok := table[achievementID]
	if !ok || entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSecret, achievementID)
	}
	return entry, nil
}

// Validator matches submitted secrets against the configured answers.
type Validator struct {
	table TableProvider
	clock dataloader.Clock
}

// NewValidator creates a secret validator. A nil clock falls back to the
// system clock.
func NewValidator(table TableProvider, clock dataloader.Clock) *Validator {
	if clock == nil {
		clock = dataloader.SystemClock{}
	}
	return &Validator{table: table, clock: clock}
}

// Validate compares the submitted secret against the configured answer:
// exact match, case-sensitive, after trimming surrounding whitespace. The
// feedback never reveals the expected secret.
func (v *Validator) Validate(ctx context.Context, ach *catalog.Achievement, submitted string) *submissions.ValidationResult {
	entry, err := v.table.SecretEntry(ctx, ach.ID)
	if err != nil {
		if errors.Is(err, ErrNoSecret) {
			return submissions.Terminal("This achievement has no secret configured.")
		}
		log.WithError(err).WithField("achievement", ach.ID).Error("Secret table fetch failed")
		return submissions.Retryable("Secret data is temporarily unavailable. Please try again shortly.")
	}

	if entry.ExpiresAt > 0 && v.clock.Now().Unix() > entry.ExpiresAt {
		return submissions.Terminal(
			"The submission window for this secret has closed.",
			"This achievement is no longer available.",
		)
	}

	if strings.TrimSpace(submitted) == strings.TrimSpace(entry.Answer) {
		return submissions.Pass(
			"Secret accepted!",
			"Submit your voucher on-chain to mint the badge.",
		)
	}

	return submissions.Retryable(
		"That's not the secret we're looking for.",
		"Double-check the secret and try again - it's case-sensitive.",
	)
}
