package quiz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/dataloader"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/metrics"
)

// HTTPBankProvider serves question-bank entries from an externally hosted
// JSON document behind a TTL cache.
type HTTPBankProvider struct {
	doc *dataloader.CachedDocument[Bank]
}

// NewHTTPBankProvider creates a provider for the quiz bank at url.
func NewHTTPBankProvider(url string, ttl time.Duration, client *http.Client, clock dataloader.Clock) *HTTPBankProvider {
	return &HTTPBankProvider{
		doc: dataloader.NewCachedDocument[Bank](url, ttl, client, clock),
	}
}

// QuizEntry returns the bank entry for an achievement id. A missing entry or
// unconfigured source maps to ErrNoQuizData; transient fetch failures pass
// through for the caller to treat as retryable.
func (p *HTTPBankProvider) QuizEntry(ctx context.Context, achievementID string) (*BankEntry, error) {
	bank, err := p.doc.Get(ctx)
	if err != nil {
		if errors.Is(err, dataloader.ErrNotConfigured) {
			return nil, ErrNoQuizData
		}
		metrics.ExternalFetchErrors.WithLabelValues("quiz_bank").Inc()
		return nil, err
	}

	entry, ok := bank[achievementID]
	if !ok || entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoQuizData, achievementID)
	}
	return entry, nil
}
