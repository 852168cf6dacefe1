// Package dataloader provides time-bounded read-through caches for small,
// slow-changing external JSON documents. Caches are injected with an explicit
// clock so TTL behavior is unit-testable without wall-clock tricks.
package dataloader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrNotConfigured signals that no source URL was configured for a document.
var ErrNotConfigured = errors.New("data source URL not configured")

// Clock abstracts time for TTL checks.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// CachedDocument is a TTL-bounded cache over one external JSON document.
// Entries are populated lazily on first access and live for the process
// lifetime; an expired entry is evicted before the refresh attempt, so a
// failed fetch surfaces an error instead of silently serving stale data.
//
// There is deliberately no single-flight de-duplication: concurrent requests
// hitting a cold cache each fetch independently. The documents are small and
// slow-changing, so the worst case is a redundant fetch burst.
type CachedDocument[T any] struct {
	url    string
	ttl    time.Duration
	client *http.Client
	clock  Clock

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	populated bool
}

// NewCachedDocument creates a cache for the document at url. A nil client
// falls back to http.DefaultClient; a nil clock falls back to SystemClock.
func NewCachedDocument[T any](url string, ttl time.Duration, client *http.Client, clock Clock) *CachedDocument[T] {
	if client == nil {
		client = http.DefaultClient
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &CachedDocument[T]{
		url:    url,
		ttl:    ttl,
		client: client,
		clock:  clock,
	}
}

// Get returns the cached document, refreshing it when the TTL has elapsed.
func (c *CachedDocument[T]) Get(ctx context.Context) (T, error) {
	var zero T
	if c.url == "" {
		return zero, ErrNotConfigured
	}

	now := c.clock.Now()

	c.mu.Lock()
	if c.populated && now.Sub(c.fetchedAt) < c.ttl {
		value := c.value
		c.mu.Unlock()
		return value, nil
	}
	// Evict before fetching: a failed refresh must not fall back to stale data
	c.populated = false
	c.mu.Unlock()

	value, err := c.fetch(ctx)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	c.value = value
	c.fetchedAt = c.clock.Now()
	c.populated = true
	c.mu.Unlock()

	log.WithField("url", c.url).Debug("Refreshed cached document")
	return value, nil
}

func (c *CachedDocument[T]) fetch(ctx context.Context) (T, error) {
	var zero T

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to build fetch request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("failed to fetch %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return zero, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, c.url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("failed to read response from %s: %w", c.url, err)
	}

	var value T
	if err := json.Unmarshal(body, &value); err != nil {
		return zero, fmt.Errorf("failed to decode document from %s: %w", c.url, err)
	}

	return value, nil
}
