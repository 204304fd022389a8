// Package browser is the DOM-interaction layer consumed by the pipeline:
// it drives a real Chrome via Rod to fetch people-search pages and analyze
// individual contacts. The pipeline only depends on the Session interface;
// tests substitute in-memory fakes.
package browser

import (
	"context"
	"time"

	"github.com/vietddude/prospector/internal/core/domain"
)

// Filters narrows a people-search page fetch.
type Filters struct {
	Keywords string
	Network  domain.ProcessingList
}

// Session is the collaborator contract the collector and processor consume.
// Implementations may fail with arbitrary errors; the classifier accepts
// them without a predefined shape.
type Session interface {
	// FetchPage returns the profile links found on one search-results
	// page. An empty slice with nil error means the page rendered but
	// held no results.
	FetchPage(ctx context.Context, page int, filters Filters) ([]domain.Link, error)

	// AnalyzeItem evaluates one contact's activity and applies the
	// acceptance predicate.
	AnalyzeItem(ctx context.Context, link domain.Link, token string) (*domain.AnalysisResult, error)

	// Close releases the underlying browser.
	Close() error
}

// Config configures the Rod session.
type Config struct {
	// SearchURL is the base people-search URL; page numbers are appended.
	SearchURL string

	// Credential is the authenticated session cookie value.
	Credential string

	// Headless controls whether Chrome runs without a display.
	Headless bool `yaml:"headless"`

	// PageTimeout bounds a single page navigation.
	PageTimeout time.Duration `yaml:"page_timeout"`

	// ActivityWindow is how recent a contact's last activity must be to
	// qualify.
	ActivityWindow time.Duration `yaml:"activity_window"`
}

func (c *Config) defaults() {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 45 * time.Second
	}
	if c.ActivityWindow <= 0 {
		c.ActivityWindow = 30 * 24 * time.Hour
	}
}
