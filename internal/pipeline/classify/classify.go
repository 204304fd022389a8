// Package classify maps raw automation failures onto a fixed set of
// remediation strategies: a category, an HTTP-equivalent status, retry
// eligibility, and a backoff policy.
package classify

import (
	"errors"
	"strings"
)

// Category is the failure taxonomy.
type Category string

const (
	CategoryAuthentication Category = "authentication"
	CategoryBrowser        Category = "browser"
	CategoryLinkedIn       Category = "linkedin"
	CategoryValidation     Category = "validation"
	CategoryRateLimit      Category = "rate_limit"
	CategoryNetwork        Category = "network"
	CategorySystem         Category = "system"
)

// Classification is the immutable result of categorizing one error.
// Produced fresh for every raw error, never persisted.
type Classification struct {
	Category          Category
	StatusCode        int
	RetryAfterSeconds int
}

// rule pairs a message predicate with its category. Rules are checked in
// declaration order; the first match wins.
type rule struct {
	category   Category
	statusCode int
	keywords   []string
}

// rules is the ordered matching table: authentication/JWT terms first, then
// browser crash/timeout, rate limit, network, and finally system terms.
var rules = []rule{
	{CategoryAuthentication, 401, []string{
		"jwt", "token expired", "unauthorized", "authentication", "login required",
		"session expired", "csrf", "invalid credentials",
	}},
	{CategoryBrowser, 502, []string{
		"browser", "chromium", "chrome", "page crash", "target closed",
		"navigation", "websocket: close", "context deadline exceeded", "timeout",
	}},
	{CategoryRateLimit, 429, []string{
		"rate limit", "too many requests", "429", "throttl", "quota exceeded",
	}},
	{CategoryLinkedIn, 403, []string{
		"captcha", "challenge", "account restricted", "selector not found",
		"unexpected markup", "voyager",
	}},
	{CategoryNetwork, 503, []string{
		"network", "connection refused", "connection reset", "no such host",
		"dns", "econnrefused", "etimedout", "broken pipe", "socket",
	}},
	{CategoryValidation, 400, []string{
		"validation", "invalid input", "missing required field", "malformed",
	}},
	{CategorySystem, 500, []string{
		"out of memory", "oom", "heap", "no space left", "cannot allocate",
	}},
}

// classified lets a collaborator attach a category at the error site so the
// classifier does not have to re-parse its message.
type classified struct {
	err      error
	category Category
	status   int
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }

// WithCategory wraps err with a pre-assigned category that Categorize will
// honor before consulting the matching table.
func WithCategory(err error, category Category) error {
	if err == nil {
		return nil
	}
	return &classified{err: err, category: category, status: statusFor(category)}
}

func statusFor(category Category) int {
	for _, r := range rules {
		if r.category == category {
			return r.statusCode
		}
	}
	return 500
}

// Categorize maps an arbitrary error onto a Classification. Pre-classified
// errors win; otherwise the message is matched against the ordered rule
// table, falling back to system/500.
func Categorize(err error) Classification {
	if err == nil {
		return Classification{Category: CategorySystem, StatusCode: 500}
	}

	var pre *classified
	if errors.As(err, &pre) {
		c := Classification{Category: pre.category, StatusCode: pre.status}
		if pre.category == CategoryRateLimit {
			c.RetryAfterSeconds = defaultRetryAfterSeconds
		}
		return c
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(msg, kw) {
				c := Classification{Category: r.category, StatusCode: r.statusCode}
				if r.category == CategoryRateLimit {
					c.RetryAfterSeconds = defaultRetryAfterSeconds
				}
				return c
			}
		}
	}

	return Classification{Category: CategorySystem, StatusCode: 500}
}
