package classify

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		message    string
		category   Category
		statusCode int
	}{
		{"jwt term", "jwt signature invalid", CategoryAuthentication, 401},
		{"session expired", "session expired, login required", CategoryAuthentication, 401},
		{"browser crash", "page crash: target closed", CategoryBrowser, 502},
		{"navigation timeout", "navigation timeout after 30s", CategoryBrowser, 502},
		{"rate limit", "rate limit exceeded, too many requests", CategoryRateLimit, 429},
		{"throttled", "request throttled by upstream", CategoryRateLimit, 429},
		{"captcha", "captcha challenge presented", CategoryLinkedIn, 403},
		{"selector", "selector not found on results page", CategoryLinkedIn, 403},
		{"connection refused", "dial tcp: connection refused", CategoryNetwork, 503},
		{"dns", "lookup host: dns failure", CategoryNetwork, 503},
		{"validation", "validation failed: missing required field", CategoryValidation, 400},
		{"oom", "runtime: out of memory", CategorySystem, 500},
		{"unknown fallback", "something completely unexpected", CategorySystem, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Categorize(errors.New(tt.message))
			if c.Category != tt.category {
				t.Errorf("category = %s, want %s", c.Category, tt.category)
			}
			if c.StatusCode != tt.statusCode {
				t.Errorf("statusCode = %d, want %d", c.StatusCode, tt.statusCode)
			}
		})
	}
}

func TestCategorizeOrderingAuthBeforeBrowser(t *testing.T) {
	// A message matching both tables must resolve to the earlier rule.
	c := Categorize(errors.New("jwt check failed during browser navigation"))
	if c.Category != CategoryAuthentication {
		t.Errorf("category = %s, want authentication (rule order)", c.Category)
	}
}

func TestCategorizeRateLimitCarriesRetryAfter(t *testing.T) {
	c := Categorize(errors.New("rate limit exceeded, too many requests"))
	if c.Category != CategoryRateLimit || c.StatusCode != 429 {
		t.Fatalf("got %s/%d, want rate_limit/429", c.Category, c.StatusCode)
	}
	if c.RetryAfterSeconds <= 0 {
		t.Error("RetryAfterSeconds not set for rate limit")
	}
}

func TestCategorizePreClassified(t *testing.T) {
	err := WithCategory(errors.New("weird upstream payload"), CategoryLinkedIn)
	c := Categorize(err)
	if c.Category != CategoryLinkedIn {
		t.Errorf("category = %s, want linkedin", c.Category)
	}

	// The wrapper stays observable through further wrapping.
	wrapped := fmt.Errorf("analyze item: %w", err)
	if got := Categorize(wrapped).Category; got != CategoryLinkedIn {
		t.Errorf("category through wrap = %s, want linkedin", got)
	}
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	for _, category := range []Category{CategoryRateLimit, CategoryBrowser, CategoryNetwork, CategoryLinkedIn} {
		maxDelay := exponentialCap
		if category == CategoryBrowser {
			maxDelay = linearCap
		}
		// Jitter tolerance on the cap.
		limit := maxDelay + time.Duration(float64(maxDelay)*jitterFraction)

		prev := time.Duration(0)
		for attempt := 1; attempt <= 12; attempt++ {
			d := CalculateBackoff(attempt, category)
			if d > limit {
				t.Errorf("%s attempt %d: delay %v exceeds cap %v", category, attempt, d, limit)
			}
			// Allow jitter to shave up to 2x the fraction between
			// consecutive attempts; growth must still dominate.
			floor := time.Duration(float64(prev) * (1 - 2*jitterFraction))
			if d < floor {
				t.Errorf("%s attempt %d: delay %v below previous %v", category, attempt, d, prev)
			}
			if d > prev {
				prev = d
			}
		}
	}
}

func TestIsRecoverableHonorsAttemptCeilings(t *testing.T) {
	for category, max := range maxAttempts {
		c := Classification{Category: category}
		for attempt := 1; attempt <= max; attempt++ {
			if !IsRecoverable(c, attempt) {
				t.Errorf("%s attempt %d: want recoverable (max %d)", category, attempt, max)
			}
		}
		if IsRecoverable(c, max+1) {
			t.Errorf("%s attempt %d: want not recoverable (max %d)", category, max+1, max)
		}
	}
}

func TestCreateRecoveryPlan(t *testing.T) {
	plan := CreateRecoveryPlan(errors.New("page crash: target closed"), 1)
	if !plan.ShouldRecover {
		t.Error("browser attempt 1 should recover")
	}
	if len(plan.Actions) == 0 || plan.Actions[0] != "drop browser session" {
		t.Errorf("browser actions = %v, want session cleanup first", plan.Actions)
	}

	exhausted := CreateRecoveryPlan(errors.New("page crash: target closed"), 3)
	if exhausted.ShouldRecover {
		t.Error("browser attempt 3 should not recover (max 2)")
	}

	rl := CreateRecoveryPlan(errors.New("too many requests"), 1)
	if rl.Classification.Category != CategoryRateLimit {
		t.Fatalf("category = %s, want rate_limit", rl.Classification.Category)
	}
	if rl.Actions[0] != "wait for rate limit window reset" {
		t.Errorf("rate limit actions = %v", rl.Actions)
	}

	auth := CreateRecoveryPlan(errors.New("unauthorized"), 1)
	if auth.Actions[0] != "clear authentication state" {
		t.Errorf("auth actions = %v", auth.Actions)
	}
}

func TestCreateErrorResponse(t *testing.T) {
	resp, status := CreateErrorResponse(errors.New("rate limit exceeded"), "collector page 12", "")
	if status != 429 {
		t.Errorf("status = %d, want 429", status)
	}
	if resp.RequestID == "" {
		t.Error("request ID not assigned")
	}
	if resp.RetryAfter <= 0 || resp.RetryAt == "" {
		t.Errorf("retryAfter/retryAt missing: %+v", resp)
	}
	if len(resp.Suggestions) == 0 {
		t.Error("suggestions missing")
	}

	resp2, status2 := CreateErrorResponse(errors.New("mystery"), "", "req-1")
	if status2 != 500 {
		t.Errorf("fallback status = %d, want 500", status2)
	}
	if resp2.RequestID != "req-1" {
		t.Errorf("request ID = %q, want req-1", resp2.RequestID)
	}
	if resp2.RetryAfter != 0 {
		t.Error("retryAfter set for non-rate-limit failure")
	}
}
