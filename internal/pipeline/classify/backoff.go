package classify

import (
	"math"
	"math/rand"
	"time"
)

const (
	// defaultRetryAfterSeconds is the advertised wait for rate-limited
	// callers when the upstream gives no explicit window.
	defaultRetryAfterSeconds = 300

	// exponentialCap bounds externally-throttled backoff (rate limit,
	// site blocking, network).
	exponentialCap = 300 * time.Second

	// linearCap bounds transient browser-restart backoff.
	linearCap = 30 * time.Second

	exponentialBase = 5 * time.Second
	linearStep      = 10 * time.Second

	// jitterFraction is the ±10% spread applied to exponential delays.
	jitterFraction = 0.1
)

// maxAttempts is the per-category retry ceiling. Beyond it the same failure
// is treated as fatal for the attempt window.
var maxAttempts = map[Category]int{
	CategoryAuthentication: 1,
	CategoryBrowser:        2,
	CategoryLinkedIn:       2,
	CategoryValidation:     0,
	CategoryRateLimit:      2,
	CategoryNetwork:        3,
	CategorySystem:         1,
}

// MaxAttempts returns the retry ceiling for a category.
func MaxAttempts(category Category) int {
	if n, ok := maxAttempts[category]; ok {
		return n
	}
	return 1
}

// CalculateBackoff returns the delay before retry number attempt (1-indexed)
// for the given category. Externally-throttled categories grow exponentially
// with jitter up to 300s; browser failures grow linearly up to 30s.
func CalculateBackoff(attempt int, category Category) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	switch category {
	case CategoryRateLimit, CategoryLinkedIn, CategoryNetwork:
		delay := float64(exponentialBase) * math.Pow(2, float64(attempt-1))
		if delay > float64(exponentialCap) {
			delay = float64(exponentialCap)
		}
		return withJitter(time.Duration(delay))
	case CategoryBrowser:
		delay := time.Duration(attempt) * linearStep
		if delay > linearCap {
			delay = linearCap
		}
		return delay
	default:
		delay := time.Duration(attempt) * linearStep
		if delay > linearCap {
			delay = linearCap
		}
		return delay
	}
}

// withJitter spreads a delay by ±jitterFraction so concurrent jobs do not
// retry in lockstep.
func withJitter(d time.Duration) time.Duration {
	spread := 1 - jitterFraction + 2*jitterFraction*rand.Float64()
	return time.Duration(float64(d) * spread)
}

// IsRecoverable reports whether a retry is still allowed for this
// classification at the given attempt number (1-indexed).
func IsRecoverable(c Classification, attempt int) bool {
	return attempt <= MaxAttempts(c.Category)
}
