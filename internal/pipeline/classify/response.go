package classify

import (
	"time"

	"github.com/google/uuid"
)

// ErrorResponse is the caller-facing payload for a terminal failure.
type ErrorResponse struct {
	RequestID   string   `json:"request_id"`
	Category    Category `json:"category"`
	Message     string   `json:"message"`
	Context     string   `json:"context,omitempty"`
	Timestamp   string   `json:"timestamp"`
	Suggestions []string `json:"suggestions,omitempty"`

	// RetryAfter/RetryAt are set only for rate-limited failures.
	RetryAfter int    `json:"retry_after,omitempty"`
	RetryAt    string `json:"retry_at,omitempty"`
}

var categorySuggestions = map[Category][]string{
	CategoryAuthentication: {
		"Re-authenticate and restart the job with a fresh session",
		"Check that the bearer token has not expired",
	},
	CategoryBrowser: {
		"The browser session was restarted automatically; rerun if the job did not resume",
	},
	CategoryLinkedIn: {
		"The account may be temporarily restricted; wait before rerunning",
		"Reduce the page rate or batch size",
	},
	CategoryValidation: {
		"Check the job parameters for malformed input",
	},
	CategoryRateLimit: {
		"Wait for the advertised window before retrying",
		"Reduce the page rate or batch size",
	},
	CategoryNetwork: {
		"Check connectivity to the target site",
	},
	CategorySystem: {
		"Inspect the logs for the underlying failure",
	},
}

// CreateErrorResponse builds the structured payload for err. requestID may
// be empty, in which case a fresh one is assigned. Returns the payload and
// its HTTP-equivalent status code.
func CreateErrorResponse(err error, context, requestID string) (ErrorResponse, int) {
	c := Categorize(err)

	if requestID == "" {
		requestID = uuid.New().String()
	}

	resp := ErrorResponse{
		RequestID:   requestID,
		Category:    c.Category,
		Message:     err.Error(),
		Context:     context,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Suggestions: categorySuggestions[c.Category],
	}

	if c.Category == CategoryRateLimit {
		retryAfter := c.RetryAfterSeconds
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfterSeconds
		}
		resp.RetryAfter = retryAfter
		resp.RetryAt = time.Now().UTC().Add(time.Duration(retryAfter) * time.Second).Format(time.RFC3339)
	}

	return resp, c.StatusCode
}
