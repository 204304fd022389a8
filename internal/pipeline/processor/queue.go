package processor

import "github.com/vietddude/prospector/internal/core/domain"

// QueueCapacity is the consecutive-failure ceiling before the processor
// pauses and re-attempts.
const QueueCapacity = 3

// ErrorQueue is a bounded, ephemeral sequence of consecutive item-level
// failures. Cleared on any success and never persisted; on escalation it
// is folded into a partial-work file instead.
type ErrorQueue struct {
	items []domain.Link
	cap   int
}

// NewErrorQueue creates a queue with the given capacity (defaults to
// QueueCapacity when non-positive).
func NewErrorQueue(capacity int) *ErrorQueue {
	if capacity <= 0 {
		capacity = QueueCapacity
	}
	return &ErrorQueue{cap: capacity}
}

// Push records a failed item. Pushing beyond capacity is a no-op; the
// caller must escalate once Full reports true.
func (q *ErrorQueue) Push(item domain.Link) {
	if len(q.items) < q.cap {
		q.items = append(q.items, item)
	}
}

// Full reports whether the queue reached its failure ceiling.
func (q *ErrorQueue) Full() bool { return len(q.items) >= q.cap }

// Len returns the number of queued failures.
func (q *ErrorQueue) Len() int { return len(q.items) }

// Items returns the queued failures in arrival order.
func (q *ErrorQueue) Items() []domain.Link { return q.items }

// Clear drops all queued failures. Called on any success.
func (q *ErrorQueue) Clear() { q.items = nil }

// BuildPartialWork converts the queue plus the untouched tail of the item
// list into the remaining-work set for a partial-work file. nextIndex is the
// index the main loop would process next. The restart index backs up by the
// queue length (floored at zero) so every queued failure is reprocessed; if
// the arithmetic still drops the first failing item it is re-inserted at the
// front. At-least-once reprocessing is safe because per-item analysis is
// idempotent.
func BuildPartialWork(q *ErrorQueue, items []domain.Link, nextIndex int) []domain.Link {
	restart := nextIndex - q.Len()
	if restart < 0 {
		restart = 0
	}
	if restart > len(items) {
		restart = len(items)
	}

	remaining := make([]domain.Link, 0, len(items)-restart+1)
	remaining = append(remaining, items[restart:]...)

	if q.Len() > 0 {
		first := q.Items()[0]
		if len(remaining) == 0 || remaining[0].URL != first.URL {
			remaining = append([]domain.Link{first}, remaining...)
		}
	}
	return remaining
}
