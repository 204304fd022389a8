package classify

import "time"

// RecoveryPlan is the derived escalation decision for one failure: whether
// recovery is worth attempting, how long to wait, and the ordered cleanup
// steps to run first. Never persisted.
type RecoveryPlan struct {
	Classification Classification
	ShouldRecover  bool
	Delay          time.Duration
	Actions        []string
}

// categoryActions lists the ordered recovery steps per category.
var categoryActions = map[Category][]string{
	CategoryBrowser: {
		"drop browser session",
		"clear session cache",
		"restart browser",
	},
	CategoryRateLimit: {
		"wait for rate limit window reset",
	},
	CategoryAuthentication: {
		"clear authentication state",
		"refresh session token",
	},
	CategoryLinkedIn: {
		"drop browser session",
		"rotate browsing pattern",
	},
	CategoryNetwork: {
		"reset connections",
	},
}

// CreateRecoveryPlan classifies err and composes backoff plus the
// category-specific action list. ShouldRecover turns false once attempt
// exceeds the category's ceiling.
func CreateRecoveryPlan(err error, attempt int) RecoveryPlan {
	c := Categorize(err)

	actions, ok := categoryActions[c.Category]
	if !ok {
		actions = []string{"restart from last checkpoint"}
	}

	return RecoveryPlan{
		Classification: c,
		ShouldRecover:  IsRecoverable(c, attempt),
		Delay:          CalculateBackoff(attempt, c.Category),
		Actions:        actions,
	}
}
