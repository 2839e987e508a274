// Package escalation decides when a conversation is handed to a human.
package escalation

import "restaurant-assistant/internal/domain"

const (
	DefaultLowConfidence = 0.3
	DefaultStreak        = 2
)

// Policy escalates explicit handoff requests and rooms where the assistant
// failed to understand the customer several turns in a row. It holds no
// per-room state: the caller loads the room's streak, passes it in and
// commits the returned value with the room.
type Policy struct {
	lowConfidence float64
	streak        int
}

// NewPolicy returns a Policy. Non-positive arguments select the defaults.
func NewPolicy(lowConfidence float64, streak int) *Policy {
	if lowConfidence <= 0 {
		lowConfidence = DefaultLowConfidence
	}
	if streak <= 0 {
		streak = DefaultStreak
	}
	return &Policy{lowConfidence: lowConfidence, streak: streak}
}

// Decide reports whether res hands the room off, given the room's current
// low-confidence streak, and returns the streak to store. The streak resets
// after any other outcome, including an escalation.
func (p *Policy) Decide(streak int, res domain.IntentResult) (escalate bool, next int) {
	switch {
	case res.Intent == domain.IntentEscalation:
		return true, 0
	case res.Intent == domain.IntentUnknown && res.Confidence < p.lowConfidence:
		if streak < 0 {
			streak = 0
		}
		next = streak + 1
		if next >= p.streak {
			return true, 0
		}
		return false, next
	default:
		return false, 0
	}
}
