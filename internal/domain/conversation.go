package domain

import "time"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoomStatus is the lifecycle state of a chat room as seen by the assistant.
type RoomStatus string

const (
	RoomStatusActive  RoomStatus = "active"
	RoomStatusWaiting RoomStatus = "waiting" // handed off, waiting for a human responder
)

// ConversationTurn is a single persisted message in a room's history.
// Turns are immutable once appended.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Intent    Intent    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationContext is the bounded view of a room the engine works with:
// room metadata plus the most recent turns in chronological order.
type ConversationContext struct {
	RoomID              string             `json:"room_id"`
	RoomStatus          RoomStatus         `json:"room_status"`
	RoomType            string             `json:"room_type"`
	MessageCount        int                `json:"message_count"`
	// LowConfidenceStreak counts consecutive low-confidence unknown replies.
	LowConfidenceStreak int                `json:"low_confidence_streak"`
	Turns               []ConversationTurn `json:"turns"`
}

// RoomUpdate is one exchange committed to a room. ExpectedCount is the
// message count the exchange was computed against; the commit fails if the
// room moved on in the meantime.
type RoomUpdate struct {
	Status              RoomStatus
	ExpectedCount       int
	LowConfidenceStreak int
	Turns               []ConversationTurn
}

// LastAssistantIntent returns the intent of the most recent assistant turn, or
// the empty intent if there is none.
func (c ConversationContext) LastAssistantIntent() Intent {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleAssistant {
			return c.Turns[i].Intent
		}
	}
	return ""
}
