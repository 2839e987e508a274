package domain

import "time"

// FeedbackType is what a feedback submission is about.
type FeedbackType string

const (
	FeedbackRecommendation FeedbackType = "recommendation"
	FeedbackResponse       FeedbackType = "response"
	FeedbackEscalation     FeedbackType = "escalation"
)

// Valid reports whether t is a known feedback type.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackRecommendation, FeedbackResponse, FeedbackEscalation:
		return true
	}
	return false
}

// FeedbackRecord is a post-hoc rating of a bot response. Records are append-only.
type FeedbackRecord struct {
	ID             string       `json:"id,omitempty"`
	RoomID         string       `json:"room_id"`
	RestaurantID   string       `json:"restaurant_id"`
	FeedbackType   FeedbackType `json:"feedback_type"`
	Rating         int          `json:"rating"`
	SuggestedItems []string     `json:"suggested_items"`
	AcceptedItems  []string     `json:"accepted_items"`
	Intent         Intent       `json:"intent,omitempty"`
	UserComment    string       `json:"user_comment,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// AcceptanceRatio is |accepted| / |suggested|, or 0 when nothing was suggested.
func (r FeedbackRecord) AcceptanceRatio() float64 {
	if len(r.SuggestedItems) == 0 {
		return 0
	}
	return float64(len(r.AcceptedItems)) / float64(len(r.SuggestedItems))
}
