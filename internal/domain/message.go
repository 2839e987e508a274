package domain

// Weather is the optional situational context supplied with a message.
type Weather struct {
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
}

// MessageContext carries optional situational data for a message.
type MessageContext struct {
	Weather *Weather `json:"weather,omitempty"`
}

// InboundMessage is a customer message addressed to the assistant.
type InboundMessage struct {
	RoomID       string          `json:"room_id"`
	RestaurantID string          `json:"restaurant_id"`
	Text         string          `json:"message"`
	Context      *MessageContext `json:"context,omitempty"`
}

// Weather returns the message weather, or nil when none was supplied.
func (m InboundMessage) Weather() *Weather {
	if m.Context == nil {
		return nil
	}
	return m.Context.Weather
}

// MessageType is the presentation type of a bot reply.
type MessageType string

const (
	MessageTypeText       MessageType = "text"
	MessageTypeEscalation MessageType = "escalation"
	MessageTypeError      MessageType = "error"
)

// Suggestion is a ranked menu item recommendation.
type Suggestion struct {
	ItemID string  `json:"item_id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Reason string  `json:"reason"`
}

// BotMessage is the assistant's reply.
type BotMessage struct {
	Content     string       `json:"content"`
	MessageType MessageType  `json:"message_type"`
	Suggestions []Suggestion `json:"suggestions"`
}

// ResponseEnvelope is the engine's output for a handled message.
type ResponseEnvelope struct {
	BotMessage      BotMessage `json:"bot_message"`
	Intent          Intent     `json:"intent"`
	ConfidenceScore float64    `json:"confidence_score"`
	IsEscalated     bool       `json:"is_escalated"`

	// Unpersisted is set when the reply was computed but the turn could not be
	// appended to the room history.
	Unpersisted bool `json:"-"`
}
