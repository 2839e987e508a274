package usecase

import (
	"fmt"
	"strings"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/recommend"
)

const (
	escalationReply = "I understand this needs personal attention. Let me connect you with a member of our staff who can help. " +
		"Our team usually responds within a few minutes and your conversation history will be kept."

	lowConfidenceReply = "I'm having trouble understanding, so I'm connecting you with a member of our staff who can help."

	clarifyReply = "Sorry, I didn't quite get that. I can tell you about our opening hours, location, delivery " +
		"and orders, or recommend something to eat. What would you like to know?"

	smalltalkReply = "Hi there! I can help with our opening hours, location and delivery, or suggest a dish. What can I do for you?"

	noMatchesReply = "I couldn't find dishes matching your request. Try removing a filter, or ask me for our popular items."

	recommendOutro = "Would you like more details about any of these, or different recommendations?"
)

var relaxationText = map[recommend.Relaxation]string{
	recommend.RelaxedWeather: "the weather preference",
	recommend.RelaxedPrice:   "your price limit",
	recommend.RelaxedDietary: "your dietary preference",
}

// recommendationIntro picks an opening line from the weather, if known.
func recommendationIntro(w *domain.Weather) string {
	switch {
	case w != nil && w.Temp >= 30:
		return "Given the hot weather, here are some lighter options:"
	case w != nil && w.Temp <= 18:
		return "Since it's cool out, here are some warming dishes:"
	default:
		return "Based on your preferences, here are my top recommendations:"
	}
}

func recommendationContent(res recommend.Result, w *domain.Weather) string {
	if len(res.Suggestions) == 0 {
		return noMatchesReply
	}
	var b strings.Builder
	if notice := relaxationNotice(res.Relaxed); notice != "" {
		b.WriteString(notice)
		b.WriteString(" ")
	}
	b.WriteString(recommendationIntro(w))
	for i, s := range res.Suggestions {
		fmt.Fprintf(&b, "\n%d. %s (%s)", i+1, s.Name, s.Reason)
	}
	b.WriteString("\n")
	b.WriteString(recommendOutro)
	return b.String()
}

func relaxationNotice(relaxed []recommend.Relaxation) string {
	parts := make([]string, 0, len(relaxed))
	for _, r := range relaxed {
		// The customer never asked for the weather bias.
		if r == recommend.RelaxedWeather {
			continue
		}
		if txt, ok := relaxationText[r]; ok {
			parts = append(parts, txt)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Nothing matched everything you asked for, so I set aside " + strings.Join(parts, " and ") + "."
}

func textMessage(content string) domain.BotMessage {
	return domain.BotMessage{
		Content:     content,
		MessageType: domain.MessageTypeText,
		Suggestions: []domain.Suggestion{},
	}
}
