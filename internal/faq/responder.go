// Package faq answers informational questions from restaurant profile data.
package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"restaurant-assistant/internal/domain"
)

// UnavailableMessage is returned whenever profile data cannot back an answer.
const UnavailableMessage = "Sorry, that information is unavailable right now. Please ask to speak to a staff member if it is urgent."

// ProfileProvider looks up static restaurant data.
type ProfileProvider interface {
	GetProfile(ctx context.Context, restaurantID string) (domain.RestaurantProfile, error)
}

// Responder renders FAQ templates. It never returns an error: missing or
// unreadable profile data yields UnavailableMessage.
type Responder struct {
	profiles ProfileProvider
	now      func() time.Time
	logger   *slog.Logger
}

// NewResponder returns a Responder. A nil logger falls back to slog.Default.
func NewResponder(profiles ProfileProvider, now func() time.Time, logger *slog.Logger) (*Responder, error) {
	if profiles == nil {
		return nil, errors.New("faq: profile provider must not be nil")
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{profiles: profiles, now: now, logger: logger}, nil
}

// Answer returns a text BotMessage with no suggestions for an FAQ intent.
func (r *Responder) Answer(ctx context.Context, in domain.Intent, restaurantID string) domain.BotMessage {
	content := UnavailableMessage
	p, err := r.profiles.GetProfile(ctx, restaurantID)
	if err != nil {
		r.logger.Warn("faq: profile unavailable", "restaurant_id", restaurantID, "intent", in, "err", err)
	} else if text, ok := r.render(in, p); ok {
		content = text
	} else {
		r.logger.Warn("faq: profile incomplete", "restaurant_id", restaurantID, "intent", in)
	}
	return domain.BotMessage{
		Content:     content,
		MessageType: domain.MessageTypeText,
		Suggestions: []domain.Suggestion{},
	}
}

func (r *Responder) render(in domain.Intent, p domain.RestaurantProfile) (string, bool) {
	switch in {
	case domain.IntentFAQHours:
		return r.hours(p)
	case domain.IntentFAQLocation:
		return location(p)
	case domain.IntentFAQDelivery:
		return delivery(p)
	case domain.IntentFAQOrderStatus:
		return orderStatus(p), true
	}
	return "", false
}

func (r *Responder) hours(p domain.RestaurantProfile) (string, bool) {
	open, okOpen := parseClock(p.OpeningTime)
	closing, okClose := parseClock(p.ClosingTime)
	if !okOpen || !okClose {
		return "", false
	}
	loc := time.UTC
	if p.Timezone != "" {
		l, err := time.LoadLocation(p.Timezone)
		if err != nil {
			return "", false
		}
		loc = l
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s is open daily from %s to %s.", displayName(p), p.OpeningTime, p.ClosingTime)
	if isOpenAt(r.now().In(loc), open, closing) {
		b.WriteString(" We're open now.")
	} else {
		b.WriteString(" We're currently closed.")
	}
	return b.String(), true
}

func location(p domain.RestaurantProfile) (string, bool) {
	addr := joinNonEmpty(", ", p.Address, p.District, p.City)
	if strings.TrimSpace(p.Address) == "" {
		return "", false
	}
	text := fmt.Sprintf("You can find %s at %s.", displayName(p), addr)
	return withPhone(text, p), true
}

func delivery(p domain.RestaurantProfile) (string, bool) {
	if p.DeliveryRadiusKm <= 0 {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "We deliver within %s km.", strconv.FormatFloat(p.DeliveryRadiusKm, 'f', -1, 64))
	if p.DeliveryFee > 0 {
		fmt.Fprintf(&b, " The delivery fee is %s.", formatMoney(p.DeliveryFee, p.Currency))
	} else {
		b.WriteString(" Delivery is free.")
	}
	if p.MinimumOrder > 0 {
		fmt.Fprintf(&b, " Minimum order is %s.", formatMoney(p.MinimumOrder, p.Currency))
	}
	return withPhone(b.String(), p), true
}

func orderStatus(p domain.RestaurantProfile) string {
	text := "I can help with your order. Please share your order number and our team will check its latest status."
	return withPhone(text, p)
}

func withPhone(text string, p domain.RestaurantProfile) string {
	if strings.TrimSpace(p.PhoneNumber) == "" {
		return text
	}
	return text + " You can also call us at " + p.PhoneNumber + "."
}

func displayName(p domain.RestaurantProfile) string {
	if strings.TrimSpace(p.Name) == "" {
		return "The restaurant"
	}
	return p.Name
}

// parseClock reads HH:MM into minutes after midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// isOpenAt handles hours that cross midnight, e.g. 18:00-02:00.
func isOpenAt(now time.Time, open, closing int) bool {
	m := now.Hour()*60 + now.Minute()
	if open == closing {
		return true
	}
	if open < closing {
		return m >= open && m < closing
	}
	return m >= open || m < closing
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func formatMoney(v float64, currency string) string {
	if currency == "" {
		currency = "VND"
	}
	if v != math.Trunc(v) {
		return fmt.Sprintf("%.2f %s", v, currency)
	}
	digits := strconv.FormatInt(int64(v), 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String() + " " + currency
}
