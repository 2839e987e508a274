package domain

// Intent is the classified purpose of a customer message.
type Intent string

const (
	IntentFAQHours       Intent = "faq_hours"
	IntentFAQLocation    Intent = "faq_location"
	IntentFAQDelivery    Intent = "faq_delivery"
	IntentFAQOrderStatus Intent = "faq_order_status"
	IntentRecommendation Intent = "recommendation"
	IntentEscalation     Intent = "escalation"
	IntentSmalltalk      Intent = "smalltalk"
	IntentUnknown        Intent = "unknown"
)

var knownIntents = map[Intent]struct{}{
	IntentFAQHours:       {},
	IntentFAQLocation:    {},
	IntentFAQDelivery:    {},
	IntentFAQOrderStatus: {},
	IntentRecommendation: {},
	IntentEscalation:     {},
	IntentSmalltalk:      {},
	IntentUnknown:        {},
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	_, ok := knownIntents[i]
	return ok
}

// IsFAQ reports whether i is one of the informational FAQ intents.
func (i Intent) IsFAQ() bool {
	switch i {
	case IntentFAQHours, IntentFAQLocation, IntentFAQDelivery, IntentFAQOrderStatus:
		return true
	}
	return false
}

// IntentResult is the classifier output. Confidence is in [0,1].
type IntentResult struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}
