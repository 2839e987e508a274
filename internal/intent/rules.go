package intent

import "restaurant-assistant/internal/domain"

type phrase struct {
	text   string
	weight float64
}

type faqRule struct {
	intent  domain.Intent
	phrases []phrase
}

// escalationPhrases are explicit requests for a human. Weight is the
// confidence of the most specific phrase matched.
var escalationPhrases = []phrase{
	{"speak to a human", 1.0},
	{"talk to a human", 1.0},
	{"human person", 0.98},
	{"real person", 0.97},
	{"speak to someone", 0.95},
	{"talk to someone", 0.95},
	{"customer service", 0.93},
	{"manager", 0.92},
	{"staff member", 0.92},
	{"agent", 0.9},
	{"human", 0.9},
	{"complaint", 0.9},
	{"refund", 0.9},
	{"lawyer", 0.9},
	{"scam", 0.9},
}

// faqRules are evaluated in order; earlier rules win ties. Multi-word phrases
// weigh more than single keywords.
var faqRules = []faqRule{
	{domain.IntentFAQHours, []phrase{
		{"open", 1}, {"opening", 1}, {"opens", 1}, {"hours", 1},
		{"close", 1}, {"closing", 1}, {"closes", 1},
		{"what time", 2}, {"opening hours", 2}, {"business hours", 2},
	}},
	{domain.IntentFAQLocation, []phrase{
		{"where", 1}, {"located", 1}, {"location", 1}, {"address", 1}, {"directions", 1},
		{"find you", 2}, {"how do i get there", 2},
	}},
	{domain.IntentFAQDelivery, []phrase{
		{"deliver", 1}, {"delivery", 1}, {"delivers", 1}, {"ship", 1}, {"shipping", 1},
		{"delivery fee", 2}, {"delivery radius", 2}, {"minimum order", 2},
	}},
	{domain.IntentFAQOrderStatus, []phrase{
		{"track", 1}, {"tracking", 1}, {"status", 1},
		{"my order", 2}, {"order status", 2},
	}},
}

var (
	recommendationTriggers = []string{
		"recommend", "recommendation", "recommendations", "suggest", "suggestion", "suggestions",
		"what should i eat", "what should i order", "what do you have", "what s good",
		"hungry", "craving", "best dish", "popular", "something to eat",
	}
	weakFoodTerms  = []string{"food", "eat", "dish", "dishes", "meal", "drink", "menu", "order"}
	followUpTerms  = []string{"another", "something else", "more options", "other options", "anything else", "what else"}
	smalltalkTerms = []string{
		"hi", "hello", "hey", "thanks", "thank you", "good morning", "good afternoon",
		"good evening", "how are you", "bye", "goodbye", "ok", "okay",
	}
)
