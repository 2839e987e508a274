// Package intent classifies customer messages with a deterministic, layered
// rule table: escalation, FAQ, recommendation, smalltalk, then unknown.
package intent

import (
	"math"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/recommend"
	"restaurant-assistant/internal/textnorm"
)

const (
	// MinConfidence is the score a layer must reach to be reported.
	MinConfidence = 0.5

	escalationStep   = 0.02
	faqBase          = 0.7
	faqStep          = 0.1
	faqCap           = 0.95
	recTriggerBase   = 0.6
	recSignalBase    = 0.45
	recWeakBase      = 0.35
	recWeatherOnly   = 0.55
	recStep          = 0.1
	recCap           = 0.95
	recFollowUp      = 0.6
	smalltalkBase    = 0.6
	smalltalkCap     = 0.8
	extraTriggerStep = 0.05
)

// Context is the situational data the classifier considers besides text.
// Weather is the weather the customer sent with the message; sending it is
// itself a request for a suggestion.
type Context struct {
	Weather             *domain.Weather
	LastAssistantIntent domain.Intent
}

// Classifier maps message text to an IntentResult. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct{}

// New returns a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify never fails; text it cannot place is reported as unknown with the
// best partial score it saw.
func (c *Classifier) Classify(text string, cc Context) domain.IntentResult {
	txt := textnorm.Normalize(text)
	if txt.Empty() {
		return domain.IntentResult{Intent: domain.IntentUnknown, Confidence: 0}
	}

	if conf, ok := escalationScore(txt); ok {
		return result(domain.IntentEscalation, conf)
	}
	if in, conf, ok := faqScore(txt); ok {
		return result(in, conf)
	}

	smalltalkHits := txt.Count(smalltalkTerms)
	recConf := recommendationScore(txt, text, cc, smalltalkHits > 0)
	if recConf >= MinConfidence {
		return result(domain.IntentRecommendation, recConf)
	}
	if smalltalkHits > 0 {
		return result(domain.IntentSmalltalk, math.Min(smalltalkBase+0.1*float64(smalltalkHits-1), smalltalkCap))
	}
	return result(domain.IntentUnknown, recConf)
}

func escalationScore(txt textnorm.Text) (float64, bool) {
	best, hits := 0.0, 0
	for _, p := range escalationPhrases {
		if txt.Has(p.text) {
			hits++
			best = math.Max(best, p.weight)
		}
	}
	if hits == 0 {
		return 0, false
	}
	return math.Min(best+escalationStep*float64(hits-1), 1.0), true
}

func faqScore(txt textnorm.Text) (domain.Intent, float64, bool) {
	var (
		bestIntent domain.Intent
		bestWeight float64
		bestHits   int
	)
	for _, r := range faqRules {
		w, hits := 0.0, 0
		for _, p := range r.phrases {
			if txt.Has(p.text) {
				w += p.weight
				hits++
			}
		}
		if w > bestWeight || (w == bestWeight && hits > bestHits) {
			bestIntent, bestWeight, bestHits = r.intent, w, hits
		}
	}
	if bestWeight == 0 {
		return "", 0, false
	}
	return bestIntent, math.Min(faqBase+faqStep*(bestWeight-1), faqCap), true
}

// recommendationScore returns the recommendation confidence, which may sit
// below MinConfidence as a partial score.
func recommendationScore(txt textnorm.Text, raw string, cc Context, smalltalk bool) float64 {
	triggers := txt.Count(recommendationTriggers)
	cons := recommend.ParseConstraints(raw)
	signals := cons.Signals()
	weather := 0
	if cc.Weather != nil {
		weather = 1
	}

	followUp := cc.LastAssistantIntent == domain.IntentRecommendation && txt.HasAny(followUpTerms)

	var conf float64
	switch {
	case triggers > 0:
		conf = recTriggerBase + recStep*float64(signals+weather) + extraTriggerStep*float64(triggers-1)
	case smalltalk && cons.HardSignals() == 0:
		// greetings like "good morning" carry a meal word but are not requests
		conf = 0
	case signals > 0:
		conf = recSignalBase + recStep*float64(signals+weather)
	case txt.HasAny(weakFoodTerms):
		conf = recWeakBase + 2*recStep*float64(weather)
	case weather > 0:
		conf = recWeatherOnly
	}
	if followUp {
		conf = math.Max(conf, recFollowUp)
	}
	return math.Min(conf, recCap)
}

func result(in domain.Intent, conf float64) domain.IntentResult {
	return domain.IntentResult{Intent: in, Confidence: math.Round(conf*100) / 100}
}
