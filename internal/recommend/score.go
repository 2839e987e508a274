package recommend

import (
	"sort"
	"strings"

	"restaurant-assistant/internal/domain"
)

type weatherBias int

const (
	biasNone weatherBias = iota
	biasHot              // favour light, cold items
	biasCold             // favour warming items
)

var (
	hotWeatherTags  = []string{"light", "cold drink"}
	coldWeatherTags = []string{"hot", "soup", "spicy"}
)

// weatherBiasFor derives the bias from temperature first, falling back to the
// reported condition for mild temperatures.
func weatherBiasFor(w *domain.Weather) weatherBias {
	if w == nil {
		return biasNone
	}
	switch {
	case w.Temp >= 30:
		return biasHot
	case w.Temp <= 18:
		return biasCold
	}
	cond := strings.ToLower(strings.TrimSpace(w.Condition))
	switch {
	case cond == "sunny" || cond == "clear":
		return biasHot
	case strings.Contains(cond, "rain"):
		return biasCold
	}
	return biasNone
}

type factor struct {
	label  string
	weight float64
}

type scored struct {
	item    domain.CatalogItem
	total   float64
	factors []factor
}

func score(it domain.CatalogItem, cons Constraints, bias weatherBias) scored {
	s := scored{item: it, total: it.Rating}
	s.factors = append(s.factors, factor{ratingTier(it.Rating), it.Rating})

	if it.IsFeatured {
		s.add("Chef's featured pick", featuredBonus)
	}
	switch bias {
	case biasHot:
		if hasAnyTag(it, hotWeatherTags) {
			s.add("Refreshing for hot weather", weatherBonus)
		}
	case biasCold:
		if hasAnyTag(it, coldWeatherTags) {
			s.add("Warming for cool weather", weatherBonus)
		}
	}
	if cons.Meal != MealNone && hasTag(it, string(cons.Meal)) {
		s.add("Great for "+string(cons.Meal), mealBonus)
	}
	if cons.PreferSpicy && hasTag(it, tagSpicy) {
		s.add("Spicy as requested", spicyBonus)
	}
	return s
}

func (s *scored) add(label string, w float64) {
	s.total += w
	s.factors = append(s.factors, factor{label, w})
}

// reason lists the dominant factors by contribution. The rating tier is always
// present so the result is never empty.
func (s scored) reason() string {
	fs := make([]factor, len(s.factors))
	copy(fs, s.factors)
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].weight > fs[j].weight })
	if len(fs) > maxReasonParts {
		fs = fs[:maxReasonParts]
	}
	labels := make([]string, 0, len(fs))
	for _, f := range fs {
		labels = append(labels, f.label)
	}
	return strings.Join(labels, reasonSep)
}

func ratingTier(r float64) string {
	switch {
	case r >= 4.5:
		return "Excellent rating"
	case r >= 4.0:
		return "Highly rated"
	case r >= 3.0:
		return "Well rated"
	default:
		return "Popular choice"
	}
}
