package recommend

import (
	"regexp"
	"strconv"
	"strings"

	"restaurant-assistant/internal/textnorm"
)

// Meal is a meal-time hint used to favour matching tagged items.
type Meal string

const (
	MealNone      Meal = ""
	MealBreakfast Meal = "breakfast"
	MealLunch     Meal = "lunch"
	MealDinner    Meal = "dinner"
)

const (
	tagVegetarian = "vegetarian"
	tagVegan      = "vegan"
	tagSpicy      = "spicy"
)

var (
	vegetarianTerms = []string{"vegetarian", "veggie", "meatless", "no meat"}
	veganTerms      = []string{"vegan", "plant based"}
	noSpicyTerms    = []string{"no spicy", "not spicy", "non spicy", "mild", "spicy free", "without spice", "no chili", "not too spicy"}
	spicyTerms      = []string{"spicy", "hot and spicy", "extra spicy"}

	mealTerms = []struct {
		meal  Meal
		terms []string
	}{
		{MealBreakfast, []string{"breakfast", "morning", "brunch"}},
		{MealLunch, []string{"lunch", "noon", "midday"}},
		{MealDinner, []string{"dinner", "evening", "tonight", "supper"}},
	}

	priceCeilingRe = regexp.MustCompile(`(?:under|below|less than|cheaper than|up to|at most|maximum|max|no more than)\s*(?:\$|vnd|đ)?\s*(\d+(?:[.,]\d+)*)\s*(k|m)?\b`)
	groupedNumRe   = regexp.MustCompile(`^\d{1,3}(?:[.,]\d{3})+$`)
)

// Constraints are the preferences lexically recognised in a message.
type Constraints struct {
	RequireTags  []string
	ExcludeTags  []string
	PreferSpicy  bool
	MaxPrice     float64 // zero means no ceiling
	Meal         Meal
	MealFromText bool
}

// ParseConstraints scans raw message text for dietary, price and meal-time hints.
// It never fails: unrecognised text yields zero Constraints.
func ParseConstraints(raw string) Constraints {
	txt := textnorm.Normalize(raw)
	var c Constraints

	if txt.HasAny(veganTerms) {
		c.RequireTags = append(c.RequireTags, tagVegan)
	}
	if txt.HasAny(vegetarianTerms) {
		c.RequireTags = append(c.RequireTags, tagVegetarian)
	}
	if txt.HasAny(noSpicyTerms) {
		c.ExcludeTags = append(c.ExcludeTags, tagSpicy)
	} else if txt.HasAny(spicyTerms) {
		c.PreferSpicy = true
	}

	c.MaxPrice = parsePriceCeiling(raw)

	for _, mt := range mealTerms {
		if txt.HasAny(mt.terms) {
			c.Meal = mt.meal
			c.MealFromText = true
			break
		}
	}
	return c
}

// Signals is the number of distinct constraints recognised from text.
func (c Constraints) Signals() int {
	n := len(c.RequireTags) + len(c.ExcludeTags)
	if c.PreferSpicy {
		n++
	}
	if c.MaxPrice > 0 {
		n++
	}
	if c.MealFromText {
		n++
	}
	return n
}

// HardSignals counts only the constraints that filter the catalog.
func (c Constraints) HardSignals() int {
	n := len(c.RequireTags) + len(c.ExcludeTags)
	if c.MaxPrice > 0 {
		n++
	}
	return n
}

func parsePriceCeiling(raw string) float64 {
	m := priceCeilingRe.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return 0
	}
	num := m[1]
	if groupedNumRe.MatchString(num) {
		num = strings.NewReplacer(".", "", ",", "").Replace(num)
	} else {
		num = strings.ReplaceAll(num, ",", ".")
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v <= 0 {
		return 0
	}
	switch m[2] {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return v
}

// MealForHour maps a local hour of day to the meal usually eaten then.
func MealForHour(hour int) Meal {
	switch {
	case hour < 11:
		return MealBreakfast
	case hour < 16:
		return MealLunch
	default:
		return MealDinner
	}
}
