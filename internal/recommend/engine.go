// Package recommend filters and ranks menu items against the constraints
// found in a customer message.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"restaurant-assistant/internal/domain"
)

const (
	DefaultLimit = 3

	featuredBonus = 1.0
	weatherBonus  = 1.5
	mealBonus     = 0.75
	spicyBonus    = 0.5

	maxReasonParts = 3
	reasonSep      = " | "
)

// Relaxation names a constraint dropped because nothing satisfied the full set.
type Relaxation string

const (
	RelaxedWeather Relaxation = "weather"
	RelaxedPrice   Relaxation = "price"
	RelaxedDietary Relaxation = "dietary"
)

// CatalogProvider supplies menu items for a restaurant.
type CatalogProvider interface {
	ListItems(ctx context.Context, restaurantID string) ([]domain.CatalogItem, error)
}

// Request is one recommendation query.
type Request struct {
	RestaurantID string
	Text         string
	Weather      *domain.Weather
	Limit        int
}

// Result is the ranked output plus the constraints that had to be relaxed.
type Result struct {
	Suggestions []domain.Suggestion
	Relaxed     []Relaxation
}

// Engine recommends menu items. It is safe for concurrent use.
type Engine struct {
	catalog CatalogProvider
	now     func() time.Time
	loc     *time.Location
	limit   int
}

type Option func(*Engine)

// WithClock overrides the clock used for the meal-time fallback.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the timezone the meal-time fallback is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLimit sets the default number of suggestions.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// NewEngine returns an Engine reading items from catalog.
func NewEngine(catalog CatalogProvider, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("recommend: catalog provider must not be nil")
	}
	e := &Engine{
		catalog: catalog,
		now:     time.Now,
		loc:     time.UTC,
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Recommend fetches the catalog and ranks it. Only the catalog fetch can fail;
// a catalog with nothing suitable yields an empty Result.
func (e *Engine) Recommend(ctx context.Context, req Request) (Result, error) {
	items, err := e.catalog.ListItems(ctx, req.RestaurantID)
	if err != nil {
		return Result{}, fmt.Errorf("recommend: list items: %w", err)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = e.limit
	}
	cons := ParseConstraints(req.Text)
	if cons.Meal == MealNone {
		cons.Meal = MealForHour(e.now().In(e.loc).Hour())
	}
	return Rank(items, cons, req.Weather, limit), nil
}

// Rank is the pure ranking step: filter, relax if needed, score, and explain.
func Rank(items []domain.CatalogItem, cons Constraints, weather *domain.Weather, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	}
	available := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if it.Available {
			available = append(available, it)
		}
	}
	if len(available) == 0 {
		return Result{Suggestions: []domain.Suggestion{}}
	}

	bias := weatherBiasFor(weather)
	var relaxed []Relaxation
	candidates := filter(available, cons)
	if len(candidates) == 0 && bias != biasNone {
		// weather only affects scoring; dropping it cannot widen the set
		bias = biasNone
		relaxed = append(relaxed, RelaxedWeather)
	}
	if len(candidates) == 0 && cons.MaxPrice > 0 {
		cons.MaxPrice = 0
		relaxed = append(relaxed, RelaxedPrice)
		candidates = filter(available, cons)
	}
	if len(candidates) == 0 && (len(cons.RequireTags) > 0 || len(cons.ExcludeTags) > 0) {
		cons.RequireTags, cons.ExcludeTags = nil, nil
		relaxed = append(relaxed, RelaxedDietary)
		candidates = filter(available, cons)
	}

	scoredItems := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		scoredItems = append(scoredItems, score(it, cons, bias))
	}
	sort.SliceStable(scoredItems, func(i, j int) bool {
		a, b := scoredItems[i], scoredItems[j]
		if a.total != b.total {
			return a.total > b.total
		}
		if a.item.Rating != b.item.Rating {
			return a.item.Rating > b.item.Rating
		}
		return a.item.ItemID < b.item.ItemID
	})
	if len(scoredItems) > limit {
		scoredItems = scoredItems[:limit]
	}

	out := make([]domain.Suggestion, 0, len(scoredItems))
	for _, s := range scoredItems {
		out = append(out, domain.Suggestion{
			ItemID: s.item.ItemID,
			Name:   s.item.Name,
			Price:  s.item.Price,
			Reason: s.reason(),
		})
	}
	return Result{Suggestions: out, Relaxed: relaxed}
}

func filter(items []domain.CatalogItem, cons Constraints) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if cons.MaxPrice > 0 && it.Price > cons.MaxPrice {
			continue
		}
		if !hasAllTags(it, cons.RequireTags) || hasAnyTag(it, cons.ExcludeTags) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func hasTag(it domain.CatalogItem, tag string) bool {
	for _, t := range it.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

func hasAllTags(it domain.CatalogItem, tags []string) bool {
	for _, t := range tags {
		if !hasTag(it, t) {
			return false
		}
	}
	return true
}

func hasAnyTag(it domain.CatalogItem, tags []string) bool {
	for _, t := range tags {
		if hasTag(it, t) {
			return true
		}
	}
	return false
}
