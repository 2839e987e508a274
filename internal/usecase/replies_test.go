package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/recommend"
)

func TestRecommendationContent(t *testing.T) {
	res := recommend.Result{Suggestions: []domain.Suggestion{
		{ItemID: "A", Name: "Bun Cha", Price: 85000, Reason: "Highly rated | Great for lunch"},
		{ItemID: "B", Name: "Goi Cuon", Price: 45000, Reason: "Well rated"},
	}}
	got := recommendationContent(res, nil)
	require.Equal(t, "Based on your preferences, here are my top recommendations:\n"+
		"1. Bun Cha (Highly rated | Great for lunch)\n"+
		"2. Goi Cuon (Well rated)\n"+
		recommendOutro, got)

	require.Equal(t, noMatchesReply, recommendationContent(recommend.Result{}, nil))
}

func TestRelaxationNotice(t *testing.T) {
	require.Empty(t, relaxationNotice(nil))
	require.Empty(t, relaxationNotice([]recommend.Relaxation{recommend.RelaxedWeather}))
	require.Equal(t,
		"Nothing matched everything you asked for, so I set aside your price limit and your dietary preference.",
		relaxationNotice([]recommend.Relaxation{recommend.RelaxedWeather, recommend.RelaxedPrice, recommend.RelaxedDietary}))
}

func TestRecommendationIntro(t *testing.T) {
	require.Contains(t, recommendationIntro(&domain.Weather{Temp: 34}), "hot weather")
	require.Contains(t, recommendationIntro(&domain.Weather{Temp: 15}), "warming")
	require.Contains(t, recommendationIntro(&domain.Weather{Temp: 24}), "top recommendations")
}
