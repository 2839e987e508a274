package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/ratelimit"
	"restaurant-assistant/internal/repository"
)

type fakeFeedbackStore struct {
	mu      sync.Mutex
	records map[string]domain.FeedbackRecord
	putErr  error
	getErr  error
}

func newFakeFeedbackStore() *fakeFeedbackStore {
	return &fakeFeedbackStore{records: map[string]domain.FeedbackRecord{}}
}

func (f *fakeFeedbackStore) PutFeedback(_ context.Context, rec domain.FeedbackRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeFeedbackStore) GetFeedback(_ context.Context, id string) (domain.FeedbackRecord, error) {
	if f.getErr != nil {
		return domain.FeedbackRecord{}, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return domain.FeedbackRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func newFeedbackService(t *testing.T, store FeedbackStore, lim FeedbackAdmitter) *FeedbackService {
	t.Helper()
	s, err := NewFeedbackService(store, lim, nil, nil, 0)
	require.NoError(t, err)
	s.now = clock
	return s
}

func validFeedback() domain.FeedbackRecord {
	return domain.FeedbackRecord{
		RoomID:         "room-1",
		RestaurantID:   "r1",
		FeedbackType:   domain.FeedbackRecommendation,
		Rating:         4,
		SuggestedItems: []string{"A", "B", "C"},
		AcceptedItems:  []string{"B"},
		Intent:         domain.IntentRecommendation,
		UserComment:    "Loved the noodles",
	}
}

func TestRecordFeedback_RoundTrip(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "8d3f7c1e-5b2a-4c6d-9e0f-1a2b3c4d5e6f" }
	defer func() { newUUID = orig }()

	store := newFakeFeedbackStore()
	svc := newFeedbackService(t, store, &fakeLimiter{})

	id, err := svc.RecordFeedback(context.Background(), validFeedback(), "actor-1")
	require.NoError(t, err)
	require.Equal(t, "8d3f7c1e-5b2a-4c6d-9e0f-1a2b3c4d5e6f", id)

	got, err := svc.GetFeedback(context.Background(), id)
	require.NoError(t, err)
	want := validFeedback()
	want.ID = id
	want.CreatedAt = fixedNow
	require.Equal(t, want, got)
	require.InDelta(t, 1.0/3.0, got.AcceptanceRatio(), 1e-9)
}

func TestRecordFeedback_NilListsStoredEmpty(t *testing.T) {
	store := newFakeFeedbackStore()
	svc := newFeedbackService(t, store, &fakeLimiter{})

	rec := validFeedback()
	rec.FeedbackType = domain.FeedbackResponse
	rec.SuggestedItems = nil
	rec.AcceptedItems = nil
	id, err := svc.RecordFeedback(context.Background(), rec, "actor-1")
	require.NoError(t, err)

	got, err := svc.GetFeedback(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got.SuggestedItems)
	require.NotNil(t, got.AcceptedItems)
	require.Zero(t, got.AcceptanceRatio())
}

func TestRecordFeedback_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.FeedbackRecord)
		reason string
	}{
		{"rating too low", func(r *domain.FeedbackRecord) { r.Rating = 0 }, "rating_out_of_range"},
		{"rating too high", func(r *domain.FeedbackRecord) { r.Rating = 6 }, "rating_out_of_range"},
		{"accepted not suggested", func(r *domain.FeedbackRecord) { r.AcceptedItems = []string{"Z"} }, "accepted_not_subset"},
		{"unknown type", func(r *domain.FeedbackRecord) { r.FeedbackType = "menu" }, "invalid_feedback_type"},
		{"missing room", func(r *domain.FeedbackRecord) { r.RoomID = " " }, "missing_room_id"},
		{"missing restaurant", func(r *domain.FeedbackRecord) { r.RestaurantID = "" }, "missing_restaurant_id"},
		{"unknown intent", func(r *domain.FeedbackRecord) { r.Intent = "chit_chat" }, "invalid_intent"},
		{"comment too long", func(r *domain.FeedbackRecord) { r.UserComment = strings.Repeat("x", maxCommentLength+1) }, "comment_too_long"},
		{"accepted repeats", func(r *domain.FeedbackRecord) {
			r.SuggestedItems = []string{"A"}
			r.AcceptedItems = []string{"A", "A", "A"}
		}, "duplicate_items"},
		{"suggested repeats", func(r *domain.FeedbackRecord) { r.SuggestedItems = []string{"A", "B", "A"} }, "duplicate_items"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeFeedbackStore()
			lim := &fakeLimiter{}
			svc := newFeedbackService(t, store, lim)

			rec := validFeedback()
			tc.mutate(&rec)
			_, err := svc.RecordFeedback(context.Background(), rec, "actor-1")
			requireUsecaseError(t, err, ErrorInvalidInput, tc.reason)
			require.Empty(t, store.records)
			require.Zero(t, lim.calls.Load())
		})
	}
}

func TestRecordFeedback_CommentStoredAsSubmitted(t *testing.T) {
	store := newFakeFeedbackStore()
	svc := newFeedbackService(t, store, &fakeLimiter{})

	rec := validFeedback()
	rec.UserComment = "  Loved the noodles\n"
	id, err := svc.RecordFeedback(context.Background(), rec, "actor-1")
	require.NoError(t, err)
	require.Equal(t, "  Loved the noodles\n", store.records[id].UserComment)

	// Surrounding whitespace does not count against the limit.
	rec.UserComment = "   " + strings.Repeat("x", maxCommentLength) + "   "
	_, err = svc.RecordFeedback(context.Background(), rec, "actor-1")
	require.NoError(t, err)
}

func TestRecordFeedback_Throttled(t *testing.T) {
	lim, err := ratelimit.New(ratelimit.NewMemoryStore(), clock)
	require.NoError(t, err)
	svc := newFeedbackService(t, newFakeFeedbackStore(), lim)

	for i := 0; i < 5; i++ {
		_, err := svc.RecordFeedback(context.Background(), validFeedback(), "actor-1")
		require.NoError(t, err)
	}
	_, err = svc.RecordFeedback(context.Background(), validFeedback(), "actor-1")
	uerr := requireUsecaseError(t, err, ErrorRateLimited, "feedback_rate_limited")
	require.Equal(t, time.Minute, uerr.RetryAfter)
}

func TestRecordFeedback_StoreFailure(t *testing.T) {
	store := newFakeFeedbackStore()
	store.putErr = errors.New("conditional check failed")
	svc := newFeedbackService(t, store, &fakeLimiter{})

	_, err := svc.RecordFeedback(context.Background(), validFeedback(), "actor-1")
	requireUsecaseError(t, err, ErrorUpstream, "feedback_write_error")
}

func TestGetFeedback_Errors(t *testing.T) {
	store := newFakeFeedbackStore()
	svc := newFeedbackService(t, store, &fakeLimiter{})

	_, err := svc.GetFeedback(context.Background(), "")
	requireUsecaseError(t, err, ErrorInvalidInput, "missing_feedback_id")

	_, err = svc.GetFeedback(context.Background(), "not-a-uuid")
	requireUsecaseError(t, err, ErrorInvalidInput, "malformed_feedback_id")

	_, err = svc.GetFeedback(context.Background(), "0b7e0a52-2f43-4f57-9d43-6c9bb0f3c2aa")
	requireUsecaseError(t, err, ErrorNotFound, "feedback_not_found")

	store.getErr = errors.New("throttled")
	_, err = svc.GetFeedback(context.Background(), "0b7e0a52-2f43-4f57-9d43-6c9bb0f3c2aa")
	requireUsecaseError(t, err, ErrorUpstream, "feedback_read_error")
}
