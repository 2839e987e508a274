package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/metrics"
	"restaurant-assistant/internal/ratelimit"
	"restaurant-assistant/internal/repository"
)

const maxCommentLength = 1000

type FeedbackStore interface {
	PutFeedback(ctx context.Context, rec domain.FeedbackRecord) error
	GetFeedback(ctx context.Context, id string) (domain.FeedbackRecord, error)
}

type FeedbackAdmitter interface {
	AdmitFeedback(ctx context.Context, actorID string) (ratelimit.Decision, error)
}

// FeedbackService stores ratings of assistant replies. Records are append-only.
type FeedbackService struct {
	store   FeedbackStore
	limiter FeedbackAdmitter
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewFeedbackService(store FeedbackStore, limiter FeedbackAdmitter, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) (*FeedbackService, error) {
	if store == nil {
		return nil, errors.New("usecase: feedback store must not be nil")
	}
	if limiter == nil {
		return nil, errors.New("usecase: rate limiter must not be nil")
	}
	if m == nil {
		m = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &FeedbackService{
		store:   store,
		limiter: limiter,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		timeout: timeout,
	}, nil
}

// RecordFeedback validates and stores rec, returning the new record id.
func (s *FeedbackService) RecordFeedback(ctx context.Context, rec domain.FeedbackRecord, actorID string) (string, error) {
	rec.RoomID = strings.TrimSpace(rec.RoomID)
	rec.RestaurantID = strings.TrimSpace(rec.RestaurantID)
	if err := validateFeedback(rec); err != nil {
		return "", err
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", newError(ErrorInvalidInput, "missing_actor_id", nil)
	}

	dec, err := s.limiter.AdmitFeedback(ctx, actorID)
	if err != nil {
		s.metrics.UpstreamFailures.WithLabelValues("rate_limiter").Inc()
		return "", newError(ErrorUpstream, "rate_limiter_error", err)
	}
	if !dec.Allowed {
		s.metrics.RateLimitDenials.WithLabelValues("feedback").Inc()
		s.logger.Debug("feedback rate limited", "actor_id", actorID, "retry_after", dec.RetryAfter)
		return "", rateLimited("feedback_rate_limited", dec.RetryAfter)
	}

	rec.ID = newUUID()
	rec.CreatedAt = s.now().UTC()
	if rec.SuggestedItems == nil {
		rec.SuggestedItems = []string{}
	}
	if rec.AcceptedItems == nil {
		rec.AcceptedItems = []string{}
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.PutFeedback(tctx, rec); err != nil {
		s.metrics.UpstreamFailures.WithLabelValues("feedback_store").Inc()
		return "", newError(ErrorUpstream, timeoutReason("feedback_write", err), err)
	}
	s.metrics.FeedbackRecorded.WithLabelValues(string(rec.FeedbackType)).Inc()
	s.logger.Info("feedback recorded",
		"feedback_id", rec.ID, "room_id", rec.RoomID, "restaurant_id", rec.RestaurantID,
		"feedback_type", rec.FeedbackType, "rating", rec.Rating,
		"acceptance_ratio", rec.AcceptanceRatio())
	return rec.ID, nil
}

// GetFeedback returns a stored record.
func (s *FeedbackService) GetFeedback(ctx context.Context, id string) (domain.FeedbackRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.FeedbackRecord{}, newError(ErrorInvalidInput, "missing_feedback_id", nil)
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.FeedbackRecord{}, newError(ErrorInvalidInput, "malformed_feedback_id", err)
	}
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec, err := s.store.GetFeedback(tctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.FeedbackRecord{}, newError(ErrorNotFound, "feedback_not_found", err)
	}
	if err != nil {
		s.metrics.UpstreamFailures.WithLabelValues("feedback_store").Inc()
		return domain.FeedbackRecord{}, newError(ErrorUpstream, timeoutReason("feedback_read", err), err)
	}
	return rec, nil
}

func validateFeedback(rec domain.FeedbackRecord) error {
	switch {
	case rec.RoomID == "":
		return newError(ErrorInvalidInput, "missing_room_id", nil)
	case rec.RestaurantID == "":
		return newError(ErrorInvalidInput, "missing_restaurant_id", nil)
	case !rec.FeedbackType.Valid():
		return newError(ErrorInvalidInput, "invalid_feedback_type", nil)
	case rec.Rating < 1 || rec.Rating > 5:
		return newError(ErrorInvalidInput, "rating_out_of_range", nil)
	case rec.Intent != "" && !rec.Intent.Valid():
		return newError(ErrorInvalidInput, "invalid_intent", nil)
	case utf8.RuneCountInString(strings.TrimSpace(rec.UserComment)) > maxCommentLength:
		return newError(ErrorInvalidInput, "comment_too_long", nil)
	}
	suggested, ok := itemSet(rec.SuggestedItems)
	if !ok {
		return newError(ErrorInvalidInput, "duplicate_items", nil)
	}
	if _, ok := itemSet(rec.AcceptedItems); !ok {
		return newError(ErrorInvalidInput, "duplicate_items", nil)
	}
	for _, id := range rec.AcceptedItems {
		if _, ok := suggested[id]; !ok {
			return newError(ErrorInvalidInput, "accepted_not_subset", nil)
		}
	}
	return nil
}

// itemSet returns ids as a set, or false if an id repeats.
func itemSet(ids []string) (map[string]struct{}, bool) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := set[id]; dup {
			return nil, false
		}
		set[id] = struct{}{}
	}
	return set, true
}

var newUUID = func() string {
	return uuid.NewString()
}
