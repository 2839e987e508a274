package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/intent"
	"restaurant-assistant/internal/metrics"
	"restaurant-assistant/internal/ratelimit"
	"restaurant-assistant/internal/recommend"
	"restaurant-assistant/internal/repository"
)

const (
	defaultMaxContext    = 20
	defaultMaxMessageLen = 1000
	defaultTimeout       = 3 * time.Second

	escalationCauseRequested     = "requested"
	escalationCauseLowConfidence = "low_confidence"
)

type ContextStore interface {
	GetContext(ctx context.Context, roomID string, limit int) (domain.ConversationContext, error)
	AppendTurns(ctx context.Context, roomID string, upd domain.RoomUpdate) error
}

type MessageAdmitter interface {
	AdmitMessage(ctx context.Context, actorID, roomID string) (ratelimit.Decision, error)
}

type IntentClassifier interface {
	Classify(text string, cc intent.Context) domain.IntentResult
}

type FAQResponder interface {
	Answer(ctx context.Context, in domain.Intent, restaurantID string) domain.BotMessage
}

type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (recommend.Result, error)
}

type EscalationPolicy interface {
	Decide(streak int, res domain.IntentResult) (escalate bool, next int)
}

type ProfileProvider interface {
	GetProfile(ctx context.Context, restaurantID string) (domain.RestaurantProfile, error)
}

type WeatherLookup interface {
	Current(ctx context.Context, city string) (domain.Weather, error)
}

// ConversationDeps are the collaborators of a ConversationService. Profiles
// and Weather are only needed for weather lookup and may both be nil.
type ConversationDeps struct {
	Store       ContextStore
	Limiter     MessageAdmitter
	Classifier  IntentClassifier
	FAQ         FAQResponder
	Recommender Recommender
	Policy      EscalationPolicy
	Profiles    ProfileProvider
	Weather     WeatherLookup
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Now         func() time.Time
}

type ConversationLimits struct {
	MaxContextItems  int
	MaxMessageLength int
	UpstreamTimeout  time.Duration
}

// ConversationService answers customer messages, one room at a time.
type ConversationService struct {
	store       ContextStore
	limiter     MessageAdmitter
	classifier  IntentClassifier
	faq         FAQResponder
	recommender Recommender
	policy      EscalationPolicy
	profiles    ProfileProvider
	weather     WeatherLookup
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time

	maxContextItems int
	maxMessageLen   int
	timeout         time.Duration

	rooms roomLocks
}

func NewConversationService(d ConversationDeps, l ConversationLimits) (*ConversationService, error) {
	switch {
	case d.Store == nil:
		return nil, errors.New("usecase: context store must not be nil")
	case d.Limiter == nil:
		return nil, errors.New("usecase: rate limiter must not be nil")
	case d.Classifier == nil:
		return nil, errors.New("usecase: classifier must not be nil")
	case d.FAQ == nil:
		return nil, errors.New("usecase: faq responder must not be nil")
	case d.Recommender == nil:
		return nil, errors.New("usecase: recommender must not be nil")
	case d.Policy == nil:
		return nil, errors.New("usecase: escalation policy must not be nil")
	}
	if d.Weather != nil && d.Profiles == nil {
		return nil, errors.New("usecase: weather lookup requires a profile provider")
	}
	s := &ConversationService{
		store:           d.Store,
		limiter:         d.Limiter,
		classifier:      d.Classifier,
		faq:             d.FAQ,
		recommender:     d.Recommender,
		policy:          d.Policy,
		profiles:        d.Profiles,
		weather:         d.Weather,
		metrics:         d.Metrics,
		logger:          d.Logger,
		now:             d.Now,
		maxContextItems: l.MaxContextItems,
		maxMessageLen:   l.MaxMessageLength,
		timeout:         l.UpstreamTimeout,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxContextItems <= 0 {
		s.maxContextItems = defaultMaxContext
	}
	if s.maxMessageLen <= 0 {
		s.maxMessageLen = defaultMaxMessageLen
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	return s, nil
}

// HandleMessage answers msg on behalf of actorID. Messages for the same room
// are handled one at a time, in arrival order, within this process. Across
// processes the store's conditional append decides: a message answered
// against a stale context is rejected with room_conflict.
func (s *ConversationService) HandleMessage(ctx context.Context, msg domain.InboundMessage, actorID string) (domain.ResponseEnvelope, error) {
	start := s.now()
	text := strings.TrimSpace(msg.Text)
	roomID := strings.TrimSpace(msg.RoomID)
	restaurantID := strings.TrimSpace(msg.RestaurantID)
	actorID = strings.TrimSpace(actorID)

	switch {
	case text == "":
		return domain.ResponseEnvelope{}, newError(ErrorInvalidInput, "empty_text", nil)
	case utf8.RuneCountInString(text) > s.maxMessageLen:
		return domain.ResponseEnvelope{}, newError(ErrorInvalidInput, "text_too_long", nil)
	case restaurantID == "":
		return domain.ResponseEnvelope{}, newError(ErrorInvalidInput, "missing_restaurant_id", nil)
	case roomID == "":
		return domain.ResponseEnvelope{}, newError(ErrorInvalidInput, "missing_room_id", nil)
	case actorID == "":
		return domain.ResponseEnvelope{}, newError(ErrorInvalidInput, "missing_actor_id", nil)
	}

	dec, err := s.limiter.AdmitMessage(ctx, actorID, roomID)
	if err != nil {
		s.metrics.UpstreamFailures.WithLabelValues("rate_limiter").Inc()
		return domain.ResponseEnvelope{}, newError(ErrorUpstream, "rate_limiter_error", err)
	}
	if !dec.Allowed {
		s.metrics.RateLimitDenials.WithLabelValues("messages").Inc()
		s.logger.Debug("message rate limited",
			"actor_id", actorID, "room_id", roomID,
			"retry_after", dec.RetryAfter, "windows", dec.Violated)
		return domain.ResponseEnvelope{}, rateLimited("message_rate_limited", dec.RetryAfter)
	}

	unlock, err := s.rooms.acquire(ctx, roomID)
	if err != nil {
		return domain.ResponseEnvelope{}, newError(ErrorUpstream, "room_busy", err)
	}
	defer unlock()

	conv, err := s.fetchContext(ctx, roomID)
	if err != nil {
		s.metrics.UpstreamFailures.WithLabelValues("context_store").Inc()
		return domain.ResponseEnvelope{}, newError(ErrorUpstream, timeoutReason("context_fetch", err), err)
	}

	// Only weather the customer sent shapes classification. Looked-up
	// weather is fetched for recommendations alone.
	supplied := msg.Weather()
	res := s.classifier.Classify(text, intent.Context{
		Weather:             supplied,
		LastAssistantIntent: conv.LastAssistantIntent(),
	})

	reply, err := s.respond(ctx, restaurantID, text, supplied, res)
	if err != nil {
		return domain.ResponseEnvelope{}, err
	}

	escalated, streak := s.policy.Decide(conv.LowConfidenceStreak, res)
	cause := escalationCauseRequested
	if escalated && reply.MessageType != domain.MessageTypeEscalation {
		cause = escalationCauseLowConfidence
		reply.MessageType = domain.MessageTypeEscalation
		reply.Content = lowConfidenceReply
	}

	env := domain.ResponseEnvelope{
		BotMessage:      reply,
		Intent:          res.Intent,
		ConfidenceScore: res.Confidence,
		IsEscalated:     escalated,
	}

	status := conv.RoomStatus
	if status == "" {
		status = domain.RoomStatusActive
	}
	if escalated {
		status = domain.RoomStatusWaiting
	}
	now := s.now().UTC()
	err = s.appendTurns(ctx, roomID, domain.RoomUpdate{
		Status:              status,
		ExpectedCount:       conv.MessageCount,
		LowConfidenceStreak: streak,
		Turns: []domain.ConversationTurn{
			{Role: domain.RoleUser, Content: text, Intent: res.Intent, CreatedAt: now},
			{Role: domain.RoleAssistant, Content: reply.Content, Intent: res.Intent, CreatedAt: now},
		},
	})
	switch {
	case errors.Is(err, repository.ErrConflict):
		s.metrics.UpstreamFailures.WithLabelValues("context_store").Inc()
		s.logger.Warn("room changed while answering",
			"room_id", roomID, "restaurant_id", restaurantID,
			"expected_count", conv.MessageCount, "err", err)
		return domain.ResponseEnvelope{}, newError(ErrorUpstream, "room_conflict", err)
	case err != nil:
		env.Unpersisted = true
		s.metrics.UnpersistedTurns.Inc()
		s.logger.Error("conversation turn not persisted",
			"room_id", roomID, "restaurant_id", restaurantID,
			"intent", res.Intent, "escalated", escalated,
			"user_text", text, "reply", reply.Content, "err", err)
	}

	if escalated {
		s.metrics.Escalations.WithLabelValues(cause).Inc()
		s.logger.Info("conversation escalated",
			"room_id", roomID, "restaurant_id", restaurantID,
			"cause", cause, "intent", res.Intent, "confidence", res.Confidence)
	}

	s.metrics.MessagesHandled.WithLabelValues(string(res.Intent)).Inc()
	s.metrics.HandleDuration.WithLabelValues(string(res.Intent)).Observe(s.now().Sub(start).Seconds())
	return env, nil
}

func (s *ConversationService) respond(ctx context.Context, restaurantID, text string, weather *domain.Weather, res domain.IntentResult) (domain.BotMessage, error) {
	switch {
	case res.Intent == domain.IntentEscalation:
		return domain.BotMessage{
			Content:     escalationReply,
			MessageType: domain.MessageTypeEscalation,
			Suggestions: []domain.Suggestion{},
		}, nil

	case res.Intent.IsFAQ():
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.faq.Answer(tctx, res.Intent, restaurantID), nil

	case res.Intent == domain.IntentRecommendation:
		if weather == nil {
			weather = s.lookupWeather(ctx, restaurantID)
		}
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		rec, err := s.recommender.Recommend(tctx, recommend.Request{
			RestaurantID: restaurantID,
			Text:         text,
			Weather:      weather,
		})
		if err != nil {
			s.metrics.UpstreamFailures.WithLabelValues("catalog").Inc()
			return domain.BotMessage{}, newError(ErrorUpstream, timeoutReason("catalog_fetch", err), err)
		}
		s.metrics.SuggestionsReturned.Observe(float64(len(rec.Suggestions)))
		msg := textMessage(recommendationContent(rec, weather))
		if len(rec.Suggestions) > 0 {
			msg.Suggestions = rec.Suggestions
		}
		return msg, nil

	case res.Intent == domain.IntentSmalltalk:
		return textMessage(smalltalkReply), nil

	default:
		return textMessage(clarifyReply), nil
	}
}

func (s *ConversationService) fetchContext(ctx context.Context, roomID string) (domain.ConversationContext, error) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	conv, err := s.store.GetContext(tctx, roomID, s.maxContextItems)
	if err != nil {
		return domain.ConversationContext{}, fmt.Errorf("get context: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) appendTurns(ctx context.Context, roomID string, upd domain.RoomUpdate) error {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.AppendTurns(tctx, roomID, upd)
}

// lookupWeather fetches current weather for the restaurant's city. Failures
// are logged and yield nil.
func (s *ConversationService) lookupWeather(ctx context.Context, restaurantID string) *domain.Weather {
	if s.weather == nil {
		return nil
	}
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	profile, err := s.profiles.GetProfile(tctx, restaurantID)
	if err != nil {
		s.logger.Warn("weather lookup skipped: profile unavailable", "restaurant_id", restaurantID, "err", err)
		return nil
	}
	city := strings.TrimSpace(profile.City)
	if city == "" {
		return nil
	}
	w, err := s.weather.Current(tctx, city)
	if err != nil {
		s.metrics.UpstreamFailures.WithLabelValues("weather").Inc()
		attrs := []any{"restaurant_id", restaurantID, "city", city, "err", err}
		if status, ok := upstreamStatusCode(err); ok {
			attrs = append(attrs, "status", status)
		}
		s.logger.Warn("weather lookup failed", attrs...)
		return nil
	}
	return &w
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func timeoutReason(op string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return op + "_timeout"
	}
	return op + "_error"
}
