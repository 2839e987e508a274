package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"restaurant-assistant/internal/domain"
	"restaurant-assistant/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10

	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type ConversationUseCase interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage, actorID string) (domain.ResponseEnvelope, error)
}

type FeedbackUseCase interface {
	RecordFeedback(ctx context.Context, rec domain.FeedbackRecord, actorID string) (string, error)
	GetFeedback(ctx context.Context, id string) (domain.FeedbackRecord, error)
}

type Handler struct {
	conv     ConversationUseCase
	feedback FeedbackUseCase
	logger   *slog.Logger
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type feedbackCreatedResponse struct {
	ID string `json:"id"`
}

func NewHandler(conv ConversationUseCase, feedback FeedbackUseCase, logger *slog.Logger) (*Handler, error) {
	if conv == nil {
		return nil, errors.New("handler: conversation use case must not be nil")
	}
	if feedback == nil {
		return nil, errors.New("handler: feedback use case must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{conv: conv, feedback: feedback, logger: logger}, nil
}

// Handle routes an API Gateway proxy request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := header(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", corrID, "method", req.HTTPMethod, "path", req.Path)

	path := strings.TrimRight(req.Path, "/")
	switch {
	case path == "/messages":
		if req.HTTPMethod != http.MethodPost {
			return jsonResponse(http.StatusMethodNotAllowed, corrID, errorResponse{Error: codeMethodNotAllowed}), nil
		}
		return h.postMessage(ctx, logger, corrID, req), nil
	case path == "/feedback":
		if req.HTTPMethod != http.MethodPost {
			return jsonResponse(http.StatusMethodNotAllowed, corrID, errorResponse{Error: codeMethodNotAllowed}), nil
		}
		return h.postFeedback(ctx, logger, corrID, req), nil
	case strings.HasPrefix(path, "/feedback/"):
		if req.HTTPMethod != http.MethodGet {
			return jsonResponse(http.StatusMethodNotAllowed, corrID, errorResponse{Error: codeMethodNotAllowed}), nil
		}
		id := req.PathParameters["id"]
		if id == "" {
			id = strings.TrimPrefix(path, "/feedback/")
		}
		return h.getFeedback(ctx, logger, corrID, id), nil
	default:
		return jsonResponse(http.StatusNotFound, corrID, errorResponse{Error: codeNotFound}), nil
	}
}

func (h *Handler) postMessage(ctx context.Context, logger *slog.Logger, corrID string, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var msg domain.InboundMessage
	if reason := decodeBody(req, &msg); reason != "" {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: reason})
	}
	env, err := h.conv.HandleMessage(ctx, msg, actorID(req))
	if err != nil {
		return errorToResponse(logger, corrID, err)
	}
	if env.Unpersisted {
		logger.Warn("answer returned without persisted history", "room_id", msg.RoomID)
	}
	return jsonResponse(http.StatusOK, corrID, env)
}

func (h *Handler) postFeedback(ctx context.Context, logger *slog.Logger, corrID string, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var rec domain.FeedbackRecord
	if reason := decodeBody(req, &rec); reason != "" {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: reason})
	}
	id, err := h.feedback.RecordFeedback(ctx, rec, actorID(req))
	if err != nil {
		return errorToResponse(logger, corrID, err)
	}
	return jsonResponse(http.StatusCreated, corrID, feedbackCreatedResponse{ID: id})
}

func (h *Handler) getFeedback(ctx context.Context, logger *slog.Logger, corrID, id string) events.APIGatewayProxyResponse {
	rec, err := h.feedback.GetFeedback(ctx, id)
	if err != nil {
		return errorToResponse(logger, corrID, err)
	}
	return jsonResponse(http.StatusOK, corrID, rec)
}

func decodeBody(req events.APIGatewayProxyRequest, v any) string {
	body := req.Body
	if req.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return "malformed_body"
		}
		body = string(raw)
	}
	if len(body) > maxBodyBytes {
		return "body_too_large"
	}
	if strings.TrimSpace(body) == "" {
		return "empty_body"
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return "malformed_body"
	}
	return ""
}

// actorID identifies the caller for rate limiting from what API Gateway
// vouches for: the authorizer's principal, then a JWT subject claim, then the
// source IP. Request headers are client-controlled and never consulted.
func actorID(req events.APIGatewayProxyRequest) string {
	auth := req.RequestContext.Authorizer
	if v, ok := auth["principalId"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if claims, ok := auth["claims"].(map[string]interface{}); ok {
		if v, ok := claims["sub"].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(req.RequestContext.Identity.SourceIP)
}

func errorToResponse(logger *slog.Logger, corrID string, err error) events.APIGatewayProxyResponse {
	var uerr *usecase.Error
	if !errors.As(err, &uerr) {
		logger.Error("unexpected error", "err", err)
		return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: string(usecase.ErrorInternal)})
	}

	switch uerr.Code {
	case usecase.ErrorInvalidInput:
		logger.Info("invalid input", "reason", uerr.Reason)
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{Error: string(uerr.Code), Reason: uerr.Reason})
	case usecase.ErrorNotFound:
		return jsonResponse(http.StatusNotFound, corrID, errorResponse{Error: string(uerr.Code), Reason: uerr.Reason})
	case usecase.ErrorRateLimited:
		resp := jsonResponse(http.StatusTooManyRequests, corrID, errorResponse{Error: string(uerr.Code), Reason: uerr.Reason})
		resp.Headers["Retry-After"] = strconv.Itoa(retryAfterSeconds(uerr))
		return resp
	case usecase.ErrorUpstream:
		logger.Error("upstream unavailable", "reason", uerr.Reason, "err", uerr.Err)
		return jsonResponse(http.StatusServiceUnavailable, corrID, errorResponse{Error: string(uerr.Code)})
	default:
		logger.Error("internal error", "reason", uerr.Reason, "err", uerr.Err)
		return jsonResponse(http.StatusInternalServerError, corrID, errorResponse{Error: string(usecase.ErrorInternal)})
	}
}

func retryAfterSeconds(e *usecase.Error) int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func jsonResponse(status int, corrID string, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

// header looks up name case-insensitively.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
