package handler

import (
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter serves the Lambda routes over plain HTTP for local runs, plus
// health and metrics endpoints.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Post("/messages", h.serveHTTP)
	r.Post("/feedback", h.serveHTTP)
	r.Get("/feedback/{id}", h.serveHTTP)

	return r
}

// serveHTTP converts r to an API Gateway proxy event and writes back the result.
func (h *Handler) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		http.Error(w, `{"error":"INVALID_INPUT"}`, http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ",")
	}
	var params map[string]string
	if id := chi.URLParam(r, "id"); id != "" {
		params = map[string]string{"id": id}
	}

	event := events.APIGatewayProxyRequest{
		HTTPMethod:     r.Method,
		Path:           r.URL.Path,
		Headers:        headers,
		PathParameters: params,
		Body:           string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			Identity: events.APIGatewayRequestIdentity{SourceIP: remoteIP(r.RemoteAddr)},
		},
	}

	resp, err := h.Handle(r.Context(), event)
	if err != nil {
		http.Error(w, `{"error":"INTERNAL_ERROR"}`, http.StatusInternalServerError)
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
