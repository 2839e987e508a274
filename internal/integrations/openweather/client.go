package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"restaurant-assistant/internal/domain"
)

const defaultBaseURL = "https://api.openweathermap.org"

// currentResponse is the minimal response shape of the current-weather endpoint.
type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// tokenPayload is the expected JSON shape stored in SSM for the API key.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openweather: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client looks up current conditions from OpenWeatherMap.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose API key is read from SSM on first use and
// reused for the lifetime of the process.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("openweather: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("openweather: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchAPIKeyFromParamStore(ctx, c.getter, c.paramPrefix+"/openweather-token")
	})
	return c.apiKey, c.keyErr
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 5 * time.Second}
}

func currentURL(baseURL, city, apiKey string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", apiKey)
	q.Set("units", "metric")
	return base + "/data/2.5/weather?" + q.Encode()
}

// Current returns the temperature in Celsius and a normalised condition for city.
func (c *Client) Current(ctx context.Context, city string) (domain.Weather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return domain.Weather{}, errors.New("openweather: city must not be empty")
	}
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return domain.Weather{}, err
	}

	u := currentURL(c.baseURL, city, apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("openweather: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return domain.Weather{}, fmt.Errorf("openweather: request failed: %w", err)
	}

	var payload currentResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Weather{}, fmt.Errorf("openweather: decode response: %w", err)
	}
	if payload.Main.Temp == nil || len(payload.Weather) == 0 {
		return domain.Weather{}, errors.New("openweather: incomplete response")
	}
	return domain.Weather{
		Temp:      *payload.Main.Temp,
		Condition: normalizeCondition(payload.Weather[0].Main),
	}, nil
}

// normalizeCondition maps OpenWeatherMap condition groups onto the small set
// of conditions the assistant reasons about.
func normalizeCondition(main string) string {
	switch strings.ToLower(strings.TrimSpace(main)) {
	case "clear":
		return "clear"
	case "rain", "drizzle", "thunderstorm":
		return "rainy"
	case "clouds":
		return "cloudy"
	case "snow":
		return "snowy"
	case "":
		return "unknown"
	default:
		return strings.ToLower(main)
	}
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        redactKey(req.URL),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// redactKey drops the API key from URLs that end up in errors and logs.
func redactKey(u *url.URL) string {
	cp := *u
	q := cp.Query()
	if q.Has("appid") {
		q.Set("appid", "REDACTED")
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}

func fetchAPIKeyFromParamStore(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("openweather: paramstore getter is nil")
	}
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openweather: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openweather: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("openweather: API token is empty")
	}
	return tp.Token, nil
}
