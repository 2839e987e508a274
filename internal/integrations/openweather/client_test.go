package openweather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"restaurant-assistant/internal/domain"
)

// fakeGetter is a minimal paramstore.Getter stub for use within this package.
type fakeGetter struct {
	val    string
	err    error
	onCall func(name string)
}

func (f *fakeGetter) GetParameter(_ context.Context, name string) (string, error) {
	if f.onCall != nil {
		f.onCall(name)
	}
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeGetter{val: `{"token":"owm-test"}`},
		"/assistant",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestCurrent_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/weather", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "Ho Chi Minh City", r.URL.Query().Get("q"))
		require.Equal(t, "owm-test", r.URL.Query().Get("appid"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clear","description":"clear sky"}],"main":{"temp":33.5}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := c.Current(context.Background(), "Ho Chi Minh City")
	require.NoError(t, err)
	require.Equal(t, domain.Weather{Temp: 33.5, Condition: "clear"}, got)
}

func TestCurrent_Non200RedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"cod":401}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Current(context.Background(), "Hanoi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
	require.NotContains(t, err.Error(), "owm-test")

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 401, statusErr.HTTPStatusCode())
}

func TestCurrent_IncompleteOrInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json": `not-json`,
		"no temp":      `{"weather":[{"main":"Rain"}],"main":{}}`,
		"no weather":   `{"weather":[],"main":{"temp":20}}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			_, err := newTestClient(t, srv).Current(context.Background(), "Hanoi")
			require.Error(t, err)
		})
	}
}

func TestCurrent_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.Current(context.Background(), "Hanoi")
	require.Error(t, err)
}

func TestCurrent_EmptyCity(t *testing.T) {
	c, err := NewClient(&fakeGetter{val: `{"token":"k"}`}, "/assistant")
	require.NoError(t, err)
	_, err = c.Current(context.Background(), " ")
	require.ErrorContains(t, err, "city")
}

func TestResolveAPIKey_FetchedOnce(t *testing.T) {
	calls := 0
	var gotName string
	g := &fakeGetter{val: `{"token":"k"}`, onCall: func(name string) { calls++; gotName = name }}
	c, err := NewClient(g, "/assistant/")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		key, err := c.resolveAPIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "k", key)
	}
	require.Equal(t, 1, calls)
	require.Equal(t, "/assistant/openweather-token", gotName)
}

func TestFetchAPIKey_Errors(t *testing.T) {
	_, err := fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"other":"x"}`}, "n")
	require.ErrorContains(t, err, "API token is empty")

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{val: `{"broken`}, "n")
	require.ErrorContains(t, err, "unmarshal")

	_, err = fetchAPIKeyFromParamStore(context.Background(), &fakeGetter{err: errors.New("ssm unavailable")}, "n")
	require.ErrorContains(t, err, "ssm unavailable")

	_, err = fetchAPIKeyFromParamStore(context.Background(), nil, "n")
	require.ErrorContains(t, err, "nil")
}

func TestNormalizeCondition(t *testing.T) {
	cases := map[string]string{
		"Clear":        "clear",
		"Rain":         "rainy",
		"Drizzle":      "rainy",
		"Thunderstorm": "rainy",
		"Clouds":       "cloudy",
		"Mist":         "mist",
		"":             "unknown",
	}
	for in, want := range cases {
		require.Equal(t, want, normalizeCondition(in), "main=%q", in)
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/p")
	require.Error(t, err)
	_, err = NewClient(&fakeGetter{}, " ")
	require.Error(t, err)

	c, err := NewClient(&fakeGetter{}, "/p")
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, c.baseURL)
}
