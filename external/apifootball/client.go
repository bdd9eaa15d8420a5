package apifootball

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/platform/logging"
	"github.com/riskibarqy/league-snapshot/internal/platform/resilience"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "https://v3.football.api-sports.io"

	pathStandings  = "/standings"
	pathTopScorers = "/players/topscorers"
	pathTopAssists = "/players/topassists"

	apiKeyHeader     = "x-apisports-key"
	maxResponseBytes = 6 << 20
)

var errAPIFootballTransient = crerr.New("api-football transient failure")

// StatusError carries a non-2xx response from API-Football.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider status=%d body=%s", e.StatusCode, e.Body)
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	breakerCfg := cfg.CircuitBreaker
	if breakerCfg.OnStateChange == nil {
		breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
			logger.Warn("api-football circuit breaker state changed", "from", string(from), "to", string(to))
		}
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchStatistic issues the single GET for stat and flattens the response.
func (c *Client) FetchStatistic(ctx context.Context, stat leaguestats.Statistic, leagueID int64, season int) (leaguestats.Table, error) {
	switch stat {
	case leaguestats.StatisticStandings:
		return c.FetchStandings(ctx, leagueID, season)
	case leaguestats.StatisticTopScorers:
		return c.FetchTopScorers(ctx, leagueID, season)
	case leaguestats.StatisticTopAssists:
		return c.FetchTopAssists(ctx, leagueID, season)
	default:
		return leaguestats.Table{}, fmt.Errorf("%w: unknown statistic %q", usecase.ErrInvalidInput, stat)
	}
}

func (c *Client) FetchStandings(ctx context.Context, leagueID int64, season int) (leaguestats.Table, error) {
	env, err := c.get(ctx, pathStandings, leagueID, season)
	if err != nil {
		return leaguestats.Table{}, err
	}
	return parseStandings(env.Response)
}

func (c *Client) FetchTopScorers(ctx context.Context, leagueID int64, season int) (leaguestats.Table, error) {
	env, err := c.get(ctx, pathTopScorers, leagueID, season)
	if err != nil {
		return leaguestats.Table{}, err
	}
	return parsePlayerLeaders(env.Response, leaguestats.StatisticTopScorers)
}

func (c *Client) FetchTopAssists(ctx context.Context, leagueID int64, season int) (leaguestats.Table, error) {
	env, err := c.get(ctx, pathTopAssists, leagueID, season)
	if err != nil {
		return leaguestats.Table{}, err
	}
	return parsePlayerLeaders(env.Response, leaguestats.StatisticTopAssists)
}

type envelope struct {
	Response any `json:"response"`
	Errors   any `json:"errors"`
}

func (c *Client) get(ctx context.Context, path string, leagueID int64, season int) (envelope, error) {
	if leagueID <= 0 {
		return envelope{}, fmt.Errorf("%w: league id must be greater than zero", usecase.ErrInvalidInput)
	}
	if season <= 0 {
		return envelope{}, fmt.Errorf("%w: season must be greater than zero", usecase.ErrInvalidInput)
	}

	query := url.Values{}
	query.Set("league", strconv.FormatInt(leagueID, 10))
	query.Set("season", strconv.Itoa(season))

	var env envelope
	if err := c.doJSON(ctx, path, query, &env); err != nil {
		return envelope{}, err
	}
	if msg, ok := providerErrors(env.Errors); ok {
		return envelope{}, fmt.Errorf("%w: %s", usecase.ErrProviderResponse, sanitizeSensitiveText(msg, c.apiKey))
	}
	if env.Response == nil {
		return envelope{}, fmt.Errorf("%w: missing key %q", usecase.ErrMalformedPayload, "response")
	}
	return env, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query url.Values, target any) error {
	fullURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	request := func() error { return c.executeRequest(ctx, fullURL, buf) }
	var err error
	if c.circuitEnabled {
		err = c.breaker.Call(request, isCircuitFailure)
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: sport data provider is temporarily unavailable: %v", usecase.ErrTransport, err)
		}
	} else {
		err = request()
	}
	if err != nil {
		return err
	}

	if len(buf.B) > maxResponseBytes {
		return fmt.Errorf("%w: response exceeds %d MiB", usecase.ErrMalformedPayload, maxResponseBytes>>20)
	}
	if err := sonic.Unmarshal(buf.B, target); err != nil {
		return fmt.Errorf("%w: decode provider payload: %d-byte body is not a valid JSON envelope", usecase.ErrMalformedPayload, len(buf.B))
	}
	return nil
}

// executeRequest leaves the successful body in buf.
func (c *Client) executeRequest(ctx context.Context, fullURL string, buf *bytebufferpool.ByteBuffer) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return fmt.Errorf("%w: build request: %v", usecase.ErrInvalidInput, err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)

		buf.Reset()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %w: send request: %s", usecase.ErrTransport, errAPIFootballTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			_, readErr := buf.ReadFrom(io.LimitReader(resp.Body, maxResponseBytes+1))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: %w: read response body: %v", usecase.ErrTransport, errAPIFootballTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return nil
			default:
				statusErr := &StatusError{
					StatusCode: resp.StatusCode,
					Body:       sanitizeSensitiveText(abbreviateBody(buf.B), c.apiKey),
				}
				if !isRetryableStatus(resp.StatusCode) {
					return fmt.Errorf("%w: %w", usecase.ErrProviderResponse, statusErr)
				}
				lastErr = fmt.Errorf("%w: %w: %w", usecase.ErrProviderResponse, errAPIFootballTransient, statusErr)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", usecase.ErrTransport, ctx.Err())
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: provider request failed", usecase.ErrTransport)
	}
	c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "error", lastErr)
	return lastErr
}

// providerErrors reports whether the envelope errors field is non-empty.
// API-Football answers a bad key or exhausted quota with 200 and a populated
// errors object.
func providerErrors(raw any) (string, bool) {
	switch typed := raw.(type) {
	case nil:
		return "", false
	case []any:
		if len(typed) == 0 {
			return "", false
		}
	case map[string]any:
		if len(typed) == 0 {
			return "", false
		}
	case string:
		if strings.TrimSpace(typed) == "" {
			return "", false
		}
		return typed, true
	}
	text, err := sonic.MarshalString(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw), true
	}
	return text, true
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errAPIFootballTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if apiKey != "" {
		value = strings.ReplaceAll(value, apiKey, "REDACTED")
	}
	return value
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
