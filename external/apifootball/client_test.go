package apifootball

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riskibarqy/league-snapshot/internal/domain/leaguestats"
	"github.com/riskibarqy/league-snapshot/internal/platform/resilience"
	"github.com/riskibarqy/league-snapshot/internal/usecase"
)

const testAPIKey = "secret-key-123"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		APIKey:         testAPIKey,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
}

func standingsBody(teams int) string {
	entries := make([]string, 0, teams)
	for i := 1; i <= teams; i++ {
		entries = append(entries, fmt.Sprintf(`{
			"rank": %d,
			"team": {"id": %d, "name": "Team %02d", "logo": "x"},
			"points": %d,
			"goalsDiff": %d,
			"form": "WWDLW",
			"all": {"played": 38, "win": %d, "draw": 5, "lose": %d, "goals": {"for": %d, "against": 40}},
			"home": {"played": 19, "win": 10, "draw": 3, "lose": 6, "goals": {"for": 30, "against": 20}}
		}`, i, 1000+i, i, 100-i, 60-i-40, 30-i, 3+i, 60-i))
	}
	return `{"get":"standings","parameters":{"league":"39","season":"2024"},"errors":[],"results":1,
		"response":[{"league":{"id":39,"name":"Premier League","season":2024,"standings":[[` + strings.Join(entries, ",") + `]]}}]}`
}

func TestFetchStandings_TwentyTeams(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotLeague, gotSeason string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-apisports-key")
		gotLeague = r.URL.Query().Get("league")
		gotSeason = r.URL.Query().Get("season")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(standingsBody(20)))
	})

	table, err := client.FetchStatistic(context.Background(), leaguestats.StatisticStandings, 39, 2024)
	if err != nil {
		t.Fatalf("fetch standings: %v", err)
	}

	if gotPath != "/standings" || gotKey != testAPIKey || gotLeague != "39" || gotSeason != "2024" {
		t.Fatalf("unexpected request path=%s key=%s league=%s season=%s", gotPath, gotKey, gotLeague, gotSeason)
	}
	if table.Len() != 20 {
		t.Fatalf("expected 20 records, got=%d", table.Len())
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("expected uniform table: %v", err)
	}
	for i, row := range table.Rows {
		if len(row) != 10 {
			t.Fatalf("row %d: expected 10 fields, got=%d", i, len(row))
		}
		if row[leaguestats.ColumnRank] != int64(i+1) {
			t.Fatalf("row %d: records must keep API order, rank=%v", i, row[leaguestats.ColumnRank])
		}
	}

	first := table.Rows[0]
	if first[leaguestats.ColumnTeam] != "Team 01" {
		t.Fatalf("unexpected team: %v", first[leaguestats.ColumnTeam])
	}
	if first[leaguestats.ColumnPoints] != int64(99) {
		t.Fatalf("unexpected points: %v", first[leaguestats.ColumnPoints])
	}
	if first[leaguestats.ColumnGoalsFor] != int64(59) || first[leaguestats.ColumnGoalsAgainst] != int64(40) {
		t.Fatalf("unexpected goals: for=%v against=%v", first[leaguestats.ColumnGoalsFor], first[leaguestats.ColumnGoalsAgainst])
	}
	if first[leaguestats.ColumnWins] != int64(29) || first[leaguestats.ColumnDraws] != int64(5) || first[leaguestats.ColumnLosses] != int64(4) {
		t.Fatalf("unexpected results: %v", first)
	}
}

const scorersBody = `{"errors":[],"results":2,"response":[
	{"player":{"id":306,"name":"M. Salah"},"statistics":[
		{"team":{"id":40,"name":"Liverpool"},"games":{"appearences":38,"minutes":3371},"goals":{"total":29,"assists":18}},
		{"team":{"id":40,"name":"Liverpool"},"games":{"appearences":2},"goals":{"total":1,"assists":0}}
	]},
	{"player":{"id":2864,"name":"A. Isak"},"statistics":[
		{"team":{"id":34,"name":"Newcastle"},"games":{"appearences":null},"goals":{"total":23,"assists":null}}
	]}
]}`

func TestFetchTopScorers_UsesFirstStatisticsBlock(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(scorersBody))
	})

	table, err := client.FetchTopScorers(context.Background(), 39, 2024)
	if err != nil {
		t.Fatalf("fetch top scorers: %v", err)
	}
	if gotPath != "/players/topscorers" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if table.Statistic != leaguestats.StatisticTopScorers || table.Len() != 2 {
		t.Fatalf("unexpected table: stat=%s len=%d", table.Statistic, table.Len())
	}

	salah := table.Rows[0]
	if salah[leaguestats.ColumnPlayer] != "M. Salah" || salah[leaguestats.ColumnTeam] != "Liverpool" {
		t.Fatalf("unexpected row: %v", salah)
	}
	if salah[leaguestats.ColumnGoals] != int64(29) || salah[leaguestats.ColumnAppearances] != int64(38) {
		t.Fatalf("expected first statistics block, got %v", salah)
	}

	isak := table.Rows[1]
	if v, ok := isak[leaguestats.ColumnAppearances]; !ok || v != nil {
		t.Fatalf("expected null appearances to stay present as nil, got %v (present=%v)", v, ok)
	}
}

func TestFetchTopAssists_MapsAssists(t *testing.T) {
	t.Parallel()

	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(scorersBody))
	})

	table, err := client.FetchStatistic(context.Background(), leaguestats.StatisticTopAssists, 39, 2024)
	if err != nil {
		t.Fatalf("fetch top assists: %v", err)
	}
	if gotPath != "/players/topassists" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if got := table.ColumnNames(); strings.Join(got, ",") != "player,team,assists,appearances" {
		t.Fatalf("unexpected columns: %v", got)
	}
	if table.Rows[0][leaguestats.ColumnAssists] != int64(18) {
		t.Fatalf("unexpected assists: %v", table.Rows[0][leaguestats.ColumnAssists])
	}
	if table.Rows[1][leaguestats.ColumnAssists] != nil {
		t.Fatalf("expected nil assists, got %v", table.Rows[1][leaguestats.ColumnAssists])
	}
}

func TestFetch_EmptyResponseArray(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[],"results":0,"response":[]}`))
	})

	table, err := client.FetchTopScorers(context.Background(), 39, 2024)
	if err != nil {
		t.Fatalf("fetch top scorers: %v", err)
	}
	if table.Len() != 0 || len(table.Columns) != 4 {
		t.Fatalf("expected empty table with schema, got len=%d columns=%d", table.Len(), len(table.Columns))
	}
}

func TestFetch_UnauthorizedIsProviderError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key secret-key-123"}`))
	})

	_, err := client.FetchStandings(context.Background(), 39, 2024)
	if err == nil {
		t.Fatalf("expected error for 401")
	}
	if !errors.Is(err, usecase.ErrProviderResponse) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if errors.Is(err, usecase.ErrTransport) {
		t.Fatalf("401 must not be reported as transport error: %v", err)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected StatusError with 401, got %v", err)
	}
	if strings.Contains(err.Error(), testAPIKey) {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestFetch_ErrorsFieldIsProviderError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"errors":{"token":"Error/Missing application key."},"results":0,"response":[]}`))
	})

	_, err := client.FetchTopAssists(context.Background(), 39, 2024)
	if !errors.Is(err, usecase.ErrProviderResponse) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Missing application key") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:        baseURL,
		APIKey:         testAPIKey,
		Timeout:        2 * time.Second,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, err := client.FetchStandings(context.Background(), 39, 2024)
	if !errors.Is(err, usecase.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if errors.Is(err, usecase.ErrProviderResponse) || errors.Is(err, usecase.ErrMalformedPayload) {
		t.Fatalf("transport error must be distinguishable, got %v", err)
	}
}

func TestFetch_MalformedPayload(t *testing.T) {
	t.Parallel()

	t.Run("invalid json", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"response": [`))
		})
		_, err := client.FetchStandings(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
	})

	t.Run("missing standings key", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[],"response":[{"league":{"id":39}}]}`))
		})
		_, err := client.FetchStandings(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
		if !strings.Contains(err.Error(), "response[0].league.standings") {
			t.Fatalf("expected path in error, got %v", err)
		}
	})

	t.Run("missing nested player key", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[],"response":[{"player":{"name":"B. Saka"},"statistics":[{"team":{"name":"Arsenal"},"goals":{"total":6}}]}]}`))
		})
		_, err := client.FetchTopScorers(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
		if !strings.Contains(err.Error(), "response[0].statistics[0].games") {
			t.Fatalf("expected path in error, got %v", err)
		}
	})

	t.Run("empty statistics", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[],"response":[{"player":{"name":"B. Saka"},"statistics":[]}]}`))
		})
		_, err := client.FetchTopScorers(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
	})

	t.Run("decode error leaves the body out", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[],"response":[{"player":{"name":"Bukayo Saka"`))
		})
		_, err := client.FetchTopScorers(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
		if strings.Contains(err.Error(), "Bukayo") {
			t.Fatalf("expected body to stay out of the error, got %v", err)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		name := strings.Repeat("x", 1<<20)
		players := make([]string, 0, 7)
		for i := 0; i < 7; i++ {
			players = append(players, `{"player":{"name":"`+name+`"},"statistics":[{"team":{"name":"Arsenal"},"games":{"appearences":20},"goals":{"total":6}}]}`)
		}
		body := `{"errors":[],"response":[` + strings.Join(players, ",") + `]}`
		if len(body) <= maxResponseBytes {
			t.Fatalf("test body too small: %d bytes", len(body))
		}

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		})
		_, err := client.FetchTopScorers(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
		if !strings.Contains(err.Error(), "response exceeds 6 MiB") {
			t.Fatalf("expected size error, got %v", err)
		}
		if len(err.Error()) > 200 {
			t.Fatalf("expected a short error, got %d bytes", len(err.Error()))
		}
	})

	t.Run("fractional integer", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"errors":[],"response":[{"player":{"name":"B. Saka"},"statistics":[{"team":{"name":"Arsenal"},"games":{"appearences":20},"goals":{"total":6.5}}]}]}`))
		})
		_, err := client.FetchTopScorers(context.Background(), 39, 2024)
		if !errors.Is(err, usecase.ErrMalformedPayload) {
			t.Fatalf("expected malformed payload, got %v", err)
		}
	})
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(scorersBody))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		APIKey:         testAPIKey,
		MaxRetries:     1,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	table, err := client.FetchTopScorers(context.Background(), 39, 2024)
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if calls != 2 || table.Len() != 2 {
		t.Fatalf("unexpected calls=%d len=%d", calls, table.Len())
	}
}

func TestFetch_NoRetryByDefault(t *testing.T) {
	t.Parallel()

	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchTopScorers(context.Background(), 39, 2024)
	if !errors.Is(err, usecase.ErrProviderResponse) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestFetch_CircuitOpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		APIKey:     testAPIKey,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	for i := 0; i < 2; i++ {
		if _, err := client.FetchStandings(context.Background(), 39, 2024); !errors.Is(err, usecase.ErrProviderResponse) {
			t.Fatalf("attempt %d: expected provider error, got %v", i, err)
		}
	}

	_, err := client.FetchStandings(context.Background(), 39, 2024)
	if !errors.Is(err, usecase.ErrTransport) {
		t.Fatalf("expected open circuit to surface as transport error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected open circuit to skip the request, calls=%d", calls)
	}
}

func TestFetch_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Errorf("no request expected")
	})

	if _, err := client.FetchStandings(context.Background(), 0, 2024); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for league, got %v", err)
	}
	if _, err := client.FetchStatistic(context.Background(), leaguestats.Statistic("clean_sheets"), 39, 2024); !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected invalid input for statistic, got %v", err)
	}
}
