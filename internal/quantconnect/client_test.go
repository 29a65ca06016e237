package quantconnect

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/camuig/quant-relay/internal/logger"
)

const liveJSON = `{
  "success": true,
  "LiveResults": {
    "results": {
      "Charts": {
        "Strategy Equity": {
          "Name": "Strategy Equity",
          "Series": {
            "Equity": {
              "Name": "Equity",
              "Values": [
                {"x": 1700000000, "y": 100000.0},
                {"x": 1700003600, "y": 101250.75}
              ]
            },
            "Daily Performance": {"Name": "Daily Performance", "Values": []}
          }
        }
      }
    }
  }
}`

func newTestServer(t *testing.T, userID int64, token string) *httptest.Server {
	t.Helper()

	checkAuth := func(w http.ResponseWriter, r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		n, err := strconv.ParseInt(r.Header.Get("Timestamp"), 10, 64)
		if err != nil || !ok ||
			user != strconv.FormatInt(userID, 10) || pass != passwordHash(token, n) {
			w.Write([]byte(`{"success": false, "errors": ["Hash doesn't match."]}`))
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		if checkAuth(w, r) {
			w.Write([]byte(`{"success": true}`))
		}
	})
	mux.HandleFunc("/live/read", func(w http.ResponseWriter, r *http.Request) {
		if !checkAuth(w, r) {
			return
		}
		if r.URL.Query().Get("projectId") != "777" || r.URL.Query().Get("deployId") != "L-abc" {
			w.Write([]byte(`{"success": false, "errors": ["Live algorithm not found."]}`))
			return
		}
		w.Write([]byte(liveJSON))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPasswordHash(t *testing.T) {
	got := passwordHash("token", 1700000000)
	if len(got) != 64 {
		t.Fatalf("hash length = %d", len(got))
	}
	if got != passwordHash("token", 1700000000) {
		t.Error("hash is not deterministic")
	}
	if got == passwordHash("token", 1700000001) {
		t.Error("hash does not depend on timestamp")
	}
}

func TestAuthenticate(t *testing.T) {
	srv := newTestServer(t, 4242, "secret")

	c := NewClient(4242, "secret", logger.Nop(), WithBaseURL(srv.URL))
	if err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	bad := NewClient(4242, "wrong", logger.Nop(), WithBaseURL(srv.URL))
	err := bad.Authenticate(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Errors) != 1 {
		t.Errorf("Errors = %v", apiErr.Errors)
	}
}

func TestReadLiveLatestEquity(t *testing.T) {
	srv := newTestServer(t, 4242, "secret")
	c := NewClient(4242, "secret", logger.Nop(), WithBaseURL(srv.URL))
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.ReadLive(context.Background(), 777, "L-abc")
	if err != nil {
		t.Fatalf("ReadLive: %v", err)
	}

	v, err := res.LatestValue(StrategyEquityChart, EquitySeries)
	if err != nil {
		t.Fatalf("LatestValue: %v", err)
	}
	if v != 101250.75 {
		t.Errorf("latest equity = %v, want 101250.75", v)
	}

	if _, err := res.LatestValue(StrategyEquityChart, "Daily Performance"); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("empty series error = %v", err)
	}
	if _, err := res.LatestValue("Benchmark", EquitySeries); !errors.Is(err, ErrSeriesNotFound) {
		t.Errorf("missing chart error = %v", err)
	}
}

func TestReadLiveNotFound(t *testing.T) {
	srv := newTestServer(t, 4242, "secret")
	c := NewClient(4242, "secret", logger.Nop(), WithBaseURL(srv.URL))

	_, err := c.ReadLive(context.Background(), 1, "L-missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
}

func TestPointDecoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Point
	}{
		{"object", `{"x": 1700000000, "y": 100.5}`, Point{X: 1700000000, Y: 100.5}},
		{"candle", `[1700000000, 99.0, 105.0, 98.0, 101.25]`, Point{X: 1700000000, Y: 101.25}},
		{"pair", `[1700000000, 42]`, Point{X: 1700000000, Y: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Point
			if err := json.Unmarshal([]byte(tt.in), &p); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if p != tt.want {
				t.Errorf("got %+v, want %+v", p, tt.want)
			}
		})
	}

	var p Point
	if err := json.Unmarshal([]byte(`[1700000000]`), &p); err == nil {
		t.Error("expected error for a sample without a value")
	}
}

func TestLatestValueUsesTimestampOrder(t *testing.T) {
	res := &LiveResult{Charts: map[string]Chart{
		StrategyEquityChart: {Series: map[string]Series{
			EquitySeries: {Values: []Point{
				{X: 300, Y: 3},
				{X: 100, Y: 1},
				{X: 300, Y: 4},
				{X: 200, Y: 2},
			}},
		}},
	}}

	v, err := res.LatestValue(StrategyEquityChart, EquitySeries)
	if err != nil {
		t.Fatalf("LatestValue: %v", err)
	}
	if v != 4 {
		t.Errorf("latest = %v, want 4", v)
	}
}
