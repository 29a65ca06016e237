package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/logger"
	"github.com/camuig/quant-relay/internal/oanda"
	"github.com/camuig/quant-relay/internal/quantconnect"
	"github.com/camuig/quant-relay/internal/report"
)

func platformServer(t *testing.T, authOK bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/authenticate", func(w http.ResponseWriter, r *http.Request) {
		if !authOK {
			w.Write([]byte(`{"success": false, "errors": ["Hash doesn't match."]}`))
			return
		}
		w.Write([]byte(`{"success": true}`))
	})
	mux.HandleFunc("/live/read", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "LiveResults": {"results": {"Charts": {
			"Strategy Equity": {"Series": {"Equity": {"Values": [[1700000000, 5000.5]]}}}}}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func brokerageServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"errorMessage":"Invalid value specified for 'accountID'"}`))
			return
		}
		w.Write([]byte(`{"account": {"id": "101-1", "NAV": "1.00", "unrealizedPL": "0", "pl": "0", "marginCloseoutPercent": "0"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testStore(oandaToken string) *config.Store {
	return config.NewStoreFromConfig("bot-config.json", &config.Config{
		TelegramBotToken:         "123:abc",
		QuantConnectJobUserID:    4242,
		QuantConnectAccessToken:  "secret",
		QuantConnectProjectID:    777,
		QuantConnectDeploymentID: "L-abc",
		OandaToken:               oandaToken,
		OandaAccountID:           "101-1",
		OandaMode:                config.ModeTrade,
		AuthedUsers:              []string{"alice"},
		RequestTimeoutSeconds:    5,
		MaxConcurrentMessages:    2,
	})
}

func TestNewWithoutBrokerage(t *testing.T) {
	qc := platformServer(t, true)

	store := testStore("")
	a, err := New(context.Background(), store, logger.Nop(),
		WithQuantConnect(quantconnect.WithBaseURL(qc.URL)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := a.Reports().Fetch(context.Background(), store.Current(), report.PlatformEquity)
	if !res.OK() || res.Text != "*QuantConnect NAV*\n$5,000.50" {
		t.Errorf("equity = %+v", res)
	}
	if res := a.Reports().Fetch(context.Background(), store.Current(), report.BrokerageSummary); res.OK() {
		t.Error("brokerage report should fail without a token")
	}
}

func TestNewWithBrokerage(t *testing.T) {
	qc := platformServer(t, true)
	oa := brokerageServer(t, http.StatusOK)

	store := testStore("token")
	a, err := New(context.Background(), store, logger.Nop(),
		WithQuantConnect(quantconnect.WithBaseURL(qc.URL)),
		WithOanda(oanda.WithBaseURL(oa.URL)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := a.Reports().Fetch(context.Background(), store.Current(), report.BrokerageSummary)
	if !res.OK() || !strings.Contains(res.Text, "NAV: £1.00") {
		t.Errorf("summary = %+v", res)
	}
}

func TestNewFatalErrors(t *testing.T) {
	t.Run("quantconnect rejects credentials", func(t *testing.T) {
		qc := platformServer(t, false)
		_, err := New(context.Background(), testStore(""), logger.Nop(),
			WithQuantConnect(quantconnect.WithBaseURL(qc.URL)))
		if err == nil || !strings.Contains(err.Error(), "quantconnect") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("oanda rejects account", func(t *testing.T) {
		qc := platformServer(t, true)
		oa := brokerageServer(t, http.StatusBadRequest)
		_, err := New(context.Background(), testStore("token"), logger.Nop(),
			WithQuantConnect(quantconnect.WithBaseURL(qc.URL)),
			WithOanda(oanda.WithBaseURL(oa.URL)))
		if err == nil || !strings.Contains(err.Error(), "oanda") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestNewChecksHaveSeparateTimeouts(t *testing.T) {
	delay := 700 * time.Millisecond
	qc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(qc.Close)
	oa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.Write([]byte(`{"account": {"id": "101-1", "NAV": "1.00"}}`))
	}))
	t.Cleanup(oa.Close)

	// Each check fits in one second on its own; together they do not.
	store := testStore("token")
	store.Current().RequestTimeoutSeconds = 1

	if _, err := New(context.Background(), store, logger.Nop(),
		WithQuantConnect(quantconnect.WithBaseURL(qc.URL)),
		WithOanda(oanda.WithBaseURL(oa.URL))); err != nil {
		t.Fatalf("New: %v", err)
	}
}
