package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
)

func testForecastRequest() *domain.ForecastRequest {
	return &domain.ForecastRequest{
		Location: domain.Location{City: "Seoul", CountryCode: "KR"},
		Range:    domain.DateRange{Start: "2026-08-23", End: "2026-08-25"},
		Options:  domain.ForecastOptions{IncludeHourly: true, Units: "metric"},
	}
}

func TestScrapingProvider_Fetch(t *testing.T) {
	var gotBody apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(apiResponse{
			Status: "ok",
			Data: &domain.ForecastResponse{
				City: "Seoul",
				Days: []domain.ForecastDay{{Date: "2026-08-23", Condition: "sunny", TempMax: 31}},
			},
		})
	}))
	defer srv.Close()

	p := NewScrapingProvider("scraping", srv.URL, 5*time.Second)
	resp, err := p.Fetch(context.Background(), testForecastRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Source != "scraping" {
		t.Errorf("source: got %q, want scraping", resp.Source)
	}
	if resp.RetrievedAt.IsZero() {
		t.Error("retrieved_at must be set")
	}
	if len(resp.Days) != 1 || resp.Days[0].Condition != "sunny" {
		t.Errorf("unexpected payload: %+v", resp.Days)
	}

	if gotBody.Location.City != "Seoul" {
		t.Errorf("request city: got %q", gotBody.Location.City)
	}
	if gotBody.Options.IncludeHourly != "Y" {
		t.Errorf("include_hourly: got %q, want Y", gotBody.Options.IncludeHourly)
	}
}

func TestScrapingProvider_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{Status: "error", ErrorMessage: "city not found"})
	}))
	defer srv.Close()

	p := NewScrapingProvider("scraping", srv.URL, 5*time.Second)
	_, err := p.Fetch(context.Background(), testForecastRequest())
	if err == nil {
		t.Fatal("expected an error")
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.Provider != "scraping" {
		t.Errorf("provider: got %q", callErr.Provider)
	}
	if !strings.Contains(err.Error(), "city not found") {
		t.Errorf("error must carry the API message, got %q", err.Error())
	}
}

func TestScrapingProvider_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewScrapingProvider("scraping", srv.URL, 5*time.Second)
	if _, err := p.Fetch(context.Background(), testForecastRequest()); err == nil {
		t.Fatal("expected an error on non-200")
	}
}

func TestScrapingProvider_SuccessWithoutData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiResponse{Status: "ok"})
	}))
	defer srv.Close()

	p := NewScrapingProvider("scraping", srv.URL, 5*time.Second)
	if _, err := p.Fetch(context.Background(), testForecastRequest()); err == nil {
		t.Fatal("expected an error when data is missing")
	}
}

func TestScrapingProvider_Probe(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected probe path: %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	p := NewScrapingProvider("scraping", srv.URL, 5*time.Second)

	if !p.Probe(context.Background()) {
		t.Error("expected a healthy probe")
	}

	healthy = false
	if p.Probe(context.Background()) {
		t.Error("expected an unhealthy probe on 503")
	}

	// Probe never panics or errors on an unreachable endpoint.
	dead := NewScrapingProvider("scraping", "http://127.0.0.1:1", 5*time.Second)
	if dead.Probe(context.Background()) {
		t.Error("expected an unhealthy probe on connection failure")
	}
}
