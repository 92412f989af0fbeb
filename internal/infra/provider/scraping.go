package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
)

const probeTimeout = 5 * time.Second

// apiRequest is the wire format both HTTP backends speak natively.
type apiRequest struct {
	Location struct {
		City        string `json:"city"`
		CountryCode string `json:"country_code"`
	} `json:"location"`
	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date_range"`
	Options struct {
		IncludeHourly string `json:"include_hourly"` // "Y" or "N"
		Units         string `json:"units"`
	} `json:"options"`
}

// apiResponse is the envelope both HTTP backends return.
type apiResponse struct {
	Status       string                   `json:"status"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	Data         *domain.ForecastResponse `json:"data,omitempty"`
}

func (r *apiResponse) isError() bool {
	return r.Status == "error" || r.ErrorMessage != ""
}

func newAPIRequest(req *domain.ForecastRequest) apiRequest {
	var body apiRequest
	body.Location.City = req.Location.City
	body.Location.CountryCode = req.Location.CountryCode
	body.DateRange.Start = req.Range.Start
	body.DateRange.End = req.Range.End
	body.Options.IncludeHourly = "N"
	if req.Options.IncludeHourly {
		body.Options.IncludeHourly = "Y"
	}
	body.Options.Units = req.Options.Units
	return body
}

// ScrapingProvider is the self-hosted, scraping-backed forecast API. Free
// per call, comparatively less reliable.
type ScrapingProvider struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	probeClient *http.Client
}

// NewScrapingProvider creates a scraping provider against baseURL.
func NewScrapingProvider(name, baseURL string, timeout time.Duration) *ScrapingProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ScrapingProvider{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		probeClient: &http.Client{Timeout: probeTimeout},
	}
}

func (p *ScrapingProvider) Name() string { return p.name }

func (p *ScrapingProvider) CostPerCall() float64 { return 0.0 }

// Fetch retrieves a forecast from the scraping backend.
func (p *ScrapingProvider) Fetch(
	ctx context.Context,
	req *domain.ForecastRequest,
) (*domain.ForecastResponse, error) {
	endpoint := p.baseURL + "/v1/forecast"

	resp, err := postForecast(ctx, p.httpClient, endpoint, newAPIRequest(req), nil)
	if err != nil {
		return nil, &CallError{Provider: p.name, Err: err}
	}

	resp.Source = p.name
	if resp.RetrievedAt.IsZero() {
		resp.RetrievedAt = time.Now()
	}
	return resp, nil
}

// Probe pings the backend health endpoint. Any error counts as unhealthy.
func (p *ScrapingProvider) Probe(ctx context.Context) bool {
	return probeHealth(ctx, p.probeClient, p.baseURL+"/health", nil, p.name)
}

// postForecast runs one forecast POST and decodes the shared envelope.
// headers may be nil.
func postForecast(
	ctx context.Context,
	client *http.Client,
	endpoint string,
	body any,
	headers map[string]string,
) (*domain.ForecastResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("forecast call: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", httpResp.StatusCode, raw)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if envelope.isError() {
		return nil, fmt.Errorf("api error: %s", envelope.ErrorMessage)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("api returned success but no data")
	}

	return envelope.Data, nil
}

// probeHealth GETs a health endpoint and reports 200 as healthy. Errors are
// swallowed: a probe is advisory, not a failure path.
func probeHealth(
	ctx context.Context,
	client *http.Client,
	endpoint string,
	headers map[string]string,
	name string,
) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Warn("Health probe request failed", "provider", name, "error", err)
		return false
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("Health probe failed", "provider", name, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}
