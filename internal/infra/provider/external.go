package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/vietddude/forecaster/internal/core/domain"
)

// ExternalProvider is the externally hosted, paid forecast API. More
// reliable than scraping, billed per call, authenticated with an API key.
// Its wire format differs from ours, so requests are translated.
type ExternalProvider struct {
	name        string
	baseURL     string
	apiKey      string
	cost        float64
	httpClient  *http.Client
	probeClient *http.Client
}

// NewExternalProvider creates an external provider against baseURL.
func NewExternalProvider(
	name, baseURL, apiKey string,
	cost float64,
	timeout time.Duration,
) *ExternalProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExternalProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		cost:    cost,
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

func (p *ExternalProvider) Name() string { return p.name }

func (p *ExternalProvider) CostPerCall() float64 { return p.cost }

// externalRequest is the vendor's request format.
type externalRequest struct {
	Query struct {
		City    string `json:"city"`
		Country string `json:"country"`
	} `json:"query"`
	Period struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"period"`
	Settings struct {
		Hourly     bool   `json:"hourly"`
		UnitSystem string `json:"unit_system"`
	} `json:"settings"`
}

func toExternalFormat(req *domain.ForecastRequest) externalRequest {
	var out externalRequest
	out.Query.City = req.Location.City
	out.Query.Country = req.Location.CountryCode
	out.Period.From = req.Range.Start
	out.Period.To = req.Range.End
	out.Settings.Hourly = req.Options.IncludeHourly
	out.Settings.UnitSystem = req.Options.Units
	return out
}

// Fetch retrieves a forecast from the external API. The response envelope
// matches ours, so only the request needs translation.
func (p *ExternalProvider) Fetch(
	ctx context.Context,
	req *domain.ForecastRequest,
) (*domain.ForecastResponse, error) {
	endpoint := p.baseURL + "/api/v2/forecast"
	headers := map[string]string{"X-API-Key": p.apiKey}

	resp, err := postForecast(ctx, p.httpClient, endpoint, toExternalFormat(req), headers)
	if err != nil {
		return nil, &CallError{Provider: p.name, Err: err}
	}

	resp.Source = p.name
	if resp.RetrievedAt.IsZero() {
		resp.RetrievedAt = time.Now()
	}
	return resp, nil
}

// Probe pings the vendor health endpoint with the API key.
func (p *ExternalProvider) Probe(ctx context.Context) bool {
	headers := map[string]string{"X-API-Key": p.apiKey}
	return probeHealth(ctx, p.probeClient, p.baseURL+"/health", headers, p.name)
}
