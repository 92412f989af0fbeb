// Package domain defines the core value types shared across the service.
package domain

import "time"

// Location identifies the place a forecast is requested for.
type Location struct {
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

// DateRange bounds a forecast request, inclusive, in YYYY-MM-DD.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ForecastOptions tunes the shape of the returned forecast.
type ForecastOptions struct {
	IncludeHourly bool   `json:"include_hourly"`
	Units         string `json:"units"` // "metric" or "imperial"
}

// ForecastRequest is a request for a weather forecast.
type ForecastRequest struct {
	Location Location        `json:"location"`
	Range    DateRange       `json:"date_range"`
	Options  ForecastOptions `json:"options"`
}

// HourlyForecast is a single hour within a forecast day.
type HourlyForecast struct {
	Hour        int     `json:"hour"`
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
}

// ForecastDay is the forecast for one calendar day.
type ForecastDay struct {
	Date      string           `json:"date"`
	Condition string           `json:"condition"`
	TempMin   float64          `json:"temp_min"`
	TempMax   float64          `json:"temp_max"`
	Humidity  int              `json:"humidity"`
	Hourly    []HourlyForecast `json:"hourly,omitempty"`
}

// ForecastResponse is the forecast returned to the caller. Source names the
// provider that produced it.
type ForecastResponse struct {
	City        string        `json:"city"`
	Days        []ForecastDay `json:"days"`
	Source      string        `json:"source,omitempty"`
	RetrievedAt time.Time     `json:"retrieved_at"`
}
