package integrations

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yair/encore/pkg/domain"
)

const weatherConnector = "weather"

// WeatherClient resolves forecasts from a MetaWeather compatible API.
// Forecasts are only served a few days ahead, so a miss on the event date is
// retried once with the same month and day of the previous year.
type WeatherClient struct {
	restClient
}

type WeatherConfig struct {
	BaseURL string
	ClientOptions
}

func NewWeatherClient(config WeatherConfig) *WeatherClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.metaweather.com"
	}
	return &WeatherClient{restClient: newRestClient(weatherConnector, config.BaseURL, config.ClientOptions)}
}

type weatherLocation struct {
	WOEID flexString `json:"woeid"`
	Title string     `json:"title"`
}

type weatherRecord struct {
	WeatherStateName string    `json:"weather_state_name"`
	MaxTemp          flexFloat `json:"max_temp"`
	MinTemp          flexFloat `json:"min_temp"`
	ApplicableDate   string    `json:"applicable_date"`
}

func (r weatherRecord) forecast(historical bool) *domain.Forecast {
	return &domain.Forecast{
		Condition:  r.WeatherStateName,
		High:       float64(r.MaxTemp),
		Low:        float64(r.MinTemp),
		Date:       r.ApplicableDate,
		Historical: historical,
	}
}

func (c *WeatherClient) Forecast(ctx context.Context, datetime string, venue domain.Venue) (*domain.Forecast, error) {
	when, err := domain.ParseDateTime(datetime)
	if err != nil {
		return nil, err
	}

	woeid, err := c.locate(ctx, venue)
	if err != nil {
		return nil, err
	}
	if woeid == "" {
		// No weather station near the venue: the forecast is absent, not failed.
		c.logger.Debug("no location near venue",
			zap.Float64("latitude", venue.Latitude),
			zap.Float64("longitude", venue.Longitude))
		return nil, nil
	}

	year, month, day := when.Date()

	record, exactErr := c.day(ctx, woeid, year, month, day)
	if exactErr == nil && record != nil {
		return record.forecast(false), nil
	}

	// Same calendar day a year earlier stands in for an out-of-window date.
	c.logger.Debug("no forecast for event date, trying previous year",
		zap.String("woeid", woeid),
		zap.Int("year", year),
		zap.Error(exactErr))

	record, err = c.day(ctx, woeid, year-1, month, day)
	if err != nil {
		return nil, fmt.Errorf("historical weather lookup failed: %w", err)
	}
	if record != nil {
		return record.forecast(true), nil
	}
	return nil, domain.ErrNoWeatherData
}

// locate returns the woeid of the first location the provider suggests, or ""
// when there is none. The provider's ordering is trusted; distances are not
// recomputed.
func (c *WeatherClient) locate(ctx context.Context, venue domain.Venue) (string, error) {
	q := url.Values{}
	q.Set("lattlong", fmt.Sprintf("%g,%g", venue.Latitude, venue.Longitude))

	var locations []weatherLocation
	if err := c.getJSON(ctx, "location_search", "/api/location/search/", q, &locations); err != nil {
		return "", err
	}
	if len(locations) == 0 {
		return "", nil
	}
	return string(locations[0].WOEID), nil
}

func (c *WeatherClient) day(ctx context.Context, woeid string, year int, month time.Month, day int) (*weatherRecord, error) {
	var records []weatherRecord
	path := fmt.Sprintf("/api/location/%s/%d/%d/%d/", url.PathEscape(woeid), year, int(month), day)
	if err := c.getJSON(ctx, "day", path, nil, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}
