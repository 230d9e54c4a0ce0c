package integrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/yair/encore/pkg/domain"
)

const bandsintownConnector = "bandsintown"

type BandsintownClient struct {
	restClient
	appID string
}

type BandsintownConfig struct {
	BaseURL string
	AppID   string
	ClientOptions
}

func NewBandsintownClient(config BandsintownConfig) (*BandsintownClient, error) {
	if config.AppID == "" {
		return nil, fmt.Errorf("bandsintown app ID is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://rest.bandsintown.com"
	}

	return &BandsintownClient{
		restClient: newRestClient(bandsintownConnector, config.BaseURL, config.ClientOptions),
		appID:      config.AppID,
	}, nil
}

type bandsintownEvent struct {
	ID       flexString         `json:"id"`
	DateTime string             `json:"datetime"`
	Venue    bandsintownVenue   `json:"venue"`
	Offers   []bandsintownOffer `json:"offers"`
}

type bandsintownVenue struct {
	Name      string    `json:"name"`
	Latitude  flexFloat `json:"latitude"`
	Longitude flexFloat `json:"longitude"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
}

type bandsintownOffer struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// ListEvents is a pass-through: provider failures are returned unchanged so
// the events field fails on its own.
func (c *BandsintownClient) ListEvents(ctx context.Context, req domain.SearchRequest) ([]domain.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("app_id", c.appID)

	var btEvents []bandsintownEvent
	path := fmt.Sprintf("/artists/%s/events", url.PathEscape(req.Name))
	if err := c.getJSON(ctx, "events", path, q, &btEvents); err != nil {
		return nil, err
	}

	if req.Limit != nil && len(btEvents) > *req.Limit {
		btEvents = btEvents[:*req.Limit]
	}

	events := make([]domain.Event, 0, len(btEvents))
	for _, btEvent := range btEvents {
		events = append(events, c.convertToDomainEvent(btEvent, req.Name))
	}
	return events, nil
}

func (c *BandsintownClient) convertToDomainEvent(btEvent bandsintownEvent, artistName string) domain.Event {
	event := domain.Event{
		ID:         string(btEvent.ID),
		ArtistName: artistName,
		DateTime:   btEvent.DateTime,
		Venue: domain.Venue{
			Name:      btEvent.Venue.Name,
			City:      btEvent.Venue.City,
			Country:   btEvent.Venue.Country,
			Latitude:  float64(btEvent.Venue.Latitude),
			Longitude: float64(btEvent.Venue.Longitude),
		},
		Offers: make([]domain.Offer, 0, len(btEvent.Offers)),
	}

	for _, offer := range btEvent.Offers {
		event.Offers = append(event.Offers, domain.Offer{
			Type:   offer.Type,
			URL:    offer.URL,
			Status: offer.Status,
		})
	}
	return event
}
