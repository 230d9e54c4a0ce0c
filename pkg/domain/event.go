package domain

import (
	"fmt"
	"strings"
	"time"
)

type Event struct {
	ID         string  `json:"id"`
	ArtistName string  `json:"artist_name"`
	DateTime   string  `json:"datetime"`
	Venue      Venue   `json:"venue"`
	Offers     []Offer `json:"offers"`
}

type Venue struct {
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Offer struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

const TicketsOfferType = "Tickets"

// Tickets returns the first offer typed "Tickets", or nil.
func (e Event) Tickets() *Offer {
	for i := range e.Offers {
		if e.Offers[i].Type == TicketsOfferType {
			return &e.Offers[i]
		}
	}
	return nil
}

// Providers send either a zoned RFC3339 timestamp or a bare local one.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDateTime parses an upstream combined timestamp. Bare timestamps keep
// their wall clock values so the calendar date is the venue's local date.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ValidationError{Field: "datetime", Message: fmt.Sprintf("unrecognised timestamp %q", s)}
}
