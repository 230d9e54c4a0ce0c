package domain

import (
	"errors"
	"testing"
	"time"
)

func TestEvent_Tickets(t *testing.T) {
	t.Run("returns the tickets offer", func(t *testing.T) {
		event := Event{Offers: []Offer{
			{Type: "Parking", URL: "https://example.com/parking"},
			{Type: "Tickets", URL: "https://example.com/tickets", Status: "available"},
		}}

		tickets := event.Tickets()
		if tickets == nil {
			t.Fatal("expected tickets offer, got nil")
		}
		if tickets.URL != "https://example.com/tickets" {
			t.Errorf("expected tickets URL, got %s", tickets.URL)
		}
	})

	t.Run("first match wins", func(t *testing.T) {
		event := Event{Offers: []Offer{
			{Type: "Tickets", URL: "first"},
			{Type: "Tickets", URL: "second"},
		}}
		if got := event.Tickets(); got == nil || got.URL != "first" {
			t.Errorf("expected first tickets offer, got %+v", got)
		}
	})

	t.Run("no match is absent", func(t *testing.T) {
		event := Event{Offers: []Offer{{Type: "Parking"}}}
		if got := event.Tickets(); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})
}

func TestParseDateTime(t *testing.T) {
	t.Run("bare timestamp keeps wall clock", func(t *testing.T) {
		got, err := ParseDateTime("2017-03-19T11:00:00")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Year() != 2017 || got.Month() != time.March || got.Day() != 19 || got.Hour() != 11 {
			t.Errorf("unexpected time %v", got)
		}
	})

	t.Run("zoned timestamp", func(t *testing.T) {
		got, err := ParseDateTime("2017-03-19T23:30:00-05:00")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.Day() != 19 {
			t.Errorf("expected local day 19, got %d", got.Day())
		}
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseDateTime("next tuesday")
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})
}

func TestSearchRequest_Validate(t *testing.T) {
	limit := func(n int) *int { return &n }

	tests := []struct {
		name    string
		req     SearchRequest
		wantErr bool
	}{
		{"name only", SearchRequest{Name: "Michael Jackson"}, false},
		{"name and limit", SearchRequest{Name: "Michael Jackson", Limit: limit(5)}, false},
		{"missing name", SearchRequest{Limit: limit(5)}, true},
		{"zero limit", SearchRequest{Name: "x", Limit: limit(0)}, true},
		{"negative limit", SearchRequest{Name: "x", Limit: limit(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
