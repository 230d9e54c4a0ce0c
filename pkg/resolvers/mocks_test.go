package resolvers

import (
	"context"

	"github.com/yair/encore/pkg/domain"
)

type mockCatalog struct {
	searchArtistsFunc func(ctx context.Context, req domain.SearchRequest) ([]domain.Artist, error)
	searchSongsFunc   func(ctx context.Context, req domain.SearchRequest) ([]domain.Song, error)
	lookupArtistFunc  func(ctx context.Context, id string) (*domain.Artist, error)
}

func (m *mockCatalog) SearchArtists(ctx context.Context, req domain.SearchRequest) ([]domain.Artist, error) {
	if m.searchArtistsFunc != nil {
		return m.searchArtistsFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockCatalog) SearchSongs(ctx context.Context, req domain.SearchRequest) ([]domain.Song, error) {
	if m.searchSongsFunc != nil {
		return m.searchSongsFunc(ctx, req)
	}
	return nil, nil
}

func (m *mockCatalog) LookupArtist(ctx context.Context, id string) (*domain.Artist, error) {
	if m.lookupArtistFunc != nil {
		return m.lookupArtistFunc(ctx, id)
	}
	return nil, nil
}

type mockEvents struct {
	listEventsFunc func(ctx context.Context, req domain.SearchRequest) ([]domain.Event, error)
}

func (m *mockEvents) ListEvents(ctx context.Context, req domain.SearchRequest) ([]domain.Event, error) {
	if m.listEventsFunc != nil {
		return m.listEventsFunc(ctx, req)
	}
	return nil, nil
}

type mockLyrics struct {
	findLyricsFunc func(ctx context.Context, songName, artistName string) (string, bool)
}

func (m *mockLyrics) FindLyrics(ctx context.Context, songName, artistName string) (string, bool) {
	if m.findLyricsFunc != nil {
		return m.findLyricsFunc(ctx, songName, artistName)
	}
	return "", false
}

type mockWeather struct {
	forecastFunc func(ctx context.Context, datetime string, venue domain.Venue) (*domain.Forecast, error)
}

func (m *mockWeather) Forecast(ctx context.Context, datetime string, venue domain.Venue) (*domain.Forecast, error) {
	if m.forecastFunc != nil {
		return m.forecastFunc(ctx, datetime, venue)
	}
	return nil, domain.ErrNoWeatherData
}
