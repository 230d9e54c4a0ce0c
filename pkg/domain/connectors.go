package domain

import (
	"context"
)

type Catalog interface {
	SearchArtists(ctx context.Context, req SearchRequest) ([]Artist, error)
	SearchSongs(ctx context.Context, req SearchRequest) ([]Song, error)
	LookupArtist(ctx context.Context, id string) (*Artist, error)
}

type EventSource interface {
	ListEvents(ctx context.Context, req SearchRequest) ([]Event, error)
}

// LyricsSource never fails: any problem is reported as ok == false.
type LyricsSource interface {
	FindLyrics(ctx context.Context, songName, artistName string) (lyrics string, ok bool)
}

// WeatherSource returns a nil forecast and nil error when no location is known
// near the venue.
type WeatherSource interface {
	Forecast(ctx context.Context, datetime string, venue Venue) (*Forecast, error)
}
