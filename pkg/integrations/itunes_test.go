package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/metrics"
)

func newITunesServer(t *testing.T, lookups *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("term") == "" || q.Get("country") != "us" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if q.Get("term") == "down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if limit := q.Get("limit"); limit != "" && limit != "2" {
			t.Errorf("unexpected limit %q", limit)
		}
		switch q.Get("entity") {
		case "allArtist":
			w.Write([]byte(`{"resultCount": 1, "results": [
				{"artistId": 32940, "artistName": "Michael Jackson",
				 "artistLinkUrl": "https://music.apple.com/us/artist/michael-jackson/32940",
				 "primaryGenreName": "Pop"}]}`))
		case "song":
			if q.Has("limit") {
				w.Write([]byte(`{"resultCount": 1, "results": [
					{"trackId": 269573364, "trackName": "Thriller", "artistId": 32940,
					 "artistName": "Michael Jackson", "collectionName": "Thriller",
					 "trackViewUrl": "https://music.apple.com/us/album/thriller/269572838?i=269573364"}]}`))
				return
			}
			w.Write([]byte(`{"resultCount": 2, "results": [
				{"trackId": 269573364, "trackName": "Thriller", "artistId": 32940,
				 "artistName": "Michael Jackson", "collectionName": "Thriller"},
				{"trackId": 1, "trackName": "Thriller (Live)", "artistId": 32940,
				 "artistName": "Michael Jackson", "collectionName": "Live"}]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/lookup", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(lookups, 1)
		if r.URL.Query().Get("id") == "32940" {
			w.Write([]byte(`{"resultCount": 1, "results": [
				{"artistId": 32940, "artistName": "Michael Jackson", "primaryGenreName": "Pop"}]}`))
			return
		}
		w.Write([]byte(`{"resultCount": 0, "results": []}`))
	})
	return httptest.NewServer(mux)
}

func TestITunesClient(t *testing.T) {
	var lookups int32
	server := newITunesServer(t, &lookups)
	defer server.Close()

	client := NewITunesClient(ITunesConfig{
		BaseURL:       server.URL,
		ClientOptions: ClientOptions{Metrics: metrics.New()},
	})
	ctx := context.Background()

	t.Run("search artists", func(t *testing.T) {
		artists, err := client.SearchArtists(ctx, domain.SearchRequest{Name: "Michael Jackson"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(artists) != 1 {
			t.Fatalf("expected 1 artist, got %d", len(artists))
		}
		want := domain.Artist{
			ID:    "32940",
			Name:  "Michael Jackson",
			URL:   "https://music.apple.com/us/artist/michael-jackson/32940",
			Genre: "Pop",
		}
		if artists[0] != want {
			t.Errorf("expected %+v, got %+v", want, artists[0])
		}
	})

	t.Run("search songs without limit uses provider default", func(t *testing.T) {
		songs, err := client.SearchSongs(ctx, domain.SearchRequest{Name: "Thriller"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 2 {
			t.Fatalf("expected 2 songs, got %d", len(songs))
		}
		if songs[0].ArtistID != "32940" || songs[0].Album != "Thriller" {
			t.Errorf("unexpected song %+v", songs[0])
		}
	})

	t.Run("search songs with limit", func(t *testing.T) {
		limit := 2
		songs, err := client.SearchSongs(ctx, domain.SearchRequest{Name: "Thriller", Limit: &limit})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(songs) != 1 || songs[0].URL == "" {
			t.Errorf("unexpected songs %+v", songs)
		}
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := client.SearchArtists(ctx, domain.SearchRequest{})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		_, err := client.SearchArtists(ctx, domain.SearchRequest{Name: "down"})
		if !errors.Is(err, domain.ErrExternalAPIFailure) {
			t.Errorf("expected ErrExternalAPIFailure, got %v", err)
		}
	})

	t.Run("lookup", func(t *testing.T) {
		artist, err := client.LookupArtist(ctx, "32940")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if artist == nil || artist.Name != "Michael Jackson" {
			t.Errorf("unexpected artist %+v", artist)
		}
	})

	t.Run("lookup unknown id is absent", func(t *testing.T) {
		artist, err := client.LookupArtist(ctx, "1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if artist != nil {
			t.Errorf("expected nil artist, got %+v", artist)
		}
	})

	t.Run("lookup empty id", func(t *testing.T) {
		before := atomic.LoadInt32(&lookups)
		_, err := client.LookupArtist(ctx, "")
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
		if atomic.LoadInt32(&lookups) != before {
			t.Error("expected no upstream call")
		}
	})
}
