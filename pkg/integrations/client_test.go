package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/metrics"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 from metrics handler, got %d", rr.Code)
	}
	return rr.Body.String()
}

func TestRestClient_UpstreamOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search" && r.URL.Query().Get("term") == "Muse":
			w.Write([]byte(`{"resultCount": 1, "results": [{"artistId": 1, "artistName": "Muse"}]}`))
		case r.URL.Path == "/search":
			w.Write([]byte(`{"resultCount": 0, "results": []}`))
		case r.URL.Path == "/lookup":
			w.WriteHeader(http.StatusInternalServerError)
		case strings.HasPrefix(r.URL.Path, "/v1/"):
			w.Write([]byte(`{"lyrics": "  "}`))
		case r.URL.Path == "/api/location/search/":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	m := metrics.New()
	opts := ClientOptions{HTTPClient: server.Client(), Metrics: m}
	ctx := context.Background()

	itunes := NewITunesClient(ITunesConfig{BaseURL: server.URL, ClientOptions: opts})
	if _, err := itunes.SearchArtists(ctx, domain.SearchRequest{Name: "Muse"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := itunes.SearchArtists(ctx, domain.SearchRequest{Name: "Nobody"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := itunes.LookupArtist(ctx, "1"); err == nil {
		t.Fatal("expected lookup error")
	}

	lyrics := NewLyricsClient(LyricsConfig{BaseURL: server.URL, ClientOptions: opts})
	if _, ok := lyrics.FindLyrics(ctx, "Uprising", "Muse"); ok {
		t.Error("expected blank lyrics to be absent")
	}

	weather := NewWeatherClient(WeatherConfig{BaseURL: server.URL, ClientOptions: opts})
	forecast, err := weather.Forecast(ctx, "2017-03-19T11:00:00", domain.Venue{Latitude: 1, Longitude: 2})
	if err != nil || forecast != nil {
		t.Fatalf("expected no forecast and no error, got %+v, %v", forecast, err)
	}

	body := scrape(t, m)
	for _, want := range []string{
		`encore_upstream_calls_total{connector="itunes",operation="search_allArtist",outcome="ok"} 1`,
		`encore_upstream_calls_total{connector="itunes",operation="search_allArtist",outcome="empty"} 1`,
		`encore_upstream_calls_total{connector="itunes",operation="lookup",outcome="error"} 1`,
		`encore_upstream_calls_total{connector="lyrics",operation="lyrics",outcome="empty"} 1`,
		`encore_upstream_calls_total{connector="weather",operation="location_search",outcome="empty"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics to contain %s", want)
		}
	}
}

func TestEmptyResult(t *testing.T) {
	tests := []struct {
		name string
		out  interface{}
		want bool
	}{
		{"empty slice", &[]weatherRecord{}, true},
		{"non-empty slice", &[]weatherRecord{{}}, false},
		{"itunes without results", &iTunesResponse{}, true},
		{"itunes with results", &iTunesResponse{Results: []iTunesResult{{}}}, false},
		{"blank lyrics", &lyricsResponse{Lyrics: "\n"}, true},
		{"lyrics", &lyricsResponse{Lyrics: "la"}, false},
		{"plain struct", &struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := emptyResult(tt.out); got != tt.want {
				t.Errorf("emptyResult() = %v, want %v", got, tt.want)
			}
		})
	}
}
