package integrations

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/yair/encore/pkg/domain"
)

const (
	iTunesConnector = "itunes"

	iTunesEntityArtist = "allArtist"
	iTunesEntitySong   = "song"
)

type ITunesClient struct {
	restClient
	country string
}

type ITunesConfig struct {
	BaseURL string
	Country string
	ClientOptions
}

func NewITunesClient(config ITunesConfig) *ITunesClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://itunes.apple.com"
	}
	if config.Country == "" {
		config.Country = "us"
	}

	return &ITunesClient{
		restClient: newRestClient(iTunesConnector, config.BaseURL, config.ClientOptions),
		country:    config.Country,
	}
}

type iTunesResult struct {
	ArtistID         flexString `json:"artistId"`
	ArtistName       string     `json:"artistName"`
	ArtistLinkURL    string     `json:"artistLinkUrl"`
	PrimaryGenreName string     `json:"primaryGenreName"`
	TrackID          flexString `json:"trackId"`
	TrackName        string     `json:"trackName"`
	TrackViewURL     string     `json:"trackViewUrl"`
	CollectionName   string     `json:"collectionName"`
}

type iTunesResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []iTunesResult `json:"results"`
}

func (r *iTunesResponse) empty() bool {
	return len(r.Results) == 0
}

func (r iTunesResult) artist() domain.Artist {
	return domain.Artist{
		ID:    string(r.ArtistID),
		Name:  r.ArtistName,
		URL:   r.ArtistLinkURL,
		Genre: r.PrimaryGenreName,
	}
}

func (r iTunesResult) song() domain.Song {
	return domain.Song{
		ID:         string(r.TrackID),
		Name:       r.TrackName,
		ArtistID:   string(r.ArtistID),
		ArtistName: r.ArtistName,
		Album:      r.CollectionName,
		URL:        r.TrackViewURL,
	}
}

func (c *ITunesClient) search(ctx context.Context, entity string, req domain.SearchRequest) ([]iTunesResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("term", req.Name)
	q.Set("country", c.country)
	q.Set("entity", entity)
	if req.Limit != nil {
		q.Set("limit", strconv.Itoa(*req.Limit))
	}

	var resp iTunesResponse
	if err := c.getJSON(ctx, "search_"+entity, "/search", q, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *ITunesClient) SearchArtists(ctx context.Context, req domain.SearchRequest) ([]domain.Artist, error) {
	results, err := c.search(ctx, iTunesEntityArtist, req)
	if err != nil {
		return nil, err
	}

	artists := make([]domain.Artist, 0, len(results))
	for _, r := range results {
		artists = append(artists, r.artist())
	}
	return artists, nil
}

func (c *ITunesClient) SearchSongs(ctx context.Context, req domain.SearchRequest) ([]domain.Song, error) {
	results, err := c.search(ctx, iTunesEntitySong, req)
	if err != nil {
		return nil, err
	}

	songs := make([]domain.Song, 0, len(results))
	for _, r := range results {
		songs = append(songs, r.song())
	}
	return songs, nil
}

// LookupArtist fetches a single artist, or nil when the id is unknown.
// Callers are expected to go through the request loader so each id is looked
// up at most once per query.
func (c *ITunesClient) LookupArtist(ctx context.Context, id string) (*domain.Artist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Message: "artist id is required"}
	}

	q := url.Values{}
	q.Set("id", id)

	var resp iTunesResponse
	if err := c.getJSON(ctx, "lookup", "/lookup", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	artist := resp.Results[0].artist()
	return &artist, nil
}
