package integrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const lyricsConnector = "lyrics"

// LyricsClient talks to the lyrics.ovh API. Lyrics are optional enrichment:
// every failure is reported as "no lyrics".
type LyricsClient struct {
	restClient
}

type LyricsConfig struct {
	BaseURL string
	ClientOptions
}

func NewLyricsClient(config LyricsConfig) *LyricsClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.lyrics.ovh"
	}
	return &LyricsClient{restClient: newRestClient(lyricsConnector, config.BaseURL, config.ClientOptions)}
}

type lyricsResponse struct {
	Lyrics string `json:"lyrics"`
}

func (r *lyricsResponse) empty() bool {
	return strings.TrimSpace(r.Lyrics) == ""
}

func (c *LyricsClient) FindLyrics(ctx context.Context, songName, artistName string) (string, bool) {
	if strings.TrimSpace(songName) == "" || strings.TrimSpace(artistName) == "" {
		return "", false
	}

	var resp lyricsResponse
	path := fmt.Sprintf("/v1/%s/%s", url.PathEscape(artistName), url.PathEscape(songName))
	if err := c.getJSON(ctx, "lyrics", path, nil, &resp); err != nil {
		return "", false
	}
	if resp.empty() {
		return "", false
	}
	return resp.Lyrics, true
}
