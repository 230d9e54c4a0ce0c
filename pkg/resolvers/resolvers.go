package resolvers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/metrics"
)

type (
	artist      = domain.Artist
	song        = domain.Song
	event       = domain.Event
	venue       = domain.Venue
	offer       = domain.Offer
	forecast    = domain.Forecast
	temperature = domain.Temperature
)

// ErrSourceUnavailable is returned for fields whose connector is not
// configured.
var ErrSourceUnavailable = errors.New("data source not configured")

const (
	defaultLookupConcurrency = 8
	tabsURL                  = "http://www.songsterr.com/a/wa/bestMatchForQueryString"
)

type Config struct {
	Catalog domain.Catalog
	Events  domain.EventSource
	Lyrics  domain.LyricsSource
	Weather domain.WeatherSource

	Metrics *metrics.Metrics
	Logger  *zap.Logger

	// LookupConcurrency bounds concurrent catalog lookups within one batch.
	LookupConcurrency int
}

// Resolver binds the resolution table to a set of connectors. It holds no
// per-request state; see WithRequest.
type Resolver struct {
	catalog domain.Catalog
	events  domain.EventSource
	lyrics  domain.LyricsSource
	weather domain.WeatherSource

	metrics           *metrics.Metrics
	logger            *zap.Logger
	lookupConcurrency int
}

func New(cfg Config) *Resolver {
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = defaultLookupConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalog:           cfg.Catalog,
		events:            cfg.Events,
		lyrics:            cfg.Lyrics,
		weather:           cfg.Weather,
		metrics:           cfg.Metrics,
		logger:            logger,
		lookupConcurrency: cfg.LookupConcurrency,
	}
}

func (r *Resolver) searchArtists(ctx context.Context, p Params) (interface{}, error) {
	req, err := searchRequest(p.Args)
	if err != nil {
		return nil, err
	}
	if r.catalog == nil {
		return nil, ErrSourceUnavailable
	}
	return r.catalog.SearchArtists(ctx, req)
}

func (r *Resolver) searchSongs(ctx context.Context, p Params) (interface{}, error) {
	req, err := searchRequest(p.Args)
	if err != nil {
		return nil, err
	}
	if r.catalog == nil {
		return nil, ErrSourceUnavailable
	}
	return r.catalog.SearchSongs(ctx, req)
}

func (r *Resolver) artistSongs(ctx context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[artist](p)
	if err != nil {
		return nil, err
	}
	req, err := childRequest(p.Args, parent.Name)
	if err != nil {
		return nil, err
	}
	if r.catalog == nil {
		return nil, ErrSourceUnavailable
	}
	return r.catalog.SearchSongs(ctx, req)
}

func (r *Resolver) artistEvents(ctx context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[artist](p)
	if err != nil {
		return nil, err
	}
	req, err := childRequest(p.Args, parent.Name)
	if err != nil {
		return nil, err
	}
	if r.events == nil {
		return nil, ErrSourceUnavailable
	}
	return r.events.ListEvents(ctx, req)
}

func (r *Resolver) artistByID(ctx context.Context, p Params) (interface{}, error) {
	id, err := argString(p.Args, "id")
	if err != nil {
		return nil, err
	}
	return r.loadArtist(ctx, id)
}

func (r *Resolver) songArtist(ctx context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[song](p)
	if err != nil {
		return nil, err
	}
	return r.loadArtist(ctx, parent.ArtistID)
}

func (r *Resolver) loadArtist(ctx context.Context, id string) (interface{}, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ValidationError{Field: "id", Message: "artist id is required"}
	}
	artist, err := r.artistLoader(ctx).Load(id)()
	if err != nil {
		return nil, err
	}
	if artist == nil {
		return nil, nil
	}
	return *artist, nil
}

// songLyrics reports missing lyrics as null; the lyrics source never fails.
func (r *Resolver) songLyrics(ctx context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[song](p)
	if err != nil {
		return nil, err
	}
	if err := requireArtistName(parent.ArtistName); err != nil {
		return nil, err
	}
	if r.lyrics == nil {
		return nil, ErrSourceUnavailable
	}
	lyrics, ok := r.lyrics.FindLyrics(ctx, parent.Name, parent.ArtistName)
	if !ok {
		return nil, nil
	}
	return lyrics, nil
}

func (r *Resolver) eventWeather(ctx context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[event](p)
	if err != nil {
		return nil, err
	}
	if r.weather == nil {
		return nil, ErrSourceUnavailable
	}
	return r.weather.Forecast(ctx, parent.DateTime, parent.Venue)
}

// songTabs links to a songsterr search; the target is not verified.
func songTabs(_ context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[song](p)
	if err != nil {
		return nil, err
	}
	// songsterr reads song then artist; url.Values would sort the keys.
	return tabsURL + "?s=" + url.QueryEscape(parent.Name) + "&a=" + url.QueryEscape(parent.ArtistName), nil
}

func eventDate(_ context.Context, p Params) (interface{}, error) {
	return formatEventTime(p, "1/2/2006")
}

func eventTime(_ context.Context, p Params) (interface{}, error) {
	return formatEventTime(p, "3:04:05 PM")
}

func formatEventTime(p Params, layout string) (interface{}, error) {
	parent, err := parentAs[event](p)
	if err != nil {
		return nil, err
	}
	when, err := domain.ParseDateTime(parent.DateTime)
	if err != nil {
		return nil, err
	}
	return when.Format(layout), nil
}

func eventTickets(_ context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[event](p)
	if err != nil {
		return nil, err
	}
	if tickets := parent.Tickets(); tickets != nil {
		return *tickets, nil
	}
	return nil, nil
}

func weatherTemperature(_ context.Context, p Params) (interface{}, error) {
	parent, err := parentAs[forecast](p)
	if err != nil {
		return nil, err
	}
	unit := domain.Fahrenheit
	if v, ok := p.Args["unit"].(string); ok && v != "" {
		unit = domain.TemperatureUnit(v)
	}
	return parent.Temperature(unit), nil
}

func requireArtistName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ValidationError{Field: "artistName", Message: "parent artist name is required"}
	}
	return nil
}

// searchRequest builds a root search from the "name" and "limit" arguments.
func searchRequest(args map[string]interface{}) (domain.SearchRequest, error) {
	name, err := argString(args, "name")
	if err != nil {
		return domain.SearchRequest{}, err
	}
	return withLimit(args, name)
}

// childRequest merges the parent's artist name with the field's own "limit".
func childRequest(args map[string]interface{}, artistName string) (domain.SearchRequest, error) {
	if err := requireArtistName(artistName); err != nil {
		return domain.SearchRequest{}, err
	}
	return withLimit(args, artistName)
}

func withLimit(args map[string]interface{}, name string) (domain.SearchRequest, error) {
	req := domain.SearchRequest{Name: strings.TrimSpace(name)}
	limit, err := argInt(args, "limit")
	if err != nil {
		return req, err
	}
	req.Limit = limit
	return req, req.Validate()
}

func argString(args map[string]interface{}, name string) (string, error) {
	switch v := args[name].(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case json.Number:
		return v.String(), nil
	case nil:
		return "", domain.ValidationError{Field: name, Message: name + " is required"}
	default:
		return "", domain.ValidationError{Field: name, Message: fmt.Sprintf("unexpected %T", v)}
	}
}

// argInt returns nil when the argument is absent or null.
func argInt(args map[string]interface{}, name string) (*int, error) {
	var n int
	switch v := args[name].(type) {
	case nil:
		return nil, nil
	case int:
		n = v
	case int64:
		n = int(v)
	case int32:
		n = int(v)
	case float64:
		if v != float64(int(v)) {
			return nil, domain.ValidationError{Field: name, Message: "must be an integer"}
		}
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, domain.ValidationError{Field: name, Message: "must be an integer"}
		}
		n = int(i)
	default:
		return nil, domain.ValidationError{Field: name, Message: fmt.Sprintf("unexpected %T", v)}
	}
	return &n, nil
}
