package resolvers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/yair/encore/pkg/domain"
	"github.com/yair/encore/pkg/loader"
)

type requestKey struct{}

// request is the state scoped to one query evaluation.
type request struct {
	artists *loader.Loader[string, *domain.Artist]
}

// WithRequest attaches a fresh artist loader, driven by tick, to ctx. It must
// be called once per query; loaders are never shared between queries.
func (r *Resolver) WithRequest(ctx context.Context, tick *loader.Tick) context.Context {
	req := &request{}
	ctx = context.WithValue(ctx, requestKey{}, req)
	req.artists = loader.New[string, *domain.Artist](ctx, r.lookupArtists, loader.Options{
		Name:    "artist",
		Tick:    tick,
		Metrics: r.metrics,
	})
	return ctx
}

// artistLoader returns the request loader. Outside of a request a throwaway
// loader is used, so every call is its own batch.
func (r *Resolver) artistLoader(ctx context.Context) *loader.Loader[string, *domain.Artist] {
	if req, ok := ctx.Value(requestKey{}).(*request); ok {
		return req.artists
	}
	return loader.New[string, *domain.Artist](ctx, r.lookupArtists, loader.Options{Name: "artist", Metrics: r.metrics})
}

// lookupArtists is the artist batch function. The catalog has no multi-id
// lookup, so each distinct id is fetched once, concurrently; failures stay
// with their own position.
func (r *Resolver) lookupArtists(ctx context.Context, ids []string) ([]loader.Result[*domain.Artist], error) {
	if r.catalog == nil {
		return nil, ErrSourceUnavailable
	}

	results := make([]loader.Result[*domain.Artist], len(ids))
	var g errgroup.Group
	g.SetLimit(r.lookupConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			artist, err := r.catalog.LookupArtist(ctx, id)
			results[i] = loader.Result[*domain.Artist]{Value: artist, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
