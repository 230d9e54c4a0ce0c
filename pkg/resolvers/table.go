// Package resolvers holds the static field resolution table: for every
// (type, field) pair of the schema it names how the value is obtained and
// what happens when obtaining it fails.
package resolvers

import (
	"context"
	"fmt"
	"sort"
)

// Kind tags how a field is resolved.
type Kind int

const (
	// KindProperty reads a value already present on the parent.
	KindProperty Kind = iota
	// KindDerivation computes a value from the parent without I/O.
	KindDerivation
	// KindConnector calls the provider that owns the parent type.
	KindConnector
	// KindCrossConnector enriches the parent from a different provider.
	KindCrossConnector
)

func (k Kind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindDerivation:
		return "derivation"
	case KindConnector:
		return "connector"
	case KindCrossConnector:
		return "cross-connector"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Blocking reports whether resolvers of this kind perform upstream I/O.
func (k Kind) Blocking() bool {
	return k == KindConnector || k == KindCrossConnector
}

// Params carries the resolved parent value and the field arguments.
type Params struct {
	Parent interface{}
	Args   map[string]interface{}
}

type ResolveFunc func(ctx context.Context, p Params) (interface{}, error)

type Strategy struct {
	Kind     Kind
	Fallback Fallback
	// Batched resolvers go through the request loader and manage their own
	// blocking.
	Batched bool
	Resolve ResolveFunc
}

// Table maps type name -> field name -> strategy.
type Table map[string]map[string]Strategy

func (t Table) Lookup(typeName, fieldName string) (Strategy, bool) {
	fields, ok := t[typeName]
	if !ok {
		return Strategy{}, false
	}
	s, ok := fields[fieldName]
	return s, ok
}

// Fields lists every "Type.field" entry in sorted order.
func (t Table) Fields() []string {
	var names []string
	for typeName, fields := range t {
		for fieldName := range fields {
			names = append(names, typeName+"."+fieldName)
		}
	}
	sort.Strings(names)
	return names
}

// Table builds the resolution table bound to r's connectors.
func (r *Resolver) Table() Table {
	return Table{
		"Query": {
			"artists": connector(r.searchArtists),
			"songs":   connector(r.searchSongs),
			"artist":  batched(r.artistByID),
		},
		"Artist": {
			"id":     property(func(a artist) interface{} { return a.ID }),
			"name":   property(func(a artist) interface{} { return a.Name }),
			"url":    property(func(a artist) interface{} { return optional(a.URL) }),
			"genre":  property(func(a artist) interface{} { return optional(a.Genre) }),
			"songs":  connector(r.artistSongs),
			"events": connector(r.artistEvents),
		},
		"Song": {
			"id":         property(func(s song) interface{} { return s.ID }),
			"name":       property(func(s song) interface{} { return s.Name }),
			"artistId":   property(func(s song) interface{} { return optional(s.ArtistID) }),
			"artistName": property(func(s song) interface{} { return optional(s.ArtistName) }),
			"album":      property(func(s song) interface{} { return optional(s.Album) }),
			"url":        property(func(s song) interface{} { return optional(s.URL) }),
			"lyrics":     {Kind: KindCrossConnector, Fallback: FallbackNull, Resolve: r.songLyrics},
			"tabs":       derivation(songTabs),
			"artist":     batched(r.songArtist),
		},
		"Event": {
			"id":       property(func(e event) interface{} { return optional(e.ID) }),
			"datetime": property(func(e event) interface{} { return e.DateTime }),
			"venue":    property(func(e event) interface{} { return e.Venue }),
			"offers":   property(func(e event) interface{} { return e.Offers }),
			"date":     derivation(eventDate),
			"time":     derivation(eventTime),
			"tickets":  derivation(eventTickets),
			"weather":  {Kind: KindCrossConnector, Fallback: FallbackRetryAlternate, Resolve: r.eventWeather},
		},
		"Venue": {
			"name":      property(func(v venue) interface{} { return optional(v.Name) }),
			"city":      property(func(v venue) interface{} { return optional(v.City) }),
			"country":   property(func(v venue) interface{} { return optional(v.Country) }),
			"latitude":  property(func(v venue) interface{} { return v.Latitude }),
			"longitude": property(func(v venue) interface{} { return v.Longitude }),
		},
		"Offer": {
			"type":   property(func(o offer) interface{} { return optional(o.Type) }),
			"url":    property(func(o offer) interface{} { return optional(o.URL) }),
			"status": property(func(o offer) interface{} { return optional(o.Status) }),
		},
		"Weather": {
			"condition":   property(func(f forecast) interface{} { return optional(f.Condition) }),
			"date":        property(func(f forecast) interface{} { return optional(f.Date) }),
			"historical":  property(func(f forecast) interface{} { return f.Historical }),
			"temperature": derivation(weatherTemperature),
		},
		"Temperature": {
			"unit": property(func(t temperature) interface{} { return string(t.Unit) }),
			"high": property(func(t temperature) interface{} { return t.High }),
			"low":  property(func(t temperature) interface{} { return t.Low }),
		},
	}
}

func connector(fn ResolveFunc) Strategy {
	return Strategy{Kind: KindConnector, Fallback: FallbackPropagate, Resolve: fn}
}

func batched(fn ResolveFunc) Strategy {
	return Strategy{Kind: KindConnector, Fallback: FallbackPropagate, Batched: true, Resolve: fn}
}

func derivation(fn ResolveFunc) Strategy {
	return Strategy{Kind: KindDerivation, Fallback: FallbackPropagate, Resolve: fn}
}

// property reads a value off a parent of type P.
func property[P any](get func(P) interface{}) Strategy {
	return Strategy{
		Kind:     KindProperty,
		Fallback: FallbackPropagate,
		Resolve: func(_ context.Context, p Params) (interface{}, error) {
			parent, err := parentAs[P](p)
			if err != nil {
				return nil, err
			}
			return get(parent), nil
		},
	}
}

func parentAs[P any](p Params) (P, error) {
	switch v := p.Parent.(type) {
	case P:
		return v, nil
	case *P:
		if v != nil {
			return *v, nil
		}
	}
	var zero P
	return zero, fmt.Errorf("unexpected parent %T, want %T", p.Parent, zero)
}

// optional maps the empty string to null.
func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
