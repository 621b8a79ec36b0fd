// Package search dispatches queries to the backend search endpoints and turns
// the provider records into normalized results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/pricing"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.uber.org/zap"
)

var (
	ErrValidation     = errors.New("invalid search")
	ErrUnexpectedData = errors.New("unexpected data from search provider")
)

// hotelOnlyFields mark an attraction record that is really a hotel.
var hotelOnlyFields = []string{"price_per_night", "address", "hotel_id"}

// Backend is the part of the upstream client the orchestrator needs.
type Backend interface {
	Search(ctx context.Context, category models.Category, params url.Values) (map[string]json.RawMessage, error)
}

// Results is one normalized search response
type Results struct {
	Category models.Category       `json:"category"`
	Items    []models.SearchResult `json:"results"`
	// Excluded counts provider records dropped as misclassified.
	Excluded int `json:"excluded,omitempty"`
	// Stale is set when a newer search for the same category was started
	// before this one finished; stale results are never committed.
	Stale bool `json:"stale,omitempty"`
}

// Generation identifies one started search.
type Generation struct {
	scope    string
	category models.Category
	seq      uint64
}

type slot struct {
	seq       uint64
	committed *Results
}

// Orchestrator runs searches and keeps the latest committed results per scope
// (a user) and category.
type Orchestrator struct {
	backend    Backend
	airportLen int
	log        *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// New creates an Orchestrator. airportLen is the length of an airport code.
func New(backend Backend, airportLen int) *Orchestrator {
	if airportLen <= 0 {
		airportLen = 3
	}
	return &Orchestrator{
		backend:    backend,
		airportLen: airportLen,
		log:        logger.Named("search"),
		slots:      make(map[string]*slot),
	}
}

// Validate checks and normalizes params for category before any network call.
func (o *Orchestrator) Validate(category models.Category, params url.Values) (url.Values, error) {
	p := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				p.Add(k, v)
			}
		}
	}

	switch category {
	case models.CategoryDestinations:
		if p.Get("query") == "" {
			return nil, fmt.Errorf("%w: query is required", ErrValidation)
		}
	case models.CategoryAttractions:
		if p.Get("location") == "" && (p.Get("lat") == "" || p.Get("lon") == "") {
			return nil, fmt.Errorf("%w: location or lat/lon is required", ErrValidation)
		}
	case models.CategoryHotels:
		if p.Get("location") == "" {
			return nil, fmt.Errorf("%w: location is required", ErrValidation)
		}
		if p.Get("check_in") == "" || p.Get("check_out") == "" {
			return nil, fmt.Errorf("%w: check_in and check_out are required", ErrValidation)
		}
	case models.CategoryFlights:
		if p.Get("origin") == "" || p.Get("destination") == "" || p.Get("departure_date") == "" {
			return nil, fmt.Errorf("%w: origin, destination and departure_date are required", ErrValidation)
		}
		for _, k := range []string{"origin", "destination"} {
			if code := strings.ToUpper(p.Get(k)); pricing.LooksLikeAirport(code, o.airportLen) {
				p.Set(k, code)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}
	return p, nil
}

// Search validates params, calls the backend once and normalizes the response.
// It does not touch committed results.
func (o *Orchestrator) Search(ctx context.Context, category models.Category, params url.Values) (Results, error) {
	p, err := o.Validate(category, params)
	if err != nil {
		return Results{}, err
	}

	body, err := o.backend.Search(ctx, category, p)
	if err != nil {
		return Results{}, err
	}

	raw, ok := body[string(category)]
	if !ok {
		return Results{}, fmt.Errorf("%w: missing %q field", ErrUnexpectedData, category)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return Results{}, fmt.Errorf("%w: %q is not a list", ErrUnexpectedData, category)
	}

	res := Results{Category: category, Items: make([]models.SearchResult, 0, len(records))}
	for _, rec := range records {
		if category == models.CategoryAttractions && looksLikeHotel(rec) {
			res.Excluded++
			continue
		}
		item, err := models.DecodeResult(category, rec)
		if err != nil {
			o.log.Warn("skipping malformed search record", zap.String("category", string(category)), zap.Error(err))
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func looksLikeHotel(rec json.RawMessage) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil {
		return false
	}
	for _, f := range hotelOnlyFields {
		if v, ok := fields[f]; ok && string(v) != "null" {
			return true
		}
	}
	return false
}

func slotKey(scope string, category models.Category) string {
	return scope + "|" + string(category)
}

// Begin starts a new search generation, superseding any in flight for the same
// scope and category.
func (o *Orchestrator) Begin(scope string, category models.Category) Generation {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.slot(scope, category)
	s.seq++
	return Generation{scope: scope, category: category, seq: s.seq}
}

// Commit stores res as the latest results if gen is still current. It reports
// whether res was applied.
func (o *Orchestrator) Commit(gen Generation, res Results) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := o.slot(gen.scope, gen.category)
	if s.seq != gen.seq {
		return false
	}
	s.committed = &res
	return true
}

// Latest returns the last committed results.
func (o *Orchestrator) Latest(scope string, category models.Category) (Results, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.slots[slotKey(scope, category)]
	if !ok || s.committed == nil {
		return Results{}, false
	}
	return *s.committed, true
}

func (o *Orchestrator) slot(scope string, category models.Category) *slot {
	k := slotKey(scope, category)
	s, ok := o.slots[k]
	if !ok {
		s = &slot{}
		o.slots[k] = s
	}
	return s
}

// Run is Begin, Search and Commit together. A failed search leaves the committed
// results untouched. A response overtaken by a newer search is returned marked
// Stale and is not committed.
func (o *Orchestrator) Run(ctx context.Context, scope string, category models.Category, params url.Values) (Results, error) {
	gen := o.Begin(scope, category)
	res, err := o.Search(ctx, category, params)
	if err != nil {
		return Results{}, err
	}
	if !o.Commit(gen, res) {
		o.log.Debug("dropping stale search response", zap.String("scope", scope), zap.String("category", string(category)))
		res.Stale = true
	}
	return res, nil
}
