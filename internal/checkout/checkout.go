// Package checkout flushes a user's pending items into a server itinerary.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/pricing"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	currentPrefix = "current_itinerary"
	savedPrefix   = "itinerary_data"
)

var (
	ErrNoPendingItems = errors.New("no pending items")
	ErrNoSavedData    = errors.New("no saved data for itinerary")
)

// Backend is the part of the upstream client checkout needs.
type Backend interface {
	ListItineraries(ctx context.Context) ([]models.Itinerary, error)
	GetItinerary(ctx context.Context, id int64) (*models.Itinerary, error)
	CreateItinerary(ctx context.Context, req models.CreateItineraryRequest) (*models.Itinerary, error)
	CreateFromFlights(ctx context.Context, req models.CreateFromFlightsRequest) (*models.Itinerary, error)
	Save(ctx context.Context, id int64, req models.SaveRequest) (*models.SavedItinerary, []byte, error)
}

// Request targets a checkout. Both fields are optional.
type Request struct {
	ItineraryID int64  `json:"itinerary_id,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Checkout reconciles pending items against server itineraries
type Checkout struct {
	backend Backend
	pending *pending.Store
	kv      kvstore.Store
	pricer  *pricing.Pricer
	log     *zap.Logger
}

// New creates a Checkout.
func New(backend Backend, pendingStore *pending.Store, kv kvstore.Store, pricer *pricing.Pricer) *Checkout {
	if pricer == nil {
		pricer = pricing.New(pricing.DefaultRange)
	}
	return &Checkout{
		backend: backend,
		pending: pendingStore,
		kv:      kv,
		pricer:  pricer,
		log:     logger.Named("checkout"),
	}
}

func currentKey(user string) string {
	return kvstore.Key(currentPrefix, user)
}

func savedKey(user string, id int64) string {
	return kvstore.Key(savedPrefix, user, strconv.FormatInt(id, 10))
}

// Current returns the cached current itinerary, or nil. An unreadable cache is absent.
func (c *Checkout) Current(ctx context.Context, user string) (*models.CurrentItinerary, error) {
	var cur models.CurrentItinerary
	err := kvstore.GetJSON(ctx, c.kv, currentKey(user), &cur)
	switch {
	case err == nil:
		return &cur, nil
	case errors.Is(err, kvstore.ErrNotFound):
		return nil, nil
	case errors.Is(err, kvstore.ErrMalformed):
		c.log.Warn("discarding malformed current itinerary", zap.String("user", user), zap.Error(err))
		return nil, nil
	default:
		return nil, err
	}
}

// SetCurrent replaces the cached current itinerary.
func (c *Checkout) SetCurrent(ctx context.Context, user string, cur models.CurrentItinerary) error {
	return kvstore.SetJSON(ctx, c.kv, currentKey(user), cur)
}

// ClearCurrent drops the cached current itinerary.
func (c *Checkout) ClearCurrent(ctx context.Context, user string) error {
	return c.kv.Remove(ctx, currentKey(user))
}

// Forget drops the local caches that reference itinerary id: its saved data,
// and the current itinerary when it is id.
func (c *Checkout) Forget(ctx context.Context, user string, id int64) error {
	if err := c.kv.Remove(ctx, savedKey(user, id)); err != nil {
		return err
	}
	cur, err := c.Current(ctx, user)
	if err != nil {
		return err
	}
	if cur != nil && cur.ItineraryID == id {
		return c.ClearCurrent(ctx, user)
	}
	return nil
}

// Saved returns the save response cached for itinerary id, as the server sent it.
func (c *Checkout) Saved(ctx context.Context, user string, id int64) (json.RawMessage, error) {
	raw, err := c.kv.Get(ctx, savedKey(user, id))
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrNoSavedData
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(raw)) {
		c.log.Warn("discarding malformed saved itinerary", zap.String("user", user), zap.Int64("itinerary_id", id))
		return nil, ErrNoSavedData
	}
	return json.RawMessage(raw), nil
}

// Resolve returns the itinerary to commit into. An explicit target must exist.
// Otherwise the cached itinerary is used when the server still has it; a stale
// cache loses its id and a new itinerary is created, from the flight dates when
// both are cached.
func (c *Checkout) Resolve(ctx context.Context, user string, req Request) (*models.ResolveItineraryResult, error) {
	if req.ItineraryID > 0 {
		it, err := c.backend.GetItinerary(ctx, req.ItineraryID)
		if err != nil {
			return nil, err
		}
		return &models.ResolveItineraryResult{ItineraryID: it.ItineraryID, Title: it.Title}, nil
	}

	cur, err := c.Current(ctx, user)
	if err != nil {
		return nil, err
	}
	if cur != nil && cur.ItineraryID > 0 {
		it, err := c.backend.GetItinerary(ctx, cur.ItineraryID)
		switch {
		case err == nil:
			title := it.Title
			if title == "" {
				title = cur.Title
			}
			return &models.ResolveItineraryResult{ItineraryID: it.ItineraryID, Title: title}, nil
		case upstream.IsNotFound(err):
			c.log.Info("cached itinerary is gone, creating a new one",
				zap.String("user", user), zap.Int64("itinerary_id", cur.ItineraryID))
			cur.ItineraryID = 0
		default:
			return nil, err
		}
	}

	location := req.Location
	if location == "" {
		location = c.locationHint(ctx, user, cur)
	}
	existing, err := c.backend.ListItineraries(ctx)
	if err != nil {
		// numbering only; a failed list is not worth failing the checkout
		c.log.Warn("could not list itineraries for default title", zap.String("user", user), zap.Error(err))
		existing = nil
	}
	title := DefaultTitle(cur, location, existing)

	var created *models.Itinerary
	if cur.HasFlightDates() {
		created, err = c.backend.CreateFromFlights(ctx, models.CreateFromFlightsRequest{
			DepartureDate: cur.DepartureDate,
			ReturnDate:    cur.ReturnDate,
			Title:         title,
			Origin:        cur.Origin,
			Destination:   cur.Destination,
		})
	} else {
		created, err = c.backend.CreateItinerary(ctx, models.CreateItineraryRequest{Title: title, Destination: location})
	}
	if err != nil {
		return nil, err
	}

	next := models.CurrentItinerary{ItineraryID: created.ItineraryID, Title: title}
	if cur != nil {
		next.Origin, next.Destination = cur.Origin, cur.Destination
		next.DepartureDate, next.ReturnDate = cur.DepartureDate, cur.ReturnDate
	}
	if err := c.SetCurrent(ctx, user, next); err != nil {
		return nil, err
	}
	return &models.ResolveItineraryResult{ItineraryID: created.ItineraryID, Title: title, Created: true}, nil
}

// locationHint finds a location to title a new itinerary with: the cached
// destination, else the destination of the first pending flight, else the
// location of the first pending hotel.
func (c *Checkout) locationHint(ctx context.Context, user string, cur *models.CurrentItinerary) string {
	if cur != nil && cur.Destination != "" {
		return cur.Destination
	}
	items, err := c.pending.List(ctx, user)
	if err != nil {
		return ""
	}
	for _, it := range items {
		switch it.Kind {
		case models.ItemKindFlight:
			var f models.Flight
			if json.Unmarshal(it.Payload, &f) == nil && f.Destination != "" {
				return f.Destination
			}
		case models.ItemKindHotel:
			var h models.Hotel
			if json.Unmarshal(it.Payload, &h) == nil && h.Location != "" {
				return h.Location
			}
		}
	}
	return ""
}

// Prepare partitions items into flights and priced non-flight items. Nights come
// from the cached trip dates, else from a hotel's own check-in and check-out.
func (c *Checkout) Prepare(items []models.PendingItem, cur *models.CurrentItinerary) (models.SaveRequest, error) {
	flights, others := lo.FilterReject(items, func(it models.PendingItem, _ int) bool {
		return it.Kind == models.ItemKindFlight
	})

	req := models.SaveRequest{
		Flights: lo.Map(flights, func(it models.PendingItem, _ int) json.RawMessage { return it.Payload }),
		Items:   make([]models.SaveItem, 0, len(others)),
	}
	for _, it := range others {
		item, err := c.priceItem(it, cur)
		if err != nil {
			return models.SaveRequest{}, err
		}
		req.Items = append(req.Items, item)
	}
	return req, nil
}

func (c *Checkout) priceItem(it models.PendingItem, cur *models.CurrentItinerary) (models.SaveItem, error) {
	result, err := models.DecodeResult(categoryOf(it.Kind), it.Payload)
	if err != nil {
		return models.SaveItem{}, err
	}
	item := models.SaveItem{Kind: it.Kind, Name: result.Name(), Payload: it.Payload}

	if it.Kind == models.ItemKindHotel {
		item.Nights = 1
		switch {
		case cur.HasFlightDates():
			item.Nights = pricing.Nights(cur.DepartureDate, cur.ReturnDate)
		case result.Hotel.CheckIn != "" && result.Hotel.CheckOut != "":
			item.Nights = pricing.Nights(result.Hotel.CheckIn, result.Hotel.CheckOut)
		}
	}

	if resolved, ok := resolvedPrice(it.Payload); ok {
		item.Price = resolved
		return item, nil
	}
	item.Price, err = c.pricer.Estimate(it, item.Nights)
	if err != nil {
		return models.SaveItem{}, err
	}
	return item, nil
}

// resolvedPrice reads a price already computed when the item was added.
func resolvedPrice(payload json.RawMessage) (float64, bool) {
	var p struct {
		EstimatedCost models.Money `json:"estimated_cost"`
	}
	if json.Unmarshal(payload, &p) != nil || !p.EstimatedCost.Known() {
		return 0, false
	}
	return float64(p.EstimatedCost), true
}

func categoryOf(kind models.ItemKind) models.Category {
	switch kind {
	case models.ItemKindFlight:
		return models.CategoryFlights
	case models.ItemKindHotel:
		return models.CategoryHotels
	default:
		return models.CategoryAttractions
	}
}

// Submit prices the user's pending items and saves them into itinerary id.
func (c *Checkout) Submit(ctx context.Context, user string, id int64) (*models.SubmitItineraryResult, error) {
	items, err := c.pending.List(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoPendingItems
	}
	cur, err := c.Current(ctx, user)
	if err != nil {
		return nil, err
	}
	req, err := c.Prepare(items, cur)
	if err != nil {
		return nil, fmt.Errorf("prepare checkout: %w", err)
	}
	saved, raw, err := c.backend.Save(ctx, id, req)
	if err != nil {
		return nil, err
	}
	return &models.SubmitItineraryResult{
		Saved:      saved,
		RawSaved:   raw,
		ItemCount:  len(req.Items),
		FlightRows: len(req.Flights),
		Submitted:  pending.Refs(items),
	}, nil
}

// Finalize caches the save response under the itinerary id, removes the
// submitted pending items and clears the current itinerary. Items added while
// the checkout ran stay queued.
func (c *Checkout) Finalize(ctx context.Context, user string, id int64, rawSaved []byte, submitted []string) error {
	if len(rawSaved) > 0 {
		if err := c.kv.Set(ctx, savedKey(user, id), string(rawSaved)); err != nil {
			return fmt.Errorf("cache saved itinerary: %w", err)
		}
	}
	if err := c.pending.RemoveRefs(ctx, user, submitted); err != nil {
		return fmt.Errorf("remove submitted pending items: %w", err)
	}
	if err := c.ClearCurrent(ctx, user); err != nil {
		return fmt.Errorf("clear current itinerary: %w", err)
	}
	return nil
}

// Commit runs a whole checkout. Any failure leaves the pending items in place so
// the user can retry.
func (c *Checkout) Commit(ctx context.Context, user string, req Request) (*models.CheckoutResult, error) {
	items, err := c.pending.List(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoPendingItems
	}

	target, err := c.Resolve(ctx, user, req)
	if err != nil {
		return nil, err
	}
	submitted, err := c.Submit(ctx, user, target.ItineraryID)
	if err != nil {
		return nil, err
	}
	if err := c.Finalize(ctx, user, target.ItineraryID, submitted.RawSaved, submitted.Submitted); err != nil {
		return nil, err
	}

	c.log.Info("checkout committed",
		zap.String("user", user),
		zap.Int64("itinerary_id", target.ItineraryID),
		zap.Int("items", submitted.ItemCount),
		zap.Int("flights", submitted.FlightRows))

	return Result(target, submitted), nil
}

// Result builds the user-facing checkout report.
func Result(target *models.ResolveItineraryResult, submitted *models.SubmitItineraryResult) *models.CheckoutResult {
	return &models.CheckoutResult{
		ItineraryID:      target.ItineraryID,
		Title:            target.Title,
		CreatedItinerary: target.Created,
		Saved:            submitted.Saved,
		Message:          fmt.Sprintf("Saved %d items and %d flights to %s", submitted.ItemCount, submitted.FlightRows, titleOr(target)),
	}
}

func titleOr(t *models.ResolveItineraryResult) string {
	if t.Title != "" {
		return t.Title
	}
	return "itinerary " + strconv.FormatInt(t.ItineraryID, 10)
}
