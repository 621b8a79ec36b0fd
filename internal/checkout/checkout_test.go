package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/cx-tal-miterani/trip-planner/internal/kvstore"
	"github.com/cx-tal-miterani/trip-planner/internal/pending"
	"github.com/cx-tal-miterani/trip-planner/internal/pricing"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	itineraries map[int64]*models.Itinerary
	nextID      int64
	listErr     error
	saveErr     error
	onSave      func()

	created     []models.CreateItineraryRequest
	fromFlights []models.CreateFromFlightsRequest
	saves       []models.SaveRequest
}

func newFakeBackend(existing ...models.Itinerary) *fakeBackend {
	f := &fakeBackend{itineraries: map[int64]*models.Itinerary{}, nextID: 100}
	for i := range existing {
		it := existing[i]
		f.itineraries[it.ItineraryID] = &it
	}
	return f
}

func (f *fakeBackend) ListItineraries(ctx context.Context) ([]models.Itinerary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Itinerary, 0, len(f.itineraries))
	for _, it := range f.itineraries {
		out = append(out, *it)
	}
	return out, nil
}

func (f *fakeBackend) GetItinerary(ctx context.Context, id int64) (*models.Itinerary, error) {
	it, ok := f.itineraries[id]
	if !ok {
		return nil, &upstream.APIError{Status: http.StatusNotFound, Message: "not found or unauthorized"}
	}
	return it, nil
}

func (f *fakeBackend) CreateItinerary(ctx context.Context, req models.CreateItineraryRequest) (*models.Itinerary, error) {
	f.created = append(f.created, req)
	return f.add(req.Title), nil
}

func (f *fakeBackend) CreateFromFlights(ctx context.Context, req models.CreateFromFlightsRequest) (*models.Itinerary, error) {
	f.fromFlights = append(f.fromFlights, req)
	return f.add(req.Title), nil
}

func (f *fakeBackend) add(title string) *models.Itinerary {
	f.nextID++
	it := &models.Itinerary{ItineraryID: f.nextID, Title: title}
	f.itineraries[it.ItineraryID] = it
	return it
}

func (f *fakeBackend) Save(ctx context.Context, id int64, req models.SaveRequest) (*models.SavedItinerary, []byte, error) {
	if f.saveErr != nil {
		return nil, nil, f.saveErr
	}
	f.saves = append(f.saves, req)
	if f.onSave != nil {
		f.onSave()
	}
	saved := &models.SavedItinerary{ItineraryID: id}
	for _, it := range req.Items {
		saved.TotalCost += it.Price
	}
	raw, _ := json.Marshal(saved)
	return saved, raw, nil
}

type fixture struct {
	backend *fakeBackend
	pending *pending.Store
	kv      kvstore.Store
	co      *Checkout
}

func newFixture(backend *fakeBackend) *fixture {
	kv := kvstore.NewMemoryStore()
	ps := pending.NewStore(kv)
	return &fixture{
		backend: backend,
		pending: ps,
		kv:      kv,
		co:      New(backend, ps, kv, pricing.New(pricing.DefaultRange)),
	}
}

func (f *fixture) add(t *testing.T, kind models.ItemKind, payload string) {
	t.Helper()
	_, err := f.pending.Add(context.Background(), "u1", models.PendingItem{Kind: kind, Payload: json.RawMessage(payload)})
	require.NoError(t, err)
}

func TestDefaultTitle(t *testing.T) {
	existing := []models.Itinerary{
		{ItineraryID: 1, Title: "Trip to Paris 1"},
		{ItineraryID: 2, Title: "Weekend away", Destination: "paris"},
		{ItineraryID: 3, Title: "Trip to Rome 1"},
	}

	tests := []struct {
		name     string
		cached   *models.CurrentItinerary
		location string
		existing []models.Itinerary
		want     string
	}{
		{name: "cached title wins", cached: &models.CurrentItinerary{Title: "Honeymoon"}, location: "Paris", existing: existing, want: "Honeymoon"},
		{name: "one existing trip", location: "Paris", existing: existing[:1], want: "Trip to Paris 2"},
		{name: "title or destination match, case-insensitive", location: "PARIS", existing: existing, want: "Trip to PARIS 3"},
		{name: "new location", location: "Lisbon", existing: existing, want: "Trip to Lisbon 1"},
		{name: "no location", existing: existing, want: "Itinerary 4"},
		{name: "nothing at all", want: "Itinerary 1"},
		{name: "blank cached title ignored", cached: &models.CurrentItinerary{Title: "  "}, location: "Rome", existing: existing, want: "Trip to Rome 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultTitle(tt.cached, tt.location, tt.existing))
		})
	}
}

func TestCommit_HotelPricedByNights(t *testing.T) {
	f := newFixture(newFakeBackend())
	ctx := context.Background()

	require.NoError(t, f.co.SetCurrent(ctx, "u1", models.CurrentItinerary{
		DepartureDate: "2025-06-01",
		ReturnDate:    "2025-06-04",
		Destination:   "Paris",
	}))
	f.add(t, models.ItemKindHotel, `{"hotel_id":"h1","name":"Hotel A","price_per_night":100}`)

	res, err := f.co.Commit(ctx, "u1", Request{})
	require.NoError(t, err)

	require.Len(t, f.backend.saves, 1)
	items := f.backend.saves[0].Items
	require.Len(t, items, 1)
	assert.Equal(t, models.ItemKindHotel, items[0].Kind)
	assert.Equal(t, 3, items[0].Nights)
	assert.Equal(t, 300.0, items[0].Price)
	assert.Equal(t, "Hotel A", items[0].Name)

	// flight dates were cached, so the itinerary was created from them
	require.Len(t, f.backend.fromFlights, 1)
	assert.Equal(t, "Trip to Paris 1", f.backend.fromFlights[0].Title)
	assert.True(t, res.CreatedItinerary)
	assert.Equal(t, 300.0, res.Saved.TotalCost)
}

func TestCommit_PartitionsFlights(t *testing.T) {
	f := newFixture(newFakeBackend(models.Itinerary{ItineraryID: 7, Title: "Trip to Rome 1"}))
	ctx := context.Background()

	f.add(t, models.ItemKindFlight, `{"flight_id":"F1","airline":"AZ","origin":"JFK","destination":"FCO","price":500}`)
	f.add(t, models.ItemKindAttraction, `{"xid":"N1","name":"Colosseum","price":"18"}`)
	f.add(t, models.ItemKindFlight, `{"flight_id":"F2","airline":"AZ","origin":"FCO","destination":"JFK"}`)

	res, err := f.co.Commit(ctx, "u1", Request{ItineraryID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.ItineraryID)
	assert.False(t, res.CreatedItinerary)

	save := f.backend.saves[0]
	require.Len(t, save.Flights, 2)
	assert.Contains(t, string(save.Flights[0]), `"F1"`)
	assert.Contains(t, string(save.Flights[1]), `"F2"`)
	require.Len(t, save.Items, 1)
	assert.Equal(t, 18.0, save.Items[0].Price)
	assert.Equal(t, 0, save.Items[0].Nights)
}

func TestCommit_SuccessClearsState(t *testing.T) {
	f := newFixture(newFakeBackend())
	ctx := context.Background()

	f.add(t, models.ItemKindAttraction, `{"xid":"N1","name":"Louvre","price":20}`)
	res, err := f.co.Commit(ctx, "u1", Request{Location: "Paris"})
	require.NoError(t, err)

	items, err := f.pending.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	cur, err := f.co.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, cur)

	raw, err := f.co.Saved(ctx, "u1", res.ItineraryID)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_cost":20`)
}

func TestCommit_EmptyQueueIsNoop(t *testing.T) {
	f := newFixture(newFakeBackend())
	ctx := context.Background()

	f.add(t, models.ItemKindAttraction, `{"xid":"N1","name":"Louvre","price":20}`)
	_, err := f.co.Commit(ctx, "u1", Request{})
	require.NoError(t, err)

	// second commit in immediate succession
	_, err = f.co.Commit(ctx, "u1", Request{})
	assert.ErrorIs(t, err, ErrNoPendingItems)
	assert.Len(t, f.backend.saves, 1)
	assert.Len(t, f.backend.created, 1)
}

func TestCommit_FailureKeepsPendingItems(t *testing.T) {
	backend := newFakeBackend()
	backend.saveErr = &upstream.APIError{Status: http.StatusInternalServerError, Message: "database unavailable"}
	f := newFixture(backend)
	ctx := context.Background()

	f.add(t, models.ItemKindHotel, `{"hotel_id":"h1","price_per_night":100}`)
	_, err := f.co.Commit(ctx, "u1", Request{})
	require.Error(t, err)
	assert.Equal(t, "database unavailable", err.Error())

	items, err := f.pending.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCommit_StaleCachedItineraryIsRecreated(t *testing.T) {
	f := newFixture(newFakeBackend())
	ctx := context.Background()

	require.NoError(t, f.co.SetCurrent(ctx, "u1", models.CurrentItinerary{ItineraryID: 55, Title: "Old trip"}))
	f.add(t, models.ItemKindAttraction, `{"xid":"N1","name":"Louvre"}`)

	res, err := f.co.Commit(ctx, "u1", Request{})
	require.NoError(t, err)
	assert.True(t, res.CreatedItinerary)
	assert.NotEqual(t, int64(55), res.ItineraryID)
	require.Len(t, f.backend.created, 1)
	assert.Equal(t, "Old trip", f.backend.created[0].Title)
}

func TestCommit_ExplicitMissingTargetFails(t *testing.T) {
	f := newFixture(newFakeBackend())
	f.add(t, models.ItemKindAttraction, `{"xid":"N1","name":"Louvre"}`)

	_, err := f.co.Commit(context.Background(), "u1", Request{ItineraryID: 999})
	assert.True(t, upstream.IsNotFound(err))
	assert.Empty(t, f.backend.created)
}

func TestResolve_ListFailureStillCreates(t *testing.T) {
	backend := newFakeBackend()
	backend.listErr = errors.New("timeout")
	f := newFixture(backend)

	res, err := f.co.Resolve(context.Background(), "u1", Request{Location: "Oslo"})
	require.NoError(t, err)
	assert.Equal(t, "Trip to Oslo 1", res.Title)

	cur, err := f.co.Current(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, cur)
	assert.Equal(t, res.ItineraryID, cur.ItineraryID)
}

func TestResolve_LocationFromPendingFlight(t *testing.T) {
	f := newFixture(newFakeBackend(models.Itinerary{ItineraryID: 1, Title: "Trip to CDG 1"}))
	f.add(t, models.ItemKindFlight, `{"flight_id":"F1","origin":"JFK","destination":"CDG"}`)

	res, err := f.co.Resolve(context.Background(), "u1", Request{})
	require.NoError(t, err)
	assert.Equal(t, "Trip to CDG 2", res.Title)
}

func TestPrepare_UnpricedItemsUseFallback(t *testing.T) {
	f := newFixture(newFakeBackend())
	items := []models.PendingItem{
		{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"hotel_id":"h-unpriced","check_in":"2025-06-01","check_out":"2025-06-03"}`)},
		{Kind: models.ItemKindAttraction, Payload: json.RawMessage(`{"xid":"N-unpriced","name":"Park"}`)},
		{Kind: models.ItemKindAttraction, Payload: json.RawMessage(`{"name":"AI pick","estimated_cost":42}`)},
	}

	req, err := f.co.Prepare(items, nil)
	require.NoError(t, err)
	require.Len(t, req.Items, 3)

	p := pricing.New(pricing.DefaultRange)
	assert.Equal(t, 2, req.Items[0].Nights)
	assert.Equal(t, p.FallbackPrice("h-unpriced")*2, req.Items[0].Price)
	assert.Equal(t, p.FallbackPrice("N-unpriced"), req.Items[1].Price)
	assert.Equal(t, 42.0, req.Items[2].Price)
	assert.NotNil(t, req.Flights)
}

func TestCurrent_MalformedIsAbsent(t *testing.T) {
	f := newFixture(newFakeBackend())
	require.NoError(t, f.kv.Set(context.Background(), currentKey("u1"), "[[["))

	cur, err := f.co.Current(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, cur)
}

func TestSaved_Missing(t *testing.T) {
	f := newFixture(newFakeBackend())
	_, err := f.co.Saved(context.Background(), "u1", 1)
	assert.ErrorIs(t, err, ErrNoSavedData)
}

func TestForget(t *testing.T) {
	f := newFixture(newFakeBackend())
	ctx := context.Background()

	require.NoError(t, f.kv.Set(ctx, savedKey("u1", 4), `{"itinerary_id":4}`))
	require.NoError(t, f.kv.Set(ctx, savedKey("u1", 5), `{"itinerary_id":5}`))
	require.NoError(t, f.co.SetCurrent(ctx, "u1", models.CurrentItinerary{ItineraryID: 4, Title: "Trip to Rome 1"}))

	require.NoError(t, f.co.Forget(ctx, "u1", 5))
	cur, err := f.co.Current(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, cur)
	_, err = f.co.Saved(ctx, "u1", 5)
	assert.ErrorIs(t, err, ErrNoSavedData)

	require.NoError(t, f.co.Forget(ctx, "u1", 4))
	cur, err = f.co.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, cur)
	_, err = f.co.Saved(ctx, "u1", 4)
	assert.ErrorIs(t, err, ErrNoSavedData)
}

func TestCommit_KeepsItemsAddedDuringCheckout(t *testing.T) {
	backend := newFakeBackend()
	f := newFixture(backend)
	ctx := context.Background()

	f.add(t, models.ItemKindAttraction, `{"xid":"N1","name":"Louvre","price":20}`)
	backend.onSave = func() {
		f.add(t, models.ItemKindAttraction, `{"xid":"N2","name":"Orsay","price":16}`)
	}

	_, err := f.co.Commit(ctx, "u1", Request{Location: "Paris"})
	require.NoError(t, err)

	require.Len(t, backend.saves, 1)
	assert.Len(t, backend.saves[0].Items, 1)

	items, err := f.pending.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, string(items[0].Payload), "Orsay")
}
