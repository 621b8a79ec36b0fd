package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu     sync.Mutex
	body   map[string]json.RawMessage
	err    error
	calls  int
	params url.Values
	// hook runs inside Search before returning
	hook func()
}

func (f *fakeBackend) Search(ctx context.Context, category models.Category, params url.Values) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.params = params
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.body, f.err
}

func body(t *testing.T, s string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestSearch_AttractionsExcludeHotels(t *testing.T) {
	backend := &fakeBackend{body: body(t, `{"attractions":[
		{"xid":"N1","name":"Eiffel Tower","thumbnail":"http://img/eiffel.jpg"},
		{"hotel_id":"H9","name":"Hotel Lutetia","address":"45 Bd Raspail","price_per_night":250},
		{"xid":"N2","title":"Musee d'Orsay","image_url":"http://img/orsay.jpg"}
	],"count":3}`)}
	o := New(backend, 3)

	res, err := o.Search(context.Background(), models.CategoryAttractions, url.Values{"location": {"Paris"}})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.Excluded)
	assert.Equal(t, "Eiffel Tower", res.Items[0].Name())
	assert.Equal(t, "http://img/eiffel.jpg", res.Items[0].Image())
	assert.Equal(t, "Musee d'Orsay", res.Items[1].Name())
	assert.Equal(t, "http://img/orsay.jpg", res.Items[1].Image())
	for _, it := range res.Items {
		assert.NotEqual(t, "Hotel Lutetia", it.Name())
	}
}

func TestSearch_HotelFieldsAloneExclude(t *testing.T) {
	tests := []struct {
		name     string
		record   string
		excluded bool
	}{
		{name: "address only", record: `{"name":"A","address":"1 rue"}`, excluded: true},
		{name: "per-night price only", record: `{"name":"A","price_per_night":"120"}`, excluded: true},
		{name: "hotel id only", record: `{"name":"A","hotel_id":"h1"}`, excluded: true},
		{name: "null address is not a hotel", record: `{"name":"A","address":null}`, excluded: false},
		{name: "plain attraction", record: `{"name":"A","xid":"N1","price":20}`, excluded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(&fakeBackend{body: body(t, `{"attractions":[`+tt.record+`]}`)}, 3)
			res, err := o.Search(context.Background(), models.CategoryAttractions, url.Values{"location": {"Rome"}})
			require.NoError(t, err)
			if tt.excluded {
				assert.Empty(t, res.Items)
			} else {
				assert.Len(t, res.Items, 1)
			}
		})
	}
}

func TestSearch_MissingFieldIsUnexpectedData(t *testing.T) {
	o := New(&fakeBackend{body: body(t, `{"results":[],"count":0}`)}, 3)
	_, err := o.Search(context.Background(), models.CategoryHotels, url.Values{
		"location": {"Paris"}, "check_in": {"2025-06-01"}, "check_out": {"2025-06-04"},
	})
	assert.ErrorIs(t, err, ErrUnexpectedData)

	o = New(&fakeBackend{body: body(t, `{"hotels":{"oops":true}}`)}, 3)
	_, err = o.Search(context.Background(), models.CategoryHotels, url.Values{
		"location": {"Paris"}, "check_in": {"2025-06-01"}, "check_out": {"2025-06-04"},
	})
	assert.ErrorIs(t, err, ErrUnexpectedData)
}

func TestSearch_EmptyListIsNotAnError(t *testing.T) {
	o := New(&fakeBackend{body: body(t, `{"destinations":[],"count":0}`)}, 3)
	res, err := o.Search(context.Background(), models.CategoryDestinations, url.Values{"query": {"Atlantis"}})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		category models.Category
		params   url.Values
		wantErr  bool
	}{
		{name: "destinations ok", category: models.CategoryDestinations, params: url.Values{"query": {"Paris"}}},
		{name: "destinations blank", category: models.CategoryDestinations, params: url.Values{"query": {"   "}}, wantErr: true},
		{name: "attractions by location", category: models.CategoryAttractions, params: url.Values{"location": {"Paris"}}},
		{name: "attractions by coordinates", category: models.CategoryAttractions, params: url.Values{"lat": {"48.8"}, "lon": {"2.3"}}},
		{name: "attractions lat only", category: models.CategoryAttractions, params: url.Values{"lat": {"48.8"}}, wantErr: true},
		{name: "hotels missing dates", category: models.CategoryHotels, params: url.Values{"location": {"Paris"}}, wantErr: true},
		{name: "flights ok", category: models.CategoryFlights, params: url.Values{"origin": {"jfk"}, "destination": {"CDG"}, "departure_date": {"2025-06-01"}}},
		{name: "flights missing date", category: models.CategoryFlights, params: url.Values{"origin": {"JFK"}, "destination": {"CDG"}}, wantErr: true},
		{name: "unknown category", category: "cars", params: url.Values{}, wantErr: true},
	}

	o := New(&fakeBackend{}, 3)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Validate(tt.category, tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_UppercasesAirportCodes(t *testing.T) {
	o := New(&fakeBackend{}, 3)
	p, err := o.Validate(models.CategoryFlights, url.Values{
		"origin": {"jfk"}, "destination": {"Paris"}, "departure_date": {"2025-06-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, "JFK", p.Get("origin"))
	assert.Equal(t, "Paris", p.Get("destination"))
}

func TestSearch_ValidationSkipsNetwork(t *testing.T) {
	backend := &fakeBackend{}
	o := New(backend, 3)
	_, err := o.Run(context.Background(), "u1", models.CategoryHotels, url.Values{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, backend.calls)
}

func TestRun_FailureKeepsPriorResults(t *testing.T) {
	backend := &fakeBackend{body: body(t, `{"destinations":[{"name":"Paris","country":"FR"}]}`)}
	o := New(backend, 3)
	ctx := context.Background()

	_, err := o.Run(ctx, "u1", models.CategoryDestinations, url.Values{"query": {"Paris"}})
	require.NoError(t, err)

	backend.body, backend.err = nil, errors.New("boom")
	_, err = o.Run(ctx, "u1", models.CategoryDestinations, url.Values{"query": {"Lyon"}})
	require.Error(t, err)

	latest, ok := o.Latest("u1", models.CategoryDestinations)
	require.True(t, ok)
	require.Len(t, latest.Items, 1)
	assert.Equal(t, "Paris", latest.Items[0].Name())
}

func TestRun_StaleResponseNotCommitted(t *testing.T) {
	backend := &fakeBackend{body: body(t, `{"destinations":[{"name":"Old"}]}`)}
	o := New(backend, 3)
	ctx := context.Background()

	// a newer search starts and commits while the first one is in flight
	backend.hook = func() {
		backend.hook = nil
		newer := o.Begin("u1", models.CategoryDestinations)
		require.True(t, o.Commit(newer, Results{
			Category: models.CategoryDestinations,
			Items:    []models.SearchResult{{Kind: models.CategoryDestinations, Destination: &models.Destination{Card: models.Card{Name: "New"}}}},
		}))
	}

	res, err := o.Run(ctx, "u1", models.CategoryDestinations, url.Values{"query": {"x"}})
	require.NoError(t, err)
	assert.True(t, res.Stale)

	latest, ok := o.Latest("u1", models.CategoryDestinations)
	require.True(t, ok)
	assert.Equal(t, "New", latest.Items[0].Name())
}

func TestGenerations_ScopedPerUserAndCategory(t *testing.T) {
	o := New(&fakeBackend{}, 3)
	a := o.Begin("u1", models.CategoryHotels)
	o.Begin("u2", models.CategoryHotels)
	o.Begin("u1", models.CategoryFlights)

	assert.True(t, o.Commit(a, Results{Category: models.CategoryHotels}))
}
