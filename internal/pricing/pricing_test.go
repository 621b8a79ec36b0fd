package pricing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackPrice_Deterministic(t *testing.T) {
	p := New(DefaultRange)

	keys := []string{"xotelo_hotel_1", "N123456", "Louvre Museum", "", `{"name":"x"}`}
	for _, k := range keys {
		first := p.FallbackPrice(k)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, p.FallbackPrice(k), "key %q", k)
		}
		// a fresh pricer behaves the same, like a new session would
		assert.Equal(t, first, New(DefaultRange).FallbackPrice(k))
		assert.GreaterOrEqual(t, first, 100.0)
		assert.LessOrEqual(t, first, 400.0)
	}
}

func TestFallbackPrice_CustomRange(t *testing.T) {
	p := New(Range{Min: 50, Max: 50})
	assert.Equal(t, 50.0, p.FallbackPrice("anything"))

	// invalid ranges fall back to the default
	p = New(Range{Min: 10, Max: 5})
	assert.Equal(t, DefaultRange, p.Range)

	var zero Pricer
	v := zero.FallbackPrice("abc")
	assert.GreaterOrEqual(t, v, 100.0)
	assert.LessOrEqual(t, v, 400.0)
}

func TestHash(t *testing.T) {
	assert.Equal(t, int32(0), Hash(""))
	assert.Equal(t, int32(97), Hash("a"))
	assert.Equal(t, int32(97*31+98), Hash("ab"))
	// long strings wrap instead of overflowing
	long := ""
	for i := 0; i < 200; i++ {
		long += "z"
	}
	assert.Equal(t, Hash(long), Hash(long))
}

func TestStableKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "hotel id wins", raw: `{"name":"Ritz","hotel_id":"h-1"}`, want: "h-1"},
		{name: "xid", raw: `{"xid":"N42","name":"Tower"}`, want: "N42"},
		{name: "numeric id", raw: `{"id":17}`, want: "17"},
		{name: "name only", raw: `{"name":"Tower"}`, want: "Tower"},
		{name: "title only", raw: `{"title":"Museum"}`, want: "Museum"},
		{name: "nothing stable", raw: `{"rating":4}`, want: `{"rating":4}`},
		{name: "not an object", raw: `[1,2]`, want: `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StableKey(json.RawMessage(tt.raw)))
		})
	}
}

func TestNights(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       int
	}{
		{name: "three nights", start: "2025-06-01", end: "2025-06-04", want: 3},
		{name: "datetime inputs", start: "2025-06-01T15:00:00", end: "2025-06-03T11:00:00", want: 2},
		{name: "same day", start: "2025-06-01", end: "2025-06-01", want: 1},
		{name: "end before start", start: "2025-06-05", end: "2025-06-01", want: 1},
		{name: "missing start", start: "", end: "2025-06-01", want: 1},
		{name: "missing both", start: "", end: "", want: 1},
		{name: "garbage", start: "soon", end: "later", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Nights(tt.start, tt.end))
		})
	}
}

func TestNights_NeverBelowOne(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := -30; d <= 0; d++ {
		end := base.AddDate(0, 0, d).Format("2006-01-02")
		assert.Equal(t, 1, Nights(base.Format("2006-01-02"), end))
	}
}

func TestEstimate(t *testing.T) {
	p := New(DefaultRange)

	hotel := models.PendingItem{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"hotel_id":"h1","price_per_night":100}`)}
	price, err := p.Estimate(hotel, 3)
	require.NoError(t, err)
	assert.Equal(t, 300.0, price)

	stringPrice := models.PendingItem{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"hotel_id":"h2","price_per_night":"120.50"}`)}
	price, err = p.Estimate(stringPrice, 2)
	require.NoError(t, err)
	assert.Equal(t, 241.0, price)

	flat := models.PendingItem{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"hotel_id":"h3","price":90}`)}
	price, err = p.Estimate(flat, 2)
	require.NoError(t, err)
	assert.Equal(t, 180.0, price)

	// a stay total is not a nightly rate
	withTotal := models.PendingItem{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"hotel_id":"h5","price_per_night":80,"total_price":999}`)}
	price, err = p.Estimate(withTotal, 2)
	require.NoError(t, err)
	assert.Equal(t, 160.0, price)

	unpricedHotel := models.PendingItem{Kind: models.ItemKindHotel, Payload: json.RawMessage(`{"hotel_id":"h4"}`)}
	price, err = p.Estimate(unpricedHotel, 2)
	require.NoError(t, err)
	assert.Equal(t, p.FallbackPrice("h4")*2, price)

	attraction := models.PendingItem{Kind: models.ItemKindAttraction, Payload: json.RawMessage(`{"xid":"N1","price":25}`)}
	price, err = p.Estimate(attraction, 5)
	require.NoError(t, err)
	assert.Equal(t, 25.0, price)

	unpriced := models.PendingItem{Kind: models.ItemKindAttraction, Payload: json.RawMessage(`{"xid":"N2","name":"Tower"}`)}
	price, err = p.Estimate(unpriced, 5)
	require.NoError(t, err)
	assert.Equal(t, p.FallbackPrice("N2"), price)

	_, err = p.Estimate(models.PendingItem{Kind: models.ItemKindFlight, Payload: json.RawMessage(`{}`)}, 1)
	assert.Error(t, err)
}

func TestLooksLikeAirport(t *testing.T) {
	assert.True(t, LooksLikeAirport("JFK", 3))
	assert.False(t, LooksLikeAirport("jfk", 3))
	assert.False(t, LooksLikeAirport("Paris", 3))
	assert.False(t, LooksLikeAirport("JF1", 3))
	assert.True(t, LooksLikeAirport("EGLL", 4))
	assert.True(t, LooksLikeAirport("CDG", 0))
}
