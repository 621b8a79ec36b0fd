// Package pricing derives display and checkout costs for search results whose
// upstream price shape varies.
package pricing

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// Range is the inclusive fallback price range for unpriced items.
type Range struct {
	Min int
	Max int
}

// DefaultRange is the product default of $100 to $400.
var DefaultRange = Range{Min: 100, Max: 400}

// stableKeyFields are tried in order when deriving a fallback price key.
var stableKeyFields = []string{"hotel_id", "xid", "flight_id", "id", "name", "title"}

// Pricer prices pending items. The zero value uses DefaultRange.
type Pricer struct {
	Range Range
}

// New returns a Pricer for r, falling back to DefaultRange for an invalid range.
func New(r Range) *Pricer {
	if r.Min <= 0 || r.Max < r.Min {
		r = DefaultRange
	}
	return &Pricer{Range: r}
}

func (p *Pricer) rng() Range {
	if p == nil || p.Range.Min <= 0 || p.Range.Max < p.Range.Min {
		return DefaultRange
	}
	return p.Range
}

// FallbackPrice maps key into the fallback range. The same key always yields the same price.
func (p *Pricer) FallbackPrice(key string) float64 {
	r := p.rng()
	span := int64(r.Max - r.Min + 1)
	h := int64(Hash(key))
	if h < 0 {
		h = -h
	}
	return float64(int64(r.Min) + h%span)
}

// Hash is a 32-bit polynomial string hash (h = h*31 + c), wrapping on overflow.
func Hash(s string) int32 {
	var h int32
	for _, c := range s {
		h = h*31 + int32(c)
	}
	return h
}

// StableKey picks an identifying field of a raw record, or the record text itself.
func StableKey(raw json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err == nil {
		for _, name := range stableKeyFields {
			v, ok := fields[name]
			if !ok || v == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return string(raw)
}

// Nights counts the nights between two calendar dates, rounded to whole days and
// never less than one. Missing or unparseable dates count as one night.
func Nights(start, end string) int {
	s, ok1 := parseDate(start)
	e, ok2 := parseDate(end)
	if !ok1 || !ok2 {
		return 1
	}
	n := int(math.Round(e.Sub(s).Hours() / 24))
	if n < 1 {
		return 1
	}
	return n
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HotelTotal is the nightly rate times nights. An unpriced hotel uses the fallback
// price as its nightly rate.
func (p *Pricer) HotelTotal(h *models.Hotel, key string, nights int) float64 {
	if nights < 1 {
		nights = 1
	}
	rate := float64(h.NightlyRate())
	if rate <= 0 {
		rate = p.FallbackPrice(key)
	}
	return rate * float64(nights)
}

// AttractionPrice is the explicit price, or the fallback for an unpriced attraction.
func (p *Pricer) AttractionPrice(a *models.Attraction, key string) float64 {
	if a.Price.Known() {
		return float64(a.Price)
	}
	return p.FallbackPrice(key)
}

// Estimate prices a non-flight pending item. Flights are priced by the server.
func (p *Pricer) Estimate(item models.PendingItem, nights int) (float64, error) {
	key := StableKey(item.Payload)
	switch item.Kind {
	case models.ItemKindHotel:
		var h models.Hotel
		if err := json.Unmarshal(item.Payload, &h); err != nil {
			return 0, fmt.Errorf("decode hotel payload: %w", err)
		}
		return p.HotelTotal(&h, key, nights), nil
	case models.ItemKindAttraction:
		var a models.Attraction
		if err := json.Unmarshal(item.Payload, &a); err != nil {
			return 0, fmt.Errorf("decode attraction payload: %w", err)
		}
		return p.AttractionPrice(&a, key), nil
	default:
		return 0, fmt.Errorf("cannot estimate %q items", item.Kind)
	}
}

// LooksLikeAirport reports whether s is an all-uppercase letter code of length n,
// the shape of an IATA airport code.
func LooksLikeAirport(s string, n int) bool {
	if n <= 0 {
		n = 3
	}
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
