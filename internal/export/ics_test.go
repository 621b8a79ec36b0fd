package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/stretchr/testify/assert"
)

func TestICS(t *testing.T) {
	saved := models.SavedItinerary{
		ItineraryID: 12,
		Title:       "Trip to Paris 2",
		TotalCost:   1234.5,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-04",
		Flights: []models.Flight{
			{FlightID: "F1", Airline: "AF", Origin: "JFK", Destination: "CDG", DepartureDate: "2025-06-01", DepartureTime: "18:30", ArrivalDate: "2025-06-02", ArrivalTime: "07:45"},
			{FlightID: "F2", Airline: "AF", Origin: "CDG", Destination: "JFK"},
		},
		Items: []models.SaveItem{
			{Kind: models.ItemKindHotel, Name: "Hotel A", Price: 300, Nights: 3, Payload: json.RawMessage(`{"hotel_id":"h1","check_in":"2025-06-02","check_out":"2025-06-05","address":"1 Rue de Rivoli"}`)},
			{Kind: models.ItemKindAttraction, Name: "Louvre", Price: 22, Payload: json.RawMessage(`{"xid":"N1"}`)},
		},
	}

	out := ICS(saved, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "SUMMARY:Trip to Paris 2")
	assert.Contains(t, out, "SUMMARY:Flight: AF JFK → CDG")
	assert.Contains(t, out, "SUMMARY:Stay: Hotel A")
	assert.Contains(t, out, "UID:itinerary-12-stay")
	assert.Contains(t, out, "UID:itinerary-12-flight-0")
	assert.Contains(t, out, "UID:itinerary-12-hotel-0")
	// the undated return flight has no event
	assert.NotContains(t, out, "UID:itinerary-12-flight-1")
	assert.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))
}

func TestICS_NoDates(t *testing.T) {
	out := ICS(models.SavedItinerary{ItineraryID: 3}, time.Now())
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestParseMoment(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		clock string
		ok    bool
	}{
		{name: "date and clock", date: "2025-06-01", clock: "18:30", ok: true},
		{name: "iso datetime in date", date: "2025-06-01T18:30:00", ok: true},
		{name: "iso datetime in clock", date: "2025-06-01", clock: "2025-06-01T18:30:00", ok: true},
		{name: "rfc3339", date: "2025-06-01T18:30:00Z", ok: true},
		{name: "date only", date: "2025-06-01", ok: false},
		{name: "empty", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseMoment(tt.date, tt.clock)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
