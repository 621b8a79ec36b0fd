package models

import (
	"encoding/json"
	"time"
)

// ItemKind identifies what a pending item holds
type ItemKind string

const (
	ItemKindFlight     ItemKind = "flight"
	ItemKindHotel      ItemKind = "hotel"
	ItemKindAttraction ItemKind = "attraction"
)

// Valid reports whether k is a known item kind.
func (k ItemKind) Valid() bool {
	switch k {
	case ItemKindFlight, ItemKindHotel, ItemKindAttraction:
		return true
	}
	return false
}

// PendingItem is a search result the user added but has not committed yet
type PendingItem struct {
	ID      string          `json:"id,omitempty"`
	Kind    ItemKind        `json:"kind"`
	Payload json.RawMessage `json:"payload"`
	AddedAt time.Time       `json:"addedAt"`
}

// Ref identifies the item within its queue. Items stored before ids were
// assigned fall back to their stamp, kind and payload.
func (p PendingItem) Ref() string {
	if p.ID != "" {
		return p.ID
	}
	return p.AddedAt.UTC().Format(time.RFC3339Nano) + "|" + string(p.Kind) + "|" + string(p.Payload)
}

// CurrentItinerary mirrors the server itinerary currently being built
type CurrentItinerary struct {
	ItineraryID   int64  `json:"itinerary_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination,omitempty"`
	DepartureDate string `json:"departure_date,omitempty"`
	ReturnDate    string `json:"return_date,omitempty"`
}

// HasFlightDates reports whether both trip dates are known.
func (c *CurrentItinerary) HasFlightDates() bool {
	return c != nil && c.DepartureDate != "" && c.ReturnDate != ""
}

// Itinerary is the server-owned trip plan
type Itinerary struct {
	ItineraryID       int64    `json:"itinerary_id"`
	UserID            int64    `json:"user_id,omitempty"`
	Title             string   `json:"title,omitempty"`
	Destination       string   `json:"destination,omitempty"`
	DepartureDate     string   `json:"departure_date,omitempty"`
	ReturnDate        string   `json:"return_date,omitempty"`
	ActivityStartTime *string  `json:"activity_start_time,omitempty"`
	TotalCost         *float64 `json:"total_cost,omitempty"`
}

// ItineraryItem is a committed entry of a server itinerary
type ItineraryItem struct {
	ItemID          int64           `json:"item_id,omitempty"`
	ItineraryID     int64           `json:"itinerary_id,omitempty"`
	ItemType        ItemKind        `json:"item_type"`
	ExternalID      string          `json:"external_id,omitempty"`
	ItemName        string          `json:"item_name"`
	EstimatedCost   float64         `json:"estimated_cost"`
	DayNumber       int             `json:"day_number,omitempty"`
	Time            string          `json:"time,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	ItemOrder       int             `json:"item_order,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

// CreateItineraryRequest creates a bare itinerary
type CreateItineraryRequest struct {
	Title       string `json:"title,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// CreateFromFlightsRequest creates an itinerary spanning the flight dates
type CreateFromFlightsRequest struct {
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	Title         string `json:"title,omitempty"`
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination,omitempty"`
}

// SaveItem is a priced non-flight entry submitted at checkout
type SaveItem struct {
	Kind    ItemKind        `json:"type"`
	Name    string          `json:"name,omitempty"`
	Price   float64         `json:"price"`
	Nights  int             `json:"nights,omitempty"`
	Payload json.RawMessage `json:"data"`
}

// SaveRequest is the partitioned checkout payload
type SaveRequest struct {
	Flights []json.RawMessage `json:"flights"`
	Items   []SaveItem        `json:"items"`
}

// BreakdownLine is one line of the server's cost breakdown
type BreakdownLine struct {
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Cost  float64 `json:"cost"`
	Count int     `json:"count,omitempty"`
}

// SavedItinerary is the server's response to a save, cached for display
type SavedItinerary struct {
	ItineraryID  int64           `json:"itinerary_id"`
	Title        string          `json:"title,omitempty"`
	TotalCost    float64         `json:"total_cost"`
	FlightsTotal float64         `json:"flights_total,omitempty"`
	ItemsTotal   float64         `json:"items_total,omitempty"`
	Breakdown    []BreakdownLine `json:"breakdown,omitempty"`
	Flights      []Flight        `json:"flights,omitempty"`
	Items        []SaveItem      `json:"items,omitempty"`
	StartDate    string          `json:"start_date,omitempty"`
	EndDate      string          `json:"end_date,omitempty"`
}

// Budget is the server's estimate for an itinerary
type Budget struct {
	ItineraryID     int64   `json:"itinerary_id"`
	EstimatedBudget float64 `json:"estimated_budget"`
	ItemCount       int     `json:"item_count"`
}
