package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// AddItemRequest adds a single item to a server itinerary
type AddItemRequest struct {
	ItemType        models.ItemKind `json:"item_type"`
	ExternalID      string          `json:"item_id,omitempty"`
	ItemName        string          `json:"item_name"`
	EstimatedCost   float64         `json:"estimated_cost"`
	DayNumber       int             `json:"day_number,omitempty"`
	Time            string          `json:"time,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	Metadata        any             `json:"metadata,omitempty"`
}

func itineraryPath(id int64, rest string) string {
	return "/api/itineraries/" + strconv.FormatInt(id, 10) + rest
}

// ListItineraries returns the user's itineraries.
func (c *Client) ListItineraries(ctx context.Context) ([]models.Itinerary, error) {
	var out []models.Itinerary
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/itineraries",
		fallback: "Failed to load itineraries",
	}, &out)
	return out, err
}

// GetItinerary returns one itinerary. A deleted or foreign itinerary is a 404 APIError.
func (c *Client) GetItinerary(ctx context.Context, id int64) (*models.Itinerary, error) {
	var out models.Itinerary
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     itineraryPath(id, ""),
		fallback: "Failed to load itinerary",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateItinerary creates a bare itinerary.
func (c *Client) CreateItinerary(ctx context.Context, req models.CreateItineraryRequest) (*models.Itinerary, error) {
	var out models.Itinerary
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/itineraries",
		body:     req,
		fallback: "Failed to create itinerary",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Title == "" {
		out.Title = req.Title
	}
	return &out, nil
}

// CreateFromFlights creates an itinerary spanning the flight dates.
func (c *Client) CreateFromFlights(ctx context.Context, req models.CreateFromFlightsRequest) (*models.Itinerary, error) {
	var out models.Itinerary
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/itineraries/from-flights",
		body:     req,
		fallback: "Failed to create itinerary from flights",
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Title == "" {
		out.Title = req.Title
	}
	return &out, nil
}

// DeleteItinerary deletes an itinerary.
func (c *Client) DeleteItinerary(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     itineraryPath(id, ""),
		fallback: "Failed to delete itinerary",
	}, nil)
}

// AddItem adds one item to an itinerary.
func (c *Client) AddItem(ctx context.Context, id int64, item AddItemRequest) (*models.ItineraryItem, error) {
	var out struct {
		Item models.ItineraryItem `json:"item"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     itineraryPath(id, "/items"),
		body:     item,
		fallback: "Failed to add item",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// ListItems returns the committed items of an itinerary in display order.
func (c *Client) ListItems(ctx context.Context, id int64) ([]models.ItineraryItem, error) {
	var out struct {
		Items []models.ItineraryItem `json:"items"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     itineraryPath(id, "/items"),
		fallback: "Failed to load itinerary items",
	}, &out)
	return out.Items, err
}

// Save submits the partitioned checkout payload. The raw response is returned
// alongside the decoded one so it can be cached verbatim.
func (c *Client) Save(ctx context.Context, id int64, req models.SaveRequest) (*models.SavedItinerary, []byte, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     itineraryPath(id, "/save"),
		body:     req,
		fallback: "Failed to save itinerary",
	}, &raw)
	if err != nil {
		return nil, nil, err
	}
	var saved models.SavedItinerary
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnexpectedBody, err)
	}
	if saved.ItineraryID == 0 {
		saved.ItineraryID = id
	}
	return &saved, raw, nil
}

// Budget asks the server to total an itinerary's items.
func (c *Client) Budget(ctx context.Context, id int64) (*models.Budget, error) {
	var out models.Budget
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     itineraryPath(id, "/budget"),
		fallback: "Failed to calculate budget",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
