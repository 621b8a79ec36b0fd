package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	var out models.Session
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/login",
		body:     map[string]string{"email": email, "password": password},
		fallback: "Login failed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.Session, error) {
	var out models.Session
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/auth/register",
		body:     req,
		fallback: "Registration failed",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile behind the context's token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/auth/me",
		fallback: "Failed to load profile",
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// GenerateItinerary asks the AI service for a day-by-day plan. The plan is returned
// as received; its shape belongs to the AI service.
func (c *Client) GenerateItinerary(ctx context.Context, req models.GenerateItineraryRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/ai/generate-itinerary",
		body:     req,
		fallback: "Failed to generate itinerary",
	}, &out)
	return out, err
}

// RecommendAttractions asks the AI service for attractions at destination that
// complement the names already in the itinerary.
func (c *Client) RecommendAttractions(ctx context.Context, destination string, current []string) ([]models.Recommendation, error) {
	if current == nil {
		current = []string{}
	}
	body := map[string]any{"destination": destination, "current_itinerary": current}
	var out struct {
		Recommendations []models.Recommendation `json:"recommendations"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/ai/recommend-attractions",
		body:     body,
		fallback: "Failed to get recommendations",
	}, &out)
	return out.Recommendations, err
}
