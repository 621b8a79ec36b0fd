package models

import "encoding/json"

// User is the profile returned by the auth endpoints
type User struct {
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

// Session is the cached login state of a user
type Session struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user,omitempty"`
}

// AuthResult is returned by login and register. SessionID is the opaque
// credential the caller presents on every later request.
type AuthResult struct {
	SessionID string `json:"session_id"`
	User      *User  `json:"user"`
}

// RegisterRequest creates an account
type RegisterRequest struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	Preferences json.RawMessage `json:"preferences,omitempty"`
}

// GenerateItineraryRequest asks the AI service for a day-by-day plan
type GenerateItineraryRequest struct {
	Destination string         `json:"destination"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Budget      *float64       `json:"budget,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Recommendation is one AI-suggested attraction. Staged recommendations are
// promoted into the pending store on demand.
type Recommendation struct {
	Name          string   `json:"name"`
	Category      string   `json:"category,omitempty"`
	Description   string   `json:"description,omitempty"`
	EstimatedCost Money    `json:"estimated_cost,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
}
