package upstream

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// FindCompanions asks the matching service for companions travelling to the same place.
func (c *Client) FindCompanions(ctx context.Context, q models.CompanionQuery) ([]models.CompanionMatch, error) {
	var out struct {
		Matches []models.CompanionMatch `json:"matches"`
	}
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/api/matching/find-companions",
		body:     q,
		fallback: "Failed to find companions",
	}, &out)
	return out.Matches, err
}

// Matches returns the user's stored matches.
func (c *Client) Matches(ctx context.Context) ([]models.CompanionMatch, error) {
	var out struct {
		Matches []models.CompanionMatch `json:"matches"`
	}
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/matching/matches",
		fallback: "Failed to load matches",
	}, &out)
	return out.Matches, err
}

// Connect records a match with another user and returns the match id.
func (c *Client) Connect(ctx context.Context, userID int64, score float64) (int64, error) {
	var out struct {
		MatchID int64 `json:"match_id"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		// the path id is ignored by the server; matches are keyed by the user pair
		path: "/api/matching/" + strconv.FormatInt(userID, 10) + "/connect",
		body: map[string]any{
			"user_id":             userID,
			"compatibility_score": score,
		},
		fallback: "Failed to connect",
	}, &out)
	return out.MatchID, err
}
