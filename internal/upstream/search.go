package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

// Search calls the search endpoint for category and returns the top-level fields
// of the response. Callers check for the category's array field themselves so a
// missing field can be told apart from an empty result.
func (c *Client) Search(ctx context.Context, category models.Category, params url.Values) (map[string]json.RawMessage, error) {
	var body map[string]json.RawMessage
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/search/" + string(category),
		query:    params,
		fallback: "Failed to search " + string(category),
	}, &body)
	if err != nil {
		return nil, err
	}
	return body, nil
}
