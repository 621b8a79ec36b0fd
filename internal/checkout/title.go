package checkout

import (
	"fmt"
	"strings"

	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// DefaultTitle names a new itinerary. A cached title wins. With a known location
// the title is "Trip to <location> <n>", n being one more than the number of
// existing itineraries already about that location; otherwise "Itinerary <n>".
func DefaultTitle(cached *models.CurrentItinerary, location string, existing []models.Itinerary) string {
	if cached != nil && strings.TrimSpace(cached.Title) != "" {
		return strings.TrimSpace(cached.Title)
	}

	location = strings.TrimSpace(location)
	if location == "" {
		return fmt.Sprintf("Itinerary %d", len(existing)+1)
	}

	fold := cases.Fold()
	want := fold.String(location)
	matches := lo.CountBy(existing, func(it models.Itinerary) bool {
		title := fold.String(it.Title)
		dest := fold.String(strings.TrimSpace(it.Destination))
		return strings.Contains(title, want) || dest == want || (dest != "" && strings.Contains(dest, want))
	})
	return fmt.Sprintf("Trip to %s %d", location, matches+1)
}
