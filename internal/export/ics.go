// Package export renders committed itineraries for calendar apps.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
)

const productID = "-//trip-planner//itinerary export//EN"

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ICS renders saved as an iCalendar document: the stay as an all-day event, one
// timed event per flight and an all-day event per hotel with check-in dates.
// Items without dates are listed in the stay's description.
func ICS(saved models.SavedItinerary, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	uidBase := "itinerary-" + strconv.FormatInt(saved.ItineraryID, 10)
	title := saved.Title
	if title == "" {
		title = "Itinerary " + strconv.FormatInt(saved.ItineraryID, 10)
	}

	if start, ok := parseDay(saved.StartDate); ok {
		end, ok := parseDay(saved.EndDate)
		if !ok || end.Before(start) {
			end = start
		}
		ev := cal.AddEvent(uidBase + "-stay")
		ev.SetDtStampTime(now)
		ev.SetSummary(title)
		ev.SetAllDayStartAt(start)
		// DTEND of an all-day event is exclusive
		ev.SetAllDayEndAt(end.AddDate(0, 0, 1))
		ev.SetDescription(describe(saved))
	}

	for i, f := range saved.Flights {
		dep, ok := parseMoment(f.DepartureDate, f.DepartureTime)
		if !ok {
			continue
		}
		arr, ok := parseMoment(f.ArrivalDate, f.ArrivalTime)
		if !ok || arr.Before(dep) {
			arr = dep
		}
		f.Normalize()
		ev := cal.AddEvent(fmt.Sprintf("%s-flight-%d", uidBase, i))
		ev.SetDtStampTime(now)
		ev.SetSummary("Flight: " + f.Name)
		ev.SetStartAt(dep)
		ev.SetEndAt(arr)
		ev.SetLocation(f.Origin)
	}

	for i, it := range saved.Items {
		if it.Kind != models.ItemKindHotel {
			continue
		}
		var h models.Hotel
		if json.Unmarshal(it.Payload, &h) != nil {
			continue
		}
		in, ok1 := parseDay(h.CheckIn)
		out, ok2 := parseDay(h.CheckOut)
		if !ok1 || !ok2 {
			continue
		}
		name := it.Name
		if name == "" {
			h.Normalize()
			name = h.Name
		}
		ev := cal.AddEvent(fmt.Sprintf("%s-hotel-%d", uidBase, i))
		ev.SetDtStampTime(now)
		ev.SetSummary("Stay: " + name)
		ev.SetAllDayStartAt(in)
		ev.SetAllDayEndAt(out)
		if h.Address != "" {
			ev.SetLocation(h.Address)
		}
	}

	return cal.Serialize()
}

func describe(saved models.SavedItinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total: %.2f", saved.TotalCost)
	for _, it := range saved.Items {
		fmt.Fprintf(&b, "\n%s: %s (%.2f)", it.Kind, it.Name, it.Price)
	}
	return b.String()
}

func parseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}

// parseMoment accepts a full timestamp in date, or a date plus a separate time.
func parseMoment(date, clock string) (time.Time, bool) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	candidates := []string{date}
	if clock != "" {
		candidates = append([]string{clock}, date+"T"+clock, date+" "+clock)
	}
	for _, c := range candidates {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
