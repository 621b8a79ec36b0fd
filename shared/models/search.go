package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Category selects the upstream search endpoint
type Category string

const (
	CategoryDestinations Category = "destinations"
	CategoryAttractions  Category = "attractions"
	CategoryHotels       Category = "hotels"
	CategoryFlights      Category = "flights"
)

// Categories lists every searchable category.
var Categories = []Category{CategoryDestinations, CategoryAttractions, CategoryHotels, CategoryFlights}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown search category %q", s)
}

// Card holds the display fields that providers send under several different names.
type Card struct {
	Name      string `json:"name,omitempty"`
	Title     string `json:"title,omitempty"`
	Image     string `json:"image,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Photo     string `json:"photo,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

func (c *Card) normalize() {
	if c.Name == "" {
		c.Name = c.Title
	}
	if c.Image == "" {
		for _, alt := range []string{c.Thumbnail, c.Photo, c.ImageURL} {
			if alt != "" {
				c.Image = alt
				break
			}
		}
	}
}

// Money is a price that providers send as a number, a numeric string or null.
// Zero means unknown; a free item and an unpriced one look the same upstream.
type Money float64

// Known reports whether the provider sent a usable price.
func (m Money) Known() bool { return m > 0 }

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else is unknown.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimPrefix(strings.TrimSpace(s), "$")
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*m = 0
			return nil
		}
		*m = Money(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*m = 0
		return nil
	}
	*m = Money(v)
	return nil
}

// SearchResult is one normalized search hit. Exactly one variant pointer is set,
// matching Kind. Raw keeps the provider record as received.
type SearchResult struct {
	Kind        Category        `json:"kind"`
	Flight      *Flight         `json:"flight,omitempty"`
	Hotel       *Hotel          `json:"hotel,omitempty"`
	Attraction  *Attraction     `json:"attraction,omitempty"`
	Destination *Destination    `json:"destination,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// DecodeResult decodes a raw provider record into the variant for kind and normalizes it.
func DecodeResult(kind Category, raw json.RawMessage) (SearchResult, error) {
	r := SearchResult{Kind: kind, Raw: raw}
	var err error
	switch kind {
	case CategoryFlights:
		r.Flight = &Flight{}
		if err = json.Unmarshal(raw, r.Flight); err == nil {
			r.Flight.Normalize()
		}
	case CategoryHotels:
		r.Hotel = &Hotel{}
		if err = json.Unmarshal(raw, r.Hotel); err == nil {
			r.Hotel.Normalize()
		}
	case CategoryAttractions:
		r.Attraction = &Attraction{}
		if err = json.Unmarshal(raw, r.Attraction); err == nil {
			r.Attraction.Normalize()
		}
	case CategoryDestinations:
		r.Destination = &Destination{}
		if err = json.Unmarshal(raw, r.Destination); err == nil {
			r.Destination.Normalize()
		}
	default:
		return r, fmt.Errorf("unknown search category %q", kind)
	}
	if err != nil {
		return r, fmt.Errorf("decode %s result: %w", kind, err)
	}
	return r, nil
}

// Name returns the canonical display name of the result.
func (r SearchResult) Name() string {
	if c := r.card(); c != nil {
		return c.Name
	}
	return ""
}

// Image returns the canonical image of the result.
func (r SearchResult) Image() string {
	if c := r.card(); c != nil {
		return c.Image
	}
	return ""
}

func (r SearchResult) card() *Card {
	switch {
	case r.Flight != nil:
		return &r.Flight.Card
	case r.Hotel != nil:
		return &r.Hotel.Card
	case r.Attraction != nil:
		return &r.Attraction.Card
	case r.Destination != nil:
		return &r.Destination.Card
	}
	return nil
}
