package models

// Flight represents a flight offer returned by the flight search provider
type Flight struct {
	Card
	FlightID        string `json:"flight_id,omitempty"`
	Airline         string `json:"airline,omitempty"`
	AirlineCode     string `json:"airline_code,omitempty"`
	Origin          string `json:"origin,omitempty"`
	Destination     string `json:"destination,omitempty"`
	DepartureDate   string `json:"departure_date,omitempty"`
	DepartureTime   string `json:"departure_time,omitempty"`
	ArrivalDate     string `json:"arrival_date,omitempty"`
	ArrivalTime     string `json:"arrival_time,omitempty"`
	ReturnDate      string `json:"return_date,omitempty"`
	ReturnDeparture string `json:"return_departure,omitempty"`
	ReturnArrival   string `json:"return_arrival,omitempty"`
	Duration        string `json:"duration,omitempty"`
	Stops           int    `json:"stops"`
	Direct          bool   `json:"direct"`
	CabinClass      string `json:"cabin_class,omitempty"`
	Price           Money  `json:"price,omitempty"`
	Currency        string `json:"currency,omitempty"`
}

// Normalize fills the canonical card fields. Flights rarely carry a name, so the
// airline and route are used when the provider sent neither name nor title.
func (f *Flight) Normalize() {
	f.Card.normalize()
	if f.Name == "" {
		switch {
		case f.Airline != "" && f.Origin != "" && f.Destination != "":
			f.Name = f.Airline + " " + f.Origin + " → " + f.Destination
		case f.Airline != "":
			f.Name = f.Airline
		}
	}
}

// Hotel represents an accommodation returned by the hotel search provider
type Hotel struct {
	Card
	HotelID       string   `json:"hotel_id,omitempty"`
	Location      string   `json:"location,omitempty"`
	Address       string   `json:"address,omitempty"`
	Description   string   `json:"description,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	PricePerNight Money    `json:"price_per_night,omitempty"`
	Price         Money    `json:"price,omitempty"`
	TotalPrice    Money    `json:"total_price,omitempty"`
	Amenities     []string `json:"amenities,omitempty"`
	CheckIn       string   `json:"check_in,omitempty"`
	CheckOut      string   `json:"check_out,omitempty"`
	Latitude      float64  `json:"latitude,omitempty"`
	Longitude     float64  `json:"longitude,omitempty"`
}

// Normalize fills the canonical card fields.
func (h *Hotel) Normalize() {
	h.Card.normalize()
}

// NightlyRate returns the per-night price, falling back to a flat price field.
func (h *Hotel) NightlyRate() Money {
	if h.PricePerNight.Known() {
		return h.PricePerNight
	}
	return h.Price
}

// Attraction represents a point of interest
type Attraction struct {
	Card
	XID         string  `json:"xid,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
	Distance    float64 `json:"distance,omitempty"`
	Rate        float64 `json:"rate,omitempty"`
	Price       Money   `json:"price,omitempty"`
}

// Normalize fills the canonical card fields.
func (a *Attraction) Normalize() {
	a.Card.normalize()
	if a.Name == "" {
		a.Name = "Unknown"
	}
}

// Destination represents a geocoded city or location
type Destination struct {
	Card
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lon     float64 `json:"lon,omitempty"`
	Type    string  `json:"type,omitempty"`
}

// Normalize fills the canonical card fields.
func (d *Destination) Normalize() {
	d.Card.normalize()
}
