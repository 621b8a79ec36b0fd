package models

// CheckoutWorkflowInput is the input for the checkout workflow
type CheckoutWorkflowInput struct {
	UserID      string `json:"userId"`
	ItineraryID int64  `json:"itineraryId,omitempty"`
	Location    string `json:"location,omitempty"`
}

// CheckoutStatus represents the progress of a checkout
type CheckoutStatus string

const (
	CheckoutStatusResolving  CheckoutStatus = "resolving"
	CheckoutStatusSubmitting CheckoutStatus = "submitting"
	CheckoutStatusFinalizing CheckoutStatus = "finalizing"
	CheckoutStatusCompleted  CheckoutStatus = "completed"
	CheckoutStatusFailed     CheckoutStatus = "failed"
)

// CheckoutWorkflowState represents the current state of the checkout workflow
type CheckoutWorkflowState struct {
	UserID        string         `json:"userId"`
	ItineraryID   int64          `json:"itineraryId,omitempty"`
	Status        CheckoutStatus `json:"status"`
	FailureReason string         `json:"failureReason,omitempty"`
}

// Queries for workflow state
const (
	QueryGetCheckoutState = "get_checkout_state"
)

// Activity inputs and results

type ResolveItineraryResult struct {
	ItineraryID int64  `json:"itineraryId"`
	Title       string `json:"title"`
	Created     bool   `json:"created"`
}

type SubmitItineraryInput struct {
	UserID      string `json:"userId"`
	ItineraryID int64  `json:"itineraryId"`
}

type SubmitItineraryResult struct {
	Saved      *SavedItinerary `json:"saved"`
	RawSaved   []byte          `json:"rawSaved"`
	ItemCount  int             `json:"itemCount"`
	FlightRows int             `json:"flightRows"`
	Submitted  []string        `json:"submitted"` // refs of the pending items that were saved
}

type FinalizeCheckoutInput struct {
	UserID      string   `json:"userId"`
	ItineraryID int64    `json:"itineraryId"`
	RawSaved    []byte   `json:"rawSaved"`
	Submitted   []string `json:"submitted"`
}

// CheckoutResult is what a successful checkout reports
type CheckoutResult struct {
	ItineraryID      int64           `json:"itinerary_id"`
	Title            string          `json:"title,omitempty"`
	CreatedItinerary bool            `json:"created_itinerary"`
	Saved            *SavedItinerary `json:"saved"`
	Message          string          `json:"message"`
}
