// Package activities wraps the checkout steps as Temporal activities.
package activities

import (
	"context"
	"errors"

	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/session"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Application error types carried from activities to the workflow caller.
const (
	ErrTypeNoPendingItems = "NoPendingItems"
	ErrTypeUpstream       = "UpstreamError"
	ErrTypeSessionExpired = "SessionExpired"
)

// Activity names as registered on the worker.
const (
	ResolveItineraryName = "ResolveItinerary"
	SubmitItineraryName  = "SubmitItinerary"
	FinalizeCheckoutName = "FinalizeCheckout"
)

// Registry is implemented by worker.Worker and the Temporal test environment.
type Registry interface {
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Activities holds the dependencies of the checkout activities
type Activities struct {
	checkout *checkout.Checkout
	sessions *session.Store
}

// NewActivities creates the checkout activities.
func NewActivities(co *checkout.Checkout, sessions *session.Store) *Activities {
	return &Activities{checkout: co, sessions: sessions}
}

// Register registers every activity under its name.
func (a *Activities) Register(r Registry) {
	r.RegisterActivityWithOptions(a.ResolveItinerary, activity.RegisterOptions{Name: ResolveItineraryName})
	r.RegisterActivityWithOptions(a.SubmitItinerary, activity.RegisterOptions{Name: SubmitItineraryName})
	r.RegisterActivityWithOptions(a.FinalizeCheckout, activity.RegisterOptions{Name: FinalizeCheckoutName})
}

// ResolveItinerary picks or creates the itinerary to commit into.
func (a *Activities) ResolveItinerary(ctx context.Context, input models.CheckoutWorkflowInput) (*models.ResolveItineraryResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Resolving itinerary", "user", input.UserID, "itineraryId", input.ItineraryID)

	ctx, err := a.sessions.Authorize(ctx, input.UserID)
	if err != nil {
		return nil, classify(err)
	}
	res, err := a.checkout.Resolve(ctx, input.UserID, checkout.Request{ItineraryID: input.ItineraryID, Location: input.Location})
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// SubmitItinerary prices the pending items and saves them upstream.
func (a *Activities) SubmitItinerary(ctx context.Context, input models.SubmitItineraryInput) (*models.SubmitItineraryResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Submitting pending items", "user", input.UserID, "itineraryId", input.ItineraryID)

	ctx, err := a.sessions.Authorize(ctx, input.UserID)
	if err != nil {
		return nil, classify(err)
	}
	res, err := a.checkout.Submit(ctx, input.UserID, input.ItineraryID)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// FinalizeCheckout caches the save response and clears the local state.
func (a *Activities) FinalizeCheckout(ctx context.Context, input models.FinalizeCheckoutInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Finalizing checkout", "user", input.UserID, "itineraryId", input.ItineraryID)

	return a.checkout.Finalize(ctx, input.UserID, input.ItineraryID, input.RawSaved, input.Submitted)
}

// classify turns known failures into non-retryable application errors whose
// message is safe to show the user.
func classify(err error) error {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, checkout.ErrNoPendingItems):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeNoPendingItems, nil)
	case errors.Is(err, upstream.ErrSessionExpired):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSessionExpired, nil)
	case errors.As(err, &apiErr):
		return temporal.NewNonRetryableApplicationError(apiErr.Message, ErrTypeUpstream, nil, apiErr.Status)
	default:
		return err
	}
}
