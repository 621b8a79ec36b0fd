// Package workflows holds the Temporal workflow that runs a checkout.
package workflows

import (
	"time"

	"github.com/cx-tal-miterani/trip-planner/internal/activities"
	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// CheckoutWorkflowName is the name the worker registers the workflow under
	CheckoutWorkflowName = "CheckoutWorkflow"
	// ActivityTimeout bounds each checkout step
	ActivityTimeout = 30 * time.Second
	// MaxAttempts is 1: a checkout is only ever retried by the user
	MaxAttempts = 1
)

// CheckoutWorkflow resolves the target itinerary, submits the pending items and
// finalizes the local state. Its progress is exposed through QueryGetCheckoutState.
func CheckoutWorkflow(ctx workflow.Context, input models.CheckoutWorkflowInput) (*models.CheckoutResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Checkout workflow started", "user", input.UserID)

	state := models.CheckoutWorkflowState{
		UserID:      input.UserID,
		ItineraryID: input.ItineraryID,
		Status:      models.CheckoutStatusResolving,
	}
	if err := workflow.SetQueryHandler(ctx, models.QueryGetCheckoutState, func() (models.CheckoutWorkflowState, error) {
		return state, nil
	}); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: ActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: MaxAttempts,
		},
	})

	fail := func(err error) (*models.CheckoutResult, error) {
		state.Status = models.CheckoutStatusFailed
		state.FailureReason = err.Error()
		logger.Warn("Checkout failed", "user", input.UserID, "error", err)
		return nil, err
	}

	var target models.ResolveItineraryResult
	if err := workflow.ExecuteActivity(ctx, activities.ResolveItineraryName, input).Get(ctx, &target); err != nil {
		return fail(err)
	}
	state.ItineraryID = target.ItineraryID
	state.Status = models.CheckoutStatusSubmitting

	var submitted models.SubmitItineraryResult
	if err := workflow.ExecuteActivity(ctx, activities.SubmitItineraryName, models.SubmitItineraryInput{
		UserID:      input.UserID,
		ItineraryID: target.ItineraryID,
	}).Get(ctx, &submitted); err != nil {
		return fail(err)
	}
	state.Status = models.CheckoutStatusFinalizing

	if err := workflow.ExecuteActivity(ctx, activities.FinalizeCheckoutName, models.FinalizeCheckoutInput{
		UserID:      input.UserID,
		ItineraryID: target.ItineraryID,
		RawSaved:    submitted.RawSaved,
		Submitted:   submitted.Submitted,
	}).Get(ctx, nil); err != nil {
		return fail(err)
	}
	state.Status = models.CheckoutStatusCompleted

	logger.Info("Checkout workflow completed", "user", input.UserID, "itineraryId", target.ItineraryID)
	return checkout.Result(&target, &submitted), nil
}
