package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cx-tal-miterani/trip-planner/internal/activities"
	"github.com/cx-tal-miterani/trip-planner/internal/checkout"
	"github.com/cx-tal-miterani/trip-planner/internal/upstream"
	"github.com/cx-tal-miterani/trip-planner/internal/workflows"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// Checkout commits the user's pending items. With a Temporal client the steps
// run as a workflow on the worker; otherwise they run in-process. Either way a
// failure leaves the pending items in place.
func (s *plannerServiceImpl) Checkout(ctx context.Context, user string, req checkout.Request) (*models.CheckoutResult, error) {
	// an empty queue is a no-op whatever the session state
	items, err := s.pending.List(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, checkout.ErrNoPendingItems
	}

	if s.temporal == nil {
		actx, err := s.authorized(ctx, user)
		if err != nil {
			return nil, err
		}
		return s.checkout.Commit(actx, user, req)
	}

	input := models.CheckoutWorkflowInput{
		UserID:      user,
		ItineraryID: req.ItineraryID,
		Location:    req.Location,
	}
	workflowOptions := client.StartWorkflowOptions{
		ID:        "checkout-" + user + "-" + uuid.New().String()[:8],
		TaskQueue: s.taskQueue,
	}

	run, err := s.temporal.ExecuteWorkflow(ctx, workflowOptions, workflows.CheckoutWorkflowName, input)
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}
	s.log.Info("checkout workflow started",
		zap.String("user", user),
		zap.String("workflow_id", run.GetID()),
		zap.String("run_id", run.GetRunID()))

	var result models.CheckoutResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &result, nil
}

// fromWorkflowError maps the application errors raised by the checkout
// activities back to the errors the in-process path returns.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	switch appErr.Type() {
	case activities.ErrTypeNoPendingItems:
		return checkout.ErrNoPendingItems
	case activities.ErrTypeSessionExpired:
		return upstream.ErrSessionExpired
	case activities.ErrTypeUpstream:
		status := http.StatusBadGateway
		if appErr.HasDetails() {
			_ = appErr.Details(&status)
		}
		return &upstream.APIError{Status: status, Message: appErr.Message()}
	default:
		return err
	}
}
