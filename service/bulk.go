package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"

	"report-workflow-service/apperrors"
	"report-workflow-service/models"
)

// defaultBulkWidth bounds concurrent per-item mutations so a large batch
// cannot exhaust the store's connection pool.
const defaultBulkWidth = 8

// ExecuteBulk applies one mutation to every report id in the request.
// Items are processed concurrently and independently: one failure never
// aborts, skips or rolls back another item, and every input id yields
// exactly one outcome. The returned result is always well-formed, even when
// the batch cannot be set up at all.
func (s *Service) ExecuteBulk(ctx context.Context, req models.BulkRequest, actor models.Actor) *models.BulkOperationResult {
	result := &models.BulkOperationResult{}
	if len(req.ReportIDs) == 0 {
		result.Success = true
		return result
	}

	itemFn, err := s.bulkItemFunc(req, actor)
	if err != nil {
		// Batch-level setup failure: degrade to one identical failure per
		// item rather than surfacing a raw error.
		msg := bulkErrorMessage(err)
		for _, id := range req.ReportIDs {
			result.Errors = append(result.Errors, models.BulkItemError{ItemID: id, Error: msg})
		}
		result.FailedCount = len(req.ReportIDs)
		return result
	}

	// Every goroutine writes only its own outcome slot; the tally is folded
	// after Wait, so there is no shared mutable state during fan-out.
	outcomes := make([]error, len(req.ReportIDs))
	var g errgroup.Group
	g.SetLimit(s.bulkWidth)
	for i, id := range req.ReportIDs {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = runBulkItem(ctx, itemFn, id)
			return nil
		})
	}
	g.Wait()

	for i, itemErr := range outcomes {
		if itemErr == nil {
			result.ProcessedCount++
			continue
		}
		result.FailedCount++
		result.Errors = append(result.Errors, models.BulkItemError{
			ItemID: req.ReportIDs[i],
			Error:  bulkErrorMessage(itemErr),
		})
	}
	result.Success = result.FailedCount == 0

	if !result.Success {
		log.WithFields(log.Fields{
			"operation": string(req.Operation),
			"processed": result.ProcessedCount,
			"failed":    result.FailedCount,
		}).Warn("Bulk operation completed with failures")
	}

	return result
}

// runBulkItem isolates a single item's mutation, converting a panic into a
// per-item failure.
func runBulkItem(ctx context.Context, itemFn func(context.Context, string) error, id string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing item %s: %v", id, r)
		}
	}()
	return itemFn(ctx, id)
}

// bulkItemFunc resolves the per-item mutation for the request, performing
// the batch-level checks that do not depend on any individual report. Status
// updates carry no batch-level role check: whether a worker may act depends
// on each report's current status and is decided per item by the state
// machine.
func (s *Service) bulkItemFunc(req models.BulkRequest, actor models.Actor) (func(context.Context, string) error, error) {
	switch req.Operation {
	case models.BulkUpdateStatus:
		if !req.NewStatus.Valid() {
			return nil, fmt.Errorf("unknown status %q", req.NewStatus)
		}
		return func(ctx context.Context, id string) error {
			return s.UpdateReportStatus(ctx, id, req.NewStatus, actor, req.Notes)
		}, nil

	case models.BulkUpdatePriority:
		if actor.Role != models.RoleAdmin {
			return nil, ErrPermissionDenied
		}
		if !req.Priority.Valid() {
			return nil, fmt.Errorf("unknown priority %q", req.Priority)
		}
		return func(ctx context.Context, id string) error {
			return s.UpdateReportPriority(ctx, id, req.Priority, actor)
		}, nil

	case models.BulkAssignWorker:
		if actor.Role != models.RoleAdmin {
			return nil, ErrPermissionDenied
		}
		return func(ctx context.Context, id string) error {
			return s.AssignReport(ctx, id, req.WorkerID, actor)
		}, nil

	case models.BulkDelete:
		if actor.Role != models.RoleAdmin {
			return nil, ErrPermissionDenied
		}
		return func(ctx context.Context, id string) error {
			return s.DeleteReport(ctx, id, actor)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported bulk operation %q", req.Operation)
	}
}

// bulkErrorMessage picks the user-displayable message for a per-item or
// batch-level failure.
func bulkErrorMessage(err error) string {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Reason
	}
	if errors.Is(err, ErrPermissionDenied) {
		return "you do not have permission to perform this operation"
	}
	return apperrors.Classify(err).UserMessage
}
