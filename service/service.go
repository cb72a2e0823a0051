// Package service orchestrates report mutations: transition validation,
// store writes with their audit entries, bounded retries on reads, and
// detached notifications. Bulk operations reuse the same per-item paths, so
// there is no way to change a status without passing the state machine.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"report-workflow-service/apperrors"
	"report-workflow-service/models"
	"report-workflow-service/notify"
	"report-workflow-service/retry"
	"report-workflow-service/workflow"
)

// ErrPermissionDenied is returned when the actor's role may not perform the
// requested operation at all, regardless of report state.
var ErrPermissionDenied = errors.New("permission denied")

// TransitionError is a business-rule rejection from the status state
// machine. It is an expected outcome, distinct from store failures.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string { return e.Reason }

// ReportStore is the persistence contract the service depends on.
type ReportStore interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id string, oldStatus, newStatus models.ReportStatus, changedBy string, notes *string) error
	UpdatePriority(ctx context.Context, id string, priority models.ReportPriority) error
	AssignWorker(ctx context.Context, id string, workerID *string) error
	DeleteReport(ctx context.Context, id string) error
}

// Service applies workflow mutations to reports.
type Service struct {
	store      ReportStore
	dispatcher *notify.Dispatcher
	retry      retry.Policy
	bulkWidth  int
}

// New creates a workflow service. bulkWidth bounds bulk fan-out; values
// below one fall back to the default.
func New(store ReportStore, dispatcher *notify.Dispatcher, policy retry.Policy, bulkWidth int) *Service {
	if bulkWidth < 1 {
		bulkWidth = defaultBulkWidth
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		retry:      policy,
		bulkWidth:  bulkWidth,
	}
}

// UpdateReportStatus moves one report to a new status. The sequence per
// report is fixed: validate, mutate store together with the history append,
// then notify on a detached path. The read is retried on transient failures;
// the mutation transaction is never retried, a lost commit acknowledgement
// must not produce duplicate history rows.
func (s *Service) UpdateReportStatus(ctx context.Context, reportID string, newStatus models.ReportStatus, actor models.Actor, notes *string) error {
	if !newStatus.Valid() {
		return &TransitionError{Reason: fmt.Sprintf("unknown status %q", newStatus)}
	}

	var report *models.Report
	err := s.retry.Do(ctx, func() error {
		r, err := s.store.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return apperrors.Classify(err)
	}

	result := workflow.ValidateTransition(report.Status, newStatus, actor.Role)
	if !result.Valid {
		return &TransitionError{Reason: result.Reason}
	}

	if err := s.store.UpdateStatus(ctx, reportID, report.Status, newStatus, actor.ID, notes); err != nil {
		return apperrors.Classify(err)
	}

	oldStatus := report.Status
	s.dispatcher.Dispatch(notify.StatusChangeEvent{
		EventID:      uuid.NewString(),
		ReportID:     reportID,
		OldStatus:    &oldStatus,
		NewStatus:    newStatus,
		ChangedBy:    actor.ID,
		Notes:        notes,
		OccurredAt:   time.Now().UTC(),
		ContactEmail: report.ContactEmail,
	})

	return nil
}

// UpdateReportPriority changes a report's priority. Staff only.
func (s *Service) UpdateReportPriority(ctx context.Context, reportID string, priority models.ReportPriority, actor models.Actor) error {
	if actor.Role != models.RoleAdmin {
		return ErrPermissionDenied
	}
	if !priority.Valid() {
		return &TransitionError{Reason: fmt.Sprintf("unknown priority %q", priority)}
	}
	if err := s.store.UpdatePriority(ctx, reportID, priority); err != nil {
		return apperrors.Classify(err)
	}
	return nil
}

// AssignReport assigns or unassigns a worker. Admin only; an empty workerID
// clears the assignment.
func (s *Service) AssignReport(ctx context.Context, reportID string, workerID string, actor models.Actor) error {
	if actor.Role != models.RoleAdmin {
		return ErrPermissionDenied
	}
	var assignee *string
	if workerID != "" {
		assignee = &workerID
	}
	if err := s.store.AssignWorker(ctx, reportID, assignee); err != nil {
		return apperrors.Classify(err)
	}
	return nil
}

// DeleteReport removes a report and its history. Admin only.
func (s *Service) DeleteReport(ctx context.Context, reportID string, actor models.Actor) error {
	if actor.Role != models.RoleAdmin {
		return ErrPermissionDenied
	}
	if err := s.store.DeleteReport(ctx, reportID); err != nil {
		return apperrors.Classify(err)
	}
	return nil
}
