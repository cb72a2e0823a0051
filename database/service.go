package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"report-workflow-service/models"
)

// ErrReportNotFound is returned when a report id matches no row.
var ErrReportNotFound = errors.New("report not found")

// ErrStatusConflict is returned when a status update finds the report no
// longer in the status the caller validated against.
var ErrStatusConflict = errors.New("report status changed concurrently")

// WorkflowService handles all report workflow database operations.
type WorkflowService struct {
	db *sql.DB
}

// NewWorkflowService creates a new workflow service instance.
func NewWorkflowService(db *sql.DB) *WorkflowService {
	return &WorkflowService{db: db}
}

// CreateReport inserts a new report in pending status together with its
// creation history entry. The creation entry is the only history row with a
// NULL old_status.
func (s *WorkflowService) CreateReport(ctx context.Context, req models.CreateReportRequest, submittedBy string) (*models.Report, error) {
	report := &models.Report{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.StatusPending,
		Priority:     models.PriorityMedium,
		SubmittedBy:  submittedBy,
		ContactEmail: req.ContactEmail,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, title, description, status, priority, submitted_by, contact_email)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Title, report.Description, report.Status, report.Priority,
		report.SubmittedBy, report.ContactEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO report_status_history (report_id, old_status, new_status, changed_by, notes)
		 VALUES (?, NULL, ?, ?, NULL)`,
		report.ID, report.Status, submittedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to insert creation history entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return report, nil
}

// GetReport returns the report with the given id, or ErrReportNotFound.
func (s *WorkflowService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var (
		report       models.Report
		contactEmail sql.NullString
		assignedTo   sql.NullString
		resolvedAt   sql.NullTime
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, status, priority, submitted_by, contact_email,
		        assigned_to, resolved_at, created_at, updated_at
		 FROM reports WHERE id = ?`, id).
		Scan(&report.ID, &report.Title, &report.Description, &report.Status, &report.Priority,
			&report.SubmittedBy, &contactEmail, &assignedTo, &resolvedAt,
			&report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report %s: %w", id, err)
	}

	report.ContactEmail = contactEmail.String
	if assignedTo.Valid {
		report.AssignedTo = &assignedTo.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		report.ResolvedAt = &t
	}

	return &report, nil
}

// UpdateStatus moves a report from oldStatus to newStatus and appends the
// matching history entry in the same transaction, so the current-status
// column and the audit trail can never disagree. The update is guarded on
// oldStatus; a concurrent change surfaces as ErrStatusConflict.
func (s *WorkflowService) UpdateStatus(ctx context.Context, id string, oldStatus, newStatus models.ReportStatus, changedBy string, notes *string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE reports SET status = ? WHERE id = ? AND status = ?`
	switch {
	case newStatus == models.StatusResolved:
		query = `UPDATE reports SET status = ?, resolved_at = NOW() WHERE id = ? AND status = ?`
	case oldStatus == models.StatusResolved && newStatus != models.StatusClosed:
		// Reopening clears the resolution stamp; resolved -> closed keeps it.
		query = `UPDATE reports SET status = ?, resolved_at = NULL WHERE id = ? AND status = ?`
	}

	result, err := tx.ExecContext(ctx, query, newStatus, id, oldStatus)
	if err != nil {
		return fmt.Errorf("failed to update report %s status: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for report %s: %w", id, err)
	}
	if rows == 0 {
		if _, getErr := s.GetReport(ctx, id); errors.Is(getErr, ErrReportNotFound) {
			return ErrReportNotFound
		}
		return ErrStatusConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO report_status_history (report_id, old_status, new_status, changed_by, notes)
		 VALUES (?, ?, ?, ?, ?)`,
		id, oldStatus, newStatus, changedBy, nullableString(notes))
	if err != nil {
		return fmt.Errorf("failed to append status history for report %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdatePriority changes a report's triage priority. Setting the priority a
// report already has is a valid no-op, not an error.
func (s *WorkflowService) UpdatePriority(ctx context.Context, id string, priority models.ReportPriority) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reports SET priority = ? WHERE id = ?`, priority, id)
	if err != nil {
		return fmt.Errorf("failed to update report %s priority: %w", id, err)
	}
	return s.requireReportMatched(ctx, result, id)
}

// AssignWorker sets or clears the worker assigned to a report. A nil
// workerID clears the assignment; re-assigning the current worker is a
// valid no-op.
func (s *WorkflowService) AssignWorker(ctx context.Context, id string, workerID *string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE reports SET assigned_to = ? WHERE id = ?`, nullableString(workerID), id)
	if err != nil {
		return fmt.Errorf("failed to assign report %s: %w", id, err)
	}
	return s.requireReportMatched(ctx, result, id)
}

// DeleteReport removes a report; its history rows cascade.
func (s *WorkflowService) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	return requireRowAffected(result, id)
}

// GetStatusHistory returns a report's audit trail, oldest entry first.
func (s *WorkflowService) GetStatusHistory(ctx context.Context, reportID string) ([]models.StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, old_status, new_status, changed_by, notes, created_at
		 FROM report_status_history WHERE report_id = ? ORDER BY id ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history for report %s: %w", reportID, err)
	}
	defer rows.Close()

	var entries []models.StatusHistoryEntry
	for rows.Next() {
		var (
			entry     models.StatusHistoryEntry
			oldStatus sql.NullString
			notes     sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ReportID, &oldStatus, &entry.NewStatus,
			&entry.ChangedBy, &notes, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if oldStatus.Valid {
			st := models.ReportStatus(oldStatus.String)
			entry.OldStatus = &st
		}
		if notes.Valid {
			entry.Notes = &notes.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over history rows: %w", err)
	}

	return entries, nil
}

func requireRowAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for report %s: %w", id, err)
	}
	if rows == 0 {
		return ErrReportNotFound
	}
	return nil
}

// requireReportMatched distinguishes an idempotent no-op update from a
// missing report. The MySQL driver reports changed rows, not matched rows,
// so an UPDATE that sets a column to its current value affects zero rows
// even when the report exists.
func (s *WorkflowService) requireReportMatched(ctx context.Context, result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for report %s: %w", id, err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetReport(ctx, id); err != nil {
		return err
	}
	return nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
