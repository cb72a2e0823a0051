package models

import "time"

// ReportStatus represents the lifecycle state of a report.
type ReportStatus string

const (
	StatusPending      ReportStatus = "pending"
	StatusAcknowledged ReportStatus = "acknowledged"
	StatusInProgress   ReportStatus = "in_progress"
	StatusResolved     ReportStatus = "resolved"
	StatusClosed       ReportStatus = "closed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAcknowledged, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ActorRole determines which operations an authenticated actor may perform.
type ActorRole string

const (
	RoleAdmin   ActorRole = "admin"
	RoleWorker  ActorRole = "worker"
	RoleCitizen ActorRole = "citizen"
)

// Valid reports whether r is a known role.
func (r ActorRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleWorker, RoleCitizen:
		return true
	}
	return false
}

// Actor is the authenticated entity performing an operation.
type Actor struct {
	ID   string    `json:"id"`
	Role ActorRole `json:"role"`
}

// ReportPriority represents the triage priority of a report.
type ReportPriority string

const (
	PriorityLow    ReportPriority = "low"
	PriorityMedium ReportPriority = "medium"
	PriorityHigh   ReportPriority = "high"
	PriorityUrgent ReportPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p ReportPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Report represents a citizen-submitted issue report.
type Report struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Status       ReportStatus   `json:"status"`
	Priority     ReportPriority `json:"priority"`
	SubmittedBy  string         `json:"submitted_by"`
	ContactEmail string         `json:"contact_email,omitempty"`
	AssignedTo   *string        `json:"assigned_to,omitempty"`
	ResolvedAt   *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// StatusHistoryEntry is an immutable audit record of one committed status
// transition. OldStatus is nil only for the entry written at report creation.
type StatusHistoryEntry struct {
	ID        int64         `json:"id"`
	ReportID  string        `json:"report_id"`
	OldStatus *ReportStatus `json:"old_status"`
	NewStatus ReportStatus  `json:"new_status"`
	ChangedBy string        `json:"changed_by"`
	Notes     *string       `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreateReportRequest is the request to submit a new report.
type CreateReportRequest struct {
	Title        string `json:"title" binding:"required,max=256"`
	Description  string `json:"description" binding:"required"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// UpdateStatusRequest is the request to move a report to a new status.
type UpdateStatusRequest struct {
	NewStatus ReportStatus `json:"new_status" binding:"required"`
	Notes     *string      `json:"notes,omitempty"`
}

// UpdatePriorityRequest is the request to change a report's priority.
type UpdatePriorityRequest struct {
	Priority ReportPriority `json:"priority" binding:"required"`
}

// AssignRequest is the request to assign a report to a worker.
// An empty worker_id clears the current assignment.
type AssignRequest struct {
	WorkerID string `json:"worker_id"`
}

// BulkOperation identifies the mutation a bulk request applies to each item.
type BulkOperation string

const (
	BulkUpdateStatus   BulkOperation = "update_status"
	BulkUpdatePriority BulkOperation = "update_priority"
	BulkAssignWorker   BulkOperation = "assign_worker"
	BulkDelete         BulkOperation = "delete"
)

// BulkRequest applies one mutation to many reports.
type BulkRequest struct {
	ReportIDs []string       `json:"report_ids" binding:"required"`
	Operation BulkOperation  `json:"operation" binding:"required"`
	NewStatus ReportStatus   `json:"new_status,omitempty"`
	Priority  ReportPriority `json:"priority,omitempty"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Notes     *string        `json:"notes,omitempty"`
}

// BulkItemError associates one failed item with its user-facing message.
type BulkItemError struct {
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

// BulkOperationResult is the aggregate outcome of a bulk request. Every input
// item yields exactly one outcome: ProcessedCount + FailedCount always equals
// the number of submitted ids.
type BulkOperationResult struct {
	Success        bool            `json:"success"`
	ProcessedCount int             `json:"processed_count"`
	FailedCount    int             `json:"failed_count"`
	Errors         []BulkItemError `json:"errors,omitempty"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Action    string `json:"action,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}
