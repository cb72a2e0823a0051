// Package notify delivers best-effort notifications about committed status
// changes. Delivery runs detached from the mutation path: a sink failure is
// logged and dropped, never surfaced to the caller whose mutation already
// committed.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"

	"report-workflow-service/apperrors"
	"report-workflow-service/models"
)

// StatusChangeEvent describes one committed status transition.
type StatusChangeEvent struct {
	EventID      string               `json:"event_id"`
	ReportID     string               `json:"report_id"`
	OldStatus    *models.ReportStatus `json:"old_status"`
	NewStatus    models.ReportStatus  `json:"new_status"`
	ChangedBy    string               `json:"changed_by"`
	Notes        *string              `json:"notes,omitempty"`
	OccurredAt   time.Time            `json:"occurred_at"`
	ContactEmail string               `json:"-"`
}

// Notifier is a single delivery channel for status change events.
type Notifier interface {
	Name() string
	NotifyStatusChange(ctx context.Context, event StatusChangeEvent) error
}

// Dispatcher fans one event out to every configured sink in the background.
type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given sinks. A dispatcher with
// no sinks is valid and dispatches to nobody.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   30 * time.Second,
	}
}

// Dispatch delivers the event to all sinks without blocking the caller.
// Failures are logged with their classified kind and otherwise dropped.
func (d *Dispatcher) Dispatch(event StatusChangeEvent) {
	if d == nil || len(d.notifiers) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("Notification dispatch panicked for event %s: %v", event.EventID, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		for _, n := range d.notifiers {
			if err := n.NotifyStatusChange(ctx, event); err != nil {
				ce := apperrors.Classify(err)
				log.WithFields(log.Fields{
					"notifier": n.Name(),
					"event_id": event.EventID,
					"report":   event.ReportID,
					"code":     string(ce.Code),
				}).Errorf("Failed to deliver status change notification: %v", err)
			}
		}
	}()
}

// Close waits for all in-flight notifications to settle. Used on shutdown
// and in tests; new Dispatch calls after Close are not prevented.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
