package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workflow-service/database"
	"report-workflow-service/models"
	"report-workflow-service/notify"
	"report-workflow-service/retry"
)

// historyRecord captures one UpdateStatus call for audit assertions.
type historyRecord struct {
	ReportID  string
	OldStatus models.ReportStatus
	NewStatus models.ReportStatus
	ChangedBy string
	Notes     *string
}

// fakeStore is an in-memory ReportStore with per-report failure injection.
type fakeStore struct {
	mu       sync.Mutex
	reports  map[string]*models.Report
	failWith map[string]error // report id -> injected store error
	history  []historyRecord
	getCalls int
}

func newFakeStore(reports ...*models.Report) *fakeStore {
	s := &fakeStore{
		reports:  make(map[string]*models.Report),
		failWith: make(map[string]error),
	}
	for _, r := range reports {
		s.reports[r.ID] = r
	}
	return s
}

func (s *fakeStore) GetReport(_ context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	r, ok := s.reports[id]
	if !ok {
		return nil, database.ErrReportNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) UpdateStatus(_ context.Context, id string, oldStatus, newStatus models.ReportStatus, changedBy string, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[id]; err != nil {
		return err
	}
	r, ok := s.reports[id]
	if !ok {
		return database.ErrReportNotFound
	}
	if r.Status != oldStatus {
		return database.ErrStatusConflict
	}
	r.Status = newStatus
	s.history = append(s.history, historyRecord{
		ReportID:  id,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: changedBy,
		Notes:     notes,
	})
	return nil
}

func (s *fakeStore) UpdatePriority(_ context.Context, id string, priority models.ReportPriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[id]; err != nil {
		return err
	}
	r, ok := s.reports[id]
	if !ok {
		return database.ErrReportNotFound
	}
	r.Priority = priority
	return nil
}

func (s *fakeStore) AssignWorker(_ context.Context, id string, workerID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[id]; err != nil {
		return err
	}
	r, ok := s.reports[id]
	if !ok {
		return database.ErrReportNotFound
	}
	r.AssignedTo = workerID
	return nil
}

func (s *fakeStore) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWith[id]; err != nil {
		return err
	}
	if _, ok := s.reports[id]; !ok {
		return database.ErrReportNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *fakeStore) statusOf(id string) models.ReportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[id]; ok {
		return r.Status
	}
	return ""
}

func report(id string, status models.ReportStatus) *models.Report {
	return &models.Report{
		ID:          id,
		Title:       "Pothole on Elm St",
		Description: "Deep pothole near the crosswalk",
		Status:      status,
		Priority:    models.PriorityMedium,
		SubmittedBy: "citizen-1",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

func newTestService(store ReportStore) *Service {
	policy := retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return New(store, notify.NewDispatcher(), policy, 4)
}

var (
	admin  = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	worker = models.Actor{ID: "worker-1", Role: models.RoleWorker}
	cit    = models.Actor{ID: "citizen-1", Role: models.RoleCitizen}
)

func TestUpdateReportStatusWorkerRejectedOnPending(t *testing.T) {
	store := newFakeStore(report("r1", models.StatusPending))
	svc := newTestService(store)

	err := svc.UpdateReportStatus(context.Background(), "r1", models.StatusInProgress, worker, nil)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Reason, "pending")
	assert.Equal(t, models.StatusPending, store.statusOf("r1"), "rejected transition must not mutate the store")
	assert.Empty(t, store.history)
}

func TestUpdateReportStatusAdminAccepted(t *testing.T) {
	store := newFakeStore(report("r1", models.StatusPending))
	svc := newTestService(store)

	err := svc.UpdateReportStatus(context.Background(), "r1", models.StatusAcknowledged, admin, nil)

	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, store.statusOf("r1"))
	require.Len(t, store.history, 1)
	assert.Equal(t, models.StatusPending, store.history[0].OldStatus, "audit entry must carry the true prior status")
	assert.Equal(t, models.StatusAcknowledged, store.history[0].NewStatus)
	assert.Equal(t, "admin-1", store.history[0].ChangedBy)
}

func TestUpdateReportStatusUnknownStatus(t *testing.T) {
	store := newFakeStore(report("r1", models.StatusPending))
	svc := newTestService(store)

	err := svc.UpdateReportStatus(context.Background(), "r1", models.ReportStatus("archived"), admin, nil)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, store.getCalls, "validation must short-circuit before any store access")
}

func TestUpdateReportStatusNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	err := svc.UpdateReportStatus(context.Background(), "missing", models.StatusAcknowledged, admin, nil)
	require.Error(t, err)
	assert.Equal(t, 1, store.getCalls, "not-found is not retryable")
}

func TestUpdateReportStatusRetriesTransientRead(t *testing.T) {
	store := newFakeStore(report("r1", models.StatusPending))
	flaky := &flakyGetStore{fakeStore: store, failures: 1}
	svc := newTestService(flaky)

	err := svc.UpdateReportStatus(context.Background(), "r1", models.StatusAcknowledged, admin, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcknowledged, store.statusOf("r1"))
}

// flakyGetStore fails the first N GetReport calls with a transient error.
type flakyGetStore struct {
	*fakeStore
	mu       sync.Mutex
	failures int
}

func (s *flakyGetStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, errors.New("driver: bad connection")
	}
	s.mu.Unlock()
	return s.fakeStore.GetReport(ctx, id)
}

func TestUpdateReportPriorityPermissions(t *testing.T) {
	store := newFakeStore(report("r1", models.StatusPending))
	svc := newTestService(store)

	require.NoError(t, svc.UpdateReportPriority(context.Background(), "r1", models.PriorityUrgent, admin))

	err := svc.UpdateReportPriority(context.Background(), "r1", models.PriorityLow, worker)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.UpdateReportPriority(context.Background(), "r1", models.PriorityLow, cit)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAssignReportClearsWithEmptyID(t *testing.T) {
	r := report("r1", models.StatusAcknowledged)
	workerID := "worker-9"
	r.AssignedTo = &workerID
	store := newFakeStore(r)
	svc := newTestService(store)

	require.NoError(t, svc.AssignReport(context.Background(), "r1", "", admin))
	assert.Nil(t, store.reports["r1"].AssignedTo)
}

func TestDeleteReportAdminOnly(t *testing.T) {
	store := newFakeStore(report("r1", models.StatusClosed))
	svc := newTestService(store)

	assert.ErrorIs(t, svc.DeleteReport(context.Background(), "r1", worker), ErrPermissionDenied)
	require.NoError(t, svc.DeleteReport(context.Background(), "r1", admin))
	assert.NotContains(t, store.reports, "r1")
}
