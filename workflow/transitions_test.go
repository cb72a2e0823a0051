package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"report-workflow-service/models"
)

var allStatuses = []models.ReportStatus{
	models.StatusPending,
	models.StatusAcknowledged,
	models.StatusInProgress,
	models.StatusResolved,
	models.StatusClosed,
}

// expectedEdges re-states the permission matrix independently of the
// implementation tables so a table typo shows up as a test failure.
var expectedEdges = map[models.ActorRole]map[models.ReportStatus][]models.ReportStatus{
	models.RoleCitizen: {},
	models.RoleWorker: {
		models.StatusAcknowledged: {models.StatusInProgress},
		models.StatusInProgress:   {models.StatusResolved, models.StatusAcknowledged},
	},
	models.RoleAdmin: {
		models.StatusPending:      {models.StatusAcknowledged, models.StatusClosed},
		models.StatusAcknowledged: {models.StatusInProgress, models.StatusResolved, models.StatusPending},
		models.StatusInProgress:   {models.StatusResolved, models.StatusAcknowledged},
		models.StatusResolved:     {models.StatusClosed, models.StatusInProgress},
		models.StatusClosed:       {models.StatusResolved},
	},
}

func isExpected(role models.ActorRole, current, requested models.ReportStatus) bool {
	for _, target := range expectedEdges[role][current] {
		if target == requested {
			return true
		}
	}
	return false
}

func TestValidateTransitionExhaustive(t *testing.T) {
	for role := range expectedEdges {
		for _, current := range allStatuses {
			for _, requested := range allStatuses {
				name := fmt.Sprintf("%s_%s_to_%s", role, current, requested)
				t.Run(name, func(t *testing.T) {
					result := ValidateTransition(current, requested, role)
					if isExpected(role, current, requested) {
						assert.True(t, result.Valid, "expected transition to be allowed")
						assert.Empty(t, result.Reason)
					} else {
						assert.False(t, result.Valid, "expected transition to be rejected")
						assert.NotEmpty(t, result.Reason)
					}
				})
			}
		}
	}
}

func TestCitizenNeverTransitions(t *testing.T) {
	for _, current := range allStatuses {
		for _, requested := range allStatuses {
			result := ValidateTransition(current, requested, models.RoleCitizen)
			require.False(t, result.Valid, "citizen must never transition %s -> %s", current, requested)
		}
	}
}

func TestOnlyAdminLeavesClosed(t *testing.T) {
	for _, role := range []models.ActorRole{models.RoleAdmin, models.RoleWorker, models.RoleCitizen} {
		for _, requested := range allStatuses {
			result := ValidateTransition(models.StatusClosed, requested, role)
			if role == models.RoleAdmin && requested == models.StatusResolved {
				assert.True(t, result.Valid, "admin reopen closed -> resolved must be allowed")
			} else {
				assert.False(t, result.Valid, "%s must not move closed -> %s", role, requested)
			}
		}
	}
}

func TestValidateTransitionUnknownRole(t *testing.T) {
	result := ValidateTransition(models.StatusPending, models.StatusAcknowledged, models.ActorRole("manager"))
	assert.False(t, result.Valid)
	assert.Equal(t, "invalid role", result.Reason)
}

func TestValidateTransitionUnknownStatuses(t *testing.T) {
	result := ValidateTransition(models.ReportStatus("archived"), models.StatusClosed, models.RoleAdmin)
	assert.False(t, result.Valid)

	result = ValidateTransition(models.StatusPending, models.ReportStatus("archived"), models.RoleAdmin)
	assert.False(t, result.Valid)
}

func TestWorkerCannotActOnPending(t *testing.T) {
	result := ValidateTransition(models.StatusPending, models.StatusInProgress, models.RoleWorker)
	require.False(t, result.Valid)
	assert.Contains(t, result.Reason, "worker")
	assert.Contains(t, result.Reason, "pending")

	result = ValidateTransition(models.StatusPending, models.StatusAcknowledged, models.RoleAdmin)
	assert.True(t, result.Valid)
}

func TestRejectionNamesBothStatuses(t *testing.T) {
	result := ValidateTransition(models.StatusAcknowledged, models.StatusResolved, models.RoleWorker)
	require.False(t, result.Valid)
	assert.Contains(t, result.Reason, "acknowledged")
	assert.Contains(t, result.Reason, "resolved")
}

func TestAllowedTargets(t *testing.T) {
	targets := AllowedTargets(models.StatusInProgress, models.RoleWorker)
	assert.ElementsMatch(t, []models.ReportStatus{models.StatusResolved, models.StatusAcknowledged}, targets)

	assert.Empty(t, AllowedTargets(models.StatusPending, models.RoleCitizen))
	assert.Nil(t, AllowedTargets(models.StatusPending, models.ActorRole("manager")))
}
