// Package workflow enforces the report status lifecycle. Legal transitions
// are a fixed graph narrowed further by the requesting actor's role; both
// layers are lookup tables so adding a role or state is a data change.
package workflow

import (
	"fmt"

	"report-workflow-service/models"
)

// TransitionResult is the outcome of validating a requested transition.
// Rejections are expected business-rule outcomes, not errors.
type TransitionResult struct {
	Valid  bool
	Reason string
}

// statusAdjacency is the role-independent ceiling: a transition absent here
// is illegal for every actor.
var statusAdjacency = map[models.ReportStatus][]models.ReportStatus{
	models.StatusPending:      {models.StatusAcknowledged, models.StatusClosed},
	models.StatusAcknowledged: {models.StatusInProgress, models.StatusResolved, models.StatusPending},
	models.StatusInProgress:   {models.StatusResolved, models.StatusAcknowledged},
	models.StatusResolved:     {models.StatusClosed, models.StatusInProgress},
	models.StatusClosed:       {models.StatusResolved}, // admin reopen only, see rolePermissions
}

// rolePermissions maps role -> current status -> allowed target statuses.
// A status missing from a role's map means the role may not act on reports
// in that status at all. Citizens never initiate transitions.
var rolePermissions = map[models.ActorRole]map[models.ReportStatus][]models.ReportStatus{
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

// ValidateTransition checks whether the given role may move a report from
// current to requested. Checks run in order and the first failure wins; a
// rejection has no side effects.
func ValidateTransition(current, requested models.ReportStatus, role models.ActorRole) TransitionResult {
	perms, ok := rolePermissions[role]
	if !ok {
		return TransitionResult{Reason: "invalid role"}
	}

	targets, ok := perms[current]
	if !ok {
		return TransitionResult{
			Reason: fmt.Sprintf("role %q may not modify reports in status %q", role, current),
		}
	}

	if !containsStatus(targets, requested) {
		return TransitionResult{
			Reason: fmt.Sprintf("role %q may not move a report from %q to %q", role, current, requested),
		}
	}

	// The role table must never grant an edge the adjacency graph forbids.
	if !containsStatus(statusAdjacency[current], requested) {
		return TransitionResult{Reason: "invalid status transition"}
	}

	return TransitionResult{Valid: true}
}

// AllowedTargets returns the statuses the given role may move a report in
// the current status to. The slice is a copy; callers may not mutate the
// permission tables through it.
func AllowedTargets(current models.ReportStatus, role models.ActorRole) []models.ReportStatus {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	targets := perms[current]
	out := make([]models.ReportStatus, len(targets))
	copy(out, targets)
	return out
}

func containsStatus(list []models.ReportStatus, s models.ReportStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
