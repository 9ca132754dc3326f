package workflow

import (
	"errors"
	"fmt"

	"panchayat-connect/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrTeamRequired      = errors.New("a team must be assigned first")
	ErrReportClosed      = errors.New("report is closed")
	ErrTeamTarget        = errors.New("status not available to teams")
	ErrEmptyNote         = errors.New("note text is required")
	ErrTeamMissing       = errors.New("team is required")
)

// InvalidTransitionError provides details about a rejected transition.
type InvalidTransitionError struct {
	From models.Status
	To   models.Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// UnknownStatusError indicates an unexpected status value.
type UnknownStatusError struct {
	Status models.Status
}

func (e UnknownStatusError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownStatus, e.Status)
}

func (e UnknownStatusError) Unwrap() error {
	return ErrUnknownStatus
}

var validTransitions = map[models.Status]map[models.Status]struct{}{
	models.StatusSubmitted: {
		models.StatusReceived:   {},
		models.StatusAssigned:   {},
		models.StatusInProgress: {},
		models.StatusClosed:     {},
	},
	models.StatusReceived: {
		models.StatusAssigned:   {},
		models.StatusInProgress: {},
		models.StatusClosed:     {},
	},
	models.StatusAssigned: {
		models.StatusInProgress: {},
		models.StatusResolved:   {},
		models.StatusClosed:     {},
	},
	models.StatusInProgress: {
		models.StatusResolved: {},
		models.StatusClosed:   {},
	},
	models.StatusResolved: {
		models.StatusInProgress: {},
		models.StatusClosed:     {},
	},
	models.StatusClosed: {},
}

// teamTargets are the only statuses a team member may set.
var teamTargets = map[models.Status]struct{}{
	models.StatusInProgress: {},
	models.StatusResolved:   {},
}

// needsTeam lists statuses that only make sense with a responder attached.
var needsTeam = map[models.Status]struct{}{
	models.StatusAssigned:   {},
	models.StatusInProgress: {},
	models.StatusResolved:   {},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.Status) bool {
	next, ok := validTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// AllowedNext returns the legal next statuses for role, in lifecycle order.
func AllowedNext(from models.Status, role models.Role) []models.Status {
	allowed := make([]models.Status, 0, len(validTransitions[from]))
	for _, s := range models.Statuses {
		if !CanTransition(from, s) {
			continue
		}
		if role == models.RoleTeam {
			if _, ok := teamTargets[s]; !ok {
				continue
			}
		}
		allowed = append(allowed, s)
	}
	return allowed
}

// CheckTeamTarget rejects statuses a team member may not set.
func CheckTeamTarget(to models.Status) error {
	if _, ok := teamTargets[to]; !ok {
		return fmt.Errorf("%w: %s", ErrTeamTarget, to)
	}
	return nil
}
