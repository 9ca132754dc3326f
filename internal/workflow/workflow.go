// Package workflow holds the lifecycle rules of a report: status changes,
// team assignment and internal notes. Every function mutates the report it is
// given and only ever appends to history and notes.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"panchayat-connect/internal/models"
)

// Note texts written into history.
const (
	NoteStatusByAdmin = "Status updated by Admin"
	NoteStatusByTeam  = "Status updated by Team"
)

// NewHistory returns the seed history of a freshly submitted report.
func NewHistory(at time.Time) []models.TimelineEntry {
	return []models.TimelineEntry{{Status: models.StatusSubmitted, Timestamp: at}}
}

// ChangeStatus moves r to status to and appends one history entry.
// Setting the current status again is a no-op and reports changed=false.
func ChangeStatus(r *models.Report, to models.Status, actor, note string, at time.Time) (bool, error) {
	if !to.Valid() {
		return false, UnknownStatusError{Status: to}
	}
	if r.Status == to {
		return false, nil
	}
	if r.Status == models.StatusClosed {
		return false, fmt.Errorf("%w: %s", ErrReportClosed, r.TrackingID)
	}
	if !CanTransition(r.Status, to) {
		return false, InvalidTransitionError{From: r.Status, To: to}
	}
	if _, ok := needsTeam[to]; ok && r.AssignedTeamID == nil {
		return false, fmt.Errorf("%w: cannot move to %s", ErrTeamRequired, to)
	}

	r.Status = to
	r.History = append(r.History, models.TimelineEntry{
		Status:    to,
		Timestamp: at,
		Note:      strings.TrimSpace(note),
		Actor:     actor,
	})
	r.UpdatedAt = at
	return true, nil
}

// AssignTeam makes team the report's responder.
//
// Reports still waiting for triage (submitted, received) advance to assigned.
// Later reports keep their status. Either way exactly one history entry naming
// the team is appended. Re-assigning the current team is a no-op once the
// report has left triage.
func AssignTeam(r *models.Report, team *models.Team, actor string, at time.Time) (bool, error) {
	if team == nil {
		return false, ErrTeamMissing
	}
	if r.Status == models.StatusClosed {
		return false, fmt.Errorf("%w: %s", ErrReportClosed, r.TrackingID)
	}

	triage := r.Status == models.StatusSubmitted || r.Status == models.StatusReceived
	sameTeam := r.AssignedTeamID != nil && *r.AssignedTeamID == team.ID
	if sameTeam && !triage {
		return false, nil
	}

	teamID := team.ID
	r.AssignedTeamID = &teamID
	r.AssignedTeam = team.Code
	r.AssignedTeamName = team.Name
	assignedAt := at
	r.AssignedAt = &assignedAt

	entry := models.TimelineEntry{Timestamp: at, Actor: actor}
	if triage {
		r.Status = models.StatusAssigned
		entry.Status = models.StatusAssigned
		entry.Note = "Assigned to " + team.Name
	} else {
		entry.Status = r.Status
		entry.Note = "Reassigned to " + team.Name
	}
	r.History = append(r.History, entry)
	r.UpdatedAt = at
	return true, nil
}

// AddNote appends a staff note and returns it.
func AddNote(r *models.Report, id, text, sender string, at time.Time) (models.InternalNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.InternalNote{}, ErrEmptyNote
	}
	note := models.InternalNote{ID: id, Text: text, Sender: sender, Timestamp: at}
	r.InternalNotes = append(r.InternalNotes, note)
	r.UpdatedAt = at
	return note, nil
}

// HistoryConsistent reports whether the last history entry matches the current status.
func HistoryConsistent(r *models.Report) bool {
	if len(r.History) == 0 {
		return false
	}
	return r.History[len(r.History)-1].Status == r.Status
}
