package models

import "time"

type EventType string

const (
	EventReportSubmitted     EventType = "report.submitted"
	EventReportStatusChanged EventType = "report.status_changed"
	EventReportAssigned      EventType = "report.assigned"
)

// ReportEvent is published to the broker after a report is written.
type ReportEvent struct {
	Type       EventType `json:"type"`
	ReportID   string    `json:"report_id"`
	TrackingID string    `json:"tracking_id"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	TeamID     *int64    `json:"team_id,omitempty"`
	Category   Category  `json:"category"`
	Urgency    Urgency   `json:"urgency"`
	Panchayat  string    `json:"panchayat"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewReportEvent snapshots the fields of r that consumers need.
func NewReportEvent(t EventType, r *Report, at time.Time) ReportEvent {
	return ReportEvent{
		Type:       t,
		ReportID:   r.ID,
		TrackingID: r.TrackingID,
		Title:      r.Title,
		Status:     r.Status,
		TeamID:     r.AssignedTeamID,
		Category:   r.Category,
		Urgency:    r.Urgency,
		Panchayat:  r.Panchayat,
		OccurredAt: at,
	}
}
