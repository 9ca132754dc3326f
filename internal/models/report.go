package models

import (
	"time"
)

// Category is the closed set of issue kinds a citizen can report.
type Category string

const (
	CategoryBrokenRoad     Category = "brokenRoad"
	CategoryStreetlight    Category = "streetlight"
	CategoryWaterLeak      Category = "waterLeak"
	CategoryDrainage       Category = "drainage"
	CategoryGarbage        Category = "garbage"
	CategoryElectricity    Category = "electricity"
	CategoryPublicProperty Category = "publicProperty"
	CategoryOther          Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryBrokenRoad,
	CategoryStreetlight,
	CategoryWaterLeak,
	CategoryDrainage,
	CategoryGarbage,
	CategoryElectricity,
	CategoryPublicProperty,
	CategoryOther,
}

func (c Category) Valid() bool {
	_, ok := CategoryToTeam[c]
	return ok
}

// Urgency of a report as chosen by the citizen.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyNormal, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// Status is the workflow state of a report.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusReceived   Status = "received"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "inProgress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusSubmitted,
	StatusReceived,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusClosed,
}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// TeamCode identifies one of the responder groups.
type TeamCode string

const (
	TeamRoads       TeamCode = "roads"
	TeamWater       TeamCode = "water"
	TeamElectricity TeamCode = "electricity"
	TeamSanitation  TeamCode = "sanitation"
	TeamGeneral     TeamCode = "general"
)

// CategoryToTeam is the default routing of a new report.
var CategoryToTeam = map[Category]TeamCode{
	CategoryBrokenRoad:     TeamRoads,
	CategoryStreetlight:    TeamElectricity,
	CategoryWaterLeak:      TeamWater,
	CategoryDrainage:       TeamSanitation,
	CategoryGarbage:        TeamSanitation,
	CategoryElectricity:    TeamElectricity,
	CategoryPublicProperty: TeamGeneral,
	CategoryOther:          TeamGeneral,
}

var CategoryIcons = map[Category]string{
	CategoryBrokenRoad:     "🕳️",
	CategoryStreetlight:    "💡",
	CategoryWaterLeak:      "💧",
	CategoryDrainage:       "🌊",
	CategoryGarbage:        "🗑️",
	CategoryElectricity:    "⚡",
	CategoryPublicProperty: "🏛️",
	CategoryOther:          "📋",
}

// Actor labels written into history entries.
const (
	ActorAdmin = "Admin"
	ActorTeam  = "Team"
)

// TimelineEntry is one immutable workflow event of a report.
type TimelineEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

// InternalNote is a staff-only annotation.
type InternalNote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsEmpty reports whether neither phone nor email is set.
func (c *Contact) IsEmpty() bool {
	return c == nil || (c.Phone == "" && c.Email == "")
}

// Report is a citizen-submitted issue with its full workflow state.
// AssignedTeam and AssignedTeamName are derived from AssignedTeamID and are never stored.
type Report struct {
	ID               string          `json:"id"`
	TrackingID       string          `json:"tracking_id"`
	Category         Category        `json:"category"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Photos           []string        `json:"photos"`
	Panchayat        string          `json:"panchayat"`
	District         string          `json:"district,omitempty"`
	Address          string          `json:"address"`
	Lat              *float64        `json:"lat,omitempty"`
	Lng              *float64        `json:"lng,omitempty"`
	Urgency          Urgency         `json:"urgency"`
	Anonymous        bool            `json:"anonymous"`
	Contact          *Contact        `json:"contact,omitempty"`
	Status           Status          `json:"status"`
	AssignedTeamID   *int64          `json:"assigned_team_id,omitempty"`
	AssignedTeam     TeamCode        `json:"assigned_team,omitempty"`
	AssignedTeamName string          `json:"assigned_team_name,omitempty"`
	AssignedAt       *time.Time      `json:"assigned_at,omitempty"`
	History          []TimelineEntry `json:"history"`
	InternalNotes    []InternalNote  `json:"internal_notes"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so workflow rules can mutate it freely.
func (r *Report) Clone() *Report {
	c := *r
	c.Photos = append([]string(nil), r.Photos...)
	c.History = append([]TimelineEntry(nil), r.History...)
	c.InternalNotes = append([]InternalNote(nil), r.InternalNotes...)
	if r.Contact != nil {
		contact := *r.Contact
		c.Contact = &contact
	}
	if r.Lat != nil {
		lat := *r.Lat
		c.Lat = &lat
	}
	if r.Lng != nil {
		lng := *r.Lng
		c.Lng = &lng
	}
	if r.AssignedTeamID != nil {
		id := *r.AssignedTeamID
		c.AssignedTeamID = &id
	}
	if r.AssignedAt != nil {
		at := *r.AssignedAt
		c.AssignedAt = &at
	}
	return &c
}

// PublicReport is the projection served to unauthenticated callers.
type PublicReport struct {
	TrackingID   string          `json:"tracking_id"`
	Category     Category        `json:"category"`
	Icon         string          `json:"icon"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Photos       []string        `json:"photos"`
	Panchayat    string          `json:"panchayat"`
	District     string          `json:"district,omitempty"`
	Address      string          `json:"address"`
	Lat          *float64        `json:"lat,omitempty"`
	Lng          *float64        `json:"lng,omitempty"`
	Urgency      Urgency         `json:"urgency"`
	Status       Status          `json:"status"`
	AssignedTeam TeamCode        `json:"assigned_team,omitempty"`
	History      []TimelineEntry `json:"history,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Public strips identity, contact data and internal notes.
func (r *Report) Public() PublicReport {
	photos := r.Photos
	if photos == nil {
		photos = []string{}
	}
	return PublicReport{
		TrackingID:   r.TrackingID,
		Category:     r.Category,
		Icon:         CategoryIcons[r.Category],
		Title:        r.Title,
		Description:  r.Description,
		Photos:       photos,
		Panchayat:    r.Panchayat,
		District:     r.District,
		Address:      r.Address,
		Lat:          r.Lat,
		Lng:          r.Lng,
		Urgency:      r.Urgency,
		Status:       r.Status,
		AssignedTeam: r.AssignedTeam,
		History:      r.History,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// PublicSummary is the map/listing view of a report.
func (r *Report) PublicSummary() PublicReport {
	p := r.Public()
	p.History = nil
	p.Description = ""
	p.Photos = nil
	p.Address = ""
	return p
}
