package service

import (
	"strings"

	"panchayat-connect/internal/models"
)

// Filter narrows a report list. Empty values and "all" mean no constraint.
type Filter struct {
	Status    string `form:"status"`
	Category  string `form:"category"`
	Urgency   string `form:"urgency"`
	Panchayat string `form:"panchayat"`
	Search    string `form:"search"`
}

func unconstrained(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// Matches reports whether r passes every active constraint of f.
func (f Filter) Matches(r *models.Report) bool {
	if !unconstrained(f.Status) && string(r.Status) != strings.TrimSpace(f.Status) {
		return false
	}
	if !unconstrained(f.Category) && string(r.Category) != strings.TrimSpace(f.Category) {
		return false
	}
	if !unconstrained(f.Urgency) && string(r.Urgency) != strings.TrimSpace(f.Urgency) {
		return false
	}
	if p := strings.ToLower(strings.TrimSpace(f.Panchayat)); p != "" && p != "all" {
		if !containsFold(r.Panchayat, p) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !containsFold(r.Title, q) &&
			!containsFold(r.Description, q) &&
			!containsFold(r.TrackingID, q) &&
			!containsFold(r.Panchayat, q) {
			return false
		}
	}
	return true
}

// Apply returns the reports matching f in their original order.
func (f Filter) Apply(reports []*models.Report) []*models.Report {
	out := make([]*models.Report, 0, len(reports))
	for _, r := range reports {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Stats are the dashboard counters.
type Stats struct {
	Total      int                     `json:"total"`
	Pending    int                     `json:"pending"`
	InProgress int                     `json:"in_progress"`
	Resolved   int                     `json:"resolved"`
	Urgent     int                     `json:"urgent"`
	ByCategory map[models.Category]int `json:"by_category"`
	ByStatus   map[models.Status]int   `json:"by_status"`
}

// ComputeStats counts reports by lifecycle bucket.
func ComputeStats(reports []*models.Report) Stats {
	s := Stats{
		ByCategory: make(map[models.Category]int),
		ByStatus:   make(map[models.Status]int),
	}
	for _, r := range reports {
		s.Total++
		s.ByCategory[r.Category]++
		s.ByStatus[r.Status]++

		done := false
		switch r.Status {
		case models.StatusSubmitted, models.StatusReceived:
			s.Pending++
		case models.StatusAssigned, models.StatusInProgress:
			s.InProgress++
		case models.StatusResolved, models.StatusClosed:
			s.Resolved++
			done = true
		}
		if r.Urgency == models.UrgencyUrgent && !done {
			s.Urgent++
		}
	}
	return s
}
