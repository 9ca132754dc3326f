package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"panchayat-connect/internal/models"
)

var csvHeader = []string{"Tracking ID", "Title", "Category", "Status", "Urgency", "Panchayat", "Created At"}

// ExportFileName is complaints-YYYY-MM-DD.csv for the given day.
func ExportFileName(at time.Time) string {
	return fmt.Sprintf("complaints-%s.csv", at.Format("2006-01-02"))
}

// WriteCSV writes one row per report in order. Fields are quoted as needed.
func WriteCSV(w io.Writer, reports []*models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range reports {
		record := []string{
			r.TrackingID,
			r.Title,
			string(r.Category),
			string(r.Status),
			string(r.Urgency),
			r.Panchayat,
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
