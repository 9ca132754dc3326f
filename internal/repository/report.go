package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"panchayat-connect/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ReportRepository defines the persistence operations of report_issue.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	TrackingIDExists(ctx context.Context, trackingID string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Report, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*models.Report, error)
	List(ctx context.Context, opts ListOptions) ([]*models.Report, error)
	Update(ctx context.Context, report *models.Report, expectedVersion int) error
}

// ListOptions narrows List. Zero values mean no constraint.
type ListOptions struct {
	TeamID *int64
	Limit  int
}

type reportRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB, logger *zap.Logger) ReportRepository {
	return &reportRepository{
		db:     db,
		logger: logger,
	}
}

const reportColumns = `
	r.id, r.tracking_id, r.category, r.title, r.description, r.photos,
	r.panchayat, r.district, r.address, r.lat, r.lng, r.urgency, r.anonymous,
	r.contact_phone, r.contact_email, r.status, r.assigned_team_id, r.assigned_at,
	t.code AS assigned_team_code, t.name AS assigned_team_name,
	r.history, r.internal_notes, r.version, r.created_at, r.updated_at`

const reportFrom = `
	FROM report_issue r
	LEFT JOIN teams t ON t.id = r.assigned_team_id`

type reportRow struct {
	ID               string          `db:"id"`
	TrackingID       string          `db:"tracking_id"`
	Category         string          `db:"category"`
	Title            string          `db:"title"`
	Description      string          `db:"description"`
	Photos           pq.StringArray  `db:"photos"`
	Panchayat        string          `db:"panchayat"`
	District         string          `db:"district"`
	Address          string          `db:"address"`
	Lat              sql.NullFloat64 `db:"lat"`
	Lng              sql.NullFloat64 `db:"lng"`
	Urgency          string          `db:"urgency"`
	Anonymous        bool            `db:"anonymous"`
	ContactPhone     sql.NullString  `db:"contact_phone"`
	ContactEmail     sql.NullString  `db:"contact_email"`
	Status           string          `db:"status"`
	AssignedTeamID   sql.NullInt64   `db:"assigned_team_id"`
	AssignedAt       sql.NullTime    `db:"assigned_at"`
	AssignedTeamCode sql.NullString  `db:"assigned_team_code"`
	AssignedTeamName sql.NullString  `db:"assigned_team_name"`
	History          []byte          `db:"history"`
	InternalNotes    []byte          `db:"internal_notes"`
	Version          int             `db:"version"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (row *reportRow) toModel() (*models.Report, error) {
	r := &models.Report{
		ID:               row.ID,
		TrackingID:       row.TrackingID,
		Category:         models.Category(row.Category),
		Title:            row.Title,
		Description:      row.Description,
		Photos:           []string(row.Photos),
		Panchayat:        row.Panchayat,
		District:         row.District,
		Address:          row.Address,
		Urgency:          models.Urgency(row.Urgency),
		Anonymous:        row.Anonymous,
		Status:           models.Status(row.Status),
		AssignedTeam:     models.TeamCode(row.AssignedTeamCode.String),
		AssignedTeamName: row.AssignedTeamName.String,
		Version:          row.Version,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if r.Photos == nil {
		r.Photos = []string{}
	}
	if row.Lat.Valid {
		r.Lat = &row.Lat.Float64
	}
	if row.Lng.Valid {
		r.Lng = &row.Lng.Float64
	}
	if row.AssignedTeamID.Valid {
		r.AssignedTeamID = &row.AssignedTeamID.Int64
	}
	if row.AssignedAt.Valid {
		r.AssignedAt = &row.AssignedAt.Time
	}
	if !r.Anonymous && (row.ContactPhone.String != "" || row.ContactEmail.String != "") {
		r.Contact = &models.Contact{Phone: row.ContactPhone.String, Email: row.ContactEmail.String}
	}
	if err := unmarshalList(row.History, &r.History); err != nil {
		return nil, fmt.Errorf("failed to decode history of report %s: %w", row.ID, err)
	}
	if err := unmarshalList(row.InternalNotes, &r.InternalNotes); err != nil {
		return nil, fmt.Errorf("failed to decode internal notes of report %s: %w", row.ID, err)
	}
	if r.History == nil {
		r.History = []models.TimelineEntry{}
	}
	if r.InternalNotes == nil {
		r.InternalNotes = []models.InternalNote{}
	}
	return r, nil
}

func unmarshalList(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func marshalList[T any](list []T) ([]byte, error) {
	if list == nil {
		list = []T{}
	}
	return json.Marshal(list)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	history, err := marshalList(report.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	notes, err := marshalList(report.InternalNotes)
	if err != nil {
		return fmt.Errorf("failed to encode internal notes: %w", err)
	}

	var phone, email sql.NullString
	if !report.Anonymous && report.Contact != nil {
		phone = nullString(report.Contact.Phone)
		email = nullString(report.Contact.Email)
	}

	query := `
		INSERT INTO report_issue (
			id, tracking_id, category, title, description, photos, panchayat, district, address,
			lat, lng, urgency, anonymous, contact_phone, contact_email, status,
			assigned_team_id, assigned_at, history, internal_notes, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.TrackingID,
		report.Category,
		report.Title,
		report.Description,
		pq.Array(report.Photos),
		report.Panchayat,
		report.District,
		report.Address,
		report.Lat,
		report.Lng,
		report.Urgency,
		report.Anonymous,
		phone,
		email,
		report.Status,
		report.AssignedTeamID,
		report.AssignedAt,
		history,
		notes,
		report.Version,
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "report_issue_tracking_id_key") {
			return fmt.Errorf("%w: %s", ErrTrackingIDTaken, report.TrackingID)
		}
		r.logger.Error("Failed to create report", zap.String("tracking_id", report.TrackingID), zap.Error(err))
		return err
	}

	return nil
}

func (r *reportRepository) TrackingIDExists(ctx context.Context, trackingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM report_issue WHERE tracking_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, trackingID); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *reportRepository) getOne(ctx context.Context, where string, arg any) (*models.Report, error) {
	var row reportRow
	query := `SELECT ` + reportColumns + reportFrom + ` WHERE ` + where

	err := r.db.GetContext(ctx, &row, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// GetByID returns nil, nil when no report has the id.
func (r *reportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	report, err := r.getOne(ctx, `r.id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to get report by ID", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return report, nil
}

// GetByTrackingID expects an already normalized id and returns nil, nil when unknown.
func (r *reportRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.Report, error) {
	report, err := r.getOne(ctx, `r.tracking_id = $1`, trackingID)
	if err != nil {
		r.logger.Error("Failed to get report by tracking ID", zap.String("tracking_id", trackingID), zap.Error(err))
		return nil, err
	}
	return report, nil
}

func (r *reportRepository) List(ctx context.Context, opts ListOptions) ([]*models.Report, error) {
	query := `SELECT ` + reportColumns + reportFrom
	var args []any
	if opts.TeamID != nil {
		args = append(args, *opts.TeamID)
		query += fmt.Sprintf(` WHERE r.assigned_team_id = $%d`, len(args))
	}
	query += ` ORDER BY r.created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.Error("Failed to list reports", zap.Error(err))
		return nil, err
	}

	reports := make([]*models.Report, 0, len(rows))
	for i := range rows {
		report, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Update writes the workflow fields of report if its stored version still
// equals expectedVersion. On success report.Version is advanced.
func (r *reportRepository) Update(ctx context.Context, report *models.Report, expectedVersion int) error {
	history, err := marshalList(report.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	notes, err := marshalList(report.InternalNotes)
	if err != nil {
		return fmt.Errorf("failed to encode internal notes: %w", err)
	}

	query := `
		UPDATE report_issue
		SET status = $1, assigned_team_id = $2, assigned_at = $3, history = $4,
			internal_notes = $5, updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		report.Status,
		report.AssignedTeamID,
		report.AssignedAt,
		history,
		notes,
		report.UpdatedAt,
		report.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update report", zap.String("id", report.ID), zap.Error(err))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrVersionConflict
	}

	report.Version = expectedVersion + 1
	return nil
}
