package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.PolicyReport) error
	GetReport(ctx context.Context, id string) (*models.PolicyReport, error)
	GetLatestByPolicy(ctx context.Context, policyID string) (*models.PolicyReport, error)
	// SetExport records the export of a report once. It returns false when
	// an export was already recorded, leaving the stored one in place.
	SetExport(ctx context.Context, id, url, documentID string) (bool, error)
}

type reportRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewReportRepository(db *sqlx.DB, logger *zap.Logger) ReportRepository {
	return &reportRepository{db: db, logger: logger}
}

type reportRow struct {
	ID           string         `db:"id"`
	PolicyID     string         `db:"policy_id"`
	Title        string         `db:"title"`
	Summary      string         `db:"summary"`
	Tags         string         `db:"tags"`
	WordCloud    string         `db:"word_cloud"`
	Narrative    string         `db:"narrative"`
	AnalysisHTML string         `db:"analysis_html"`
	Comments     string         `db:"comments"`
	ExportURL    sql.NullString `db:"export_url"`
	ExportDocID  sql.NullString `db:"export_doc_id"`
	GeneratedAt  time.Time      `db:"generated_at"`
}

func (row *reportRow) toModel() (*models.PolicyReport, error) {
	report := &models.PolicyReport{
		ID:           row.ID,
		PolicyID:     row.PolicyID,
		Title:        row.Title,
		Summary:      row.Summary,
		Narrative:    row.Narrative,
		AnalysisHTML: row.AnalysisHTML,
		ExportURL:    row.ExportURL.String,
		ExportDocID:  row.ExportDocID.String,
		GeneratedAt:  row.GeneratedAt.UTC(),
	}
	if err := unmarshalColumn(row.Tags, &report.Tags); err != nil {
		return nil, fmt.Errorf("report %s tags: %w", row.ID, err)
	}
	if err := unmarshalColumn(row.WordCloud, &report.WordCloud); err != nil {
		return nil, fmt.Errorf("report %s word cloud: %w", row.ID, err)
	}
	if err := unmarshalColumn(row.Comments, &report.Comments); err != nil {
		return nil, fmt.Errorf("report %s comments: %w", row.ID, err)
	}
	if report.Tags == nil {
		report.Tags = []string{}
	}
	if report.WordCloud == nil {
		report.WordCloud = []models.WordCloudEntry{}
	}
	if report.Comments == nil {
		report.Comments = []models.RoleComment{}
	}
	return report, nil
}

const reportColumns = `id, policy_id, title, summary, tags, word_cloud, narrative, analysis_html, comments, export_url, export_doc_id, generated_at`

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func insertReport(ctx context.Context, ext sqlx.ExtContext, report *models.PolicyReport) error {
	tags, err := marshalColumn(report.Tags, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	cloud, err := marshalColumn(report.WordCloud, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode word cloud: %w", err)
	}
	comments, err := marshalColumn(report.Comments, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode comments: %w", err)
	}

	query := ext.Rebind(`INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = ext.ExecContext(ctx, query,
		report.ID, report.PolicyID, report.Title, report.Summary,
		tags, cloud, report.Narrative, report.AnalysisHTML, comments,
		nullable(report.ExportURL), nullable(report.ExportDocID),
		report.GeneratedAt.UTC())
	return err
}

func (r *reportRepository) CreateReport(ctx context.Context, report *models.PolicyReport) error {
	return insertReport(ctx, r.db, report)
}

func (r *reportRepository) GetReport(ctx context.Context, id string) (*models.PolicyReport, error) {
	query := r.db.Rebind(`SELECT ` + reportColumns + ` FROM reports WHERE id = ?`)
	return r.getOne(ctx, query, id)
}

func (r *reportRepository) GetLatestByPolicy(ctx context.Context, policyID string) (*models.PolicyReport, error) {
	query := r.db.Rebind(`SELECT ` + reportColumns + ` FROM reports WHERE policy_id = ? ORDER BY generated_at DESC LIMIT 1`)
	return r.getOne(ctx, query, policyID)
}

func (r *reportRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.PolicyReport, error) {
	var row reportRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

func (r *reportRepository) SetExport(ctx context.Context, id, url, documentID string) (bool, error) {
	query := r.db.Rebind(`UPDATE reports SET export_url = ?, export_doc_id = ?
		WHERE id = ? AND (export_url IS NULL OR export_url = '')`)
	res, err := r.db.ExecContext(ctx, query, url, nullable(documentID), id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// either the report is gone or another export won
		var exists int
		check := r.db.Rebind(`SELECT COUNT(*) FROM reports WHERE id = ?`)
		if err := r.db.GetContext(ctx, &exists, check, id); err != nil {
			return false, err
		}
		if exists == 0 {
			return false, ErrNotFound
		}
		r.logger.Info("Export already recorded", zap.String("report_id", id))
		return false, nil
	}
	return true, nil
}

// AnalysisStore persists the outcome of a completed analysis
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, policy *models.PolicyDocument, report *models.PolicyReport) error
}

type analysisStore struct {
	db *sqlx.DB
}

func NewAnalysisStore(db *sqlx.DB) AnalysisStore {
	return &analysisStore{db: db}
}

func (s *analysisStore) SaveAnalysis(ctx context.Context, policy *models.PolicyDocument, report *models.PolicyReport) error {
	return SaveAnalysis(ctx, s.db, policy, report)
}

// SaveAnalysis stores a policy and its first report atomically
func SaveAnalysis(ctx context.Context, db *sqlx.DB, policy *models.PolicyDocument, report *models.PolicyReport) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertPolicy(ctx, tx, policy); err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	if err := insertReport(ctx, tx, report); err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return tx.Commit()
}
