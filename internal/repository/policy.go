package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const defaultListLimit = 100

type PolicyRepository interface {
	CreatePolicy(ctx context.Context, policy *models.PolicyDocument) error
	GetPolicy(ctx context.Context, id string) (*models.PolicyDocument, error)
	ListPolicies(ctx context.Context, limit int) ([]*models.PolicyDocument, error)
}

type policyRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPolicyRepository(db *sqlx.DB, logger *zap.Logger) PolicyRepository {
	return &policyRepository{db: db, logger: logger}
}

type policyRow struct {
	ID         string    `db:"id"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	Background string    `db:"background"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row *policyRow) toModel() (*models.PolicyDocument, error) {
	policy := &models.PolicyDocument{
		ID:        row.ID,
		Title:     row.Title,
		Content:   row.Content,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if err := unmarshalColumn(row.Background, &policy.Background); err != nil {
		return nil, fmt.Errorf("policy %s background: %w", row.ID, err)
	}
	if policy.Background == nil {
		policy.Background = []models.BackgroundAnswer{}
	}
	return policy, nil
}

const policyColumns = `id, title, content, background, created_at`

func insertPolicy(ctx context.Context, ext sqlx.ExtContext, policy *models.PolicyDocument) error {
	background, err := marshalColumn(policy.Background, "[]")
	if err != nil {
		return fmt.Errorf("failed to encode background: %w", err)
	}

	query := ext.Rebind(`INSERT INTO policies (` + policyColumns + `) VALUES (?, ?, ?, ?, ?)`)
	_, err = ext.ExecContext(ctx, query, policy.ID, policy.Title, policy.Content, background, policy.CreatedAt.UTC())
	return err
}

func (r *policyRepository) CreatePolicy(ctx context.Context, policy *models.PolicyDocument) error {
	return insertPolicy(ctx, r.db, policy)
}

func (r *policyRepository) GetPolicy(ctx context.Context, id string) (*models.PolicyDocument, error) {
	var row policyRow
	query := r.db.Rebind(`SELECT ` + policyColumns + ` FROM policies WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel()
}

// ListPolicies returns the newest policies first
func (r *policyRepository) ListPolicies(ctx context.Context, limit int) ([]*models.PolicyDocument, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []policyRow
	query := r.db.Rebind(`SELECT ` + policyColumns + ` FROM policies ORDER BY created_at DESC, id LIMIT ?`)
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}

	policies := make([]*models.PolicyDocument, 0, len(rows))
	for i := range rows {
		policy, err := rows[i].toModel()
		if err != nil {
			r.logger.Error("Skipping unreadable policy", zap.String("id", rows[i].ID), zap.Error(err))
			continue
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

func marshalColumn(v interface{}, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func unmarshalColumn(s string, v interface{}) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
