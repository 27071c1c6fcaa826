package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/export"
	"github.com/hiqiancheng/PoliPlay/internal/llm"
	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/parser"
	"github.com/hiqiancheng/PoliPlay/internal/report"
	"github.com/hiqiancheng/PoliPlay/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrExport     = errors.New("export failed")
)

// Asker sends one query to an analysis stage and returns the raw answer
type Asker interface {
	Ask(ctx context.Context, query string, inputs map[string]interface{}) (string, error)
}

type PolicyService interface {
	SubmitDocument(ctx context.Context, title, content string) (*models.ClarifyResult, error)
	SubmitAnswers(ctx context.Context, title, content string, analysis *models.ClarifyResult) (*models.PolicyReport, error)
	GetPolicy(ctx context.Context, id string) (*models.PolicyDocument, error)
	ListPolicies(ctx context.Context, limit int) ([]*models.PolicyDocument, error)
	GetReport(ctx context.Context, id string) (*models.PolicyReport, error)
	GetReportByPolicy(ctx context.Context, policyID string) (*models.PolicyReport, error)
	Export(ctx context.Context, reportID string) (*models.ExportResult, error)
}

// Deps are the collaborators of the policy service. Exporter may be nil when
// export is not configured; Now and NewID default to the wall clock and uuid.
type Deps struct {
	Policies  repository.PolicyRepository
	Reports   repository.ReportRepository
	Analyses  repository.AnalysisStore
	Clarify   Asker
	Analyze   Asker
	Exporter  export.Exporter
	Parser    *parser.Parser
	Assembler *report.Assembler
	Now       func() time.Time
	NewID     func() string
}

type policyService struct {
	deps    Deps
	exports singleflight.Group
	logger  *zap.Logger
}

func NewPolicyService(deps Deps, logger *zap.Logger) PolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Parser == nil {
		deps.Parser = parser.New(logger)
	}
	if deps.Assembler == nil {
		deps.Assembler = report.NewAssembler(nil)
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.New().String() }
	}
	return &policyService{deps: deps, logger: logger}
}

// SubmitDocument runs the clarify stage. Upstream failures resolve to the
// default questions.
func (s *policyService) SubmitDocument(ctx context.Context, title, content string) (*models.ClarifyResult, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("%w: title and content are required", ErrValidation)
	}

	raw, err := s.deps.Clarify.Ask(ctx, llm.BuildClarifyQuery(title, content), nil)
	res := s.deps.Parser.Clarify(raw, err, title)

	s.logger.Info("Clarify stage finished",
		zap.String("title", title),
		zap.String("outcome", res.Outcome.String()),
		zap.Int("questions", len(res.Value.Questions)))

	return &res.Value, nil
}

// SubmitAnswers runs the analyze stage and stores the policy with its report
func (s *policyService) SubmitAnswers(ctx context.Context, title, content string, analysis *models.ClarifyResult) (*models.PolicyReport, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" || analysis == nil {
		return nil, fmt.Errorf("%w: title, content and analysis are required", ErrValidation)
	}

	background := make([]models.BackgroundAnswer, 0, len(analysis.Questions))
	for _, q := range analysis.Questions {
		background = append(background, models.BackgroundAnswer{
			Question: q.Title,
			Answer:   q.AnswerText(),
		})
	}

	raw, err := s.deps.Analyze.Ask(ctx, llm.BuildAnalyzeQuery(title, content, analysis.Questions), nil)
	res := s.deps.Parser.Analysis(raw, err, title)

	now := s.deps.Now()
	policy := &models.PolicyDocument{
		ID:         s.deps.NewID(),
		Title:      title,
		Content:    content,
		Background: background,
		CreatedAt:  now,
	}
	r := s.deps.Assembler.Assemble(s.deps.NewID(), policy, res.Value, now)

	if err := s.deps.Analyses.SaveAnalysis(ctx, policy, r); err != nil {
		s.logger.Error("Failed to save analysis", zap.String("policy_id", policy.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	s.logger.Info("Report generated",
		zap.String("policy_id", policy.ID),
		zap.String("report_id", r.ID),
		zap.String("outcome", res.Outcome.String()),
		zap.Int("comments", len(r.Comments)),
		zap.Int("support_rate", r.SupportRate),
		zap.Int("oppose_rate", r.OpposeRate))

	return r, nil
}

func (s *policyService) GetPolicy(ctx context.Context, id string) (*models.PolicyDocument, error) {
	policy, err := s.deps.Policies.GetPolicy(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "policy", id)
	}
	return policy, nil
}

func (s *policyService) ListPolicies(ctx context.Context, limit int) ([]*models.PolicyDocument, error) {
	return s.deps.Policies.ListPolicies(ctx, limit)
}

func (s *policyService) GetReport(ctx context.Context, id string) (*models.PolicyReport, error) {
	r, err := s.deps.Reports.GetReport(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "report", id)
	}
	report.Hydrate(r)
	return r, nil
}

func (s *policyService) GetReportByPolicy(ctx context.Context, policyID string) (*models.PolicyReport, error) {
	r, err := s.deps.Reports.GetLatestByPolicy(ctx, policyID)
	if err != nil {
		return nil, mapNotFound(err, "report of policy", policyID)
	}
	report.Hydrate(r)
	return r, nil
}

func mapNotFound(err error, what, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}
