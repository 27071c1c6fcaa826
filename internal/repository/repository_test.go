package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := Open(TypeSQLite, filepath.Join(t.TempDir(), "data", "poliplay.db"), logger)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db, logger); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func samplePolicy(id string, createdAt time.Time) *models.PolicyDocument {
	return &models.PolicyDocument{
		ID:      id,
		Title:   "数字政府建设方案",
		Content: "推进政务服务一网通办。",
		Background: []models.BackgroundAnswer{
			{Question: "政策的实施范围是什么？", Answer: "全市"},
		},
		CreatedAt: createdAt,
	}
}

func sampleReport(id, policyID string, generatedAt time.Time) *models.PolicyReport {
	return &models.PolicyReport{
		ID:        id,
		PolicyID:  policyID,
		Title:     "《数字政府建设方案》分析报告",
		Summary:   "本政策共收到2个不同角色的评论，支持率50%，反对率50%。",
		Tags:      []string{"数字政府", "政务服务"},
		WordCloud: []models.WordCloudEntry{{Text: "政务", Weight: 3}, {Text: "发展", Weight: 15}},
		Narrative: "第一段\n第二段",
		Comments: []models.RoleComment{
			{Role: "市民代表", Comment: "办事更方便", Score: 5},
			{Role: "财政部门", Comment: "投入较大", Score: 1},
		},
		AnalysisHTML: "<h4>角色评论</h4>",
		GeneratedAt:  generatedAt,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db, zap.NewNop()); err != nil {
		t.Errorf("Second migration should be a no-op, got %v", err)
	}
}

func TestOpen_UnsupportedType(t *testing.T) {
	if _, err := Open("mysql", "x", zap.NewNop()); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}

func TestPolicyRepository_CreateAndGet(t *testing.T) {
	db := openTestDB(t)
	repo := NewPolicyRepository(db, zap.NewNop())
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	if err := repo.CreatePolicy(ctx, samplePolicy("p-1", created)); err != nil {
		t.Fatalf("CreatePolicy failed: %v", err)
	}

	got, err := repo.GetPolicy(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if got.Title != "数字政府建设方案" || got.Content != "推进政务服务一网通办。" {
		t.Errorf("Unexpected policy: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if len(got.Background) != 1 || got.Background[0].Answer != "全市" {
		t.Errorf("Unexpected background: %+v", got.Background)
	}

	if _, err := repo.GetPolicy(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPolicyRepository_ListNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewPolicyRepository(db, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"p-old", "p-mid", "p-new"} {
		p := samplePolicy(id, base.Add(time.Duration(i)*time.Hour))
		p.Background = nil
		if err := repo.CreatePolicy(ctx, p); err != nil {
			t.Fatalf("CreatePolicy %s failed: %v", id, err)
		}
	}

	list, err := repo.ListPolicies(ctx, 2)
	if err != nil {
		t.Fatalf("ListPolicies failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p-new" || list[1].ID != "p-mid" {
		t.Fatalf("Unexpected order: %v", ids(list))
	}
	if list[0].Background == nil {
		t.Error("Background should decode to an empty list")
	}
}

func ids(policies []*models.PolicyDocument) []string {
	out := make([]string, len(policies))
	for i, p := range policies {
		out[i] = p.ID
	}
	return out
}

func TestSaveAnalysis_AndReportQueries(t *testing.T) {
	db := openTestDB(t)
	reports := NewReportRepository(db, zap.NewNop())
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	if err := SaveAnalysis(ctx, db, samplePolicy("p-1", now), sampleReport("r-1", "p-1", now)); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	if err := reports.CreateReport(ctx, sampleReport("r-2", "p-1", now.Add(time.Minute))); err != nil {
		t.Fatalf("CreateReport failed: %v", err)
	}

	got, err := reports.GetReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if len(got.Comments) != 2 || got.Comments[0].Score != 5 || got.Comments[1].Role != "财政部门" {
		t.Errorf("Unexpected comments: %+v", got.Comments)
	}
	if len(got.WordCloud) != 2 || got.WordCloud[1].Weight != 15 {
		t.Errorf("Unexpected word cloud: %+v", got.WordCloud)
	}
	if got.Narrative != "第一段\n第二段" || got.Exported() {
		t.Errorf("Unexpected report: %+v", got)
	}

	latest, err := reports.GetLatestByPolicy(ctx, "p-1")
	if err != nil {
		t.Fatalf("GetLatestByPolicy failed: %v", err)
	}
	if latest.ID != "r-2" {
		t.Errorf("Latest report = %s, want r-2", latest.ID)
	}

	if _, err := reports.GetLatestByPolicy(ctx, "p-none"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSaveAnalysis_RollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// report referencing another policy violates the foreign key
	err := SaveAnalysis(ctx, db, samplePolicy("p-1", now), sampleReport("r-1", "p-other", now))
	if err == nil {
		t.Fatal("Expected foreign key failure")
	}

	if _, err := NewPolicyRepository(db, zap.NewNop()).GetPolicy(ctx, "p-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Policy should have been rolled back, got %v", err)
	}
}

func TestReportRepository_SetExportOnce(t *testing.T) {
	db := openTestDB(t)
	reports := NewReportRepository(db, zap.NewNop())
	ctx := context.Background()
	now := time.Now().UTC()

	if err := SaveAnalysis(ctx, db, samplePolicy("p-1", now), sampleReport("r-1", "p-1", now)); err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}

	stored, err := reports.SetExport(ctx, "r-1", "https://feishu.cn/docx/doc1", "doc1")
	if err != nil || !stored {
		t.Fatalf("First SetExport = %v, %v", stored, err)
	}

	stored, err = reports.SetExport(ctx, "r-1", "https://feishu.cn/docx/doc2", "doc2")
	if err != nil || stored {
		t.Fatalf("Second SetExport = %v, %v", stored, err)
	}

	got, err := reports.GetReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.ExportURL != "https://feishu.cn/docx/doc1" || got.ExportDocID != "doc1" {
		t.Errorf("First export must win, got %q %q", got.ExportURL, got.ExportDocID)
	}

	if _, err := reports.SetExport(ctx, "missing", "u", "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
