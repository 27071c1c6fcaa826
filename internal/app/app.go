package app

import (
	"context"
	"fmt"

	"github.com/hiqiancheng/PoliPlay/internal/config"
	"github.com/hiqiancheng/PoliPlay/internal/export"
	"github.com/hiqiancheng/PoliPlay/internal/feishu"
	"github.com/hiqiancheng/PoliPlay/internal/llm"
	"github.com/hiqiancheng/PoliPlay/internal/parser"
	"github.com/hiqiancheng/PoliPlay/internal/report"
	"github.com/hiqiancheng/PoliPlay/internal/repository"
	"github.com/hiqiancheng/PoliPlay/internal/service"
	"github.com/hiqiancheng/PoliPlay/internal/wordcloud"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// App holds the wired components shared by the server and the CLI
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *sqlx.DB
	Service service.PolicyService
	// Feishu is nil unless the feishu exporter is configured
	Feishu *feishu.Client

	stages  map[string]*llm.MultiProviderClient
	closers []func() error
}

// New connects to the database, applies migrations and builds the service
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := repository.Open(cfg.Database.Type, cfg.Database.URL, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, DB: db, stages: make(map[string]*llm.MultiProviderClient)}
	a.closers = append(a.closers, db.Close)

	if err := repository.Migrate(db, logger); err != nil {
		a.Close()
		return nil, err
	}

	clarify := a.stageAgent("clarify", cfg.Agents.Clarify, llm.ClarifySystemPrompt)
	analyze := a.stageAgent("analyze", cfg.Agents.Analyze, llm.AnalyzeSystemPrompt)

	exporter, err := a.exporter()
	if err != nil {
		logger.Warn("Export disabled", zap.String("provider", cfg.Export.Provider), zap.Error(err))
	}

	a.Service = service.NewPolicyService(service.Deps{
		Policies:  repository.NewPolicyRepository(db, logger),
		Reports:   repository.NewReportRepository(db, logger),
		Analyses:  repository.NewAnalysisStore(db),
		Clarify:   clarify,
		Analyze:   analyze,
		Exporter:  exporter,
		Parser:    parser.New(logger),
		Assembler: report.NewAssembler(wordcloud.NewBuilder(newTokenizer(logger))),
	}, logger)

	return a, nil
}

// stageAgent builds the agent of one stage. A stage without a usable
// provider still answers, with an error that resolves to the default structure.
func (a *App) stageAgent(name string, cfg llm.AgentConfig, systemPrompt string) service.Asker {
	agent, client, err := llm.NewStageAgent(name, cfg, systemPrompt, a.Logger)
	if err != nil {
		a.Logger.Warn("No chat provider for stage, default answers will be used",
			zap.String("stage", name),
			zap.Error(err))
		return unavailable{stage: name}
	}
	a.stages[name] = client
	a.closers = append(a.closers, client.Close)
	return agent
}

type unavailable struct {
	stage string
}

func (u unavailable) Ask(ctx context.Context, query string, inputs map[string]interface{}) (string, error) {
	return "", fmt.Errorf("no chat provider configured for %s stage", u.stage)
}

func (a *App) exporter() (export.Exporter, error) {
	switch a.Config.Export.Provider {
	case config.ExportDocx:
		docx, err := export.NewDocxExporter(a.Config.Export.Docx.Dir, a.Config.Export.Docx.PublicBaseURL, a.Logger)
		if err != nil {
			return nil, err
		}
		return docx, nil
	default:
		client, err := feishu.NewClient(a.Config.Export.Feishu, a.Logger)
		if err != nil {
			return nil, err
		}
		a.Feishu = client
		return client, nil
	}
}

func newTokenizer(logger *zap.Logger) *wordcloud.Tokenizer {
	seg, err := wordcloud.NewGseSegmenter()
	if err != nil {
		logger.Warn("Dictionary segmenter unavailable, splitting on character runs", zap.Error(err))
		return wordcloud.NewTokenizer(wordcloud.RunSegmenter{}, wordcloud.Vocabulary)
	}
	return wordcloud.NewTokenizer(seg, wordcloud.Vocabulary)
}

// ProvidersInfo describes the chat providers of every configured stage
func (a *App) ProvidersInfo() map[string]interface{} {
	info := make(map[string]interface{}, len(a.stages))
	for name, stage := range a.stages {
		info[name] = stage.GetProvidersInfo()
	}
	return info
}

// Close releases providers and the database, last opened first
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
