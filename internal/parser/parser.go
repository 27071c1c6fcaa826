package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"go.uber.org/zap"
)

// Outcome tells whether a result came from the upstream answer or from a fallback
type Outcome int

const (
	Parsed Outcome = iota
	Defaulted
)

func (o Outcome) String() string {
	if o == Defaulted {
		return "defaulted"
	}
	return "parsed"
}

// Result carries a parsed or defaulted value. Reason is set only when Defaulted.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Reason  string
}

// Degraded reports whether the value is a fallback structure
func (r Result[T]) Degraded() bool {
	return r.Outcome == Defaulted
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)[ \\t]*\\r?\\n?(.*?)```")

	errNoPayload = errors.New("no structured payload in answer")
)

// ExtractJSON decodes the first ```json fenced block of raw into target,
// or the whole of raw when there is no such block or the block is malformed.
func ExtractJSON(raw string, target interface{}) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errNoPayload
	}

	var fenceErr error
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		fenceErr = json.Unmarshal([]byte(strings.TrimSpace(m[1])), target)
		if fenceErr == nil {
			return nil
		}
	}

	if err := json.Unmarshal([]byte(raw), target); err != nil {
		if fenceErr != nil {
			return fmt.Errorf("fenced block: %w", fenceErr)
		}
		return fmt.Errorf("answer is not JSON: %w", err)
	}
	return nil
}

// Parser turns free-form agent answers into type-stable structures.
// It never returns an error; failures are logged and replaced by fallbacks.
type Parser struct {
	logger *zap.Logger
}

// New creates a parser
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Clarify parses a clarify stage answer. callErr is the upstream call error, if any.
func (p *Parser) Clarify(raw string, callErr error, title string) Result[models.ClarifyResult] {
	if callErr != nil {
		return p.clarifyFallback(title, fmt.Sprintf("upstream call failed: %v", callErr))
	}

	var payload models.ClarifyResult
	if err := ExtractJSON(raw, &payload); err != nil {
		return p.clarifyFallback(title, err.Error())
	}

	questions := make([]models.ClarifyingQuestion, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		q.Title = strings.TrimSpace(q.Title)
		if q.Title == "" {
			continue
		}
		if q.Type == "" {
			q.Type = models.KindText
		}
		if q.Answer == nil {
			q.Answer = ""
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return p.clarifyFallback(title, "answer has no questions")
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		summary = DefaultClarifySummary(title)
	}

	return Result[models.ClarifyResult]{
		Value:   models.ClarifyResult{Summary: summary, Questions: questions},
		Outcome: Parsed,
	}
}

// Analysis parses an analyze stage answer. Both the object shape and a bare
// array of role comments are accepted.
func (p *Parser) Analysis(raw string, callErr error, title string) Result[models.AnalysisPayload] {
	if callErr != nil {
		return p.analysisFallback(title, fmt.Sprintf("upstream call failed: %v", callErr))
	}

	var payload models.AnalysisPayload
	if err := ExtractJSON(raw, &payload); err != nil {
		var comments []models.RoleComment
		if arrErr := ExtractJSON(raw, &comments); arrErr != nil {
			return p.analysisFallback(title, err.Error())
		}
		payload = models.AnalysisPayload{Comments: comments}
	}

	comments := make([]models.RoleComment, 0, len(payload.Comments))
	for _, c := range payload.Comments {
		c.Role = strings.TrimSpace(c.Role)
		c.Comment = strings.TrimSpace(c.Comment)
		if c.Role == "" && c.Comment == "" {
			continue
		}
		comments = append(comments, c)
	}
	if len(comments) == 0 {
		return p.analysisFallback(title, "answer has no role comments")
	}

	tags := make([]string, 0, len(payload.Tags))
	for _, tag := range payload.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return Result[models.AnalysisPayload]{
		Value: models.AnalysisPayload{
			Comments: comments,
			Tags:     tags,
			Report:   strings.TrimSpace(payload.Report),
		},
		Outcome: Parsed,
	}
}

func (p *Parser) clarifyFallback(title, reason string) Result[models.ClarifyResult] {
	p.logger.Warn("Using default clarify structure",
		zap.String("stage", "clarify"),
		zap.String("reason", reason))

	return Result[models.ClarifyResult]{
		Value:   DefaultClarify(title),
		Outcome: Defaulted,
		Reason:  reason,
	}
}

func (p *Parser) analysisFallback(title, reason string) Result[models.AnalysisPayload] {
	p.logger.Warn("Using default analysis structure",
		zap.String("stage", "analyze"),
		zap.String("reason", reason))

	return Result[models.AnalysisPayload]{
		Value:   DefaultAnalysis(title),
		Outcome: Defaulted,
		Reason:  reason,
	}
}
