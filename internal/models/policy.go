package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// QuestionKind is the input kind of a clarifying question
type QuestionKind string

const (
	KindText     QuestionKind = "text"
	KindSingle   QuestionKind = "single"
	KindMultiple QuestionKind = "multiple"
	KindBoolean  QuestionKind = "boolean"
)

// Score bounds for a role comment
const (
	MinScore = 0
	MaxScore = 5
)

// PolicyDocument is a submitted policy, immutable once stored
type PolicyDocument struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Content    string             `json:"content"`
	Background []BackgroundAnswer `json:"background"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// BackgroundAnswer is one answered clarifying question kept with the document
type BackgroundAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ClarifyingQuestion is produced by the clarify stage and answered by the user.
// Answer holds a string for text/single, a list for multiple and a bool for boolean.
type ClarifyingQuestion struct {
	Title       string       `json:"title"`
	Type        QuestionKind `json:"type,omitempty"`
	Options     []string     `json:"options,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Answer      interface{}  `json:"answer"`
}

// AnswerText flattens the answer into the text sent upstream and stored as background
func (q ClarifyingQuestion) AnswerText() string {
	switch v := q.Answer.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		if v {
			return "是"
		}
		return "否"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, "、")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprint(item))
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "、")
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// ClarifyResult is the clarify stage output: a summary and follow-up questions
type ClarifyResult struct {
	Summary   string               `json:"summary"`
	Questions []ClarifyingQuestion `json:"questions"`
}

// Score is a role comment score clamped to [MinScore, MaxScore].
// Upstream answers sometimes carry it as a float or a numeric string.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	var f float64
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", str, err)
		}
		f = parsed
	} else if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid score %s: %w", string(data), err)
	}

	*s = ClampScore(int(math.Round(f)))
	return nil
}

// ClampScore bounds v to the score range
func ClampScore(v int) Score {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return Score(v)
}

// RoleComment is one stakeholder opinion from the analyze stage
type RoleComment struct {
	Role    string `json:"role"`
	Comment string `json:"comment"`
	Score   Score  `json:"score"`
}

// WordCloudEntry is a ranked term; Weight is a frequency or a synthetic rank
type WordCloudEntry struct {
	Text   string `json:"text"`
	Weight int    `json:"weight"`
}

// AnalysisPayload is the analyze stage output after parsing
type AnalysisPayload struct {
	Comments []RoleComment `json:"comments"`
	Tags     []string      `json:"tags"`
	Report   string        `json:"report"`
}

// PolicyReport is the assembled analysis of a PolicyDocument.
// SupportRate and OpposeRate are derived from Comments and are not persisted.
type PolicyReport struct {
	ID           string           `json:"id"`
	PolicyID     string           `json:"policyId"`
	Title        string           `json:"title"`
	Summary      string           `json:"summary"`
	SupportRate  int              `json:"supportRate"`
	OpposeRate   int              `json:"opposeRate"`
	Tags         []string         `json:"tags"`
	WordCloud    []WordCloudEntry `json:"wordCloud"`
	Narrative    string           `json:"narrative"`
	AnalysisHTML string           `json:"analysisHtml"`
	Comments     []RoleComment    `json:"comments"`
	ExportURL    string           `json:"feishuDocUrl,omitempty"`
	ExportDocID  string           `json:"feishuDocId,omitempty"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}

// Exported reports whether an export document was already recorded
func (r *PolicyReport) Exported() bool {
	return r.ExportURL != ""
}

// SubmitDocumentRequest starts the clarify stage
type SubmitDocumentRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// SubmitAnswersRequest carries the answered questions into the analyze stage
type SubmitAnswersRequest struct {
	Title    string         `json:"title" binding:"required"`
	Content  string         `json:"content" binding:"required"`
	Analysis *ClarifyResult `json:"analysis" binding:"required"`
}

// ExportRequest asks for an external document of a report
type ExportRequest struct {
	ReportID string `json:"reportId" binding:"required"`
}

// ExportResult identifies the external document of a report
type ExportResult struct {
	URL        string `json:"url"`
	DocumentID string `json:"documentId"`
	Cached     bool   `json:"cached"`
}
