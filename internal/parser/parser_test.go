package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hiqiancheng/PoliPlay/internal/models"

	"go.uber.org/zap"
)

func TestExtractJSON_FencedBlock(t *testing.T) {
	raw := "以下是分析结果：\n```json\n{\"summary\": \"总结\", \"questions\": []}\n```\n谢谢"

	var out models.ClarifyResult
	if err := ExtractJSON(raw, &out); err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	if out.Summary != "总结" {
		t.Errorf("Expected summary 总结, got %q", out.Summary)
	}
}

func TestExtractJSON_WholeText(t *testing.T) {
	var out map[string]interface{}
	if err := ExtractJSON(`  {"a": 1}  `, &out); err != nil {
		t.Fatalf("ExtractJSON failed: %v", err)
	}
	if out["a"] != float64(1) {
		t.Errorf("Unexpected payload: %v", out)
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	inputs := []string{"", "not json", "```json\n{broken\n```"}
	for _, in := range inputs {
		var out map[string]interface{}
		if err := ExtractJSON(in, &out); err == nil {
			t.Errorf("ExtractJSON(%q): expected error", in)
		}
	}
}

func TestParser_Clarify_Parsed(t *testing.T) {
	p := New(zap.NewNop())
	raw := "```json\n" + `{
  "summary": "新能源汽车政策摘要",
  "questions": [
    {"title": "适用地区？", "type": "single", "options": ["全国", "本市"]},
    {"title": "  "},
    {"title": "是否含补贴？", "type": "boolean"}
  ]
}` + "\n```"

	res := p.Clarify(raw, nil, "新能源汽车")
	if res.Degraded() {
		t.Fatalf("Expected parsed result, got defaulted: %s", res.Reason)
	}
	if res.Value.Summary != "新能源汽车政策摘要" {
		t.Errorf("Unexpected summary: %q", res.Value.Summary)
	}
	if len(res.Value.Questions) != 2 {
		t.Fatalf("Expected 2 questions after dropping blank title, got %d", len(res.Value.Questions))
	}
	if res.Value.Questions[0].Type != models.KindSingle {
		t.Errorf("Expected single kind, got %q", res.Value.Questions[0].Type)
	}
	if res.Value.Questions[1].Answer != "" {
		t.Errorf("Expected empty answer default, got %v", res.Value.Questions[1].Answer)
	}
}

func TestParser_Clarify_MissingSummaryIsFilled(t *testing.T) {
	p := New(zap.NewNop())
	res := p.Clarify(`{"questions": [{"title": "实施时间？"}]}`, nil, "标题")
	if res.Degraded() {
		t.Fatalf("Expected parsed result")
	}
	if res.Value.Summary != DefaultClarifySummary("标题") {
		t.Errorf("Expected default summary, got %q", res.Value.Summary)
	}
	if res.Value.Questions[0].Type != models.KindText {
		t.Errorf("Expected text kind default, got %q", res.Value.Questions[0].Type)
	}
}

func TestParser_Clarify_NotJSON(t *testing.T) {
	p := New(zap.NewNop())
	res := p.Clarify("not json", nil, "标题")

	if !res.Degraded() {
		t.Fatal("Expected defaulted result")
	}
	if res.Reason == "" {
		t.Error("Expected a reason for the fallback")
	}
	if !reflect.DeepEqual(res.Value, DefaultClarify("标题")) {
		t.Error("Expected the default clarify structure")
	}
	if len(res.Value.Questions) != 5 {
		t.Errorf("Expected 5 default questions, got %d", len(res.Value.Questions))
	}
}

func TestParser_Clarify_UpstreamError(t *testing.T) {
	p := New(nil)
	res := p.Clarify("", errors.New("timeout"), "标题")
	if !res.Degraded() {
		t.Fatal("Expected defaulted result on upstream error")
	}
}

func TestParser_Analysis_Object(t *testing.T) {
	p := New(zap.NewNop())
	raw := `{
  "comments": [
    {"role": "企业代表", "comment": "支持", "score": 5},
    {"role": "市民", "comment": "担忧", "score": "1"},
    {"role": "", "comment": ""}
  ],
  "tags": ["营商环境", " ", "数字政府"],
  "report": "  第一段\n第二段  "
}`

	res := p.Analysis(raw, nil, "标题")
	if res.Degraded() {
		t.Fatalf("Expected parsed result, got defaulted: %s", res.Reason)
	}
	if len(res.Value.Comments) != 2 {
		t.Fatalf("Expected 2 comments, got %d", len(res.Value.Comments))
	}
	if res.Value.Comments[1].Score != 1 {
		t.Errorf("Expected string score parsed to 1, got %d", res.Value.Comments[1].Score)
	}
	if !reflect.DeepEqual(res.Value.Tags, []string{"营商环境", "数字政府"}) {
		t.Errorf("Unexpected tags: %v", res.Value.Tags)
	}
	if res.Value.Report != "第一段\n第二段" {
		t.Errorf("Unexpected report: %q", res.Value.Report)
	}
}

func TestParser_Analysis_BareArray(t *testing.T) {
	p := New(zap.NewNop())
	raw := "```json\n[{\"role\": \"专家\", \"comment\": \"可行\", \"score\": 4}]\n```"

	res := p.Analysis(raw, nil, "标题")
	if res.Degraded() {
		t.Fatalf("Expected parsed result, got defaulted: %s", res.Reason)
	}
	if len(res.Value.Comments) != 1 || res.Value.Comments[0].Role != "专家" {
		t.Errorf("Unexpected comments: %+v", res.Value.Comments)
	}
	if res.Value.Tags == nil {
		t.Error("Expected non-nil tags slice")
	}
}

func TestParser_Analysis_Fallbacks(t *testing.T) {
	p := New(zap.NewNop())
	tests := []struct {
		name    string
		raw     string
		callErr error
	}{
		{"not json", "not json", nil},
		{"empty comments", `{"comments": [], "tags": ["a"]}`, nil},
		{"wrong shape", `{"foo": 1}`, nil},
		{"upstream error", "", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Analysis(tt.raw, tt.callErr, "标题")
			if !res.Degraded() {
				t.Fatal("Expected defaulted result")
			}
			if !reflect.DeepEqual(res.Value, DefaultAnalysis("标题")) {
				t.Error("Expected the default analysis structure")
			}
		})
	}
}

func TestDefaultAnalysis_IsComplete(t *testing.T) {
	def := DefaultAnalysis("标题")
	if len(def.Comments) == 0 || len(def.Tags) == 0 || def.Report == "" {
		t.Errorf("Default analysis is incomplete: %+v", def)
	}
	for _, c := range def.Comments {
		if c.Score < models.MinScore || c.Score > models.MaxScore {
			t.Errorf("Default score out of range: %d", c.Score)
		}
	}
}
