package report

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/wordcloud"
)

func newTestAssembler() *Assembler {
	tok := wordcloud.NewTokenizer(wordcloud.RunSegmenter{}, wordcloud.Vocabulary)
	return NewAssembler(wordcloud.NewBuilder(tok))
}

var testPolicy = &models.PolicyDocument{ID: "p-1", Title: "优化营商环境条例"}

func TestAssemble_WithComments(t *testing.T) {
	a := newTestAssembler()
	payload := models.AnalysisPayload{
		Comments: []models.RoleComment{
			{Role: "企业代表", Comment: "营商环境 明显改善", Score: 5},
			{Role: "市民", Comment: "办事 仍然繁琐", Score: 1},
			{Role: "专家", Comment: "营商环境 需要 长期投入", Score: 3},
		},
		Tags:   []string{"营商环境", "放管服", "营商环境", "数字政府", "中小企业", "简政放权", "一网通办", "法治"},
		Report: "第一段分析\n\n  第二段分析 ",
	}
	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	r := a.Assemble("r-1", testPolicy, payload, at)

	if r.ID != "r-1" || r.PolicyID != "p-1" || !r.GeneratedAt.Equal(at) {
		t.Errorf("Unexpected identity fields: %+v", r)
	}
	if r.Title != "《优化营商环境条例》分析报告" {
		t.Errorf("Unexpected title: %q", r.Title)
	}
	if r.SupportRate != 33 || r.OpposeRate != 33 {
		t.Errorf("Unexpected rates: %d/%d", r.SupportRate, r.OpposeRate)
	}
	if r.Summary != "本政策共收到3个不同角色的评论，支持率33%，反对率33%。" {
		t.Errorf("Unexpected summary: %q", r.Summary)
	}
	wantTags := []string{"营商环境", "放管服", "数字政府", "中小企业", "简政放权", "一网通办"}
	if !reflect.DeepEqual(r.Tags, wantTags) {
		t.Errorf("Tags = %v, want %v", r.Tags, wantTags)
	}
	if len(r.WordCloud) == 0 || r.WordCloud[0].Text != "营商环境" || r.WordCloud[0].Weight != 2 {
		t.Errorf("Unexpected word cloud head: %v", r.WordCloud)
	}
	if !strings.Contains(r.AnalysisHTML, "<h4>详细分析</h4><p>第一段分析</p><p>第二段分析</p>") {
		t.Errorf("Narrative not rendered as paragraphs: %s", r.AnalysisHTML)
	}
}

func TestAssemble_NoComments(t *testing.T) {
	a := newTestAssembler()
	r := a.Assemble("r-2", testPolicy, models.AnalysisPayload{}, time.Time{})

	if r.SupportRate != 0 || r.OpposeRate != 0 {
		t.Errorf("Expected zero rates, got %d/%d", r.SupportRate, r.OpposeRate)
	}
	if r.Summary != NoCommentsSummary {
		t.Errorf("Expected fallback summary, got %q", r.Summary)
	}
	if r.Narrative != NarrativePlaceholder {
		t.Errorf("Expected placeholder narrative, got %q", r.Narrative)
	}
	if strings.Contains(r.AnalysisHTML, "详细分析") {
		t.Errorf("Placeholder narrative must not be rendered: %s", r.AnalysisHTML)
	}
	if r.Comments == nil {
		t.Error("Expected non-nil comments")
	}
	if len(r.WordCloud) != wordcloud.DefaultMinEntries {
		t.Errorf("Expected backfilled word cloud, got %v", r.WordCloud)
	}
}

func TestAssemble_TagsDerivedFromWordCloud(t *testing.T) {
	a := newTestAssembler()
	payload := models.AnalysisPayload{
		Comments: []models.RoleComment{{Role: "专家", Comment: "改革 改革 创新", Score: 4}},
	}
	r := a.Assemble("r-3", testPolicy, payload, time.Time{})

	if len(r.Tags) != DerivedTags {
		t.Fatalf("Expected %d derived tags, got %v", DerivedTags, r.Tags)
	}
	for i, tag := range r.Tags {
		if tag != r.WordCloud[i].Text {
			t.Errorf("Tag %d = %q, want %q", i, tag, r.WordCloud[i].Text)
		}
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := newTestAssembler()
	payload := models.AnalysisPayload{
		Comments: []models.RoleComment{
			{Role: "甲", Comment: "支持 改革 创新 发展", Score: 4},
			{Role: "乙", Comment: "反对 改革 过快", Score: 2},
		},
		Tags:   []string{"改革"},
		Report: "分析 正文",
	}
	at := time.Unix(1700000000, 0).UTC()

	first := a.Assemble("r", testPolicy, payload, at)
	second := a.Assemble("r", testPolicy, payload, at)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Assemble is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestRenderHTML_Escapes(t *testing.T) {
	got := RenderHTML([]models.RoleComment{
		{Role: "<script>", Comment: "a & b", Score: 4},
	}, "line <1>")

	want := "<h4>角色评论</h4><ul><li><b>&lt;script&gt;</b>（4分）：a &amp; b</li></ul>" +
		"<h4>详细分析</h4><p>line &lt;1&gt;</p>"
	if got != want {
		t.Errorf("RenderHTML() =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderHTML_Empty(t *testing.T) {
	got := RenderHTML(nil, "")
	if got != "<h4>角色评论</h4><p>暂无角色评论</p>" {
		t.Errorf("Unexpected empty rendering: %s", got)
	}
}

func TestHydrate(t *testing.T) {
	r := &models.PolicyReport{
		Comments: []models.RoleComment{{Score: 5}, {Score: 4}, {Score: 0}},
	}
	Hydrate(r)
	if r.SupportRate != 67 || r.OpposeRate != 33 {
		t.Errorf("Unexpected rates after hydrate: %d/%d", r.SupportRate, r.OpposeRate)
	}
}
