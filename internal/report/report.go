package report

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/sentiment"
	"github.com/hiqiancheng/PoliPlay/internal/wordcloud"
)

const (
	// NarrativePlaceholder marks an analysis without a usable narrative
	NarrativePlaceholder = "暂无详细分析报告"

	// NoCommentsSummary is used when there are no comments to count
	NoCommentsSummary = "暂未收到有效的角色评论，无法统计支持率与反对率。"

	MaxTags     = 6
	DerivedTags = 5
)

// Title is the report title of a policy
func Title(policyTitle string) string {
	return fmt.Sprintf("《%s》分析报告", policyTitle)
}

// Summary is the one-sentence digest of the sentiment stats
func Summary(stats sentiment.Stats) string {
	if stats.Total == 0 {
		return NoCommentsSummary
	}
	return fmt.Sprintf("本政策共收到%d个不同角色的评论，支持率%d%%，反对率%d%%。",
		stats.Total, stats.SupportRate, stats.OpposeRate)
}

// Assembler combines analysis output into a report
type Assembler struct {
	words *wordcloud.Builder
}

// NewAssembler creates an assembler; a nil builder uses the default word cloud builder
func NewAssembler(words *wordcloud.Builder) *Assembler {
	if words == nil {
		words = wordcloud.NewBuilder(nil)
	}
	return &Assembler{words: words}
}

// Assemble builds the report of policy from an analysis payload. The result
// depends only on its arguments.
func (a *Assembler) Assemble(id string, policy *models.PolicyDocument, payload models.AnalysisPayload, generatedAt time.Time) *models.PolicyReport {
	comments := payload.Comments
	if comments == nil {
		comments = []models.RoleComment{}
	}
	narrative := strings.TrimSpace(payload.Report)
	if narrative == "" {
		narrative = NarrativePlaceholder
	}

	stats := sentiment.Aggregate(comments)
	cloud := a.words.Build(wordCloudText(comments, narrative), payload.Tags)

	return &models.PolicyReport{
		ID:           id,
		PolicyID:     policy.ID,
		Title:        Title(policy.Title),
		Summary:      Summary(stats),
		SupportRate:  stats.SupportRate,
		OpposeRate:   stats.OpposeRate,
		Tags:         pickTags(payload.Tags, cloud),
		WordCloud:    cloud,
		Narrative:    narrative,
		AnalysisHTML: RenderHTML(comments, narrative),
		Comments:     comments,
		GeneratedAt:  generatedAt,
	}
}

// Hydrate recomputes the derived rates of a stored report from its comments
func Hydrate(r *models.PolicyReport) {
	stats := sentiment.Aggregate(r.Comments)
	r.SupportRate = stats.SupportRate
	r.OpposeRate = stats.OpposeRate
}

func wordCloudText(comments []models.RoleComment, narrative string) string {
	var b strings.Builder
	for _, c := range comments {
		b.WriteString(c.Comment)
		b.WriteByte('\n')
	}
	if hasNarrative(narrative) {
		b.WriteString(narrative)
	}
	return b.String()
}

func pickTags(upstream []string, cloud []models.WordCloudEntry) []string {
	tags := make([]string, 0, MaxTags)
	seen := make(map[string]struct{})
	for _, t := range upstream {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
		if len(tags) == MaxTags {
			return tags
		}
	}
	if len(tags) > 0 {
		return tags
	}

	for i := 0; i < len(cloud) && i < DerivedTags; i++ {
		tags = append(tags, cloud[i].Text)
	}
	return tags
}

func hasNarrative(narrative string) bool {
	narrative = strings.TrimSpace(narrative)
	return narrative != "" && narrative != NarrativePlaceholder
}

// RenderHTML lists the role comments and appends the narrative one
// paragraph per line. All text is escaped.
func RenderHTML(comments []models.RoleComment, narrative string) string {
	var b strings.Builder

	b.WriteString("<h4>角色评论</h4>")
	if len(comments) == 0 {
		b.WriteString("<p>暂无角色评论</p>")
	} else {
		b.WriteString("<ul>")
		for _, c := range comments {
			fmt.Fprintf(&b, "<li><b>%s</b>（%d分）：%s</li>",
				html.EscapeString(c.Role), c.Score, html.EscapeString(c.Comment))
		}
		b.WriteString("</ul>")
	}

	if hasNarrative(narrative) {
		b.WriteString("<h4>详细分析</h4>")
		for _, line := range strings.Split(narrative, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(line))
			}
		}
	}

	return b.String()
}
