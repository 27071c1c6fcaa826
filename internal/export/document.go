package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/report"
	"github.com/hiqiancheng/PoliPlay/internal/sentiment"
)

// BlockKind is the layout role of a block
type BlockKind int

const (
	Heading1 BlockKind = iota
	Heading2
	Text
	Bullet
)

func (k BlockKind) String() string {
	switch k {
	case Heading1:
		return "heading1"
	case Heading2:
		return "heading2"
	case Bullet:
		return "bullet"
	default:
		return "text"
	}
}

// Run is a styled piece of text
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

// Block is one paragraph of an export document
type Block struct {
	Kind BlockKind
	Runs []Run
}

// PlainText joins the runs of b
func (b Block) PlainText() string {
	var s strings.Builder
	for _, r := range b.Runs {
		s.WriteString(r.Text)
	}
	return s.String()
}

// Document is the layout of an exported report, independent of the target format
type Document struct {
	ReportID string
	Title    string
	Blocks   []Block
}

// Section headings in document order
const (
	SectionSummary        = "执行摘要"
	SectionSentiment      = "民意分析"
	SectionTags           = "政策标签"
	SectionAnalysis       = "详细分析"
	SectionOpinions       = "各方观点"
	SectionRecommendation = "结论建议"
)

var timeZone = time.FixedZone("CST", 8*3600)

func heading(kind BlockKind, text string) Block {
	return Block{Kind: kind, Runs: []Run{{Text: text, Bold: true}}}
}

func text(s string) Block {
	return Block{Kind: Text, Runs: []Run{{Text: s}}}
}

func bullet(label, value string) Block {
	return Block{Kind: Bullet, Runs: []Run{{Text: label, Bold: true}, {Text: value}}}
}

// BuildDocument lays out r in the fixed section order
func BuildDocument(r *models.PolicyReport) Document {
	stats := sentiment.Aggregate(r.Comments)

	blocks := []Block{
		heading(Heading1, r.Title),
		{Kind: Text, Runs: []Run{{
			Text:   "生成时间：" + r.GeneratedAt.In(timeZone).Format("2006-01-02 15:04:05"),
			Italic: true,
		}}},

		heading(Heading2, SectionSummary),
		text(r.Summary),

		heading(Heading2, SectionSentiment),
		bullet("支持率：", fmt.Sprintf("%d%%", stats.SupportRate)),
		bullet("反对率：", fmt.Sprintf("%d%%", stats.OpposeRate)),
		bullet("中立率：", fmt.Sprintf("%d%%", stats.NeutralRate())),
		bullet("评论数量：", fmt.Sprintf("%d条", stats.Total)),

		heading(Heading2, SectionTags),
	}

	if len(r.Tags) > 0 {
		blocks = append(blocks, text(strings.Join(r.Tags, "、")))
	} else {
		blocks = append(blocks, text("暂无标签"))
	}

	blocks = append(blocks,
		heading(Heading2, SectionAnalysis),
		bullet("综合评分：", fmt.Sprintf("%.1f/5.0", stats.AverageScore())),
		bullet("参与角色：", fmt.Sprintf("%d个", stats.Total)),
		bullet("政策复杂度：", ComplexityLabel(len(r.Tags))),
	)
	if narrative := strings.TrimSpace(r.Narrative); narrative != "" && narrative != report.NarrativePlaceholder {
		for _, line := range strings.Split(narrative, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				blocks = append(blocks, text(line))
			}
		}
	}

	blocks = append(blocks, heading(Heading2, SectionOpinions))
	if len(r.Comments) == 0 {
		blocks = append(blocks, text("暂无角色评论"))
	}
	for _, c := range r.Comments {
		blocks = append(blocks,
			Block{Kind: Text, Runs: []Run{
				{Text: c.Role, Bold: true},
				{Text: fmt.Sprintf(" %s（%d分）", Stars(c.Score), c.Score)},
			}},
			text(c.Comment),
		)
	}

	blocks = append(blocks,
		heading(Heading2, SectionRecommendation),
		text(Recommendation(stats.SupportRate, stats.OpposeRate)),
	)

	return Document{ReportID: r.ID, Title: r.Title, Blocks: blocks}
}

// Stars renders a score as filled and empty stars
func Stars(score models.Score) string {
	n := int(models.ClampScore(int(score)))
	return strings.Repeat("★", n) + strings.Repeat("☆", models.MaxScore-n)
}

// ComplexityLabel grades a policy by how many topics it touches
func ComplexityLabel(tagCount int) string {
	switch {
	case tagCount >= 5:
		return "高"
	case tagCount >= 3:
		return "中"
	default:
		return "低"
	}
}

// Recommendation picks the closing advice from the sentiment bands, first match wins
func Recommendation(supportRate, opposeRate int) string {
	switch {
	case supportRate >= 70 && opposeRate <= 20:
		return "该政策获得广泛支持，社会共识度高，建议按计划推进实施，并做好配套措施与宣传解读工作。"
	case supportRate >= 50:
		return "该政策总体获得多数支持，但仍存在部分关切，建议在实施过程中充分听取各方意见，及时优化完善。"
	case opposeRate >= 50:
		return "该政策争议较大，反对意见集中，建议暂缓实施，深入调研并重新评估政策方案。"
	default:
		return "各方观点分歧明显，建议进一步开展调研论证，广泛征求意见后再作决策。"
	}
}
