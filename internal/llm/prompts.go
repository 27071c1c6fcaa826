package llm

import (
	"fmt"
	"strings"

	"github.com/hiqiancheng/PoliPlay/internal/models"
)

// ClarifySystemPrompt instructs general purpose models for the clarify stage
const ClarifySystemPrompt = `你是一名政策研究助理。阅读用户提供的政策标题和正文，概括政策主题，并提出3到6个帮助理解政策背景的细化问题。
只输出JSON，不要输出其他文字，格式如下：
{"summary": "政策主题总结", "questions": [{"title": "问题", "type": "text|single|multiple|boolean", "options": ["选项"], "placeholder": "填写提示"}]}
type为single或multiple时必须给出options。`

// AnalyzeSystemPrompt instructs general purpose models for the analyze stage
const AnalyzeSystemPrompt = `你是一名政策评估专家。根据政策正文和背景信息，从不同社会角色的视角评价该政策。
每个角色给出评论和0到5的整数评分，5表示非常支持，0表示强烈反对。
只输出JSON，不要输出其他文字，格式如下：
{"comments": [{"role": "角色", "comment": "评论", "score": 4}], "tags": ["不超过6个关键词"], "report": "多段落的详细分析，段落之间用换行分隔"}`

// BuildClarifyQuery is the clarify stage query of a policy
func BuildClarifyQuery(title, content string) string {
	return fmt.Sprintf("政策标题：%s\n政策内容：\n%s", title, content)
}

// BuildAnalyzeQuery is the analyze stage query with the answered questions as background
func BuildAnalyzeQuery(title, content string, questions []models.ClarifyingQuestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "政策标题：%s\n政策内容：\n%s\n", title, content)

	answered := 0
	for _, q := range questions {
		answer := q.AnswerText()
		if strings.TrimSpace(q.Title) == "" || answer == "" {
			continue
		}
		if answered == 0 {
			b.WriteString("\n背景信息：\n")
		}
		answered++
		fmt.Fprintf(&b, "%d. %s\n答：%s\n", answered, strings.TrimSpace(q.Title), answer)
	}

	return b.String()
}
