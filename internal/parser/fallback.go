package parser

import (
	"fmt"

	"github.com/hiqiancheng/PoliPlay/internal/models"
)

// DefaultClarifySummary is used when the agent gives questions but no summary
func DefaultClarifySummary(title string) string {
	return fmt.Sprintf("这是关于\"%s\"的政策分析。该政策主要涉及经济发展、社会治理和环境保护等方面，旨在促进可持续发展和社会和谐。", title)
}

// DefaultClarify is the clarify stage fallback
func DefaultClarify(title string) models.ClarifyResult {
	return models.ClarifyResult{
		Summary: DefaultClarifySummary(title),
		Questions: []models.ClarifyingQuestion{
			{
				Title:       "该政策适用的地区范围是？",
				Type:        models.KindText,
				Placeholder: "例如：全国范围、某省、某市等",
				Answer:      "",
			},
			{
				Title:       "该政策的实施时间是？",
				Type:        models.KindText,
				Placeholder: "例如：2023年1月1日起实施",
				Answer:      "",
			},
			{
				Title:       "该政策的主要目标人群是？",
				Type:        models.KindText,
				Placeholder: "例如：青年创业者、农村居民、高新技术企业等",
				Answer:      "",
			},
			{
				Title:       "该政策的背景和出台原因是？",
				Type:        models.KindText,
				Placeholder: "例如：应对经济下行压力、促进产业转型升级等",
				Answer:      "",
			},
			{
				Title:       "该政策与现有政策的关系是？",
				Type:        models.KindText,
				Placeholder: "例如：是对某政策的补充、替代或完善",
				Answer:      "",
			},
		},
	}
}

// DefaultAnalysis is the analyze stage fallback
func DefaultAnalysis(title string) models.AnalysisPayload {
	return models.AnalysisPayload{
		Comments: []models.RoleComment{
			{
				Role:    "政府部门",
				Score:   4,
				Comment: "政策方向明确，符合当前发展需要，建议尽快完善配套实施细则，明确各部门职责分工。",
			},
			{
				Role:    "企业代表",
				Score:   3,
				Comment: "政策总体有利于营造良好的营商环境，但希望进一步明确扶持标准和申报流程，降低企业参与成本。",
			},
			{
				Role:    "市民代表",
				Score:   4,
				Comment: "政策关注民生改善，希望在实施过程中多听取群众意见，确保政策红利切实惠及普通居民。",
			},
			{
				Role:    "专家学者",
				Score:   5,
				Comment: "政策设计具有前瞻性，建议建立动态评估机制，根据实施效果及时调整完善相关措施。",
			},
			{
				Role:    "基层工作人员",
				Score:   3,
				Comment: "政策执行需要充足的人力和经费保障，建议加强基层培训，提高政策落实效率。",
			},
			{
				Role:    "财政部门",
				Score:   2,
				Comment: "政策实施涉及较大财政投入，需要充分评估财政承受能力，建议分阶段推进并加强资金监管。",
			},
		},
		Tags: []string{"经济发展", "社会治理", "民生改善", "政策落实", "创新驱动"},
		Report: fmt.Sprintf("《%s》是一项重要的政策举措，旨在解决当前面临的关键挑战。\n"+
			"从各方反馈来看，政策整体获得积极评价，但在实施细节、资金保障和执行效率方面仍存在一定关注。\n"+
			"建议建立健全配套制度，加强部门协同与监督评估，确保政策有效落实。", title),
	}
}
