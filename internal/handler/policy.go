package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error messages shown to the web client
const (
	msgDocumentRequired = "标题和内容不能为空"
	msgAnswersRequired  = "提交的政策信息不完整"
	msgReportIDRequired = "报告ID不能为空"
	msgPolicyNotFound   = "未找到该政策"
	msgReportNotFound   = "未找到该报告"
	msgExportFailed     = "导出到飞书失败，请重试"
	msgExportCached     = "文档已存在，直接返回"
	msgExportCreated    = "文档创建成功"
)

const maxListLimit = 500

type PolicyHandler interface {
	AnalyzePolicy(c *gin.Context)
	AnalyzeDetailedPolicy(c *gin.Context)
	GetPolicy(c *gin.Context)
	ListPolicies(c *gin.Context)
	GetReport(c *gin.Context)
	GetPolicyReport(c *gin.Context)
	ExportReport(c *gin.Context)
}

type policyHandler struct {
	svc    service.PolicyService
	logger *zap.Logger
}

func NewPolicyHandler(svc service.PolicyService, logger *zap.Logger) PolicyHandler {
	return &policyHandler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the policy API on r
func RegisterRoutes(r gin.IRouter, h PolicyHandler) {
	api := r.Group("/api")
	{
		api.POST("/policy/analyze", h.AnalyzePolicy)
		api.POST("/policy/analyze-detailed", h.AnalyzeDetailedPolicy)
		api.POST("/policy/export-to-feishu", h.ExportReport)
		api.GET("/policy/report/:id", h.GetReport)
		api.GET("/policy/:id", h.GetPolicy)
		api.GET("/policy/:id/report", h.GetPolicyReport)
		api.GET("/policies", h.ListPolicies)
	}
}

// AnalyzePolicy handles POST /api/policy/analyze
func (h *policyHandler) AnalyzePolicy(c *gin.Context) {
	var req models.SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgDocumentRequired})
		return
	}

	res, err := h.svc.SubmitDocument(c.Request.Context(), req.Title, req.Content)
	if err != nil {
		h.fail(c, err, msgDocumentRequired, "")
		return
	}

	c.JSON(http.StatusOK, res)
}

// AnalyzeDetailedPolicy handles POST /api/policy/analyze-detailed
func (h *policyHandler) AnalyzeDetailedPolicy(c *gin.Context) {
	var req models.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgAnswersRequired})
		return
	}

	report, err := h.svc.SubmitAnswers(c.Request.Context(), req.Title, req.Content, req.Analysis)
	if err != nil {
		h.fail(c, err, msgAnswersRequired, "")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetPolicy handles GET /api/policy/:id
func (h *policyHandler) GetPolicy(c *gin.Context) {
	policy, err := h.svc.GetPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "", msgPolicyNotFound)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// ListPolicies handles GET /api/policies?limit=N
func (h *policyHandler) ListPolicies(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	policies, err := h.svc.ListPolicies(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies})
}

// GetReport handles GET /api/policy/report/:id
func (h *policyHandler) GetReport(c *gin.Context) {
	report, err := h.svc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "", msgReportNotFound)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetPolicyReport handles GET /api/policy/:id/report
func (h *policyHandler) GetPolicyReport(c *gin.Context) {
	report, err := h.svc.GetReportByPolicy(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "", msgReportNotFound)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportReport handles POST /api/policy/export-to-feishu
func (h *policyHandler) ExportReport(c *gin.Context) {
	var req models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgReportIDRequired})
		return
	}

	res, err := h.svc.Export(c.Request.Context(), req.ReportID)
	if err != nil {
		h.fail(c, err, msgReportIDRequired, msgReportNotFound)
		return
	}

	message := msgExportCreated
	if res.Cached {
		message = msgExportCached
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"feishuUrl":  res.URL,
		"documentId": res.DocumentID,
		"cached":     res.Cached,
	})
}

// fail maps service errors to status codes
func (h *policyHandler) fail(c *gin.Context, err error, validationMsg, notFoundMsg string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		if validationMsg == "" {
			validationMsg = err.Error()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMsg})
	case errors.Is(err, service.ErrNotFound):
		if notFoundMsg == "" {
			notFoundMsg = "Not found"
		}
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
	case errors.Is(err, service.ErrExport):
		h.logger.Error("Export failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": msgExportFailed})
	default:
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
