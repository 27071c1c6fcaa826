package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hiqiancheng/PoliPlay/internal/export"
	"github.com/hiqiancheng/PoliPlay/internal/models"
	"github.com/hiqiancheng/PoliPlay/internal/report"

	"go.uber.org/zap"
)

// Export creates the external document of a report at most once.
//
// Concurrent calls for one report share a single flight. Inside it the stored
// export URL is read again right before the document is created, and the new
// URL is recorded with a set-once update. A writer from another process that
// wins the update leaves an orphan document behind; the stored URL is
// returned in that case.
func (s *policyService) Export(ctx context.Context, reportID string) (*models.ExportResult, error) {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, fmt.Errorf("%w: report id is required", ErrValidation)
	}
	if s.deps.Exporter == nil {
		return nil, fmt.Errorf("%w: no exporter configured", ErrExport)
	}

	// the document outlives the request that asked for it
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := s.exports.Do(reportID, func() (interface{}, error) {
		return s.exportOnce(flightCtx, reportID)
	})
	if err != nil {
		return nil, err
	}

	res := *v.(*models.ExportResult)
	if shared {
		s.logger.Debug("Export shared with a concurrent request", zap.String("report_id", reportID))
	}
	return &res, nil
}

func (s *policyService) exportOnce(ctx context.Context, reportID string) (*models.ExportResult, error) {
	r, err := s.deps.Reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, mapNotFound(err, "report", reportID)
	}
	if r.Exported() {
		return &models.ExportResult{URL: r.ExportURL, DocumentID: r.ExportDocID, Cached: true}, nil
	}

	report.Hydrate(r)
	created, err := s.deps.Exporter.Export(ctx, export.BuildDocument(r))
	if err != nil {
		s.logger.Error("Failed to export report",
			zap.String("report_id", reportID),
			zap.String("exporter", s.deps.Exporter.Name()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}

	stored, err := s.deps.Reports.SetExport(ctx, reportID, created.URL, created.DocumentID)
	if err != nil {
		s.logger.Error("Failed to record export",
			zap.String("report_id", reportID),
			zap.String("url", created.URL),
			zap.Error(err))
		return nil, fmt.Errorf("failed to record export of report %s: %w", reportID, err)
	}
	if !stored {
		winner, err := s.deps.Reports.GetReport(ctx, reportID)
		if err != nil {
			return nil, mapNotFound(err, "report", reportID)
		}
		s.logger.Warn("Report was exported concurrently, discarding new document",
			zap.String("report_id", reportID),
			zap.String("orphan_document_id", created.DocumentID),
			zap.String("url", winner.ExportURL))
		return &models.ExportResult{URL: winner.ExportURL, DocumentID: winner.ExportDocID, Cached: true}, nil
	}

	s.logger.Info("Report exported",
		zap.String("report_id", reportID),
		zap.String("exporter", s.deps.Exporter.Name()),
		zap.String("url", created.URL))

	return &models.ExportResult{URL: created.URL, DocumentID: created.DocumentID}, nil
}
