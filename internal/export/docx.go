package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gingfrederik/docx"
	"go.uber.org/zap"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// DocxExporter writes reports as .docx files into a directory that the
// server publishes under /exports/
type DocxExporter struct {
	dir           string
	publicBaseURL string
	logger        *zap.Logger
}

// NewDocxExporter creates the output directory if needed
func NewDocxExporter(dir, publicBaseURL string, logger *zap.Logger) (*DocxExporter, error) {
	if dir == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocxExporter{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}, nil
}

func (e *DocxExporter) Name() string {
	return "docx"
}

// Export saves doc as <report id>.docx
func (e *DocxExporter) Export(ctx context.Context, doc Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := unsafeFileChars.ReplaceAllString(doc.ReportID, "_")
	if id == "" {
		return nil, fmt.Errorf("report id is required")
	}

	f := docx.NewFile()
	for _, block := range doc.Blocks {
		p := f.AddParagraph()
		prefix := ""
		if block.Kind == Bullet {
			prefix = "• "
		}
		for i, r := range block.Runs {
			content := r.Text
			if i == 0 {
				content = prefix + content
			}
			run := p.AddText(content)
			switch block.Kind {
			case Heading1:
				run.Size(20)
			case Heading2:
				run.Size(16)
			}
			if r.Italic {
				run.Color("808080")
			}
		}
		if block.Kind == Heading1 || block.Kind == Heading2 {
			f.AddParagraph() // Spacer
		}
	}

	name := id + ".docx"
	path := filepath.Join(e.dir, name)
	if err := f.Save(path); err != nil {
		return nil, fmt.Errorf("failed to save docx: %w", err)
	}

	e.logger.Info("Report exported to docx",
		zap.String("report_id", doc.ReportID),
		zap.String("path", path))

	return &Result{
		URL:        e.publicBaseURL + "/exports/" + name,
		DocumentID: id,
	}, nil
}
