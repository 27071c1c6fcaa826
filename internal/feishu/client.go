package feishu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hiqiancheng/PoliPlay/internal/export"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://open.feishu.cn/open-apis"
	DefaultDocBaseURL = "https://feishu.cn/docx"

	// children accepted per create-children call
	maxBlocksPerBatch = 50
)

// docx block types
const (
	blockTypeText     = 2
	blockTypeHeading1 = 3
	blockTypeHeading2 = 4
	blockTypeBullet   = 12
)

// Config holds Feishu application credentials and endpoints
type Config struct {
	AppID       string        `yaml:"app_id"`
	AppSecret   string        `yaml:"app_secret"`
	BaseURL     string        `yaml:"base_url"`
	DocBaseURL  string        `yaml:"doc_base_url"`
	FolderToken string        `yaml:"folder_token"`
	TokenMargin time.Duration `yaml:"token_margin"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Client creates Feishu docx documents from export documents
type Client struct {
	api         *apiClient
	tokens      *TokenSource
	docBaseURL  string
	folderToken string
	logger      *zap.Logger
}

// NewClient creates a Feishu client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, fmt.Errorf("feishu app_id and app_secret are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DocBaseURL == "" {
		cfg.DocBaseURL = DefaultDocBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api := &apiClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}

	logger.Info("Feishu client initialized",
		zap.String("base_url", api.baseURL),
		zap.Bool("folder", cfg.FolderToken != ""))

	return &Client{
		api:         api,
		tokens:      newTokenSource(api, cfg.AppID, cfg.AppSecret, cfg.TokenMargin, logger),
		docBaseURL:  strings.TrimRight(cfg.DocBaseURL, "/"),
		folderToken: cfg.FolderToken,
		logger:      logger,
	}, nil
}

func (c *Client) Name() string {
	return "feishu"
}

// Tokens exposes the token source, e.g. for a credentials check
func (c *Client) Tokens() *TokenSource {
	return c.tokens
}

type createDocumentRequest struct {
	Title       string `json:"title"`
	FolderToken string `json:"folder_token,omitempty"`
}

type createDocumentData struct {
	Document struct {
		DocumentID string `json:"document_id"`
		RevisionID int    `json:"revision_id"`
		Title      string `json:"title"`
	} `json:"document"`
}

type textElementStyle struct {
	Bold   bool `json:"bold,omitempty"`
	Italic bool `json:"italic,omitempty"`
}

type textRun struct {
	Content          string            `json:"content"`
	TextElementStyle *textElementStyle `json:"text_element_style,omitempty"`
}

type textElement struct {
	TextRun textRun `json:"text_run"`
}

type textBody struct {
	Elements []textElement `json:"elements"`
	Style    struct{}      `json:"style"`
}

type block struct {
	BlockType int       `json:"block_type"`
	Text      *textBody `json:"text,omitempty"`
	Heading1  *textBody `json:"heading1,omitempty"`
	Heading2  *textBody `json:"heading2,omitempty"`
	Bullet    *textBody `json:"bullet,omitempty"`
}

type createChildrenRequest struct {
	Children []block `json:"children"`
	Index    int     `json:"index"`
}

// Export creates a document titled doc.Title and appends its blocks
func (c *Client) Export(ctx context.Context, doc export.Document) (*export.Result, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var created createDocumentData
	err = c.api.call(ctx, http.MethodPost, "/docx/v1/documents", token, createDocumentRequest{
		Title:       doc.Title,
		FolderToken: c.folderToken,
	}, &created)
	if err != nil {
		c.dropRejectedToken(err)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	documentID := created.Document.DocumentID
	if documentID == "" {
		return nil, fmt.Errorf("failed to create document: empty document id")
	}

	// the page block of a new document has the document id
	path := fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children?document_revision_id=-1",
		url.PathEscape(documentID), url.PathEscape(documentID))

	blocks := convertBlocks(doc.Blocks)
	for start := 0; start < len(blocks); start += maxBlocksPerBatch {
		end := start + maxBlocksPerBatch
		if end > len(blocks) {
			end = len(blocks)
		}

		err := c.api.call(ctx, http.MethodPost, path, token, createChildrenRequest{
			Children: blocks[start:end],
			Index:    -1,
		}, nil)
		if err != nil {
			c.dropRejectedToken(err)
			c.logger.Warn("Feishu document left incomplete",
				zap.String("report_id", doc.ReportID),
				zap.String("document_id", documentID),
				zap.Int("blocks_written", start),
				zap.Int("blocks", len(blocks)),
				zap.Error(err))
			return nil, fmt.Errorf("failed to write document %s blocks %d-%d: %w", documentID, start, end, err)
		}
	}

	c.logger.Info("Report exported to Feishu",
		zap.String("report_id", doc.ReportID),
		zap.String("document_id", documentID),
		zap.Int("blocks", len(blocks)))

	return &export.Result{
		URL:        c.docBaseURL + "/" + documentID,
		DocumentID: documentID,
	}, nil
}

func (c *Client) dropRejectedToken(err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.tokenRejected() {
		c.tokens.Invalidate()
	}
}

func convertBlocks(in []export.Block) []block {
	out := make([]block, 0, len(in))
	for _, b := range in {
		body := &textBody{Elements: make([]textElement, 0, len(b.Runs))}
		for _, r := range b.Runs {
			el := textElement{TextRun: textRun{Content: r.Text}}
			if r.Bold || r.Italic {
				el.TextRun.TextElementStyle = &textElementStyle{Bold: r.Bold, Italic: r.Italic}
			}
			body.Elements = append(body.Elements, el)
		}

		switch b.Kind {
		case export.Heading1:
			out = append(out, block{BlockType: blockTypeHeading1, Heading1: body})
		case export.Heading2:
			out = append(out, block{BlockType: blockTypeHeading2, Heading2: body})
		case export.Bullet:
			out = append(out, block{BlockType: blockTypeBullet, Bullet: body})
		default:
			out = append(out, block{BlockType: blockTypeText, Text: body})
		}
	}
	return out
}
