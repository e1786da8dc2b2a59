package vertex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
)

const (
	DefaultRegion = "us-central1"
	DefaultModel  = "gemini-1.5-pro"
)

var ErrEmptyResponse = errors.New("no text content in gemini response")

type Config struct {
	Project     string
	Region      string
	Model       string
	Temperature float32
}

// Client extracts filing data with Gemini on Vertex AI. The model is asked
// for application/json so the reply is the object itself.
type Client struct {
	base   *genai.Client
	model  *genai.GenerativeModel
	cfg    Config
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Project == "" {
		return nil, errors.New("vertex: project is required")
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	base, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := base.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(llm.BuildSystemPrompt())},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(cfg.Temperature),
	}

	logger.Info("llm.vertex.init", "project", cfg.Project, "region", cfg.Region, "model", cfg.Model)
	return &Client{base: base, model: model, cfg: cfg, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.base.Close()
}

// Extract implements llm.Extractor.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
	start := time.Now()
	c.logger.Info("llm.extract.start",
		"provider", "vertex",
		"model", c.cfg.Model,
		"documents", len(req.Documents),
		"tax_year", req.TaxYear,
	)

	resp, err := c.model.GenerateContent(ctx, genai.Text(llm.BuildUserPrompt(req)))
	if err != nil {
		c.logger.Error("llm.extract.generate_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedFilingData{}, nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return entity.ExtractedFilingData{}, nil, ErrEmptyResponse
	}

	out, cleaned, err := llm.ParseFilingResponse([]byte(text), req.FilingStatus, req.TaxYear, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.parse_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedFilingData{}, cleaned, err
	}

	c.logger.Info("llm.extract.ok",
		"provider", "vertex",
		"total_income", out.Income.TotalIncome,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
