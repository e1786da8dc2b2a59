package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/entity"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
)

var ErrEmptyResponse = errors.New("no text content in anthropic response")

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Extract implements llm.Extractor with a single Messages API call.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) (entity.ExtractedFilingData, []byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"provider", "anthropic",
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"documents", len(req.Documents),
		"tax_year", req.TaxYear,
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
		"system":      llm.BuildSystemPrompt(),
		"messages": []map[string]any{
			{"role": "user", "content": llm.BuildUserPrompt(req)},
		},
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": APIVersion,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFilingData{}, nil, fmt.Errorf("anthropic request: %w", err)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return entity.ExtractedFilingData{}, raw, fmt.Errorf("decode anthropic response: %w", err)
	}

	var text strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		c.logger.Error("llm.extract.empty", "req_id", rid, "stop_reason", mr.StopReason)
		return entity.ExtractedFilingData{}, raw, ErrEmptyResponse
	}

	out, cleaned, err := llm.ParseFilingResponse([]byte(text.String()), req.FilingStatus, req.TaxYear, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ExtractedFilingData{}, cleaned, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"total_income", out.Income.TotalIncome,
		"stop_reason", mr.StopReason,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}
