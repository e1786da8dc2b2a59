package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm/anthropic"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseConfig() *common.Config {
	return &common.Config{
		Server:     common.ServerConfig{HTTPAddr: ":0"},
		Store:      common.StoreConfig{Driver: common.StoreMemory},
		Extraction: common.ExtractionConfig{Adapter: common.ExtractorRules, Timeout: time.Second},
	}
}

func TestBuildSelectsComponents(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *common.Config)
		checkEx func(t *testing.T, ex llm.Extractor)
	}{
		{"rules memory", func(*common.Config) {}, func(t *testing.T, ex llm.Extractor) {
			if _, ok := ex.(*llm.RulesExtractor); !ok {
				t.Errorf("extractor = %T", ex)
			}
		}},
		{"stub sqlite", func(c *common.Config) {
			c.Extraction.Adapter = common.ExtractorStub
			c.Store.Driver = common.StoreSQLite
		}, func(t *testing.T, ex llm.Extractor) {
			if _, ok := ex.(*llm.StubExtractor); !ok {
				t.Errorf("extractor = %T", ex)
			}
		}},
		{"anthropic", func(c *common.Config) {
			c.Extraction.Adapter = common.ExtractorAnthropic
			c.Anthropic = common.AnthropicConfig{APIKey: "k", MaxTokens: 100}
		}, func(t *testing.T, ex llm.Extractor) {
			if _, ok := ex.(*anthropic.Client); !ok {
				t.Errorf("extractor = %T", ex)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)
			a, err := Build(context.Background(), cfg, quietLogger())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			defer a.Close()
			tt.checkEx(t, a.Extractor)

			res, err := a.Tools.Dispatch(context.Background(), "calculateTax", map[string]any{"income": 50000.0, "filingStatus": "single"})
			if err != nil || res.IsError {
				t.Errorf("calculateTax = %+v, %v", res, err)
			}
		})
	}
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Store.Driver = "postgres"
	if _, err := Build(context.Background(), cfg, quietLogger()); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
