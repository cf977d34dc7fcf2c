package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nz-insights/popgrid/pkg/anthropic"
)

// stubPrefix marks output produced without a configured backend.
const stubPrefix = "[generation disabled]"

// stubMaxLen bounds the prompt excerpt embedded in stub output.
const stubMaxLen = 200

// Generator wraps the text-generation backend. Generate never returns an
// error: with no backend it produces a deterministic stub, and backend
// failures degrade to an inline error marker, so a flaky or absent service
// can never abort a run.
type Generator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	log       *zap.Logger
}

// NewGenerator creates a Generator. A nil client disables the backend.
func NewGenerator(client anthropic.Client, model string, maxTokens int64) *Generator {
	return &Generator{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		log:       zap.L().With(zap.String("component", "pipeline.generator")),
	}
}

// Enabled reports whether a backend is configured.
func (g *Generator) Enabled() bool {
	return g.client != nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate sends the prompt as a single user turn and returns the response
// text. See the type doc for the degradation behavior.
func (g *Generator) Generate(ctx context.Context, prompt string) string {
	if g.client == nil {
		return stub(prompt)
	}

	g.log.Debug("querying model", zap.String("model", g.model))
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		g.log.Warn("generation failed", zap.Error(err))
		return fmt.Sprintf("[generation error: %v]", err)
	}
	return resp.Text()
}

// stub derives deterministic placeholder output from the prompt: its first
// non-blank line, truncated to stubMaxLen with an ellipsis when cut.
func stub(prompt string) string {
	var first string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}
	if runes := []rune(first); len(runes) > stubMaxLen {
		first = string(runes[:stubMaxLen]) + "..."
	}
	return stubPrefix + " " + first
}
