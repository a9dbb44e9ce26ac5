package anthropic

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

const defaultMaxTokens int64 = 1024

// Generator turns a single prompt into text with a fixed model and system
// prompt. It logs token usage for every call.
type Generator struct {
	client    Client
	model     string
	maxTokens int64
	system    string
}

// NewGenerator wraps client. Empty model and non-positive maxTokens select
// the defaults.
func NewGenerator(client Client, model string, maxTokens int64, system string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Generator{client: client, model: model, maxTokens: maxTokens, system: system}
}

// Model returns the model the generator calls.
func (g *Generator) Model() string { return g.model }

// Generate sends prompt as a single user message and returns the reply text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Complete(ctx, Prompt{
		Model:       g.model,
		MaxTokens:   g.maxTokens,
		System:      g.system,
		CacheSystem: g.system != "",
		User:        prompt,
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: generate")
	}
	resp.Usage.log(g.model, "insight")

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", eris.Errorf("anthropic: empty response (stop_reason=%s)", resp.StopReason)
	}
	return text, nil
}
