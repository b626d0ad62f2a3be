// Package anthropic implements the language-generation gateway with the
// Anthropic Messages API. The model receives only the evidence bundle the
// synthesizer assembled and is instructed to cite nothing outside it.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/antigravity/decision-support/core"
	"github.com/antigravity/decision-support/reason"
)

const systemPrompt = `You are a disaster-response decision support assistant.
You compare a current situation narrative against retrieved historical decision snapshots.
Do NOT predict the future. Do NOT claim causality. Use phrases like "In similar cases..." and "Historical patterns suggest...".
Reference ONLY the case identifiers listed in the provided historical basis; never invent or mention any other case.
Output valid JSON only, no introductory text.`

// Options configures the Anthropic generator.
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Generator wraps the Anthropic Messages API behind reason.Generator.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic generator.
func New(optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:     anthropic.Model("claude-sonnet-4-20250514"),
		MaxTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts}
}

// Generate asks the model to phrase the ranked candidates and explanation.
// API failures are provider errors; the synthesizer falls back to
// deterministic phrasing on any error returned here.
func (g *Generator) Generate(ctx context.Context, bundle *reason.EvidenceBundle) (*reason.Phrasing, error) {
	prompt, err := buildPrompt(bundle)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.opts.Model,
		MaxTokens: g.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: anthropic api: %v", core.ErrProvider, err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return parsePhrasing(text)
}

func buildPrompt(bundle *reason.EvidenceBundle) (string, error) {
	evidence, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal evidence bundle: %w", err)
	}

	var b strings.Builder
	b.WriteString("Current situation:\n")
	b.WriteString(bundle.Narrative)
	b.WriteString("\n\nEvidence bundle (ranked candidates with aggregate weights, plus the historical basis you may cite):\n")
	b.Write(evidence)
	b.WriteString("\n\nTask: phrase the ranked risks and actions for a responder, keeping their order, and write a short explanation grounded in the historical basis.")
	b.WriteString("\nIf the basis is empty, state explicitly that the assessment is based on the current narrative only.")
	b.WriteString(`
Return a JSON object with fields: top_risks (string array), recommended_actions (string array), explanation (string).`)
	return b.String(), nil
}

// parsePhrasing decodes the model output, tolerating markdown code fences.
func parsePhrasing(text string) (*reason.Phrasing, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var phrasing reason.Phrasing
	if err := json.Unmarshal([]byte(clean), &phrasing); err != nil {
		return nil, fmt.Errorf("%w: parse generation output: %v", core.ErrProvider, err)
	}
	return &phrasing, nil
}
