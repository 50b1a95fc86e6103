package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicConfig configures the Anthropic capability.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// Anthropic implements Capability with the Anthropic Messages API.
type Anthropic struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

var _ Capability = (*Anthropic)(nil)

// NewAnthropic creates a client for cfg.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Anthropic{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Propose sends the payload as JSON with the system prompt for kind.
func (a *Anthropic) Propose(ctx context.Context, kind PromptKind, payload any) (string, error) {
	system, ok := systemPrompts[kind]
	if !ok {
		return "", fmt.Errorf("unknown prompt kind %q", kind)
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	prompt := string(body)

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		System:    system,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic %s request failed: %w", kind, err)
	}
	return textFromResponse(resp)
}

func textFromResponse(resp anthropic.MessagesResponse) (string, error) {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			b.WriteString(*block.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

var systemPrompts = map[PromptKind]string{
	KindExtractIntent: `You extract analytics intents from questions about a data warehouse.
Reply with a single JSON object and nothing else:
{"metric": string, "formula": string, "grain": [string], "filters": [{"column": string, "op": string, "value": string}],
 "time_range": string, "time_column": string, "order": {"by": string, "desc": bool}, "limit": int}
Use "metric" for the business measure named in the question. Fill "formula" only when the question spells out
a calculation. "grain" lists the group-by columns. "time_range" is one of last_quarter, this_quarter,
last_month, this_month, last_year, this_year, ytd, last_N_days, or empty. Prefer names from the schema and
metric catalogue exactly as written; never invent columns.`,
	KindRepairSQL: `You repair SQL queries that failed validation.
You receive the failing SQL, structured diagnostics, and the only identifiers you may use.
Reply with one corrected SELECT statement and nothing else. Do not add tables, columns, CTEs or subqueries.
Keep every selected column, filter and GROUP BY key of the original query.`,
}
