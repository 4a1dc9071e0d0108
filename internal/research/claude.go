package research

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"concierge/internal/config"
	"concierge/internal/queue"
)

const defaultClaudeMaxTokens = 1024

// ClaudeProvider researches guests with Anthropic's Messages API.
type ClaudeProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewClaude constructs a Claude provider. A non-empty BaseURL overrides the
// API endpoint.
func NewClaude(cfg config.Research) *ClaudeProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient(cfg)),
		option.WithMaxRetries(2),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}
	return &ClaudeProvider{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Name identifies the provider in results and logs.
func (p *ClaudeProvider) Name() string { return config.ProviderClaude }

// Lookup asks Claude to describe the guest from its own knowledge.
func (p *ClaudeProvider) Lookup(ctx context.Context, guest queue.Guest) (Finding, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(p.maxTokens),
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(guest))),
		},
	}
	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Finding{}, providerError(p.Name(), "lookup", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Finding{}, ErrNoData
	}
	finding, err := ParseFinding(text.String())
	if err != nil {
		return Finding{}, providerError(p.Name(), "lookup", err)
	}
	finding.Provider = p.Name()
	finding.Model = p.model
	return finding, nil
}
