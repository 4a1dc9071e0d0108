package research

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"concierge/internal/config"
	"concierge/internal/queue"
	"concierge/internal/services"
)

// GeminiProvider researches guests with Gemini and Google Search grounding.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini constructs a Gemini provider. A non-empty BaseURL overrides the
// API endpoint.
func NewGemini(ctx context.Context, cfg config.Research) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient(cfg),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "research", "gemini client", "", err)
	}
	return &GeminiProvider{
		client:    client,
		model:     cfg.Model,
		maxTokens: int32(cfg.MaxTokens),
	}, nil
}

// Name identifies the provider in results and logs.
func (p *GeminiProvider) Name() string { return config.ProviderGemini }

// Lookup asks Gemini to research the guest, merging grounding citations into
// the sources the model listed itself.
func (p *GeminiProvider) Lookup(ctx context.Context, guest queue.Guest) (Finding, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	if p.maxTokens > 0 {
		genCfg.MaxOutputTokens = p.maxTokens
	}
	resp, err := p.client.Models.GenerateContent(
		ctx,
		p.model,
		[]*genai.Content{genai.NewContentFromText(BuildPrompt(guest), genai.RoleUser)},
		genCfg,
	)
	if err != nil {
		return Finding{}, providerError(p.Name(), "lookup", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Finding{}, ErrNoData
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	finding, err := ParseFinding(text.String())
	if err != nil {
		return Finding{}, providerError(p.Name(), "lookup", err)
	}
	if gm := candidate.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if chunk != nil && chunk.Web != nil {
				finding.Sources = appendSource(finding.Sources, queue.Source{Title: chunk.Web.Title, URL: chunk.Web.URI})
			}
		}
	}
	finding.Provider = p.Name()
	finding.Model = p.model
	return finding, nil
}
