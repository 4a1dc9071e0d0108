package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"concierge/internal/config"
	"concierge/internal/queue"
	"concierge/internal/services"
)

var (
	// ErrNoData reports that the provider answered but found nothing public
	// about the guest.
	ErrNoData = errors.New("no public data found")
	// ErrProviderTimeout reports that a lookup did not finish within its budget.
	ErrProviderTimeout = fmt.Errorf("%w: research provider did not respond", services.ErrTimeout)
)

// Finding is what a provider learned about a guest.
type Finding struct {
	Summary    string
	Occupation string
	Company    string
	Location   string
	NetWorth   string
	Followers  int64
	// VIPScore is the provider's own 0-10 estimate, nil when absent.
	VIPScore *float64
	Sources  []queue.Source
	Provider string
	Model    string
}

// Provider looks up public information about a guest. Lookups are billable,
// so callers should not repeat them for a guest that already has a result.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, guest queue.Guest) (Finding, error)
}

// New builds the provider selected in cfg, wrapped in a rate limiter when
// requests_per_minute is set.
func New(ctx context.Context, cfg config.Research) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "research", "new provider", "api key required", nil)
	}
	var (
		provider Provider
		err      error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err = NewGemini(ctx, cfg)
	case config.ProviderClaude:
		provider = NewClaude(cfg)
	case config.ProviderOpenAI:
		provider = NewOpenAI(OpenAIConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			Referer:        cfg.Referer,
			Title:          cfg.Title,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxTokens:      cfg.MaxTokens,
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "research", "new provider", fmt.Sprintf("unknown provider %q", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		provider = NewLimited(provider, cfg.RequestsPerMinute)
	}
	return provider, nil
}

func providerError(provider, op string, err error) error {
	if errors.Is(err, ErrNoData) || errors.Is(err, ErrProviderTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", provider, op, ErrProviderTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return services.Wrap(services.ErrProvider, "research", provider+" "+op, "", err)
}

func httpClient(cfg config.Research) *http.Client {
	return &http.Client{Timeout: cfg.Timeout()}
}
