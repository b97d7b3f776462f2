package provider

import (
	"fmt"
	"strings"

	"github.com/atlasos/atlas/internal/config"
)

// defaultBases maps provider IDs to their OpenAI-compatible API base URLs.
var defaultBases = map[string]string{
	"openai":     "https://api.openai.com/v1",
	"openrouter": "https://openrouter.ai/api/v1",
	"anthropic":  "https://api.anthropic.com/v1",
	"groq":       "https://api.groq.com/openai/v1",
}

// ParseModelString splits a "provider/model" string into provider ID and
// model name. For OpenRouter, the format is "openrouter/vendor/model"
// (three segments).
func ParseModelString(s string) (providerID, modelName string) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 {
		return "", s
	}
	providerID = strings.ToLower(parts[0])
	modelName = parts[1]

	// "anthropic/claude-..." is an OpenRouter vendor path when only the
	// OpenRouter key is configured; the resolver sorts that out, so keep
	// the split literal here.
	return
}

// Resolve creates the LLMProvider for the configured model.
// Resolution order:
//  1. explicit provider prefix in model.name ("openrouter/...", "groq/...")
//  2. first provider in config with an API key set
func Resolve(cfg *config.Config) (LLMProvider, error) {
	provID, model := ParseModelString(cfg.Model.Name)
	if provID != "" {
		if pc, ok := providerFor(cfg, provID); ok && pc.APIKey != "" {
			return newFor(provID, pc, model), nil
		}
		// Vendor-prefixed model names ("anthropic/claude-sonnet-4-5") route
		// through OpenRouter when the named vendor has no direct key.
		if cfg.Providers.OpenRouter.APIKey != "" {
			return newFor("openrouter", cfg.Providers.OpenRouter, cfg.Model.Name), nil
		}
	}
	for _, id := range []string{"openai", "openrouter", "anthropic", "groq"} {
		if pc, ok := providerFor(cfg, id); ok && pc.APIKey != "" {
			name := model
			if id == "openrouter" {
				name = cfg.Model.Name
			}
			return newFor(id, pc, name), nil
		}
	}
	return nil, fmt.Errorf("no LLM provider configured: set an API key under providers in the config or export OPENAI_API_KEY / OPENROUTER_API_KEY")
}

// ResolveEmbedder returns an Embedder, preferring a provider with a direct
// OpenAI key since OpenRouter does not serve the embeddings endpoint.
func ResolveEmbedder(cfg *config.Config) (Embedder, error) {
	if cfg.Providers.OpenAI.APIKey != "" {
		return newFor("openai", cfg.Providers.OpenAI, ""), nil
	}
	prov, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	emb, ok := prov.(Embedder)
	if !ok {
		return nil, fmt.Errorf("configured provider does not support embeddings")
	}
	return emb, nil
}

func providerFor(cfg *config.Config, id string) (config.ProviderConfig, bool) {
	switch id {
	case "openai":
		return cfg.Providers.OpenAI, true
	case "openrouter":
		return cfg.Providers.OpenRouter, true
	case "anthropic":
		return cfg.Providers.Anthropic, true
	case "groq":
		return cfg.Providers.Groq, true
	}
	return config.ProviderConfig{}, false
}

func newFor(id string, pc config.ProviderConfig, model string) *OpenAIProvider {
	base := pc.APIBase
	if base == "" {
		base = defaultBases[id]
	}
	return NewOpenAIProvider(pc.APIKey, base, model)
}
