package draft

import "fmt"

const (
	ProviderNone      = ""
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultModels is used when no model is configured.
var DefaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// NewCompleter builds the configured provider. ProviderNone returns nil.
func NewCompleter(provider, apiKey, baseURL string) (Completer, error) {
	switch provider {
	case ProviderNone:
		return nil, nil
	case ProviderOpenAI:
		return NewOpenAI(apiKey, baseURL), nil
	case ProviderAnthropic:
		return NewAnthropic(apiKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}
