// Package provider implements the chat.Provider interface for each
// supported LLM backend: a local Ollama server, OpenAI-compatible APIs,
// and Anthropic.
//
// The Provider interface itself lives in the chat package to avoid import
// cycles; this package holds the concrete implementations, the factory
// that builds them from configuration, and the model capability table
// that decides whether a model can do native tool calling.
//
// All type conversions between the application's provider-agnostic types
// and each backend's wire types happen here. Nothing outside this package
// imports an SDK type.
package provider

import "fmt"

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOllama    ProviderType = "ollama"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}

// Validate reports configuration problems before a provider is built.
func (c Config) Validate() error {
	switch c.Type {
	case ProviderTypeOllama:
		return nil
	case ProviderTypeOpenAI, ProviderTypeAnthropic:
		if c.APIKey == "" {
			return fmt.Errorf("%s provider requires an API key", c.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown provider type: %s", c.Type)
	}
}

// MapProviderIDToType converts a config provider ID to a ProviderType.
// Unknown IDs pass through unchanged so the factory can report them.
func MapProviderIDToType(id string) ProviderType {
	switch id {
	case "ollama":
		return ProviderTypeOllama
	case "openai":
		return ProviderTypeOpenAI
	case "anthropic":
		return ProviderTypeAnthropic
	default:
		return ProviderType(id)
	}
}
