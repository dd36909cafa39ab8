package config

import (
	"fmt"
	"strings"
)

// Validator checks individual configuration values.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider checks a provider name.
func (v *Validator) ValidateProvider(provider string) error {
	switch provider {
	case "anthropic", "openai":
		return nil
	case "":
		return fmt.Errorf("provider is required")
	default:
		return fmt.Errorf("invalid provider %s (must be: anthropic, openai)", provider)
	}
}

// ValidateAPIKey checks an API key's shape for the given provider.
func (v *Validator) ValidateAPIKey(key, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}
	return nil
}
