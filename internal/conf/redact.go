package conf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

// Redacted returns a copy of the settings with credentials masked.
func (s *Settings) Redacted() *Settings {
	c := *s
	c.Providers.Order = append([]string(nil), s.Providers.Order...)
	c.Pipeline.FallbackImages = append([]string(nil), s.Pipeline.FallbackImages...)

	for _, name := range DefaultProviderOrder {
		if p, ok := c.Providers.Provider(name); ok {
			redact(&p.APIKey)
		}
	}
	redact(&c.Validator.Gemini.APIKey)
	redact(&c.Validator.OpenAI.APIKey)
	redact(&c.Validator.Anthropic.APIKey)
	redact(&c.Cache.Redis.Password)
	redact(&c.Cache.SQL.DSN)
	redact(&c.Sentry.DSN)

	return &c
}

// RedactedYAML renders the settings as YAML with credentials masked.
func (s *Settings) RedactedYAML() ([]byte, error) {
	data, err := yaml.Marshal(s.Redacted())
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}
