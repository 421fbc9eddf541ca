package conf

import (
	"github.com/srthknk/biomuseum/internal/secrets"
)

// resolveSecrets replaces credential fields with the content of their *_file
// counterparts, or expands ${VAR} references in the literal value.
func resolveSecrets(s *Settings) error {
	for _, name := range DefaultProviderOrder {
		p, ok := s.Providers.Provider(name)
		if !ok {
			continue
		}
		if err := resolveInto(&p.APIKey, p.APIKeyFile); err != nil {
			return err
		}
	}
	for _, c := range []*ClassifierSettings{&s.Validator.Gemini, &s.Validator.OpenAI, &s.Validator.Anthropic} {
		if err := resolveInto(&c.APIKey, c.APIKeyFile); err != nil {
			return err
		}
	}
	return resolveInto(&s.Cache.Redis.Password, s.Cache.Redis.PasswordFile)
}

func resolveInto(value *string, file string) error {
	resolved, err := secrets.Resolve(file, *value)
	if err != nil {
		return err
	}
	*value = resolved
	return nil
}
