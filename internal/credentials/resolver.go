package credentials

import (
	"fmt"
)

// Source indicates where a credential was found
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceNone    Source = "none"
)

// Credential is a resolved secret with its provenance
type Credential struct {
	Name   string
	Value  string
	Source Source
}

// Resolver finds credentials across sources in priority order:
// keyring > environment variables > config value.
type Resolver struct{}

// NewResolver creates a credential resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve finds the credential with the given name. configValue is the
// value from the config file, used as the lowest-priority fallback.
func (r *Resolver) Resolve(name, configValue string) (*Credential, error) {
	if name == "" {
		return nil, fmt.Errorf("credential name is required")
	}

	// Priority 1: keyring
	if IsAvailable() {
		if value, err := Get(name); err == nil {
			return &Credential{Name: name, Value: value, Source: SourceKeyring}, nil
		}
		// Not found or keyring access issue; fall through to next source
	}

	// Priority 2: environment variables
	if value := GetFromEnv(name); value != "" {
		return &Credential{Name: name, Value: value, Source: SourceEnv}, nil
	}

	// Priority 3: config file
	if configValue != "" {
		return &Credential{Name: name, Value: configValue, Source: SourceConfig}, nil
	}

	return nil, fmt.Errorf("no credential %q found (tried: keyring, environment variables, config)", name)
}

// ResolveOptional is like Resolve but returns an empty credential instead
// of an error when nothing is found
func (r *Resolver) ResolveOptional(name, configValue string) *Credential {
	cred, err := r.Resolve(name, configValue)
	if err != nil {
		return &Credential{Name: name, Source: SourceNone}
	}
	return cred
}
