package hooks

// RegistryConfig is the registry's process-wide feature configuration.
// It is replaced wholesale via Registry.SetConfig (last-write-wins, no
// merging). ScopeVerification is the one reserved section; Features holds
// open-ended settings for hooks the registry has no knowledge of.
type RegistryConfig struct {
	ScopeVerification ScopeVerificationConfig `koanf:"scope_verification" json:"scope_verification"`
	Features          map[string]any          `koanf:"features" json:"features,omitempty"`
}

// ScopeVerificationConfig governs the reserved "scope-verification" hook.
// When Enabled is false, any hook registered with that ID is skipped
// without being invoked, regardless of event.
type ScopeVerificationConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled"`

	// AllowedRoots restricts session working directories when the built-in
	// scope verification hook is installed. Empty means no restriction.
	AllowedRoots []string `koanf:"allowed_roots" json:"allowed_roots,omitempty"`
}

// DefaultRegistryConfig returns the default configuration. Scope
// verification is on by default; disabling it is an explicit opt-out.
func DefaultRegistryConfig() *RegistryConfig {
	return &RegistryConfig{
		ScopeVerification: ScopeVerificationConfig{Enabled: true},
	}
}
