package credentials

import (
	"context"
	"fmt"
)

const authErrorTemplateConstant = "authentication provider %s: %s"

// ProviderKind identifies one method of obtaining a GitHub API credential.
type ProviderKind string

// Supported authentication provider kinds.
const (
	ProviderGitHubCLI   ProviderKind = "gh-cli"
	ProviderOnePassword ProviderKind = "1password"
	ProviderBitwarden   ProviderKind = "bitwarden"
	ProviderEnvironment ProviderKind = "environment"
	ProviderPrompt      ProviderKind = "prompt"
)

// Credential carries a resolved API token together with its originating provider.
// The token is immutable once resolved and scoped to a single run.
type Credential struct {
	Token  string
	Source ProviderKind
}

// Fingerprint reports a loggable description of the credential without exposing the token.
func (credential Credential) Fingerprint() string {
	return fmt.Sprintf("%s token (%d characters)", credential.Source, len(credential.Token))
}

// Provider models one authentication backend in the resolution chain.
type Provider interface {
	// Kind identifies the provider.
	Kind() ProviderKind
	// Describe returns a human-readable summary of the provider's prerequisite.
	Describe() string
	// IsAvailable reports whether the provider's prerequisite tool or
	// environment is present. Probe failures are reported as unavailable.
	IsAvailable(executionContext context.Context) bool
	// Resolve yields a credential or an AuthError describing the failure.
	Resolve(executionContext context.Context) (Credential, error)
}

// AuthError reports that a provider could not yield a usable credential.
type AuthError struct {
	Provider ProviderKind
	Detail   string
}

// Error describes the authentication failure.
func (authError AuthError) Error() string {
	return fmt.Sprintf(authErrorTemplateConstant, authError.Provider, authError.Detail)
}
