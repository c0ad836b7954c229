package credentials

import (
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	unknownProviderDetailConstant      = "unknown authentication provider"
	noProviderResolvedDetailConstant   = "no authentication provider yielded a token"
	resolverProviderSkippedMessage     = "authentication provider skipped"
	resolverProviderResolvedMessage    = "credential resolved"
	logFieldProviderConstant           = "provider"
	logFieldProviderDetailConstant     = "detail"
	logFieldCredentialSourceConstant   = "credential_source"
	allProvidersExhaustedKindConstant  = ProviderKind("none")
	providerUnavailableDetailConstant  = "provider unavailable"
	resolverProviderUnavailableMessage = "authentication provider unavailable"
)

// Resolver walks an ordered provider chain and returns the first usable credential.
type Resolver struct {
	providers []Provider
	logger    *zap.Logger
}

// ResolverOptions configures the default provider chain.
type ResolverOptions struct {
	SecretItemName    string
	EnvironmentLookup EnvironmentLookup
	PromptInput       io.Reader
	PromptOutput      io.Writer
}

// NewResolver constructs a resolver over an explicit provider chain.
func NewResolver(providers []Provider, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	duplicatedProviders := make([]Provider, len(providers))
	copy(duplicatedProviders, providers)
	return &Resolver{providers: duplicatedProviders, logger: logger}
}

// DefaultProviderChain assembles the fixed-priority provider order: the GitHub
// CLI, the credential-manager CLIs, the environment variable, and finally the
// interactive prompt.
func DefaultProviderChain(executor SecretCLIExecutor, options ResolverOptions) []Provider {
	return []Provider{
		NewGitHubCLIProvider(executor),
		NewOnePasswordProvider(executor, options.SecretItemName),
		NewBitwardenProvider(executor, options.SecretItemName),
		NewEnvironmentProvider(options.EnvironmentLookup),
		NewPromptProvider(options.PromptInput, options.PromptOutput),
	}
}

// Providers exposes the configured chain in priority order.
func (resolver *Resolver) Providers() []Provider {
	duplicatedProviders := make([]Provider, len(resolver.providers))
	copy(duplicatedProviders, resolver.providers)
	return duplicatedProviders
}

// Resolve returns the first credential the chain yields. When requestedProvider
// is non-empty only that provider is attempted and its unavailability is fatal.
func (resolver *Resolver) Resolve(executionContext context.Context, requestedProvider ProviderKind) (Credential, error) {
	if len(strings.TrimSpace(string(requestedProvider))) > 0 {
		return resolver.resolveExplicit(executionContext, requestedProvider)
	}

	for _, candidateProvider := range resolver.providers {
		if !candidateProvider.IsAvailable(executionContext) {
			resolver.logger.Debug(
				resolverProviderUnavailableMessage,
				zap.String(logFieldProviderConstant, string(candidateProvider.Kind())),
			)
			continue
		}

		resolvedCredential, resolveError := candidateProvider.Resolve(executionContext)
		if resolveError != nil {
			resolver.logger.Debug(
				resolverProviderSkippedMessage,
				zap.String(logFieldProviderConstant, string(candidateProvider.Kind())),
				zap.String(logFieldProviderDetailConstant, resolveError.Error()),
			)
			continue
		}

		resolver.logger.Info(
			resolverProviderResolvedMessage,
			zap.String(logFieldCredentialSourceConstant, string(resolvedCredential.Source)),
		)
		return resolvedCredential, nil
	}

	return Credential{}, AuthError{Provider: allProvidersExhaustedKindConstant, Detail: noProviderResolvedDetailConstant}
}

func (resolver *Resolver) resolveExplicit(executionContext context.Context, requestedProvider ProviderKind) (Credential, error) {
	for _, candidateProvider := range resolver.providers {
		if candidateProvider.Kind() != requestedProvider {
			continue
		}
		if !candidateProvider.IsAvailable(executionContext) {
			return Credential{}, AuthError{Provider: requestedProvider, Detail: providerUnavailableDetailConstant}
		}
		resolvedCredential, resolveError := candidateProvider.Resolve(executionContext)
		if resolveError != nil {
			return Credential{}, resolveError
		}
		resolver.logger.Info(
			resolverProviderResolvedMessage,
			zap.String(logFieldCredentialSourceConstant, string(resolvedCredential.Source)),
		)
		return resolvedCredential, nil
	}
	return Credential{}, AuthError{Provider: requestedProvider, Detail: unknownProviderDetailConstant}
}
