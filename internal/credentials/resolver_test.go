package credentials_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/credentials"
)

const (
	testTokenValueConstant             = "ghp_testtokenvalue"
	testFirstAvailableCaseNameConstant = "first_available_provider_wins"
	testSkipUnavailableCaseName        = "unavailable_providers_skipped"
	testResolveFailureFallsThroughCase = "resolve_failure_falls_through"
	testExplicitProviderCaseName       = "explicit_provider_only"
	testExplicitUnavailableCaseName    = "explicit_provider_unavailable"
	testUnknownProviderCaseName        = "unknown_provider"
	testNoProviderCaseNameConstant     = "no_provider_yields_token"
)

type stubProvider struct {
	kind         credentials.ProviderKind
	available    bool
	credential   credentials.Credential
	resolveError error
	resolveCalls int
}

func (provider *stubProvider) Kind() credentials.ProviderKind {
	return provider.kind
}

func (provider *stubProvider) Describe() string {
	return string(provider.kind)
}

func (provider *stubProvider) IsAvailable(executionContext context.Context) bool {
	return provider.available
}

func (provider *stubProvider) Resolve(executionContext context.Context) (credentials.Credential, error) {
	provider.resolveCalls++
	if provider.resolveError != nil {
		return credentials.Credential{}, provider.resolveError
	}
	return provider.credential, nil
}

func TestResolverResolve(testInstance *testing.T) {
	testCases := []struct {
		name              string
		providers         []*stubProvider
		requestedProvider credentials.ProviderKind
		expectedSource    credentials.ProviderKind
		expectFailure     bool
	}{
		{
			name: testFirstAvailableCaseNameConstant,
			providers: []*stubProvider{
				{kind: credentials.ProviderGitHubCLI, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderGitHubCLI}},
				{kind: credentials.ProviderEnvironment, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderEnvironment}},
			},
			expectedSource: credentials.ProviderGitHubCLI,
		},
		{
			name: testSkipUnavailableCaseName,
			providers: []*stubProvider{
				{kind: credentials.ProviderGitHubCLI, available: false},
				{kind: credentials.ProviderOnePassword, available: false},
				{kind: credentials.ProviderEnvironment, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderEnvironment}},
			},
			expectedSource: credentials.ProviderEnvironment,
		},
		{
			name: testResolveFailureFallsThroughCase,
			providers: []*stubProvider{
				{kind: credentials.ProviderGitHubCLI, available: true, resolveError: credentials.AuthError{Provider: credentials.ProviderGitHubCLI, Detail: "empty token"}},
				{kind: credentials.ProviderEnvironment, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderEnvironment}},
			},
			expectedSource: credentials.ProviderEnvironment,
		},
		{
			name: testExplicitProviderCaseName,
			providers: []*stubProvider{
				{kind: credentials.ProviderGitHubCLI, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderGitHubCLI}},
				{kind: credentials.ProviderEnvironment, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderEnvironment}},
			},
			requestedProvider: credentials.ProviderEnvironment,
			expectedSource:    credentials.ProviderEnvironment,
		},
		{
			name: testExplicitUnavailableCaseName,
			providers: []*stubProvider{
				{kind: credentials.ProviderOnePassword, available: false},
			},
			requestedProvider: credentials.ProviderOnePassword,
			expectFailure:     true,
		},
		{
			name: testUnknownProviderCaseName,
			providers: []*stubProvider{
				{kind: credentials.ProviderGitHubCLI, available: true},
			},
			requestedProvider: credentials.ProviderKind("keychain"),
			expectFailure:     true,
		},
		{
			name: testNoProviderCaseNameConstant,
			providers: []*stubProvider{
				{kind: credentials.ProviderGitHubCLI, available: false},
				{kind: credentials.ProviderEnvironment, available: false},
			},
			expectFailure: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			providerChain := make([]credentials.Provider, 0, len(testCase.providers))
			for _, provider := range testCase.providers {
				providerChain = append(providerChain, provider)
			}

			resolver := credentials.NewResolver(providerChain, zap.NewNop())
			resolvedCredential, resolveError := resolver.Resolve(context.Background(), testCase.requestedProvider)

			if testCase.expectFailure {
				require.Error(testInstance, resolveError)
				require.IsType(testInstance, credentials.AuthError{}, resolveError)
				return
			}

			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedSource, resolvedCredential.Source)
			require.Equal(testInstance, testTokenValueConstant, resolvedCredential.Token)
		})
	}
}

func TestResolverExplicitRequestSkipsOtherProviders(testInstance *testing.T) {
	firstProvider := &stubProvider{kind: credentials.ProviderGitHubCLI, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderGitHubCLI}}
	secondProvider := &stubProvider{kind: credentials.ProviderEnvironment, available: true, credential: credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderEnvironment}}

	resolver := credentials.NewResolver([]credentials.Provider{firstProvider, secondProvider}, zap.NewNop())
	_, resolveError := resolver.Resolve(context.Background(), credentials.ProviderEnvironment)

	require.NoError(testInstance, resolveError)
	require.Zero(testInstance, firstProvider.resolveCalls)
	require.Equal(testInstance, 1, secondProvider.resolveCalls)
}

func TestCredentialFingerprintOmitsToken(testInstance *testing.T) {
	credential := credentials.Credential{Token: testTokenValueConstant, Source: credentials.ProviderGitHubCLI}
	fingerprint := credential.Fingerprint()
	require.NotContains(testInstance, fingerprint, testTokenValueConstant)
	require.Contains(testInstance, fingerprint, string(credentials.ProviderGitHubCLI))
}
