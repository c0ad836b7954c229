package credentials_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/licenses-everywhere/internal/credentials"
	"github.com/temirov/licenses-everywhere/internal/execshell"
)

type scriptedCLIExecutor struct {
	githubResults      []scriptedResult
	onePasswordResults []scriptedResult
	bitwardenResults   []scriptedResult
	recordedArguments  [][]string
}

type scriptedResult struct {
	result execshell.ExecutionResult
	err    error
}

func (executor *scriptedCLIExecutor) ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return executor.consume(&executor.githubResults, details)
}

func (executor *scriptedCLIExecutor) ExecuteOnePasswordCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return executor.consume(&executor.onePasswordResults, details)
}

func (executor *scriptedCLIExecutor) ExecuteBitwardenCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	return executor.consume(&executor.bitwardenResults, details)
}

func (executor *scriptedCLIExecutor) consume(results *[]scriptedResult, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedArguments = append(executor.recordedArguments, details.Arguments)
	if len(*results) == 0 {
		return execshell.ExecutionResult{}, errors.New("unexpected command invocation")
	}
	nextResult := (*results)[0]
	*results = (*results)[1:]
	return nextResult.result, nextResult.err
}

func TestGitHubCLIProviderResolvesToken(testInstance *testing.T) {
	executor := &scriptedCLIExecutor{
		githubResults: []scriptedResult{
			{result: execshell.ExecutionResult{StandardOutput: "ghp_value\n"}},
		},
	}

	provider := credentials.NewGitHubCLIProvider(executor)
	resolvedCredential, resolveError := provider.Resolve(context.Background())

	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "ghp_value", resolvedCredential.Token)
	require.Equal(testInstance, credentials.ProviderGitHubCLI, resolvedCredential.Source)
	require.Equal(testInstance, []string{"auth", "token"}, executor.recordedArguments[0])
}

func TestGitHubCLIProviderAvailabilityProbe(testInstance *testing.T) {
	testCases := []struct {
		name              string
		statusError       error
		expectedAvailable bool
	}{
		{
			name:              "authenticated_session",
			expectedAvailable: true,
		},
		{
			name:              "probe_failure_is_unavailable",
			statusError:       errors.New("gh: command not found"),
			expectedAvailable: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedCLIExecutor{
				githubResults: []scriptedResult{{err: testCase.statusError}},
			}
			provider := credentials.NewGitHubCLIProvider(executor)
			require.Equal(testInstance, testCase.expectedAvailable, provider.IsAvailable(context.Background()))
		})
	}
}

func TestGitHubCLIProviderRejectsEmptyToken(testInstance *testing.T) {
	executor := &scriptedCLIExecutor{
		githubResults: []scriptedResult{
			{result: execshell.ExecutionResult{StandardOutput: "  \n"}},
		},
	}

	provider := credentials.NewGitHubCLIProvider(executor)
	_, resolveError := provider.Resolve(context.Background())

	require.Error(testInstance, resolveError)
	require.IsType(testInstance, credentials.AuthError{}, resolveError)
}

func TestOnePasswordProviderResolvesConfiguredItem(testInstance *testing.T) {
	executor := &scriptedCLIExecutor{
		onePasswordResults: []scriptedResult{
			{result: execshell.ExecutionResult{StandardOutput: "op_token\n"}},
		},
	}

	provider := credentials.NewOnePasswordProvider(executor, "Work GitHub")
	resolvedCredential, resolveError := provider.Resolve(context.Background())

	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "op_token", resolvedCredential.Token)
	require.Equal(testInstance, []string{"item", "get", "Work GitHub", "--fields", "token", "--reveal"}, executor.recordedArguments[0])
}

func TestOnePasswordProviderDefaultsItemName(testInstance *testing.T) {
	executor := &scriptedCLIExecutor{
		onePasswordResults: []scriptedResult{
			{result: execshell.ExecutionResult{StandardOutput: "op_token"}},
		},
	}

	provider := credentials.NewOnePasswordProvider(executor, "  ")
	_, resolveError := provider.Resolve(context.Background())

	require.NoError(testInstance, resolveError)
	require.Contains(testInstance, executor.recordedArguments[0], credentials.DefaultOnePasswordItemName)
}

func TestBitwardenProviderAvailabilityRequiresUnlockedVault(testInstance *testing.T) {
	testCases := []struct {
		name              string
		statusOutput      string
		expectedAvailable bool
	}{
		{
			name:              "unlocked_vault",
			statusOutput:      `{"status":"unlocked"}`,
			expectedAvailable: true,
		},
		{
			name:              "locked_vault",
			statusOutput:      `{"status":"locked"}`,
			expectedAvailable: false,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &scriptedCLIExecutor{
				bitwardenResults: []scriptedResult{
					{result: execshell.ExecutionResult{StandardOutput: testCase.statusOutput}},
				},
			}
			provider := credentials.NewBitwardenProvider(executor, "")
			require.Equal(testInstance, testCase.expectedAvailable, provider.IsAvailable(context.Background()))
		})
	}
}

func TestBitwardenProviderResolvesPasswordField(testInstance *testing.T) {
	executor := &scriptedCLIExecutor{
		bitwardenResults: []scriptedResult{
			{result: execshell.ExecutionResult{StandardOutput: "bw_token\n"}},
		},
	}

	provider := credentials.NewBitwardenProvider(executor, "GitHub Token")
	resolvedCredential, resolveError := provider.Resolve(context.Background())

	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "bw_token", resolvedCredential.Token)
	require.Equal(testInstance, []string{"get", "password", "GitHub Token"}, executor.recordedArguments[0])
}

func TestEnvironmentProvider(testInstance *testing.T) {
	testCases := []struct {
		name          string
		value         string
		present       bool
		expectFailure bool
	}{
		{
			name:    "token_present",
			value:   "env_token",
			present: true,
		},
		{
			name:          "token_absent",
			expectFailure: true,
		},
		{
			name:          "token_blank",
			value:         "   ",
			present:       true,
			expectFailure: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			lookup := func(key string) (string, bool) {
				require.Equal(testInstance, "GITHUB_TOKEN", key)
				return testCase.value, testCase.present
			}

			provider := credentials.NewEnvironmentProvider(lookup)
			require.Equal(testInstance, !testCase.expectFailure, provider.IsAvailable(context.Background()))

			resolvedCredential, resolveError := provider.Resolve(context.Background())
			if testCase.expectFailure {
				require.Error(testInstance, resolveError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, "env_token", resolvedCredential.Token)
			require.Equal(testInstance, credentials.ProviderEnvironment, resolvedCredential.Source)
		})
	}
}

func TestPromptProviderReadsToken(testInstance *testing.T) {
	promptOutput := &strings.Builder{}
	provider := credentials.NewPromptProvider(strings.NewReader("typed_token\n"), promptOutput)

	require.True(testInstance, provider.IsAvailable(context.Background()))

	resolvedCredential, resolveError := provider.Resolve(context.Background())
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "typed_token", resolvedCredential.Token)
	require.Equal(testInstance, credentials.ProviderPrompt, resolvedCredential.Source)
	require.NotEmpty(testInstance, promptOutput.String())
}
