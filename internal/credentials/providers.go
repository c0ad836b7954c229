package credentials

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/temirov/licenses-everywhere/internal/execshell"
)

const (
	githubCLIAuthSubcommandConstant      = "auth"
	githubCLIStatusSubcommandConstant    = "status"
	githubCLITokenSubcommandConstant     = "token"
	githubCLIDescriptionConstant         = "GitHub CLI session (gh auth login)"
	onePasswordWhoamiSubcommandConstant  = "whoami"
	onePasswordItemSubcommandConstant    = "item"
	onePasswordGetSubcommandConstant     = "get"
	onePasswordFieldsFlagConstant        = "--fields"
	onePasswordTokenFieldConstant        = "token"
	onePasswordRevealFlagConstant        = "--reveal"
	onePasswordDescriptionConstant       = "1Password CLI item lookup (op)"
	bitwardenStatusSubcommandConstant    = "status"
	bitwardenGetSubcommandConstant       = "get"
	bitwardenPasswordFieldConstant       = "password"
	bitwardenUnlockedMarkerConstant      = `"status":"unlocked"`
	bitwardenDescriptionConstant         = "Bitwarden CLI item lookup (bw)"
	environmentTokenVariableConstant     = "GITHUB_TOKEN"
	environmentDescriptionConstant       = "GITHUB_TOKEN environment variable"
	promptDescriptionConstant            = "interactive personal access token entry"
	promptMessageConstant                = "Enter GitHub personal access token: "
	emptyTokenDetailConstant             = "returned an empty token"
	toolUnavailableDetailConstant        = "prerequisite tool unavailable or not signed in"
	environmentUnsetDetailConstant       = environmentTokenVariableConstant + " is not set"
	promptReadFailureDetailTemplateConst = "token entry failed: "

	// DefaultOnePasswordItemName is looked up when no --auth-item override is supplied.
	DefaultOnePasswordItemName = "GitHub Token"
	// DefaultBitwardenItemName is looked up when no --auth-item override is supplied.
	DefaultBitwardenItemName = "GitHub Token"
)

// SecretCLIExecutor captures the execshell surface required by CLI-backed providers.
type SecretCLIExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteOnePasswordCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteBitwardenCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// GitHubCLIProvider resolves tokens from an authenticated gh session.
type GitHubCLIProvider struct {
	executor SecretCLIExecutor
}

// NewGitHubCLIProvider constructs a provider backed by the gh binary.
func NewGitHubCLIProvider(executor SecretCLIExecutor) *GitHubCLIProvider {
	return &GitHubCLIProvider{executor: executor}
}

// Kind identifies the provider.
func (provider *GitHubCLIProvider) Kind() ProviderKind {
	return ProviderGitHubCLI
}

// Describe returns the provider prerequisite summary.
func (provider *GitHubCLIProvider) Describe() string {
	return githubCLIDescriptionConstant
}

// IsAvailable reports whether gh is installed and authenticated.
func (provider *GitHubCLIProvider) IsAvailable(executionContext context.Context) bool {
	_, statusError := provider.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{githubCLIAuthSubcommandConstant, githubCLIStatusSubcommandConstant},
	})
	return statusError == nil
}

// Resolve obtains the session token via gh auth token.
func (provider *GitHubCLIProvider) Resolve(executionContext context.Context) (Credential, error) {
	executionResult, executionError := provider.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{githubCLIAuthSubcommandConstant, githubCLITokenSubcommandConstant},
	})
	if executionError != nil {
		return Credential{}, AuthError{Provider: ProviderGitHubCLI, Detail: executionError.Error()}
	}
	return credentialFromOutput(ProviderGitHubCLI, executionResult.StandardOutput)
}

// OnePasswordProvider resolves tokens from a 1Password item's token field.
type OnePasswordProvider struct {
	executor SecretCLIExecutor
	itemName string
}

// NewOnePasswordProvider constructs a provider reading the named 1Password item.
func NewOnePasswordProvider(executor SecretCLIExecutor, itemName string) *OnePasswordProvider {
	if len(strings.TrimSpace(itemName)) == 0 {
		itemName = DefaultOnePasswordItemName
	}
	return &OnePasswordProvider{executor: executor, itemName: itemName}
}

// Kind identifies the provider.
func (provider *OnePasswordProvider) Kind() ProviderKind {
	return ProviderOnePassword
}

// Describe returns the provider prerequisite summary.
func (provider *OnePasswordProvider) Describe() string {
	return onePasswordDescriptionConstant
}

// IsAvailable reports whether op is installed and signed in.
func (provider *OnePasswordProvider) IsAvailable(executionContext context.Context) bool {
	_, whoamiError := provider.executor.ExecuteOnePasswordCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{onePasswordWhoamiSubcommandConstant},
	})
	return whoamiError == nil
}

// Resolve reads the token field from the configured item.
func (provider *OnePasswordProvider) Resolve(executionContext context.Context) (Credential, error) {
	executionResult, executionError := provider.executor.ExecuteOnePasswordCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{
			onePasswordItemSubcommandConstant,
			onePasswordGetSubcommandConstant,
			provider.itemName,
			onePasswordFieldsFlagConstant,
			onePasswordTokenFieldConstant,
			onePasswordRevealFlagConstant,
		},
	})
	if executionError != nil {
		return Credential{}, AuthError{Provider: ProviderOnePassword, Detail: executionError.Error()}
	}
	return credentialFromOutput(ProviderOnePassword, executionResult.StandardOutput)
}

// BitwardenProvider resolves tokens from a Bitwarden item's password field.
type BitwardenProvider struct {
	executor SecretCLIExecutor
	itemName string
}

// NewBitwardenProvider constructs a provider reading the named Bitwarden item.
func NewBitwardenProvider(executor SecretCLIExecutor, itemName string) *BitwardenProvider {
	if len(strings.TrimSpace(itemName)) == 0 {
		itemName = DefaultBitwardenItemName
	}
	return &BitwardenProvider{executor: executor, itemName: itemName}
}

// Kind identifies the provider.
func (provider *BitwardenProvider) Kind() ProviderKind {
	return ProviderBitwarden
}

// Describe returns the provider prerequisite summary.
func (provider *BitwardenProvider) Describe() string {
	return bitwardenDescriptionConstant
}

// IsAvailable reports whether bw is installed with an unlocked vault.
func (provider *BitwardenProvider) IsAvailable(executionContext context.Context) bool {
	executionResult, statusError := provider.executor.ExecuteBitwardenCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{bitwardenStatusSubcommandConstant},
	})
	if statusError != nil {
		return false
	}
	return strings.Contains(executionResult.StandardOutput, bitwardenUnlockedMarkerConstant)
}

// Resolve reads the password field from the configured item.
func (provider *BitwardenProvider) Resolve(executionContext context.Context) (Credential, error) {
	executionResult, executionError := provider.executor.ExecuteBitwardenCLI(executionContext, execshell.CommandDetails{
		Arguments: []string{bitwardenGetSubcommandConstant, bitwardenPasswordFieldConstant, provider.itemName},
	})
	if executionError != nil {
		return Credential{}, AuthError{Provider: ProviderBitwarden, Detail: executionError.Error()}
	}
	return credentialFromOutput(ProviderBitwarden, executionResult.StandardOutput)
}

// EnvironmentLookup mirrors os.LookupEnv for testability.
type EnvironmentLookup func(key string) (string, bool)

// EnvironmentProvider resolves tokens from the GITHUB_TOKEN environment variable.
type EnvironmentProvider struct {
	lookup EnvironmentLookup
}

// NewEnvironmentProvider constructs a provider reading process environment variables.
func NewEnvironmentProvider(lookup EnvironmentLookup) *EnvironmentProvider {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &EnvironmentProvider{lookup: lookup}
}

// Kind identifies the provider.
func (provider *EnvironmentProvider) Kind() ProviderKind {
	return ProviderEnvironment
}

// Describe returns the provider prerequisite summary.
func (provider *EnvironmentProvider) Describe() string {
	return environmentDescriptionConstant
}

// IsAvailable reports whether GITHUB_TOKEN holds a non-empty value.
func (provider *EnvironmentProvider) IsAvailable(executionContext context.Context) bool {
	value, present := provider.lookup(environmentTokenVariableConstant)
	return present && len(strings.TrimSpace(value)) > 0
}

// Resolve returns the environment token.
func (provider *EnvironmentProvider) Resolve(executionContext context.Context) (Credential, error) {
	value, present := provider.lookup(environmentTokenVariableConstant)
	if !present || len(strings.TrimSpace(value)) == 0 {
		return Credential{}, AuthError{Provider: ProviderEnvironment, Detail: environmentUnsetDetailConstant}
	}
	return Credential{Token: strings.TrimSpace(value), Source: ProviderEnvironment}, nil
}

// PromptProvider resolves tokens by asking the operator directly. The read is
// blocking with no timeout; an interrupt terminates the whole run.
type PromptProvider struct {
	reader io.Reader
	writer io.Writer
}

// NewPromptProvider constructs a provider reading from the supplied streams.
func NewPromptProvider(reader io.Reader, writer io.Writer) *PromptProvider {
	return &PromptProvider{reader: reader, writer: writer}
}

// Kind identifies the provider.
func (provider *PromptProvider) Kind() ProviderKind {
	return ProviderPrompt
}

// Describe returns the provider prerequisite summary.
func (provider *PromptProvider) Describe() string {
	return promptDescriptionConstant
}

// IsAvailable reports whether an input stream is attached.
func (provider *PromptProvider) IsAvailable(executionContext context.Context) bool {
	return provider.reader != nil
}

// Resolve prompts for and reads a token.
func (provider *PromptProvider) Resolve(executionContext context.Context) (Credential, error) {
	if provider.writer != nil {
		if _, writeError := io.WriteString(provider.writer, promptMessageConstant); writeError != nil {
			return Credential{}, AuthError{Provider: ProviderPrompt, Detail: promptReadFailureDetailTemplateConst + writeError.Error()}
		}
	}

	lineReader := bufio.NewReader(provider.reader)
	enteredLine, readError := lineReader.ReadString('\n')
	if readError != nil && readError != io.EOF {
		return Credential{}, AuthError{Provider: ProviderPrompt, Detail: promptReadFailureDetailTemplateConst + readError.Error()}
	}
	return credentialFromOutput(ProviderPrompt, enteredLine)
}

func credentialFromOutput(providerKind ProviderKind, rawOutput string) (Credential, error) {
	token := strings.TrimSpace(rawOutput)
	if len(token) == 0 {
		return Credential{}, AuthError{Provider: providerKind, Detail: emptyTokenDetailConstant}
	}
	return Credential{Token: token, Source: providerKind}, nil
}
