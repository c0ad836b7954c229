package credentials

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/execshell"
)

const (
	providersCommandUseConstant          = "auth-providers"
	providersCommandShortConstant        = "List authentication providers and their availability"
	providersCommandLongConstant         = "auth-providers enumerates every credential backend in priority order and reports whether its prerequisite tool or environment variable is present."
	statusCommandUseConstant             = "auth-status"
	statusCommandShortConstant           = "Report which authentication provider would supply the API token"
	statusCommandLongConstant            = "auth-status walks the credential chain exactly as scan does and reports the winning provider without revealing the token."
	authProviderFlagNameConstant         = "auth-provider"
	authProviderFlagUsageConstant        = "Restrict resolution to a single provider (gh-cli, 1password, bitwarden, environment, prompt)."
	authItemFlagNameConstant             = "auth-item"
	authItemFlagUsageConstant            = "Secret-manager item name holding the GitHub token."
	providerAvailableLabelConstant       = "available"
	providerUnavailableLabelConstant     = "unavailable"
	providerRowTemplateConstant          = "%-12s %-12s %s\n"
	statusResolvedTemplateConstant       = "Resolved %s\n"
	statusResolutionFailedTemplateConst  = "no credential resolvable: %w"
	executorConstructionErrorTemplateFmt = "unable to construct shell executor: %w"
)

// CommandBuilder assembles the auth-providers and auth-status cobra commands.
type CommandBuilder struct {
	LoggerProvider func() *zap.Logger
	Executor       SecretCLIExecutor
}

// BuildProvidersCommand constructs the auth-providers command.
func (builder *CommandBuilder) BuildProvidersCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   providersCommandUseConstant,
		Short: providersCommandShortConstant,
		Long:  providersCommandLongConstant,
		RunE:  builder.runProviders,
	}
	command.Flags().String(authItemFlagNameConstant, "", authItemFlagUsageConstant)
	return command, nil
}

// BuildStatusCommand constructs the auth-status command.
func (builder *CommandBuilder) BuildStatusCommand() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortConstant,
		Long:  statusCommandLongConstant,
		RunE:  builder.runStatus,
	}
	command.Flags().String(authProviderFlagNameConstant, "", authProviderFlagUsageConstant)
	command.Flags().String(authItemFlagNameConstant, "", authItemFlagUsageConstant)
	return command, nil
}

func (builder *CommandBuilder) runProviders(command *cobra.Command, arguments []string) error {
	resolver, resolverError := builder.buildResolver(command)
	if resolverError != nil {
		return resolverError
	}

	for _, provider := range resolver.Providers() {
		availabilityLabel := providerUnavailableLabelConstant
		if provider.IsAvailable(command.Context()) {
			availabilityLabel = providerAvailableLabelConstant
		}
		fmt.Fprintf(command.OutOrStdout(), providerRowTemplateConstant, provider.Kind(), availabilityLabel, provider.Describe())
	}
	return nil
}

func (builder *CommandBuilder) runStatus(command *cobra.Command, arguments []string) error {
	resolver, resolverError := builder.buildResolver(command)
	if resolverError != nil {
		return resolverError
	}

	requestedProvider, _ := command.Flags().GetString(authProviderFlagNameConstant)
	resolvedCredential, resolveError := resolver.Resolve(command.Context(), ProviderKind(requestedProvider))
	if resolveError != nil {
		return fmt.Errorf(statusResolutionFailedTemplateConst, resolveError)
	}

	fmt.Fprintf(command.OutOrStdout(), statusResolvedTemplateConstant, resolvedCredential.Fingerprint())
	return nil
}

func (builder *CommandBuilder) buildResolver(command *cobra.Command) (*Resolver, error) {
	logger := builder.resolveLogger()

	executor := builder.Executor
	if executor == nil {
		shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
		if executorError != nil {
			return nil, fmt.Errorf(executorConstructionErrorTemplateFmt, executorError)
		}
		executor = shellExecutor
	}

	secretItemName, _ := command.Flags().GetString(authItemFlagNameConstant)

	providerChain := DefaultProviderChain(executor, ResolverOptions{
		SecretItemName: secretItemName,
		PromptInput:    command.InOrStdin(),
		PromptOutput:   command.OutOrStdout(),
	})
	return NewResolver(providerChain, logger), nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	if logger := builder.LoggerProvider(); logger != nil {
		return logger
	}
	return zap.NewNop()
}
