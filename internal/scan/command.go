package scan

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/credentials"
	"github.com/temirov/licenses-everywhere/internal/execshell"
	"github.com/temirov/licenses-everywhere/internal/githubapi"
	"github.com/temirov/licenses-everywhere/internal/gitrepo"
)

const (
	scanCommandUseConstant        = "scan"
	scanCommandShortConstant      = "Audit an organization's repositories and remediate missing licenses"
	scanCommandLongConstant       = "scan lists every public repository of the organization, checks it for a recognized license file, and opens a remediation pull request where one is missing or names the wrong copyright holder."
	organizationFlagNameConstant  = "org"
	organizationFlagShortConstant = "o"
	organizationFlagUsageConstant = "GitHub organization to audit."
	licenseFlagNameConstant       = "license"
	licenseFlagShortConstant      = "l"
	licenseFlagUsageConstant      = "License to apply without prompting (for example MIT)."
	copyrightFlagNameConstant     = "copyright"
	copyrightFlagShortConstant    = "c"
	copyrightFlagUsageConstant    = "Copyright holder written into new license files and verified in existing ones."
	dryRunFlagNameConstant        = "dry-run"
	dryRunFlagShortConstant       = "d"
	dryRunFlagUsageConstant       = "Report what would change without forking, committing, or opening pull requests."
	tokenFlagNameConstant         = "token"
	tokenFlagShortConstant        = "t"
	tokenFlagUsageConstant        = "GitHub API token; bypasses the credential provider chain."
	reposFlagNameConstant         = "repos"
	reposFlagShortConstant        = "r"
	reposFlagUsageConstant        = "Restrict the scan to these repository names."
	allowSkipFlagNameConstant     = "allow-skip"
	allowSkipFlagShortConstant    = "s"
	allowSkipFlagUsageConstant    = "Offer a skip choice in the per-repository license prompt."
	authProviderFlagNameConstant  = "auth-provider"
	authProviderFlagUsageConstant = "Restrict credential resolution to a single provider (gh-cli, 1password, bitwarden, environment, prompt)."
	authItemFlagNameConstant      = "auth-item"
	authItemFlagUsageConstant     = "Secret-manager item name holding the GitHub token."
	noSSHFlagNameConstant         = "no-ssh"
	noSSHFlagUsageConstant        = "Clone and push over token-authenticated HTTPS instead of SSH."

	tokenFlagProviderKindConstant  = credentials.ProviderKind("command-line")
	executorBuildErrorTemplateFmt  = "unable to construct shell executor: %w"
	applierBuildErrorTemplateFmt   = "unable to construct change applier: %w"
	configurationErrorTemplateFmt  = "invalid configuration: %w"
	runFailedErrorTemplateConstant = "scan failed: %w"
)

// CommandBuilder assembles the scan cobra command.
type CommandBuilder struct {
	LoggerProvider        func() *zap.Logger
	ConfigurationProvider func() Configuration
	Gateway               GatewayFactory
	Resolver              CredentialResolver
	Applier               ChangeApplier
}

// Build constructs the scan command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   scanCommandUseConstant,
		Short: scanCommandShortConstant,
		Long:  scanCommandLongConstant,
		RunE:  builder.runScan,
	}

	command.Flags().StringP(organizationFlagNameConstant, organizationFlagShortConstant, "", organizationFlagUsageConstant)
	command.Flags().StringP(licenseFlagNameConstant, licenseFlagShortConstant, "", licenseFlagUsageConstant)
	command.Flags().StringP(copyrightFlagNameConstant, copyrightFlagShortConstant, "", copyrightFlagUsageConstant)
	command.Flags().BoolP(dryRunFlagNameConstant, dryRunFlagShortConstant, false, dryRunFlagUsageConstant)
	command.Flags().StringP(tokenFlagNameConstant, tokenFlagShortConstant, "", tokenFlagUsageConstant)
	command.Flags().StringSliceP(reposFlagNameConstant, reposFlagShortConstant, nil, reposFlagUsageConstant)
	command.Flags().BoolP(allowSkipFlagNameConstant, allowSkipFlagShortConstant, false, allowSkipFlagUsageConstant)
	command.Flags().String(authProviderFlagNameConstant, "", authProviderFlagUsageConstant)
	command.Flags().String(authItemFlagNameConstant, "", authItemFlagUsageConstant)
	command.Flags().Bool(noSSHFlagNameConstant, false, noSSHFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) runScan(command *cobra.Command, arguments []string) error {
	logger := builder.resolveLogger()
	configuration := builder.configurationWithFlags(command)
	if validationError := configuration.Validate(); validationError != nil {
		return fmt.Errorf(configurationErrorTemplateFmt, validationError)
	}

	tokenFlagValue, _ := command.Flags().GetString(tokenFlagNameConstant)

	resolver := builder.Resolver
	if resolver == nil {
		if len(tokenFlagValue) > 0 {
			resolver = staticTokenResolver{token: tokenFlagValue}
		} else {
			chainResolver, resolverError := builder.buildChainResolver(command, logger, configuration)
			if resolverError != nil {
				return resolverError
			}
			resolver = chainResolver
		}
	}

	applier := builder.Applier
	if applier == nil {
		builtApplier, applierError := builder.buildApplier(logger, configuration)
		if applierError != nil {
			return applierError
		}
		applier = builtApplier
	}

	gatewayFactory := builder.Gateway
	if gatewayFactory == nil {
		gatewayFactory = func(token string, factoryLogger *zap.Logger) (PlatformGateway, error) {
			return githubapi.NewClient(token, factoryLogger)
		}
	}

	service, serviceError := NewService(ServiceOptions{
		Configuration: configuration,
		Resolver:      resolver,
		Gateway:       gatewayFactory,
		Applier:       applier,
		Prompter:      NewConsolePrompter(command.InOrStdin(), command.OutOrStdout()),
		Logger:        logger,
		ReportWriter:  command.OutOrStdout(),
	})
	if serviceError != nil {
		return serviceError
	}

	if _, runError := service.Run(command.Context()); runError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, runError)
	}
	return nil
}

// configurationWithFlags overlays changed command line flags onto the loaded
// configuration.
func (builder *CommandBuilder) configurationWithFlags(command *cobra.Command) Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	flags := command.Flags()
	if flags.Changed(organizationFlagNameConstant) {
		configuration.Organization, _ = flags.GetString(organizationFlagNameConstant)
	}
	if flags.Changed(licenseFlagNameConstant) {
		configuration.LicenseID, _ = flags.GetString(licenseFlagNameConstant)
	}
	if flags.Changed(copyrightFlagNameConstant) {
		configuration.CopyrightHolder, _ = flags.GetString(copyrightFlagNameConstant)
	}
	if flags.Changed(dryRunFlagNameConstant) {
		configuration.DryRun, _ = flags.GetBool(dryRunFlagNameConstant)
	}
	if flags.Changed(reposFlagNameConstant) {
		configuration.Repositories, _ = flags.GetStringSlice(reposFlagNameConstant)
	}
	if flags.Changed(allowSkipFlagNameConstant) {
		configuration.AllowSkip, _ = flags.GetBool(allowSkipFlagNameConstant)
	}
	if flags.Changed(authProviderFlagNameConstant) {
		configuration.AuthProvider, _ = flags.GetString(authProviderFlagNameConstant)
	}
	if flags.Changed(authItemFlagNameConstant) {
		configuration.AuthItem, _ = flags.GetString(authItemFlagNameConstant)
	}
	if flags.Changed(noSSHFlagNameConstant) {
		noSSH, _ := flags.GetBool(noSSHFlagNameConstant)
		configuration.UseSSH = !noSSH
	}

	return configuration
}

func (builder *CommandBuilder) buildChainResolver(command *cobra.Command, logger *zap.Logger, configuration Configuration) (CredentialResolver, error) {
	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, fmt.Errorf(executorBuildErrorTemplateFmt, executorError)
	}

	providerChain := credentials.DefaultProviderChain(shellExecutor, credentials.ResolverOptions{
		SecretItemName: configuration.AuthItem,
		PromptInput:    command.InOrStdin(),
		PromptOutput:   command.OutOrStdout(),
	})
	return credentials.NewResolver(providerChain, logger), nil
}

func (builder *CommandBuilder) buildApplier(logger *zap.Logger, configuration Configuration) (ChangeApplier, error) {
	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if executorError != nil {
		return nil, fmt.Errorf(executorBuildErrorTemplateFmt, executorError)
	}

	changeApplier, applierError := gitrepo.NewChangeApplier(shellExecutor, logger, configuration.TempDirectory)
	if applierError != nil {
		return nil, fmt.Errorf(applierBuildErrorTemplateFmt, applierError)
	}
	return changeApplier, nil
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

// staticTokenResolver satisfies CredentialResolver for the --token flag path.
type staticTokenResolver struct {
	token string
}

func (resolver staticTokenResolver) Resolve(context.Context, credentials.ProviderKind) (credentials.Credential, error) {
	return credentials.Credential{Token: resolver.token, Source: tokenFlagProviderKindConstant}, nil
}
