package scan

import (
	"context"
	"fmt"
	"io"
	"time"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/credentials"
	"github.com/temirov/licenses-everywhere/internal/githubapi"
	"github.com/temirov/licenses-everywhere/internal/gitrepo"
	"github.com/temirov/licenses-everywhere/internal/licenses"
)

const (
	branchNameTemplateConstant          = "chore/%s-%s-license"
	addCommitMessageTemplateConstant    = "Add %s license"
	updateCommitMessageTemplateConstant = "Update copyright holder in %s"
	addTitleTemplateConstant            = "Add %s license"
	updateTitleTemplateConstant         = "Update %s license copyright holder"
	addBodyTemplateConstant             = "This repository has no license file. This pull request adds the %s license on behalf of %s."
	updateBodyTemplateConstant          = "The copyright line of the existing license does not name %s. This pull request updates it."
	dryRunAddDetailTemplateConstant     = "would add %s license on branch %s"
	dryRunUpdateDetailTemplateConstant  = "would update %s in place on branch %s"
	userDeclinedDetailConstant          = "user declined"
	credentialResolvedMessageConstant   = "credential resolved"
	scanStartedMessageConstant          = "scanning organization"
	repositoryNotFoundMessageConstant   = "requested repository not found in organization listing"
	licenseUnreadableMessageConstant    = "license file could not be read; leaving repository untouched"
	mismatchedHolderMessageConstant     = "license holder mismatch; scheduling update"
	reportHeaderTemplateConstant        = "\nLicense audit for %s: %d repositories\n"
	reportSummaryTemplateConstant       = "compliant: %d  remediated: %d  planned: %d  skipped: %d  failed: %d\n"
	logFieldOrganizationConstant        = "organization"
	logFieldRepositoryConstant          = "repository"
	logFieldSourceConstant              = "source"
	errMissingCollaboratorTemplate      = "scan service: %s must not be nil"
)

// PlatformGateway is the platform API surface the orchestrator drives.
// *githubapi.Client satisfies it.
type PlatformGateway interface {
	AuthenticatedLogin(executionContext context.Context) (string, error)
	ListOrganizationRepositories(executionContext context.Context, organizationName string) ([]*gh.Repository, error)
	InspectRepository(executionContext context.Context, repository *gh.Repository, authenticatedLogin string) githubapi.RepositorySnapshot
	LicenseFileContent(executionContext context.Context, repositoryOwner string, repositoryName string, filePath string) (string, error)
	EnsureFork(executionContext context.Context, repositoryOwner string, repositoryName string, authenticatedLogin string) (*gh.Repository, error)
	FindOpenPullRequest(executionContext context.Context, repositoryOwner string, repositoryName string, headReference string, baseBranch string) (*gh.PullRequest, error)
	CreatePullRequest(executionContext context.Context, repositoryOwner string, repositoryName string, title string, body string, headReference string, baseBranch string) (*gh.PullRequest, error)
}

// GatewayFactory builds the platform gateway once a token is resolved.
type GatewayFactory func(token string, logger *zap.Logger) (PlatformGateway, error)

// CredentialResolver yields the API token for the run.
type CredentialResolver interface {
	Resolve(executionContext context.Context, requestedProvider credentials.ProviderKind) (credentials.Credential, error)
}

// ChangeApplier performs the clone, branch, commit, and push sequence.
type ChangeApplier interface {
	Apply(executionContext context.Context, request gitrepo.ChangeRequest) (gitrepo.ChangeResult, error)
}

// ServiceOptions carries the collaborators of a Service.
type ServiceOptions struct {
	Configuration Configuration
	Resolver      CredentialResolver
	Gateway       GatewayFactory
	Applier       ChangeApplier
	Prompter      LicensePrompter
	Logger        *zap.Logger
	ReportWriter  io.Writer
	Sleeper       githubapi.Sleeper
	Clock         func() time.Time
}

// Service orchestrates one audit and remediation run.
type Service struct {
	configuration Configuration
	resolver      CredentialResolver
	gateway       GatewayFactory
	applier       ChangeApplier
	prompter      LicensePrompter
	logger        *zap.Logger
	reportWriter  io.Writer
	sleeper       githubapi.Sleeper
	clock         func() time.Time
}

// NewService builds a Service after checking every collaborator is present.
func NewService(options ServiceOptions) (*Service, error) {
	collaborators := map[string]bool{
		"resolver":      options.Resolver == nil,
		"gateway":       options.Gateway == nil,
		"applier":       options.Applier == nil,
		"prompter":      options.Prompter == nil,
		"logger":        options.Logger == nil,
		"report writer": options.ReportWriter == nil,
	}
	for collaboratorName, missing := range collaborators {
		if missing {
			return nil, fmt.Errorf(errMissingCollaboratorTemplate, collaboratorName)
		}
	}

	sleeper := options.Sleeper
	if sleeper == nil {
		sleeper = githubapi.SystemSleeper{}
	}
	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		configuration: options.Configuration,
		resolver:      options.Resolver,
		gateway:       options.Gateway,
		applier:       options.Applier,
		prompter:      options.Prompter,
		logger:        options.Logger,
		reportWriter:  options.ReportWriter,
		sleeper:       sleeper,
		clock:         clock,
	}, nil
}

// Run audits the organization and remediates non-compliant repositories.
// Credential resolution and organization listing failures abort the run;
// everything after that is isolated per repository. A cancelled context
// stops the walk but the report still covers every recorded outcome.
func (service *Service) Run(executionContext context.Context) (Report, error) {
	resolvedCredential, resolveError := service.resolver.Resolve(executionContext, credentials.ProviderKind(service.configuration.AuthProvider))
	if resolveError != nil {
		return Report{}, resolveError
	}
	service.logger.Info(
		credentialResolvedMessageConstant,
		zap.String(logFieldSourceConstant, string(resolvedCredential.Source)),
	)

	platformGateway, gatewayError := service.gateway(resolvedCredential.Token, service.logger)
	if gatewayError != nil {
		return Report{}, gatewayError
	}

	authenticatedLogin, loginError := platformGateway.AuthenticatedLogin(executionContext)
	if loginError != nil {
		return Report{}, loginError
	}

	service.logger.Info(
		scanStartedMessageConstant,
		zap.String(logFieldOrganizationConstant, service.configuration.Organization),
	)
	organizationRepositories, listError := platformGateway.ListOrganizationRepositories(executionContext, service.configuration.Organization)
	if listError != nil {
		return Report{}, listError
	}

	forkCoordinator, coordinatorError := NewForkCoordinator(platformGateway, service.logger)
	if coordinatorError != nil {
		return Report{}, coordinatorError
	}
	submitter, submitterError := NewPullRequestSubmitter(platformGateway, service.logger)
	if submitterError != nil {
		return Report{}, submitterError
	}

	candidateRepositories := service.filterRepositories(organizationRepositories)

	report := Report{Organization: service.configuration.Organization}
	for repositoryIndex, candidateRepository := range organizationRepositoriesOrFiltered(organizationRepositories, candidateRepositories) {
		if executionContext.Err() != nil {
			break
		}
		if repositoryIndex > 0 && service.configuration.PacingDelay > 0 {
			if sleepError := service.sleeper.Sleep(executionContext, service.configuration.PacingDelay); sleepError != nil {
				break
			}
		}

		outcome := service.remediateRepository(executionContext, platformGateway, forkCoordinator, submitter, authenticatedLogin, resolvedCredential.Token, candidateRepository)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	service.writeReport(report)
	return report, nil
}

// filterRepositories applies the explicit repository list, warning about
// names the organization listing does not contain. The filter applies to
// both addition and update remediations alike.
func (service *Service) filterRepositories(organizationRepositories []*gh.Repository) []*gh.Repository {
	if len(service.configuration.Repositories) == 0 {
		return nil
	}

	repositoriesByName := make(map[string]*gh.Repository, len(organizationRepositories))
	for _, organizationRepository := range organizationRepositories {
		repositoriesByName[organizationRepository.GetName()] = organizationRepository
	}

	filteredRepositories := make([]*gh.Repository, 0, len(service.configuration.Repositories))
	for _, requestedName := range service.configuration.Repositories {
		matchedRepository, nameFound := repositoriesByName[requestedName]
		if !nameFound {
			service.logger.Warn(
				repositoryNotFoundMessageConstant,
				zap.String(logFieldRepositoryConstant, requestedName),
			)
			continue
		}
		filteredRepositories = append(filteredRepositories, matchedRepository)
	}
	return filteredRepositories
}

func organizationRepositoriesOrFiltered(organizationRepositories []*gh.Repository, filteredRepositories []*gh.Repository) []*gh.Repository {
	if filteredRepositories != nil {
		return filteredRepositories
	}
	return organizationRepositories
}

func (service *Service) remediateRepository(executionContext context.Context, platformGateway PlatformGateway, forkCoordinator *ForkCoordinator, submitter *PullRequestSubmitter, authenticatedLogin string, token string, repository *gh.Repository) RemediationOutcome {
	snapshot := platformGateway.InspectRepository(executionContext, repository, authenticatedLogin)

	remediationAction, compliant := service.classifySnapshot(executionContext, platformGateway, snapshot)
	if compliant {
		return RemediationOutcome{Repository: snapshot.FullName, Kind: OutcomeAlreadyLicensed}
	}

	selectedLicenseID, skipped, selectionError := service.selectLicense(snapshot)
	if selectionError != nil {
		return failedOutcome(snapshot.FullName, selectionError)
	}
	if skipped {
		return RemediationOutcome{Repository: snapshot.FullName, Kind: OutcomeSkipped, Detail: userDeclinedDetailConstant}
	}

	changeSet, changeSetError := service.buildChangeSet(remediationAction, snapshot, selectedLicenseID)
	if changeSetError != nil {
		return failedOutcome(snapshot.FullName, changeSetError)
	}

	if service.configuration.DryRun {
		return RemediationOutcome{
			Repository: snapshot.FullName,
			Kind:       OutcomeDryRunPlanned,
			Detail:     service.dryRunDetail(remediationAction, snapshot, selectedLicenseID, changeSet),
		}
	}

	target, targetError := forkCoordinator.EnsureWritableTarget(executionContext, snapshot, authenticatedLogin)
	if targetError != nil {
		return failedOutcome(snapshot.FullName, targetError)
	}

	_, applyError := service.applier.Apply(executionContext, gitrepo.ChangeRequest{
		RepositoryFullName: target.FullName(),
		Remote: gitrepo.RemoteSpecification{
			Owner:      target.Owner,
			Repository: target.Name,
			UseSSH:     service.configuration.UseSSH,
			Token:      token,
		},
		BranchName:    changeSet.BranchName,
		FileName:      changeSet.FilePath,
		FileContent:   changeSet.FileContent,
		CommitMessage: changeSet.CommitMessage,
	})
	if applyError != nil {
		return failedOutcome(snapshot.FullName, applyError)
	}

	title, body := service.pullRequestText(remediationAction, selectedLicenseID)
	pullRequestRecord, submitError := submitter.Submit(executionContext, snapshot, target, changeSet, title, body)
	if submitError != nil {
		return failedOutcome(snapshot.FullName, submitError)
	}

	return RemediationOutcome{
		Repository:     snapshot.FullName,
		Kind:           OutcomeSucceeded,
		PullRequestURL: pullRequestRecord.URL,
	}
}

// classifySnapshot reports whether the repository is compliant and, when it
// is not, which remediation action applies. A licensed repository whose
// copyright line does not name the configured holder needs an in-place
// update rather than an addition.
func (service *Service) classifySnapshot(executionContext context.Context, platformGateway PlatformGateway, snapshot githubapi.RepositorySnapshot) (RemediationAction, bool) {
	if !snapshot.HasLicense {
		return ActionAddLicense, false
	}

	if len(service.configuration.CopyrightHolder) == 0 || len(snapshot.LicenseFileName) == 0 {
		return "", true
	}

	licenseContent, contentError := platformGateway.LicenseFileContent(executionContext, snapshot.Owner, snapshot.Name, snapshot.LicenseFileName)
	if contentError != nil {
		// An unreadable license file is reported, not remediated blindly.
		service.logger.Warn(
			licenseUnreadableMessageConstant,
			zap.String(logFieldRepositoryConstant, snapshot.FullName),
			zap.Error(contentError),
		)
		return "", true
	}

	// Licenses without a copyright statement (the Unlicense, say) have no
	// holder line to correct, so there is nothing to update in place.
	if !licenses.HasCopyrightLine(licenseContent) {
		return "", true
	}

	if licenses.HolderMatches(licenseContent, service.configuration.CopyrightHolder) {
		return "", true
	}

	service.logger.Info(
		mismatchedHolderMessageConstant,
		zap.String(logFieldRepositoryConstant, snapshot.FullName),
	)
	return ActionUpdateLicense, false
}

func (service *Service) selectLicense(snapshot githubapi.RepositorySnapshot) (string, bool, error) {
	if len(service.configuration.LicenseID) > 0 {
		return service.configuration.LicenseID, false, nil
	}
	return service.prompter.SelectLicense(snapshot.FullName, licenses.DefaultLicenseID, service.configuration.AllowSkip)
}

func (service *Service) buildChangeSet(remediationAction RemediationAction, snapshot githubapi.RepositorySnapshot, selectedLicenseID string) (ChangeSet, error) {
	renderedContent, renderError := licenses.Render(selectedLicenseID, service.configuration.CopyrightHolder, service.clock().Year())
	if renderError != nil {
		return ChangeSet{}, renderError
	}

	fileName := service.configuration.LicenseFileName
	commitMessage := fmt.Sprintf(addCommitMessageTemplateConstant, selectedLicenseID)
	if remediationAction == ActionUpdateLicense {
		fileName = snapshot.LicenseFileName
		commitMessage = fmt.Sprintf(updateCommitMessageTemplateConstant, fileName)
	}
	if len(service.configuration.CommitMessage) > 0 {
		commitMessage = service.configuration.CommitMessage
	}

	return ChangeSet{
		BranchName:    fmt.Sprintf(branchNameTemplateConstant, remediationAction, licenses.Slug(selectedLicenseID)),
		FilePath:      fileName,
		FileContent:   renderedContent,
		CommitMessage: commitMessage,
	}, nil
}

func (service *Service) dryRunDetail(remediationAction RemediationAction, snapshot githubapi.RepositorySnapshot, selectedLicenseID string, changeSet ChangeSet) string {
	if remediationAction == ActionUpdateLicense {
		return fmt.Sprintf(dryRunUpdateDetailTemplateConstant, snapshot.LicenseFileName, changeSet.BranchName)
	}
	return fmt.Sprintf(dryRunAddDetailTemplateConstant, selectedLicenseID, changeSet.BranchName)
}

func (service *Service) pullRequestText(remediationAction RemediationAction, selectedLicenseID string) (string, string) {
	title := fmt.Sprintf(addTitleTemplateConstant, selectedLicenseID)
	body := fmt.Sprintf(addBodyTemplateConstant, selectedLicenseID, service.configuration.CopyrightHolder)
	if remediationAction == ActionUpdateLicense {
		title = fmt.Sprintf(updateTitleTemplateConstant, selectedLicenseID)
		body = fmt.Sprintf(updateBodyTemplateConstant, service.configuration.CopyrightHolder)
	}
	if len(service.configuration.PullRequestTitle) > 0 {
		title = service.configuration.PullRequestTitle
	}
	if len(service.configuration.PullRequestBody) > 0 {
		body = service.configuration.PullRequestBody
	}
	return title, body
}

func (service *Service) writeReport(report Report) {
	fmt.Fprintf(service.reportWriter, reportHeaderTemplateConstant, report.Organization, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		fmt.Fprintln(service.reportWriter, outcome.Describe())
	}
	fmt.Fprintf(
		service.reportWriter,
		reportSummaryTemplateConstant,
		report.CountByKind(OutcomeAlreadyLicensed),
		report.CountByKind(OutcomeSucceeded),
		report.CountByKind(OutcomeDryRunPlanned),
		report.CountByKind(OutcomeSkipped),
		report.CountByKind(OutcomeFailed),
	)
}

func failedOutcome(repositoryFullName string, failureCause error) RemediationOutcome {
	return RemediationOutcome{
		Repository: repositoryFullName,
		Kind:       OutcomeFailed,
		Detail:     failureCause.Error(),
	}
}
