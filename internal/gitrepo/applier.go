package gitrepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/execshell"
)

const (
	cloneSubcommandConstant          = "clone"
	fetchSubcommandConstant          = "fetch"
	checkoutSubcommandConstant       = "checkout"
	addSubcommandConstant            = "add"
	commitSubcommandConstant         = "commit"
	pushSubcommandConstant           = "push"
	configFlagConstant               = "-c"
	emptyCredentialHelperConstant    = "credential.helper="
	cloneDepthFlagConstant           = "--depth"
	cloneDepthValueConstant          = "1"
	newBranchFlagConstant            = "-b"
	commitMessageFlagConstant        = "-m"
	setUpstreamFlagConstant          = "--set-upstream"
	originRemoteNameConstant         = "origin"
	workingDirectoryPatternConstant  = "license-remediation-*"
	nothingToCommitMarkerConstant    = "nothing to commit"
	authenticationFailedMarker       = "authentication failed"
	permissionDeniedMarkerConstant   = "permission denied"
	missingUsernameMarkerConstant    = "could not read username"
	cloneStartedMessageConstant      = "cloning repository"
	branchReusedMessageConstant      = "reusing remediation branch from an earlier run"
	noChangesMessageConstant         = "license file already matches; nothing to commit"
	changesPushedMessageConstant     = "pushed remediation branch"
	logFieldRepositoryConstant       = "repository"
	logFieldBranchConstant           = "branch"
	logFieldRemoteConstant           = "remote"
	filePermissionsConstant          = 0o644
	errLoggerRequiredMessageConstant = "logger must not be nil"
	errRunnerRequiredMessageConstant = "git executor must not be nil"
)

// ErrApplierLoggerNotConfigured indicates the applier was constructed without a logger.
var ErrApplierLoggerNotConfigured = errors.New(errLoggerRequiredMessageConstant)

// ErrApplierExecutorNotConfigured indicates the applier was constructed without a git executor.
var ErrApplierExecutorNotConfigured = errors.New(errRunnerRequiredMessageConstant)

// GitExecutor runs git commands for the applier.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ChangeRequest describes a single license file change to clone, commit, and push.
type ChangeRequest struct {
	RepositoryFullName string
	Remote             RemoteSpecification
	BranchName         string
	FileName           string
	FileContent        string
	CommitMessage      string
}

// ChangeResult reports what the applier did for a request.
type ChangeResult struct {
	BranchName string
	Committed  bool
	Pushed     bool
}

// ChangeApplier performs license changes through local clones.
type ChangeApplier struct {
	executor           GitExecutor
	logger             *zap.Logger
	workingDirectories string
}

// NewChangeApplier builds a ChangeApplier. The working directory root may be
// blank to use the system temporary directory.
func NewChangeApplier(executor GitExecutor, logger *zap.Logger, workingDirectoryRoot string) (*ChangeApplier, error) {
	if executor == nil {
		return nil, ErrApplierExecutorNotConfigured
	}
	if logger == nil {
		return nil, ErrApplierLoggerNotConfigured
	}
	return &ChangeApplier{executor: executor, logger: logger, workingDirectories: workingDirectoryRoot}, nil
}

// Apply clones the remote, checks out the remediation branch (reusing one a
// previous run pushed), writes the license file, commits, and pushes. A clone
// whose license file already matches the desired content commits nothing and
// pushes nothing.
func (applier *ChangeApplier) Apply(executionContext context.Context, request ChangeRequest) (ChangeResult, error) {
	remoteURL, remoteError := BuildRemoteURL(request.Remote)
	if remoteError != nil {
		return ChangeResult{}, remoteError
	}

	cloneDirectory, directoryError := os.MkdirTemp(applier.workingDirectories, workingDirectoryPatternConstant)
	if directoryError != nil {
		return ChangeResult{}, directoryError
	}
	defer func() {
		_ = os.RemoveAll(cloneDirectory)
	}()

	applier.logger.Debug(
		cloneStartedMessageConstant,
		zap.String(logFieldRepositoryConstant, request.RepositoryFullName),
		zap.String(logFieldRemoteConstant, execshell.MaskCredentialURL(remoteURL)),
	)

	if cloneError := applier.clone(executionContext, request, remoteURL, cloneDirectory); cloneError != nil {
		return ChangeResult{}, cloneError
	}

	if branchError := applier.checkoutBranch(executionContext, request, cloneDirectory); branchError != nil {
		return ChangeResult{}, branchError
	}

	licenseFilePath := filepath.Join(cloneDirectory, request.FileName)
	if writeError := os.WriteFile(licenseFilePath, []byte(request.FileContent), filePermissionsConstant); writeError != nil {
		return ChangeResult{}, writeError
	}

	committed, commitError := applier.commit(executionContext, request, cloneDirectory)
	if commitError != nil {
		return ChangeResult{}, commitError
	}
	if !committed {
		applier.logger.Debug(
			noChangesMessageConstant,
			zap.String(logFieldRepositoryConstant, request.RepositoryFullName),
		)
		return ChangeResult{BranchName: request.BranchName}, nil
	}

	if pushError := applier.push(executionContext, request, cloneDirectory); pushError != nil {
		return ChangeResult{}, pushError
	}

	applier.logger.Debug(
		changesPushedMessageConstant,
		zap.String(logFieldRepositoryConstant, request.RepositoryFullName),
		zap.String(logFieldBranchConstant, request.BranchName),
	)

	return ChangeResult{BranchName: request.BranchName, Committed: true, Pushed: true}, nil
}

func (applier *ChangeApplier) clone(executionContext context.Context, request ChangeRequest, remoteURL string, cloneDirectory string) error {
	cloneArguments := applier.credentialArguments(request)
	cloneArguments = append(cloneArguments, cloneSubcommandConstant, cloneDepthFlagConstant, cloneDepthValueConstant, remoteURL, cloneDirectory)

	_, cloneError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{Arguments: cloneArguments})
	if cloneError != nil {
		return applier.classifyFailure(request, GitErrorCloneFailed, cloneError)
	}
	return nil
}

// checkoutBranch puts the clone on the remediation branch. The shallow clone
// only carries the default branch, so an earlier run's remote branch is
// fetched first and reused; committing on top of it keeps the push a
// fast-forward. A fetch miss means no earlier run pushed the branch and a
// fresh one is created.
func (applier *ChangeApplier) checkoutBranch(executionContext context.Context, request ChangeRequest, cloneDirectory string) error {
	fetchArguments := applier.credentialArguments(request)
	fetchArguments = append(fetchArguments, fetchSubcommandConstant, originRemoteNameConstant, request.BranchName+":"+request.BranchName)

	_, fetchError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        fetchArguments,
		WorkingDirectory: cloneDirectory,
	})
	if fetchError == nil {
		applier.logger.Debug(
			branchReusedMessageConstant,
			zap.String(logFieldRepositoryConstant, request.RepositoryFullName),
			zap.String(logFieldBranchConstant, request.BranchName),
		)
		// The fetch refspec materialized the branch locally.
		_, switchError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
			Arguments:        []string{checkoutSubcommandConstant, request.BranchName},
			WorkingDirectory: cloneDirectory,
		})
		if switchError != nil {
			return applier.classifyFailure(request, GitErrorBranchConflict, switchError)
		}
		return nil
	}

	_, createError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{checkoutSubcommandConstant, newBranchFlagConstant, request.BranchName},
		WorkingDirectory: cloneDirectory,
	})
	if createError == nil {
		return nil
	}

	// The branch may already exist locally from an interrupted earlier run.
	_, switchError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{checkoutSubcommandConstant, request.BranchName},
		WorkingDirectory: cloneDirectory,
	})
	if switchError != nil {
		return applier.classifyFailure(request, GitErrorBranchConflict, createError)
	}
	return nil
}

func (applier *ChangeApplier) commit(executionContext context.Context, request ChangeRequest, cloneDirectory string) (bool, error) {
	_, addError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{addSubcommandConstant, request.FileName},
		WorkingDirectory: cloneDirectory,
	})
	if addError != nil {
		return false, applier.classifyFailure(request, GitErrorCommitFailed, addError)
	}

	_, commitError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{commitSubcommandConstant, commitMessageFlagConstant, request.CommitMessage},
		WorkingDirectory: cloneDirectory,
	})
	if commitError == nil {
		return true, nil
	}
	if strings.Contains(strings.ToLower(commandFailureOutput(commitError)), nothingToCommitMarkerConstant) {
		return false, nil
	}
	return false, applier.classifyFailure(request, GitErrorCommitFailed, commitError)
}

func (applier *ChangeApplier) push(executionContext context.Context, request ChangeRequest, cloneDirectory string) error {
	pushArguments := applier.credentialArguments(request)
	pushArguments = append(pushArguments, pushSubcommandConstant, setUpstreamFlagConstant, originRemoteNameConstant, request.BranchName)

	_, pushError := applier.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        pushArguments,
		WorkingDirectory: cloneDirectory,
	})
	if pushError == nil {
		return nil
	}

	failureOutput := strings.ToLower(commandFailureOutput(pushError))
	switch {
	case strings.Contains(failureOutput, authenticationFailedMarker),
		strings.Contains(failureOutput, permissionDeniedMarkerConstant),
		strings.Contains(failureOutput, missingUsernameMarkerConstant):
		return applier.classifyFailure(request, GitErrorAuthRejected, pushError)
	default:
		return applier.classifyFailure(request, GitErrorPushRejected, pushError)
	}
}

// credentialArguments disables the ambient credential helper for token
// remotes so the embedded token never reaches credential storage.
func (applier *ChangeApplier) credentialArguments(request ChangeRequest) []string {
	if request.Remote.UseSSH {
		return nil
	}
	return []string{configFlagConstant, emptyCredentialHelperConstant}
}

func (applier *ChangeApplier) classifyFailure(request ChangeRequest, kind GitErrorKind, cause error) GitError {
	return GitError{
		Kind:       kind,
		Repository: request.RepositoryFullName,
		Detail:     execshell.MaskCredentialURL(cause.Error()),
	}
}

// commandFailureOutput extracts stdout and stderr from a failed command error
// so markers like "nothing to commit" can be matched.
func commandFailureOutput(commandError error) string {
	var failedError execshell.CommandFailedError
	if errors.As(commandError, &failedError) {
		return failedError.Result.StandardOutput + "\n" + failedError.Result.StandardError
	}
	return commandError.Error()
}
