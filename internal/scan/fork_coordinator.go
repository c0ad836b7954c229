package scan

import (
	"context"
	"errors"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/githubapi"
)

const (
	archivedRepositoryDetailConstant    = "repository is archived"
	writableUpstreamMessageConstant     = "caller can push; remediating upstream directly"
	forkTargetMessageConstant           = "caller lacks push access; remediating through fork"
	logFieldTargetConstant              = "target"
	errForkProvisionerRequiredMessage   = "fork provisioner must not be nil"
	errCoordinatorLoggerRequiredMessage = "logger must not be nil"
)

// ErrForkProvisionerNotConfigured indicates the coordinator was built without a provisioner.
var ErrForkProvisionerNotConfigured = errors.New(errForkProvisionerRequiredMessage)

// ErrCoordinatorLoggerNotConfigured indicates the coordinator was built without a logger.
var ErrCoordinatorLoggerNotConfigured = errors.New(errCoordinatorLoggerRequiredMessage)

// ForkProvisioner supplies a ready fork owned by the authenticated user.
type ForkProvisioner interface {
	EnsureFork(executionContext context.Context, repositoryOwner string, repositoryName string, authenticatedLogin string) (*gh.Repository, error)
}

// ForkCoordinator decides where a remediation branch can live.
type ForkCoordinator struct {
	forks  ForkProvisioner
	logger *zap.Logger
}

// NewForkCoordinator builds a ForkCoordinator.
func NewForkCoordinator(forks ForkProvisioner, logger *zap.Logger) (*ForkCoordinator, error) {
	if forks == nil {
		return nil, ErrForkProvisionerNotConfigured
	}
	if logger == nil {
		return nil, ErrCoordinatorLoggerNotConfigured
	}
	return &ForkCoordinator{forks: forks, logger: logger}, nil
}

// EnsureWritableTarget returns the upstream repository when the caller can
// push to it, and otherwise provisions or reuses a fork. Archived
// repositories are rejected before any write is attempted.
func (coordinator *ForkCoordinator) EnsureWritableTarget(executionContext context.Context, snapshot githubapi.RepositorySnapshot, authenticatedLogin string) (RemediationTarget, error) {
	if snapshot.IsArchived {
		return RemediationTarget{}, &githubapi.ForkError{
			Kind:       githubapi.ForkErrorArchived,
			Repository: snapshot.FullName,
			Detail:     archivedRepositoryDetailConstant,
		}
	}

	if snapshot.PermissionLevel.CanPush() {
		coordinator.logger.Debug(
			writableUpstreamMessageConstant,
			zap.String(logFieldTargetConstant, snapshot.FullName),
		)
		return RemediationTarget{Owner: snapshot.Owner, Name: snapshot.Name}, nil
	}

	readyFork, forkError := coordinator.forks.EnsureFork(executionContext, snapshot.Owner, snapshot.Name, authenticatedLogin)
	if forkError != nil {
		return RemediationTarget{}, forkError
	}

	target := RemediationTarget{
		Owner:      readyFork.GetOwner().GetLogin(),
		Name:       readyFork.GetName(),
		IsUserFork: true,
	}
	coordinator.logger.Debug(
		forkTargetMessageConstant,
		zap.String(logFieldTargetConstant, target.FullName()),
	)
	return target, nil
}
