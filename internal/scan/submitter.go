package scan

import (
	"context"
	"errors"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/githubapi"
)

const (
	headReferenceSeparatorConstant    = ":"
	pullRequestReusedMessageConstant  = "reusing existing open pull request"
	pullRequestCreatedMessageConstant = "opened pull request"
	logFieldPullRequestConstant       = "pull_request"
	errPullRequestGatewayRequired     = "pull request gateway must not be nil"
	errSubmitterLoggerRequiredMessage = "logger must not be nil"
)

// ErrPullRequestGatewayNotConfigured indicates the submitter was built without a gateway.
var ErrPullRequestGatewayNotConfigured = errors.New(errPullRequestGatewayRequired)

// ErrSubmitterLoggerNotConfigured indicates the submitter was built without a logger.
var ErrSubmitterLoggerNotConfigured = errors.New(errSubmitterLoggerRequiredMessage)

// PullRequestGateway lists and creates pull requests on the upstream repository.
type PullRequestGateway interface {
	FindOpenPullRequest(executionContext context.Context, repositoryOwner string, repositoryName string, headReference string, baseBranch string) (*gh.PullRequest, error)
	CreatePullRequest(executionContext context.Context, repositoryOwner string, repositoryName string, title string, body string, headReference string, baseBranch string) (*gh.PullRequest, error)
}

// PullRequestSubmitter opens or reuses the pull request carrying a remediation.
type PullRequestSubmitter struct {
	pullRequests PullRequestGateway
	logger       *zap.Logger
}

// NewPullRequestSubmitter builds a PullRequestSubmitter.
func NewPullRequestSubmitter(pullRequests PullRequestGateway, logger *zap.Logger) (*PullRequestSubmitter, error) {
	if pullRequests == nil {
		return nil, ErrPullRequestGatewayNotConfigured
	}
	if logger == nil {
		return nil, ErrSubmitterLoggerNotConfigured
	}
	return &PullRequestSubmitter{pullRequests: pullRequests, logger: logger}, nil
}

// Submit returns the open pull request for the change branch, creating one
// only when none exists. At most one open pull request ever exists per
// head and base pair.
func (submitter *PullRequestSubmitter) Submit(executionContext context.Context, upstream githubapi.RepositorySnapshot, target RemediationTarget, changeSet ChangeSet, title string, body string) (PullRequestRecord, error) {
	// The list filter always requires the qualified owner:branch form; the
	// creation head only needs qualification for cross-repository requests.
	qualifiedHead := target.Owner + headReferenceSeparatorConstant + changeSet.BranchName
	creationHead := changeSet.BranchName
	if target.IsUserFork {
		creationHead = qualifiedHead
	}

	existingPullRequest, findError := submitter.pullRequests.FindOpenPullRequest(executionContext, upstream.Owner, upstream.Name, qualifiedHead, upstream.DefaultBranch)
	if findError != nil {
		return PullRequestRecord{}, findError
	}
	if existingPullRequest != nil {
		submitter.logger.Debug(
			pullRequestReusedMessageConstant,
			zap.String(logFieldPullRequestConstant, existingPullRequest.GetHTMLURL()),
		)
		return recordFromPullRequest(existingPullRequest, qualifiedHead, upstream.DefaultBranch), nil
	}

	createdPullRequest, createError := submitter.pullRequests.CreatePullRequest(executionContext, upstream.Owner, upstream.Name, title, body, creationHead, upstream.DefaultBranch)
	if createError != nil {
		return PullRequestRecord{}, createError
	}

	submitter.logger.Debug(
		pullRequestCreatedMessageConstant,
		zap.String(logFieldPullRequestConstant, createdPullRequest.GetHTMLURL()),
	)
	return recordFromPullRequest(createdPullRequest, qualifiedHead, upstream.DefaultBranch), nil
}

func recordFromPullRequest(pullRequest *gh.PullRequest, headReference string, baseReference string) PullRequestRecord {
	return PullRequestRecord{
		Number:        pullRequest.GetNumber(),
		URL:           pullRequest.GetHTMLURL(),
		HeadReference: headReference,
		BaseReference: baseReference,
		State:         pullRequest.GetState(),
	}
}
