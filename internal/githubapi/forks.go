package githubapi

import (
	"context"
	"errors"
	"time"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"
)

const (
	listForksOperationConstant        = "list repository forks"
	createForkOperationConstant       = "create repository fork"
	forkNotReadyDetailConstant        = "fork did not become ready in time"
	forkReadinessAttemptsConstant     = 5
	forkReadinessBaseDelayConstant    = 2 * time.Second
	existingForkReusedMessageConstant = "reusing existing fork"
	forkRequestedMessageConstant      = "fork creation requested"
	logFieldForkConstant              = "fork"
)

// FindUserFork returns the authenticated user's existing fork of the
// repository, or nil when none exists.
func (client *Client) FindUserFork(executionContext context.Context, repositoryOwner string, repositoryName string, authenticatedLogin string) (*gh.Repository, error) {
	listOptions := &gh.RepositoryListForksOptions{
		ListOptions: gh.ListOptions{PerPage: listPageSizeConstant},
	}

	for {
		forkPage, pageResponse, listError := client.repositories.ListForks(executionContext, repositoryOwner, repositoryName, listOptions)
		if listError != nil {
			return nil, classifyAPIError(listForksOperationConstant, listError)
		}

		for _, candidateFork := range forkPage {
			if candidateFork.GetOwner().GetLogin() == authenticatedLogin {
				client.logger.Debug(
					existingForkReusedMessageConstant,
					zap.String(logFieldForkConstant, candidateFork.GetFullName()),
				)
				return candidateFork, nil
			}
		}

		if pageResponse == nil || pageResponse.NextPage == 0 {
			return nil, nil
		}
		listOptions.Page = pageResponse.NextPage
	}
}

// EnsureFork returns a ready fork of the repository owned by the
// authenticated user, reusing an existing fork when one exists and
// otherwise creating one and waiting for it to become available.
func (client *Client) EnsureFork(executionContext context.Context, repositoryOwner string, repositoryName string, authenticatedLogin string) (*gh.Repository, error) {
	existingFork, findError := client.FindUserFork(executionContext, repositoryOwner, repositoryName, authenticatedLogin)
	if findError != nil {
		return nil, findError
	}
	if existingFork != nil {
		return existingFork, nil
	}

	createdFork, _, createError := client.repositories.CreateFork(executionContext, repositoryOwner, repositoryName, nil)
	if createError != nil {
		// Fork creation is asynchronous; an accepted response means the
		// fork is being provisioned and must be polled for readiness.
		var acceptedError *gh.AcceptedError
		if !errors.As(createError, &acceptedError) {
			return nil, classifyAPIError(createForkOperationConstant, createError)
		}
	}

	client.logger.Debug(
		forkRequestedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryOwner+"/"+repositoryName),
	)

	forkOwner := authenticatedLogin
	forkName := repositoryName
	if createdFork != nil && createdFork.GetName() != "" {
		forkName = createdFork.GetName()
	}

	return client.waitForForkReady(executionContext, repositoryOwner+"/"+repositoryName, forkOwner, forkName)
}

func (client *Client) waitForForkReady(executionContext context.Context, upstreamFullName string, forkOwner string, forkName string) (*gh.Repository, error) {
	for attemptIndex := 0; attemptIndex < forkReadinessAttemptsConstant; attemptIndex++ {
		if attemptIndex > 0 {
			readinessDelay := forkReadinessBaseDelayConstant * time.Duration(attemptIndex)
			if sleepError := client.sleeper.Sleep(executionContext, readinessDelay); sleepError != nil {
				return nil, sleepError
			}
		}

		readyFork, _, getError := client.repositories.Get(executionContext, forkOwner, forkName)
		if getError == nil && readyFork.GetDefaultBranch() != "" {
			return readyFork, nil
		}
	}

	return nil, &ForkError{
		Kind:       ForkErrorTimeout,
		Repository: upstreamFullName,
		Detail:     forkNotReadyDetailConstant,
	}
}
