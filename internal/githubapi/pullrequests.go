package githubapi

import (
	"context"

	gh "github.com/google/go-github/v80/github"
)

const (
	openPullRequestStateConstant       = "open"
	listPullRequestsOperationConstant  = "list pull requests"
	createPullRequestOperationConstant = "create pull request"
)

// FindOpenPullRequest returns the open pull request matching the head and
// base, or nil when none exists. Head must be in "owner:branch" form.
func (client *Client) FindOpenPullRequest(executionContext context.Context, repositoryOwner string, repositoryName string, headReference string, baseBranch string) (*gh.PullRequest, error) {
	listOptions := &gh.PullRequestListOptions{
		State:       openPullRequestStateConstant,
		Head:        headReference,
		Base:        baseBranch,
		ListOptions: gh.ListOptions{PerPage: listPageSizeConstant},
	}

	matchingPullRequests, _, listError := client.pullRequests.List(executionContext, repositoryOwner, repositoryName, listOptions)
	if listError != nil {
		return nil, classifyAPIError(listPullRequestsOperationConstant, listError)
	}

	if len(matchingPullRequests) == 0 {
		return nil, nil
	}
	return matchingPullRequests[0], nil
}

// CreatePullRequest opens a pull request from the head reference onto the base branch.
func (client *Client) CreatePullRequest(executionContext context.Context, repositoryOwner string, repositoryName string, title string, body string, headReference string, baseBranch string) (*gh.PullRequest, error) {
	newPullRequest := &gh.NewPullRequest{
		Title: gh.Ptr(title),
		Body:  gh.Ptr(body),
		Head:  gh.Ptr(headReference),
		Base:  gh.Ptr(baseBranch),
	}

	createdPullRequest, _, createError := client.pullRequests.Create(executionContext, repositoryOwner, repositoryName, newPullRequest)
	if createError != nil {
		return nil, classifyAPIError(createPullRequestOperationConstant, createError)
	}
	return createdPullRequest, nil
}
