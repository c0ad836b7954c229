package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	rateLimiterCreationErrorTemplateConstant = "unable to create rate limit transport: %w"
	rateLimitSleepCapConstant                = 15 * time.Minute
	listPageSizeConstant                     = 100
	transientRetryAttemptsConstant           = 3
	transientRetryBaseDelayConstant          = time.Second
)

// RepositoriesAPI captures the go-github repository service surface in use.
type RepositoriesAPI interface {
	ListByOrg(ctx context.Context, org string, opts *gh.RepositoryListByOrgOptions) ([]*gh.Repository, *gh.Response, error)
	Get(ctx context.Context, owner string, repo string) (*gh.Repository, *gh.Response, error)
	License(ctx context.Context, owner string, repo string) (*gh.RepositoryLicense, *gh.Response, error)
	GetContents(ctx context.Context, owner string, repo string, path string, opts *gh.RepositoryContentGetOptions) (*gh.RepositoryContent, []*gh.RepositoryContent, *gh.Response, error)
	GetPermissionLevel(ctx context.Context, owner string, repo string, user string) (*gh.RepositoryPermissionLevel, *gh.Response, error)
	ListForks(ctx context.Context, owner string, repo string, opts *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error)
	CreateFork(ctx context.Context, owner string, repo string, opts *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error)
}

// PullRequestsAPI captures the go-github pull request service surface in use.
type PullRequestsAPI interface {
	List(ctx context.Context, owner string, repo string, opts *gh.PullRequestListOptions) ([]*gh.PullRequest, *gh.Response, error)
	Create(ctx context.Context, owner string, repo string, pull *gh.NewPullRequest) (*gh.PullRequest, *gh.Response, error)
}

// UsersAPI captures the go-github user service surface in use.
type UsersAPI interface {
	Get(ctx context.Context, user string) (*gh.User, *gh.Response, error)
}

// Sleeper abstracts delay behavior for deterministic testing.
type Sleeper interface {
	Sleep(executionContext context.Context, duration time.Duration) error
}

// SystemSleeper implements Sleeper with context-aware waiting.
type SystemSleeper struct{}

// Sleep waits for the duration or until the context is cancelled.
func (SystemSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	sleepTimer := time.NewTimer(duration)
	defer sleepTimer.Stop()
	select {
	case <-sleepTimer.C:
		return nil
	case <-executionContext.Done():
		return executionContext.Err()
	}
}

// Client provides the platform API operations required by the remediation workflow.
type Client struct {
	repositories RepositoriesAPI
	pullRequests PullRequestsAPI
	users        UsersAPI
	sleeper      Sleeper
	logger       *zap.Logger
}

// NewClient builds a Client authenticated with the provided token.
func NewClient(token string, logger *zap.Logger) (*Client, error) {
	rateLimitTransport, transportError := github_ratelimit.NewRateLimitWaiter(
		nil,
		github_ratelimit.WithSingleSleepLimit(rateLimitSleepCapConstant, nil),
	)
	if transportError != nil {
		return nil, fmt.Errorf(rateLimiterCreationErrorTemplateConstant, transportError)
	}

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitTransport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	githubClient := gh.NewClient(httpClient)
	return NewClientWithServices(githubClient.Repositories, githubClient.PullRequests, githubClient.Users, SystemSleeper{}, logger), nil
}

// NewClientWithServices wires a Client over explicit service implementations.
func NewClientWithServices(repositories RepositoriesAPI, pullRequests PullRequestsAPI, users UsersAPI, sleeper Sleeper, logger *zap.Logger) *Client {
	if sleeper == nil {
		sleeper = SystemSleeper{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		repositories: repositories,
		pullRequests: pullRequests,
		users:        users,
		sleeper:      sleeper,
		logger:       logger,
	}
}

// AuthenticatedLogin returns the login of the token's identity.
func (client *Client) AuthenticatedLogin(executionContext context.Context) (string, error) {
	authenticatedUser, _, userError := client.users.Get(executionContext, "")
	if userError != nil {
		return "", classifyAPIError("resolve authenticated user", userError)
	}
	return authenticatedUser.GetLogin(), nil
}

// retryTransient re-invokes the operation on retryable failures with a growing delay.
func (client *Client) retryTransient(executionContext context.Context, operation string, invoke func() error) error {
	var lastError error
	for attemptIndex := 0; attemptIndex < transientRetryAttemptsConstant; attemptIndex++ {
		if attemptIndex > 0 {
			backoffDelay := transientRetryBaseDelayConstant * time.Duration(1<<(attemptIndex-1))
			if sleepError := client.sleeper.Sleep(executionContext, backoffDelay); sleepError != nil {
				return sleepError
			}
		}

		invokeError := invoke()
		if invokeError == nil {
			return nil
		}

		classifiedError := classifyAPIError(operation, invokeError)
		if !isRetryable(classifiedError) {
			return classifiedError
		}
		lastError = classifiedError
	}
	return lastError
}
