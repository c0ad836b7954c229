package githubapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/require"
)

const (
	testOrganizationNameConstant = "example-org"
	testRepositoryOwnerConstant  = "example-org"
	testRepositoryNameConstant   = "widget"
	testAuthenticatedLogin       = "audit-bot"
)

type stubRepositoriesService struct {
	listByOrgFunc          func(ctx context.Context, org string, opts *gh.RepositoryListByOrgOptions) ([]*gh.Repository, *gh.Response, error)
	getFunc                func(ctx context.Context, owner string, repo string) (*gh.Repository, *gh.Response, error)
	licenseFunc            func(ctx context.Context, owner string, repo string) (*gh.RepositoryLicense, *gh.Response, error)
	getContentsFunc        func(ctx context.Context, owner string, repo string, path string, opts *gh.RepositoryContentGetOptions) (*gh.RepositoryContent, []*gh.RepositoryContent, *gh.Response, error)
	getPermissionLevelFunc func(ctx context.Context, owner string, repo string, user string) (*gh.RepositoryPermissionLevel, *gh.Response, error)
	listForksFunc          func(ctx context.Context, owner string, repo string, opts *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error)
	createForkFunc         func(ctx context.Context, owner string, repo string, opts *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error)
	createForkCalls        int
}

func (stub *stubRepositoriesService) ListByOrg(ctx context.Context, org string, opts *gh.RepositoryListByOrgOptions) ([]*gh.Repository, *gh.Response, error) {
	return stub.listByOrgFunc(ctx, org, opts)
}

func (stub *stubRepositoriesService) Get(ctx context.Context, owner string, repo string) (*gh.Repository, *gh.Response, error) {
	return stub.getFunc(ctx, owner, repo)
}

func (stub *stubRepositoriesService) License(ctx context.Context, owner string, repo string) (*gh.RepositoryLicense, *gh.Response, error) {
	return stub.licenseFunc(ctx, owner, repo)
}

func (stub *stubRepositoriesService) GetContents(ctx context.Context, owner string, repo string, path string, opts *gh.RepositoryContentGetOptions) (*gh.RepositoryContent, []*gh.RepositoryContent, *gh.Response, error) {
	return stub.getContentsFunc(ctx, owner, repo, path, opts)
}

func (stub *stubRepositoriesService) GetPermissionLevel(ctx context.Context, owner string, repo string, user string) (*gh.RepositoryPermissionLevel, *gh.Response, error) {
	return stub.getPermissionLevelFunc(ctx, owner, repo, user)
}

func (stub *stubRepositoriesService) ListForks(ctx context.Context, owner string, repo string, opts *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error) {
	return stub.listForksFunc(ctx, owner, repo, opts)
}

func (stub *stubRepositoriesService) CreateFork(ctx context.Context, owner string, repo string, opts *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error) {
	stub.createForkCalls++
	return stub.createForkFunc(ctx, owner, repo, opts)
}

type stubPullRequestsService struct {
	listFunc        func(ctx context.Context, owner string, repo string, opts *gh.PullRequestListOptions) ([]*gh.PullRequest, *gh.Response, error)
	createFunc      func(ctx context.Context, owner string, repo string, pull *gh.NewPullRequest) (*gh.PullRequest, *gh.Response, error)
	recordedOptions *gh.PullRequestListOptions
	recordedCreate  *gh.NewPullRequest
}

func (stub *stubPullRequestsService) List(ctx context.Context, owner string, repo string, opts *gh.PullRequestListOptions) ([]*gh.PullRequest, *gh.Response, error) {
	stub.recordedOptions = opts
	return stub.listFunc(ctx, owner, repo, opts)
}

func (stub *stubPullRequestsService) Create(ctx context.Context, owner string, repo string, pull *gh.NewPullRequest) (*gh.PullRequest, *gh.Response, error) {
	stub.recordedCreate = pull
	return stub.createFunc(ctx, owner, repo, pull)
}

type stubUsersService struct {
	userLogin string
	userError error
}

func (stub *stubUsersService) Get(ctx context.Context, user string) (*gh.User, *gh.Response, error) {
	if stub.userError != nil {
		return nil, nil, stub.userError
	}
	return &gh.User{Login: gh.Ptr(stub.userLogin)}, nil, nil
}

type recordingSleeper struct {
	sleepDurations []time.Duration
}

func (sleeper *recordingSleeper) Sleep(_ context.Context, duration time.Duration) error {
	sleeper.sleepDurations = append(sleeper.sleepDurations, duration)
	return nil
}

func newTestClient(repositories RepositoriesAPI, pullRequests PullRequestsAPI, users UsersAPI, sleeper Sleeper) *Client {
	return NewClientWithServices(repositories, pullRequests, users, sleeper, nil)
}

func errorResponseWithStatus(statusCode int) *gh.ErrorResponse {
	return &gh.ErrorResponse{Response: &http.Response{StatusCode: statusCode}}
}

func TestAuthenticatedLogin(testInstance *testing.T) {
	testCases := []struct {
		name          string
		users         *stubUsersService
		expectedLogin string
		expectError   bool
	}{
		{
			name:          "returns token identity login",
			users:         &stubUsersService{userLogin: testAuthenticatedLogin},
			expectedLogin: testAuthenticatedLogin,
		},
		{
			name:        "classifies lookup failure",
			users:       &stubUsersService{userError: errorResponseWithStatus(http.StatusUnauthorized)},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			client := newTestClient(nil, nil, testCase.users, &recordingSleeper{})

			resolvedLogin, loginError := client.AuthenticatedLogin(context.Background())

			if testCase.expectError {
				require.Error(subtestInstance, loginError)
				var apiError APIError
				require.ErrorAs(subtestInstance, loginError, &apiError)
				require.Equal(subtestInstance, APIErrorForbidden, apiError.Kind)
				return
			}
			require.NoError(subtestInstance, loginError)
			require.Equal(subtestInstance, testCase.expectedLogin, resolvedLogin)
		})
	}
}

func TestClassifyAPIError(testInstance *testing.T) {
	testCases := []struct {
		name         string
		cause        error
		expectedKind APIErrorKind
	}{
		{
			name:         "rate limit error",
			cause:        &gh.RateLimitError{},
			expectedKind: APIErrorRateLimited,
		},
		{
			name:         "secondary rate limit error",
			cause:        &gh.AbuseRateLimitError{},
			expectedKind: APIErrorRateLimited,
		},
		{
			name:         "missing resource",
			cause:        errorResponseWithStatus(http.StatusNotFound),
			expectedKind: APIErrorNotFound,
		},
		{
			name:         "forbidden resource",
			cause:        errorResponseWithStatus(http.StatusForbidden),
			expectedKind: APIErrorForbidden,
		},
		{
			name:         "rejected credential",
			cause:        errorResponseWithStatus(http.StatusUnauthorized),
			expectedKind: APIErrorForbidden,
		},
		{
			name:         "unclassified failure",
			cause:        errors.New("connection reset"),
			expectedKind: APIErrorTransient,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			classifiedError := classifyAPIError("probe", testCase.cause)

			require.Equal(subtestInstance, testCase.expectedKind, classifiedError.Kind)
			require.ErrorIs(subtestInstance, classifiedError, testCase.cause)
		})
	}
}
