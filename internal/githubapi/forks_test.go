package githubapi

import (
	"context"
	"errors"
	"testing"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/require"
)

func forkOwnedBy(ownerLogin string) *gh.Repository {
	return &gh.Repository{
		Name:          gh.Ptr(testRepositoryNameConstant),
		FullName:      gh.Ptr(ownerLogin + "/" + testRepositoryNameConstant),
		Owner:         &gh.User{Login: gh.Ptr(ownerLogin)},
		DefaultBranch: gh.Ptr("main"),
		Fork:          gh.Ptr(true),
	}
}

func TestEnsureForkReusesExistingFork(testInstance *testing.T) {
	repositoriesService := &stubRepositoriesService{
		listForksFunc: func(context.Context, string, string, *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error) {
			return []*gh.Repository{forkOwnedBy("someone-else"), forkOwnedBy(testAuthenticatedLogin)}, &gh.Response{}, nil
		},
		createForkFunc: func(context.Context, string, string, *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error) {
			return nil, nil, errors.New("fork creation must not be attempted")
		},
	}

	client := newTestClient(repositoriesService, nil, nil, &recordingSleeper{})

	ensuredFork, ensureError := client.EnsureFork(context.Background(), testRepositoryOwnerConstant, testRepositoryNameConstant, testAuthenticatedLogin)

	require.NoError(testInstance, ensureError)
	require.Equal(testInstance, testAuthenticatedLogin, ensuredFork.GetOwner().GetLogin())
	require.Zero(testInstance, repositoriesService.createForkCalls)
}

func TestEnsureForkScansForkPages(testInstance *testing.T) {
	repositoriesService := &stubRepositoriesService{
		listForksFunc: func(_ context.Context, _ string, _ string, listOptions *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error) {
			if listOptions.Page == 0 {
				return []*gh.Repository{forkOwnedBy("someone-else")}, &gh.Response{NextPage: 2}, nil
			}
			return []*gh.Repository{forkOwnedBy(testAuthenticatedLogin)}, &gh.Response{}, nil
		},
	}

	client := newTestClient(repositoriesService, nil, nil, &recordingSleeper{})

	foundFork, findError := client.FindUserFork(context.Background(), testRepositoryOwnerConstant, testRepositoryNameConstant, testAuthenticatedLogin)

	require.NoError(testInstance, findError)
	require.NotNil(testInstance, foundFork)
	require.Equal(testInstance, testAuthenticatedLogin, foundFork.GetOwner().GetLogin())
}

func TestEnsureForkCreatesAndWaitsForReadiness(testInstance *testing.T) {
	readinessProbeCount := 0
	repositoriesService := &stubRepositoriesService{
		listForksFunc: func(context.Context, string, string, *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error) {
			return nil, &gh.Response{}, nil
		},
		createForkFunc: func(context.Context, string, string, *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error) {
			return forkOwnedBy(testAuthenticatedLogin), nil, &gh.AcceptedError{}
		},
		getFunc: func(_ context.Context, forkOwner string, forkName string) (*gh.Repository, *gh.Response, error) {
			require.Equal(testInstance, testAuthenticatedLogin, forkOwner)
			require.Equal(testInstance, testRepositoryNameConstant, forkName)
			readinessProbeCount++
			if readinessProbeCount < 3 {
				return nil, nil, errors.New("fork still provisioning")
			}
			return forkOwnedBy(testAuthenticatedLogin), nil, nil
		},
	}
	sleeper := &recordingSleeper{}

	client := newTestClient(repositoriesService, nil, nil, sleeper)

	ensuredFork, ensureError := client.EnsureFork(context.Background(), testRepositoryOwnerConstant, testRepositoryNameConstant, testAuthenticatedLogin)

	require.NoError(testInstance, ensureError)
	require.Equal(testInstance, "main", ensuredFork.GetDefaultBranch())
	require.Equal(testInstance, 1, repositoriesService.createForkCalls)
	require.Len(testInstance, sleeper.sleepDurations, 2)
}

func TestEnsureForkTimesOutWhenForkNeverBecomesReady(testInstance *testing.T) {
	repositoriesService := &stubRepositoriesService{
		listForksFunc: func(context.Context, string, string, *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error) {
			return nil, &gh.Response{}, nil
		},
		createForkFunc: func(context.Context, string, string, *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error) {
			return nil, nil, &gh.AcceptedError{}
		},
		getFunc: func(context.Context, string, string) (*gh.Repository, *gh.Response, error) {
			return nil, nil, errors.New("fork still provisioning")
		},
	}

	client := newTestClient(repositoriesService, nil, nil, &recordingSleeper{})

	_, ensureError := client.EnsureFork(context.Background(), testRepositoryOwnerConstant, testRepositoryNameConstant, testAuthenticatedLogin)

	require.Error(testInstance, ensureError)
	var forkError *ForkError
	require.ErrorAs(testInstance, ensureError, &forkError)
	require.Equal(testInstance, ForkErrorTimeout, forkError.Kind)
	require.Equal(testInstance, testRepositoryOwnerConstant+"/"+testRepositoryNameConstant, forkError.Repository)
}

func TestEnsureForkClassifiesCreateFailure(testInstance *testing.T) {
	repositoriesService := &stubRepositoriesService{
		listForksFunc: func(context.Context, string, string, *gh.RepositoryListForksOptions) ([]*gh.Repository, *gh.Response, error) {
			return nil, &gh.Response{}, nil
		},
		createForkFunc: func(context.Context, string, string, *gh.RepositoryCreateForkOptions) (*gh.Repository, *gh.Response, error) {
			return nil, nil, errors.New("forking disabled")
		},
	}

	client := newTestClient(repositoriesService, nil, nil, &recordingSleeper{})

	_, ensureError := client.EnsureFork(context.Background(), testRepositoryOwnerConstant, testRepositoryNameConstant, testAuthenticatedLogin)

	require.Error(testInstance, ensureError)
	var apiError APIError
	require.ErrorAs(testInstance, ensureError, &apiError)
	require.Equal(testInstance, APIErrorTransient, apiError.Kind)
}
