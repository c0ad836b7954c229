package scan_test

import (
	"context"
	"testing"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/licenses-everywhere/internal/githubapi"
	"github.com/temirov/licenses-everywhere/internal/scan"
)

type stubForkProvisioner struct {
	fork            *gh.Repository
	provisionError  error
	ensureCallCount int
}

func (provisioner *stubForkProvisioner) EnsureFork(context.Context, string, string, string) (*gh.Repository, error) {
	provisioner.ensureCallCount++
	if provisionError := provisioner.provisionError; provisionError != nil {
		return nil, provisionError
	}
	return provisioner.fork, nil
}

func TestEnsureWritableTarget(testInstance *testing.T) {
	userFork := &gh.Repository{
		Name:  gh.Ptr("widget"),
		Owner: &gh.User{Login: gh.Ptr(testLoginConstant)},
	}

	testCases := []struct {
		name             string
		snapshot         githubapi.RepositorySnapshot
		expectedTarget   scan.RemediationTarget
		expectedForkKind githubapi.ForkErrorKind
		expectForkCall   bool
	}{
		{
			name:           "admin permission targets upstream",
			snapshot:       snapshotFor("widget", false, githubapi.PermissionAdmin),
			expectedTarget: scan.RemediationTarget{Owner: testOrganizationConstant, Name: "widget"},
		},
		{
			name:           "write permission targets upstream",
			snapshot:       snapshotFor("widget", false, githubapi.PermissionWrite),
			expectedTarget: scan.RemediationTarget{Owner: testOrganizationConstant, Name: "widget"},
		},
		{
			name:           "read permission targets fork",
			snapshot:       snapshotFor("widget", false, githubapi.PermissionRead),
			expectedTarget: scan.RemediationTarget{Owner: testLoginConstant, Name: "widget", IsUserFork: true},
			expectForkCall: true,
		},
		{
			name:           "no permission targets fork",
			snapshot:       snapshotFor("widget", false, githubapi.PermissionNone),
			expectedTarget: scan.RemediationTarget{Owner: testLoginConstant, Name: "widget", IsUserFork: true},
			expectForkCall: true,
		},
		{
			name: "archived repository is rejected",
			snapshot: func() githubapi.RepositorySnapshot {
				snapshot := snapshotFor("widget", false, githubapi.PermissionNone)
				snapshot.IsArchived = true
				return snapshot
			}(),
			expectedForkKind: githubapi.ForkErrorArchived,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			provisioner := &stubForkProvisioner{fork: userFork}
			coordinator, coordinatorError := scan.NewForkCoordinator(provisioner, zap.NewNop())
			require.NoError(subtestInstance, coordinatorError)

			target, targetError := coordinator.EnsureWritableTarget(context.Background(), testCase.snapshot, testLoginConstant)

			if len(testCase.expectedForkKind) > 0 {
				require.Error(subtestInstance, targetError)
				var forkError *githubapi.ForkError
				require.ErrorAs(subtestInstance, targetError, &forkError)
				require.Equal(subtestInstance, testCase.expectedForkKind, forkError.Kind)
				require.Zero(subtestInstance, provisioner.ensureCallCount)
				return
			}

			require.NoError(subtestInstance, targetError)
			require.Equal(subtestInstance, testCase.expectedTarget, target)
			if testCase.expectForkCall {
				require.Equal(subtestInstance, 1, provisioner.ensureCallCount)
			} else {
				require.Zero(subtestInstance, provisioner.ensureCallCount)
			}
		})
	}
}

func TestEnsureWritableTargetPropagatesForkFailure(testInstance *testing.T) {
	provisioner := &stubForkProvisioner{
		provisionError: &githubapi.ForkError{
			Kind:       githubapi.ForkErrorTimeout,
			Repository: testOrganizationConstant + "/widget",
			Detail:     "fork did not become ready in time",
		},
	}
	coordinator, coordinatorError := scan.NewForkCoordinator(provisioner, zap.NewNop())
	require.NoError(testInstance, coordinatorError)

	_, targetError := coordinator.EnsureWritableTarget(context.Background(), snapshotFor("widget", false, githubapi.PermissionNone), testLoginConstant)

	require.Error(testInstance, targetError)
	var forkError *githubapi.ForkError
	require.ErrorAs(testInstance, targetError, &forkError)
	require.Equal(testInstance, githubapi.ForkErrorTimeout, forkError.Kind)
}
