package githubapi

import (
	"context"
	"errors"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"go.uber.org/zap"
)

const (
	publicRepositoryTypeConstant          = "public"
	unknownLicenseKindConstant            = "unknown"
	listRepositoriesOperationConstant     = "list organization repositories"
	licenseFileContentOperationConstant   = "read license file content"
	rateLimitRetryAttemptsConstant        = 5
	permissionLookupFailedMessageConstant = "permission lookup failed; treating repository as read-only"
	logFieldRepositoryConstant            = "repository"
)

// PermissionLevel enumerates the caller's access to a repository.
type PermissionLevel string

// Supported permission levels.
const (
	PermissionAdmin PermissionLevel = "admin"
	PermissionWrite PermissionLevel = "write"
	PermissionRead  PermissionLevel = "read"
	PermissionNone  PermissionLevel = "none"
)

// CanPush reports whether the level allows direct branch pushes.
func (level PermissionLevel) CanPush() bool {
	return level == PermissionAdmin || level == PermissionWrite
}

// RepositorySnapshot captures a repository's license and access state at scan time.
type RepositorySnapshot struct {
	FullName        string
	Owner           string
	Name            string
	DefaultBranch   string
	HasLicense      bool
	LicenseKind     string
	LicenseFileName string
	PermissionLevel PermissionLevel
	IsFork          bool
	IsArchived      bool
	IsPrivate       bool
}

// canonicalLicenseFileNames are matched case-insensitively against root entries.
var canonicalLicenseFileNames = []string{
	"LICENSE",
	"LICENSE.md",
	"LICENSE.txt",
	"COPYING",
	"COPYING.md",
	"COPYING.txt",
}

// ListOrganizationRepositories returns every public repository of the organization.
func (client *Client) ListOrganizationRepositories(executionContext context.Context, organizationName string) ([]*gh.Repository, error) {
	var collectedRepositories []*gh.Repository
	listOptions := &gh.RepositoryListByOrgOptions{
		Type:        publicRepositoryTypeConstant,
		ListOptions: gh.ListOptions{PerPage: listPageSizeConstant},
	}

	for {
		pageRepositories, pageResponse, listError := client.listByOrgWithRetry(executionContext, organizationName, listOptions)
		if listError != nil {
			return nil, listError
		}

		collectedRepositories = append(collectedRepositories, pageRepositories...)

		if pageResponse == nil || pageResponse.NextPage == 0 {
			break
		}
		listOptions.Page = pageResponse.NextPage
	}

	return collectedRepositories, nil
}

func (client *Client) listByOrgWithRetry(executionContext context.Context, organizationName string, listOptions *gh.RepositoryListByOrgOptions) ([]*gh.Repository, *gh.Response, error) {
	for attemptIndex := 0; ; attemptIndex++ {
		pageRepositories, pageResponse, listError := client.repositories.ListByOrg(executionContext, organizationName, listOptions)
		if listError == nil {
			return pageRepositories, pageResponse, nil
		}

		var rateLimitError *gh.RateLimitError
		if !errors.As(listError, &rateLimitError) || attemptIndex == rateLimitRetryAttemptsConstant {
			return nil, nil, classifyAPIError(listRepositoriesOperationConstant, listError)
		}

		waitDuration := time.Until(rateLimitError.Rate.Reset.Time)
		if waitDuration <= 0 {
			waitDuration = transientRetryBaseDelayConstant * time.Duration(1<<attemptIndex)
		}

		if sleepError := client.sleeper.Sleep(executionContext, waitDuration); sleepError != nil {
			return nil, nil, sleepError
		}
	}
}

// InspectRepository gathers the license and permission state for a repository.
// License detection falls through detection layers without treating individual
// probe failures as fatal; permission lookup failures degrade to PermissionNone.
func (client *Client) InspectRepository(executionContext context.Context, repository *gh.Repository, authenticatedLogin string) RepositorySnapshot {
	repositoryOwner := repository.GetOwner().GetLogin()
	repositoryName := repository.GetName()

	snapshot := RepositorySnapshot{
		FullName:      repository.GetFullName(),
		Owner:         repositoryOwner,
		Name:          repositoryName,
		DefaultBranch: repository.GetDefaultBranch(),
		IsFork:        repository.GetFork(),
		IsArchived:    repository.GetArchived(),
		IsPrivate:     repository.GetPrivate(),
	}

	snapshot.HasLicense, snapshot.LicenseKind, snapshot.LicenseFileName = client.detectLicense(executionContext, repositoryOwner, repositoryName)
	snapshot.PermissionLevel = client.permissionLevel(executionContext, repositoryOwner, repositoryName, authenticatedLogin)

	return snapshot
}

func (client *Client) detectLicense(executionContext context.Context, repositoryOwner string, repositoryName string) (bool, string, string) {
	repositoryLicense, _, licenseError := client.repositories.License(executionContext, repositoryOwner, repositoryName)
	if licenseError == nil && repositoryLicense != nil && repositoryLicense.GetLicense() != nil {
		return true, repositoryLicense.GetLicense().GetSPDXID(), repositoryLicense.GetName()
	}

	_, rootEntries, _, contentsError := client.repositories.GetContents(executionContext, repositoryOwner, repositoryName, "", nil)
	if contentsError == nil {
		for _, rootEntry := range rootEntries {
			entryName := rootEntry.GetName()
			for _, canonicalName := range canonicalLicenseFileNames {
				if strings.EqualFold(entryName, canonicalName) {
					return true, unknownLicenseKindConstant, entryName
				}
			}
		}
	}

	return false, "", ""
}

func (client *Client) permissionLevel(executionContext context.Context, repositoryOwner string, repositoryName string, authenticatedLogin string) PermissionLevel {
	permissionResponse, _, permissionError := client.repositories.GetPermissionLevel(executionContext, repositoryOwner, repositoryName, authenticatedLogin)
	if permissionError != nil {
		client.logger.Warn(
			permissionLookupFailedMessageConstant,
			zap.String(logFieldRepositoryConstant, repositoryOwner+"/"+repositoryName),
			zap.Error(permissionError),
		)
		return PermissionNone
	}

	switch permissionResponse.GetPermission() {
	case string(PermissionAdmin):
		return PermissionAdmin
	case string(PermissionWrite):
		return PermissionWrite
	case string(PermissionRead):
		return PermissionRead
	default:
		return PermissionNone
	}
}

// LicenseFileContent fetches and decodes the license file at the given path.
func (client *Client) LicenseFileContent(executionContext context.Context, repositoryOwner string, repositoryName string, filePath string) (string, error) {
	var decodedContent string
	fetchError := client.retryTransient(executionContext, licenseFileContentOperationConstant, func() error {
		fileContent, _, _, contentsError := client.repositories.GetContents(executionContext, repositoryOwner, repositoryName, filePath, nil)
		if contentsError != nil {
			return contentsError
		}
		contentText, decodeError := fileContent.GetContent()
		if decodeError != nil {
			return decodeError
		}
		decodedContent = contentText
		return nil
	})
	if fetchError != nil {
		return "", fetchError
	}
	return decodedContent, nil
}
