package gitrepo

import (
	"fmt"
	"strings"
)

const (
	githubHostConstant                 = "github.com"
	tokenRemoteUserConstant            = "x-access-token"
	sshRemoteTemplateConstant          = "git@%s:%s/%s.git"
	tokenRemoteTemplateConstant        = "https://%s:%s@%s/%s/%s.git"
	remoteSpecErrorTemplateConstant    = "%s: %s"
	requiredRemoteValueMessageConstant = "value is required"
	missingRemoteTokenMessageConstant  = "token is required for https remotes"
	remoteOwnerFieldNameConstant       = "owner"
	remoteRepositoryFieldNameConstant  = "repository"
	remoteAccessTokenFieldNameConstant = "token"
)

// RemoteSpecification names the repository a remote URL should address and
// how it should authenticate.
type RemoteSpecification struct {
	Owner      string
	Repository string
	UseSSH     bool
	Token      string
}

// RemoteSpecificationError indicates a remote URL could not be built.
type RemoteSpecificationError struct {
	Field   string
	Message string
}

// Error describes the invalid field.
func (specificationError RemoteSpecificationError) Error() string {
	return fmt.Sprintf(remoteSpecErrorTemplateConstant, specificationError.Field, specificationError.Message)
}

// BuildRemoteURL renders the clone and push URL for a repository. SSH remotes
// carry no credential material; HTTPS remotes embed the access token, so the
// resulting string must never be logged unmasked.
func BuildRemoteURL(specification RemoteSpecification) (string, error) {
	if len(strings.TrimSpace(specification.Owner)) == 0 {
		return "", RemoteSpecificationError{Field: remoteOwnerFieldNameConstant, Message: requiredRemoteValueMessageConstant}
	}
	if len(strings.TrimSpace(specification.Repository)) == 0 {
		return "", RemoteSpecificationError{Field: remoteRepositoryFieldNameConstant, Message: requiredRemoteValueMessageConstant}
	}

	if specification.UseSSH {
		return fmt.Sprintf(sshRemoteTemplateConstant, githubHostConstant, specification.Owner, specification.Repository), nil
	}

	if len(strings.TrimSpace(specification.Token)) == 0 {
		return "", RemoteSpecificationError{Field: remoteAccessTokenFieldNameConstant, Message: missingRemoteTokenMessageConstant}
	}
	return fmt.Sprintf(tokenRemoteTemplateConstant, tokenRemoteUserConstant, specification.Token, githubHostConstant, specification.Owner, specification.Repository), nil
}
