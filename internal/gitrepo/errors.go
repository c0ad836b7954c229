package gitrepo

import "fmt"

const gitErrorTemplateConstant = "git %s on %s: %s"

// GitErrorKind categorizes git command line failures.
type GitErrorKind string

// Supported git error categories.
const (
	GitErrorCloneFailed    GitErrorKind = "clone_failed"
	GitErrorBranchConflict GitErrorKind = "branch_conflict"
	GitErrorPushRejected   GitErrorKind = "push_rejected"
	GitErrorAuthRejected   GitErrorKind = "auth_rejected"
	GitErrorCommitFailed   GitErrorKind = "commit_failed"
)

// GitError reports a failed step of the local change workflow.
type GitError struct {
	Kind       GitErrorKind
	Repository string
	Detail     string
}

// Error describes the git failure.
func (gitError GitError) Error() string {
	return fmt.Sprintf(gitErrorTemplateConstant, gitError.Kind, gitError.Repository, gitError.Detail)
}
