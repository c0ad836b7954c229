package scan

import "fmt"

// RemediationAction distinguishes adding a missing license from correcting
// the holder of an existing one.
type RemediationAction string

// Supported remediation actions.
const (
	ActionAddLicense    RemediationAction = "add"
	ActionUpdateLicense RemediationAction = "update"
)

// RemediationTarget is the writable location where the change branch lives:
// the upstream repository itself when the caller can push, otherwise a fork
// owned by the caller.
type RemediationTarget struct {
	Owner      string
	Name       string
	IsUserFork bool
}

// FullName renders the target in owner/name form.
func (target RemediationTarget) FullName() string {
	return target.Owner + "/" + target.Name
}

// ChangeSet describes the single file change a remediation performs.
type ChangeSet struct {
	BranchName    string
	FilePath      string
	FileContent   string
	CommitMessage string
}

// PullRequestRecord captures the pull request that carries a remediation.
type PullRequestRecord struct {
	Number        int
	URL           string
	HeadReference string
	BaseReference string
	State         string
}

// OutcomeKind tags the result of one repository's remediation pass.
type OutcomeKind string

// Supported outcome kinds.
const (
	OutcomeSkipped         OutcomeKind = "skipped"
	OutcomeAlreadyLicensed OutcomeKind = "already-licensed"
	OutcomeDryRunPlanned   OutcomeKind = "dry-run"
	OutcomeSucceeded       OutcomeKind = "succeeded"
	OutcomeFailed          OutcomeKind = "failed"
)

// RemediationOutcome records what happened to one repository.
type RemediationOutcome struct {
	Repository     string
	Kind           OutcomeKind
	Detail         string
	PullRequestURL string
}

// Report aggregates the outcomes of one run.
type Report struct {
	Organization string
	Outcomes     []RemediationOutcome
}

// CountByKind returns how many outcomes carry the given kind.
func (report Report) CountByKind(kind OutcomeKind) int {
	matchingCount := 0
	for _, outcome := range report.Outcomes {
		if outcome.Kind == kind {
			matchingCount++
		}
	}
	return matchingCount
}

const outcomeLineTemplateConstant = "%-14s %s"

// Describe renders an outcome as a single report line fragment.
func (outcome RemediationOutcome) Describe() string {
	description := fmt.Sprintf(outcomeLineTemplateConstant, outcome.Kind, outcome.Repository)
	if len(outcome.PullRequestURL) > 0 {
		description += " " + outcome.PullRequestURL
	}
	if len(outcome.Detail) > 0 {
		description += " (" + outcome.Detail + ")"
	}
	return description
}
