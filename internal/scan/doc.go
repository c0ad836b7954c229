// Package scan drives the organization license audit and remediation
// workflow.
//
// The Service resolves a credential once per run, lists the organization's
// repositories, and walks each one through inspection, fork coordination,
// local change application, and pull request submission. Every repository
// produces exactly one RemediationOutcome; a repository's failure never
// aborts the rest of the batch.
package scan
