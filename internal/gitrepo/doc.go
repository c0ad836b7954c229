// Package gitrepo applies license file changes to repositories through the
// git command line.
//
// It exposes ChangeApplier, which clones a fork or writable repository into a
// temporary working directory, creates the remediation branch, writes the
// license file, commits, and pushes. Remote URLs are built for SSH by default
// or token-authenticated HTTPS when SSH is disabled.
package gitrepo
