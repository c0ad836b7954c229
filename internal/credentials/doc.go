// Package credentials resolves GitHub API tokens from an ordered chain of
// authentication providers: the GitHub CLI, the 1Password and Bitwarden
// secret-manager CLIs, the GITHUB_TOKEN environment variable, and an
// interactive prompt. Resolved tokens are held in memory for one run and are
// never persisted or logged.
package credentials
