// Package githubapi wraps the GitHub REST API for the remediation workflow:
// organization repository listing, license and permission inspection, fork
// management, and pull request submission. Requests are authenticated with an
// oauth2 token source and paced by a rate-limit-aware transport.
package githubapi
