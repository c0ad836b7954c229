// Package execshell provides a typed wrapper around external command
// execution for the git, gh, op, and bw binaries used by licenses-everywhere.
//
// It exposes ShellExecutor for running commands with structured logging and
// OSCommandRunner as the os/exec backed runner implementation.
package execshell
