// Package licenses holds the license template catalog used for remediation:
// rendering license file content for a copyright holder and year, and
// verifying the holder recorded in an existing license file.
package licenses
