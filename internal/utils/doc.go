// Package utils hosts shared plumbing for the licenses-everywhere CLI:
// a zap logger factory and a viper-backed configuration loader.
package utils
