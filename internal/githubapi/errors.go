package githubapi

import (
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v80/github"
)

const (
	apiErrorTemplateConstant  = "%s: %s (%s)"
	forkErrorTemplateConstant = "fork %s: %s (%s)"
)

// APIErrorKind categorizes platform API failures.
type APIErrorKind string

// Supported API error categories.
const (
	APIErrorRateLimited APIErrorKind = "rate_limited"
	APIErrorNotFound    APIErrorKind = "not_found"
	APIErrorForbidden   APIErrorKind = "forbidden"
	APIErrorTransient   APIErrorKind = "transient"
)

// APIError wraps a platform API failure with its category and operation.
type APIError struct {
	Kind      APIErrorKind
	Operation string
	Cause     error
}

// Error describes the API failure.
func (apiError APIError) Error() string {
	return fmt.Sprintf(apiErrorTemplateConstant, apiError.Operation, apiError.Cause, apiError.Kind)
}

// Unwrap exposes the underlying cause.
func (apiError APIError) Unwrap() error {
	return apiError.Cause
}

// ForkErrorKind categorizes fork coordination failures.
type ForkErrorKind string

// Supported fork error categories.
const (
	ForkErrorArchived ForkErrorKind = "archived"
	ForkErrorTimeout  ForkErrorKind = "timeout"
	ForkErrorConflict ForkErrorKind = "conflict"
)

// ForkError reports that a writable fork could not be provided.
type ForkError struct {
	Kind       ForkErrorKind
	Repository string
	Detail     string
}

// Error describes the fork failure.
func (forkError ForkError) Error() string {
	return fmt.Sprintf(forkErrorTemplateConstant, forkError.Repository, forkError.Detail, forkError.Kind)
}

// classifyAPIError converts go-github errors into the APIError taxonomy.
func classifyAPIError(operation string, cause error) APIError {
	var rateLimitError *gh.RateLimitError
	if errors.As(cause, &rateLimitError) {
		return APIError{Kind: APIErrorRateLimited, Operation: operation, Cause: cause}
	}

	var abuseRateLimitError *gh.AbuseRateLimitError
	if errors.As(cause, &abuseRateLimitError) {
		return APIError{Kind: APIErrorRateLimited, Operation: operation, Cause: cause}
	}

	var errorResponse *gh.ErrorResponse
	if errors.As(cause, &errorResponse) && errorResponse.Response != nil {
		switch errorResponse.Response.StatusCode {
		case http.StatusNotFound:
			return APIError{Kind: APIErrorNotFound, Operation: operation, Cause: cause}
		case http.StatusForbidden, http.StatusUnauthorized:
			return APIError{Kind: APIErrorForbidden, Operation: operation, Cause: cause}
		}
	}

	return APIError{Kind: APIErrorTransient, Operation: operation, Cause: cause}
}

// isRetryable reports whether the classified failure is worth another attempt.
func isRetryable(apiError APIError) bool {
	return apiError.Kind == APIErrorTransient || apiError.Kind == APIErrorRateLimited
}
