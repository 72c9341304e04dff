package githubapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v66/github"
)

const (
	referenceExistsFragmentConstant         = "already exists"
	tokenNotConfiguredMessageConstant       = "github api token not configured"
	branchNotFoundMessageConstant           = "branch not found"
	branchAlreadyExistsMessageConstant      = "branch already exists"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
)

// OperationName describes a named GitHub API workflow supported by the client.
type OperationName string

var (
	// ErrTokenNotConfigured indicates the client was constructed without an authentication token.
	ErrTokenNotConfigured = errors.New(tokenNotConfiguredMessageConstant)
	// ErrBranchNotFound indicates the requested branch reference does not exist.
	ErrBranchNotFound = errors.New(branchNotFoundMessageConstant)
	// ErrBranchAlreadyExists indicates a branch reference creation collided with an existing reference.
	ErrBranchAlreadyExists = errors.New(branchAlreadyExistsMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub API operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// IsNotFound reports whether the error chain denotes a missing remote resource.
func IsNotFound(candidateError error) bool {
	if candidateError == nil {
		return false
	}
	if errors.Is(candidateError, ErrBranchNotFound) {
		return true
	}
	var errorResponse *gogithub.ErrorResponse
	if errors.As(candidateError, &errorResponse) && errorResponse.Response != nil {
		return errorResponse.Response.StatusCode == http.StatusNotFound
	}
	return false
}

func referenceAlreadyExists(candidateError error) bool {
	var errorResponse *gogithub.ErrorResponse
	if !errors.As(candidateError, &errorResponse) || errorResponse.Response == nil {
		return false
	}
	if errorResponse.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(errorResponse.Message), referenceExistsFragmentConstant)
}
