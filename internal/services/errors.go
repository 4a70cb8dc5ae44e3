package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrDuplicateName   = errors.New("duplicate account name")
	ErrDuplicateAlias  = errors.New("duplicate drive alias")
	ErrNotFound        = errors.New("not found")
	ErrUnresolvedTitle = errors.New("unresolved title")
	ErrRefreshFailed   = errors.New("credential refresh failed")
	ErrPersistence     = errors.New("persistence failure")
	ErrImportCorrupt   = errors.New("import file corrupt")
	ErrTimeout         = errors.New("timeout")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Exit codes returned by the CLI.
const (
	ExitFailure    = 1
	ExitUserError  = 2
	ExitNotFound   = 3
	ExitUnresolved = 4
)

// ExitCode maps an operation error to the process exit status. Validation and
// duplicate errors need user correction and are never retried.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicateName), errors.Is(err, ErrDuplicateAlias), errors.Is(err, ErrImportCorrupt):
		return ExitUserError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrUnresolvedTitle):
		return ExitUnresolved
	default:
		return ExitFailure
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
