// Package apperr defines the error values shared across the dashboard.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrBusy           = errors.New("a save is already in progress")
	ErrNotConfirmed   = errors.New("delete requires confirmation")
	ErrPanelInactive  = errors.New("panel is not active")
	ErrUnknownPanel   = errors.New("unknown panel")
	ErrUnknownFlag    = errors.New("unknown flag")
	ErrNotOrderable   = errors.New("panel does not support reordering")
	ErrCreateDisabled = errors.New("panel does not support creating records")
	ErrFilteredOrder  = errors.New("clear the filter and search before reordering")
)

// ValidationError carries per-field messages from local form validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// RemoteError is a failed call to the content API.
// Status is zero for transport failures (network, malformed body).
type RemoteError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: content api returned %d: %s", e.Op, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + e.Message
	}
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is maps a 404 from the content API onto ErrNotFound.
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// UserMessage returns the text shown in a notification: the server-provided
// message when there is one, otherwise a generic description.
func UserMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) {
		if re.Message != "" {
			return re.Message
		}
		if re.Status != 0 {
			return fmt.Sprintf("request failed with status %d", re.Status)
		}
		return "could not reach the content API"
	}
	return err.Error()
}
