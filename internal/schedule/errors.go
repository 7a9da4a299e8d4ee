package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrConfiguration   = errors.New("invalid tournament configuration")
	ErrMatchNotFound   = errors.New("match not found")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrFinalized       = errors.New("schedule is finalized")
	ErrUnknownField    = errors.New("unknown match field")
)

// ConfigurationError rejects generator input. It is never retried; the
// caller fixes the configuration and generates again.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError describes one rejected match on submit. Position is the
// 1-based index of the match in the session list.
type ValidationError struct {
	MatchID  uuid.UUID `json:"matchId"`
	Position int       `json:"position"`
	Field    string    `json:"field"`
	Reason   string    `json:"reason"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("match %d: %s %s", e.Position, e.Field, e.Reason)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	parts := make([]string, 0, len(e))
	for _, verr := range e {
		parts = append(parts, verr.Error())
	}
	return strings.Join(parts, "; ")
}
