package apiutil

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// PathUUID reads a UUID path value registered on the route pattern.
func PathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.PathValue(key))
	if raw == "" {
		return uuid.Nil, FieldError{Field: key, Reason: "is required"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, FieldError{Field: key, Reason: "must be a valid UUID"}
	}
	return id, nil
}

func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
