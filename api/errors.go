package api

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one struct-tag validation failure.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// ValidationErrors is returned when a request DTO fails struct-tag
// validation before it ever reaches the graph/engine packages. It is
// distinct from graph.Diagnostic, which reports structural failures of
// the graph itself — ValidationErrors reports malformed requests.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fmt.Sprintf("%s:%s", fe.Field, fe.Tag)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func translateValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := make(ValidationErrors, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{Field: fe.Namespace(), Tag: fe.Tag()}
	}
	return out
}

// NotFoundError reports a lookup failure against an id the registry
// has no record of (unknown node, edge, or run id).
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError reports an id collision on a create operation.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.ID)
}
