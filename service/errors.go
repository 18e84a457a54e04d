package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrConflict matches every *ConflictError.
	ErrConflict  = errors.New("service: version conflict")
	ErrForbidden = errors.New("service: forbidden")
)

// ConflictError rejects a write whose token no longer matches the entity.
// It is never retried.
type ConflictError struct {
	Entity string
	ID     int64
	Token  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: version %q is stale", e.Entity, e.ID, e.Token)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError maps field names to messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

type validator struct{ fields map[string][]string }

func (v *validator) add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string][]string)
	}
	v.fields[field] = append(v.fields[field], msg)
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}
