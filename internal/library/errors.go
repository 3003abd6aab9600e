package library

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/user/vidnest/internal/store"
)

var (
	// ErrNotFound is returned when a resource does not exist or belongs to another user
	ErrNotFound = store.ErrNotFound
	// ErrForbidden is returned when the caller's role does not allow the operation
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned for a wrong email or password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned for unknown or expired reset tokens and link codes
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrEmailTaken is returned when registering or changing to a used email
	ErrEmailTaken = store.ErrDuplicateEmail
	// ErrCategoryExists is returned when a category name is taken
	ErrCategoryExists = store.ErrDuplicateCategory
	// ErrChatLinked is returned when a Telegram chat is bound to another account
	ErrChatLinked = store.ErrDuplicateChat
)

// ValidationError carries per-field messages for rejected input
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validator accumulates field errors
type validator map[string]string

func (v validator) check(ok bool, field, message string) {
	if !ok {
		if _, exists := v[field]; !exists {
			v[field] = message
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// DuplicateError is returned when the user already saved a URL
type DuplicateError struct {
	ExistingID uint
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("video already saved (id %d)", e.ExistingID)
}

// Unwrap lets errors.Is match store.ErrDuplicateVideo
func (e *DuplicateError) Unwrap() error {
	return store.ErrDuplicateVideo
}
