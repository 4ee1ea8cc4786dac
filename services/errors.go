package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced account, relationship or claim does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is returned when the caller's device does not own the account.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoPendingClaim is returned when a claim is processed for an account without one.
	ErrNoPendingClaim = fmt.Errorf("no pending land claim: %w", ErrConflict)
	// ErrClaimExists is returned when a pending claim is set on an account that already
	// holds one or has claimed its land.
	ErrClaimExists = fmt.Errorf("land claim already pending or claimed: %w", ErrConflict)
)

// ValidationError lists the input fields that were missing or malformed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing required fields"
	}
	if len(e.Fields) == 0 {
		return reason
	}
	return fmt.Sprintf("%s: %s", reason, strings.Join(e.Fields, ", "))
}

// requireFields returns a ValidationError naming every empty field, or nil.
func requireFields(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ValidationError{Fields: missing}
}
