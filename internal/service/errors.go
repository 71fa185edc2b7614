package service

import (
	"errors"
	"fmt"

	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("group is full")
	ErrUnauthorized     = errors.New("not allowed")
	ErrTransient        = errors.New("temporary failure, try again")
	ErrPartialFailure   = errors.New("delete did not complete")
	ErrToggleInFlight   = errors.New("membership change already in progress")
	ErrNotMember        = errors.New("user is not a member of this group")
	ErrInvalidTarget    = errors.New("invalid target user")
	ErrInvalidContent   = errors.New("invalid content")
)

// PartialFailureError reports a cascade delete that removed some comments but
// did not finish. Retrying the delete completes it.
type PartialFailureError struct {
	PostID  string
	Deleted int
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("delete of post %s incomplete after removing %d comments: %v", e.PostID, e.Deleted, e.Err)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// classify maps store errors onto the service sentinels. Domain errors pass
// through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrTransient),
		errors.Is(err, ErrPartialFailure),
		errors.Is(err, ErrToggleInFlight),
		errors.Is(err, ErrNotMember),
		errors.Is(err, ErrInvalidTarget),
		errors.Is(err, ErrInvalidContent),
		errors.Is(err, models.ErrInvalidCursor),
		errors.Is(err, models.ErrCursorOrdering):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
}
