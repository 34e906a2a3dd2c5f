package domain

import "errors"

var (
	// Validation Errors
	ErrEmptyTitle         = errors.New("title is required and cannot be empty")
	ErrTitleTooLong       = errors.New("title must be 200 characters or less")
	ErrDescriptionTooLong = errors.New("description must be 2000 characters or less")
	ErrInvalidPriority    = errors.New("priority must be an integer between 0 and 5")
	ErrTagTooLong         = errors.New("tag must be 30 characters or less")
	ErrTooManyTags        = errors.New("maximum 20 tags allowed")
	ErrDueBeforeCreated   = errors.New("due_date cannot be before created_at")

	// Business logic errors
	ErrTodoNotFound = errors.New("todo not found")

	// Repository precondition errors
	ErrIDAssigned = errors.New("id must be unassigned for new todos")
	ErrIDRequired = errors.New("todo id is required for update")
)

// IsValidation reports whether err is one of the entity validation errors,
// as opposed to a not-found or storage failure.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrEmptyTitle,
		ErrTitleTooLong,
		ErrDescriptionTooLong,
		ErrInvalidPriority,
		ErrTagTooLong,
		ErrTooManyTags,
		ErrDueBeforeCreated,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
