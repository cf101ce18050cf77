package item

import "errors"

var (
	// ErrItemNotFound signals that no item with the id exists for the owner.
	ErrItemNotFound = errors.New("item not found")
	// ErrMissingField is returned when title or description is blank.
	ErrMissingField = errors.New("title and description are required")
	// ErrImageTooLarge signals that the upload exceeds the configured limit.
	ErrImageTooLarge = errors.New("image too large")
)
