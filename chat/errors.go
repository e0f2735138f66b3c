package chat

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to the API layer. Handlers map these to HTTP
// status codes; everything else is treated as an internal failure.
var (
	// ErrPermission: the caller is not an active participant of the room.
	ErrPermission = errors.New("not an active participant of this room")
	// ErrValidation: malformed or out-of-bounds request payload.
	ErrValidation = errors.New("invalid request")
	// ErrAttachmentUpload: the storage collaborator rejected the upload.
	ErrAttachmentUpload = errors.New("attachment upload failed")
	// ErrPersistence: the store transaction failed before commit; the whole
	// send is retryable without duplication.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound: the target message or room does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("not found")
)

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func persistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
