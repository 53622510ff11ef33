package errdefs

import "errors"

var (
	ErrValidation  = errors.New("validation error")
	ErrUpload      = errors.New("upload error")
	ErrPersistence = errors.New("persistence error")
	ErrNotFound    = errors.New("not found")
)
