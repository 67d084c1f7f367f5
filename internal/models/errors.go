package models

// BackendError tags a failure with the outbound backend that produced it.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return e.Backend + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func NewBackendError(backend string, err error) *BackendError {
	return &BackendError{
		Backend: backend,
		Err:     err,
	}
}
