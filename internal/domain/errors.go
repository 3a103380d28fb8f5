package domain

import "errors"

// Sentinel errors for expected, recoverable conditions. Callers match them
// with errors.Is; layers above wrap them with fmt.Errorf("...: %w", err).
var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrResultNotFound    = errors.New("result not found")
	ErrDuplicateJob      = errors.New("document already has an active job")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrInvalidFilter     = errors.New("invalid filter value")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrFileUpload        = errors.New("file upload failed")
	ErrFileDownload      = errors.New("file download failed")
	ErrEngineUnavailable = errors.New("ocr engine unavailable")
	ErrNoContentLoaded   = errors.New("no content loaded from document")
	ErrStatusConflict    = errors.New("job status changed concurrently")
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as non-retryable. Retrying a job that failed with
// a permanent error cannot succeed, so the retry budget is skipped and the
// job is failed on the first attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err carries the non-retryable marker anywhere
// in its chain.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
