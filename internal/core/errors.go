package core

import "errors"

// Classification failures. The router recovers from these by quarantining the object.
var (
	ErrParse             = errors.New("unable to parse filename")
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// Fatal failures for a single request.
var (
	ErrSourceNotFound = errors.New("file does not exist in bucket")
	ErrProbe          = errors.New("object probe failed")
	ErrBackend        = errors.New("storage backend operation failed")
	ErrAudit          = errors.New("audit record failed")
)

// IsClassificationError reports whether err should route the object to quarantine instead of failing.
func IsClassificationError(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrUnknownInstrument)
}
