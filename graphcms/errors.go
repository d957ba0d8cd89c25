package graphcms

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the read path. Callers match with errors.Is.
var (
	// ErrNotFound means the request was valid but no record matched.
	ErrNotFound = errors.New("graphcms: not found")

	// ErrUnavailable means the backend could not be reached or answered
	// with a transport-level failure. Reads are safe to retry.
	ErrUnavailable = errors.New("graphcms: backend unavailable")

	// ErrUnauthorized means the management endpoint rejected the bearer
	// token. The web layer treats this as a forced sign-out.
	ErrUnauthorized = errors.New("graphcms: unauthorized")
)

// ConfigError reports missing configuration detected before any request.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "graphcms: missing configuration: " + strings.Join(e.Missing, ", ")
}

// ValidationError reports caller-supplied data that fails a precondition.
// No write is attempted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("graphcms: invalid %s: %s", e.Field, e.Reason)
}

// WriteError means a post mutation failed and the record was not written.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("graphcms: %s failed: %v", e.Op, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// ReservationError means the backend refused to mint an asset record, so
// nothing was uploaded.
type ReservationError struct {
	Err error
}

func (e *ReservationError) Error() string { return fmt.Sprintf("graphcms: reserve asset: %v", e.Err) }
func (e *ReservationError) Unwrap() error { return e.Err }

// TransferError means the signed multipart upload was rejected. The
// reserved asset is orphaned and must not be connected to a post.
type TransferError struct {
	Status int
	Body   string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("graphcms: asset transfer rejected with status %d: %s", e.Status, e.Body)
}

// ActivationError means the stored asset could not be moved to the
// published stage. The upload itself succeeded; activation can be retried
// with the asset id.
type ActivationError struct {
	AssetID string
	Err     error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("graphcms: activate asset %s: %v", e.AssetID, e.Err)
}
func (e *ActivationError) Unwrap() error { return e.Err }

// classify converts a transport error from the GraphQL client into one of
// the package's error kinds. The client library folds HTTP status and
// GraphQL errors into message strings, so authorization failures are
// recognized by message.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unauthorized", "not authorized", "forbidden", "invalid token", "401", "403"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
