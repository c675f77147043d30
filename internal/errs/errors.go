// Package errs defines Axiom's error taxonomy. Every
// component wraps failures into one of these five sentinel-rooted
// kinds so callers can branch with errors.Is/errors.As instead of
// string matching, and so the propagation policy (never abort a
// cycle or a request handler on a single bad item) has a consistent
// thing to check for.
package errs

import "errors"

var (
	// ErrNetwork roots NetworkError: DNS, connect, timeout, non-2xx.
	// Recovered locally by a reputation penalty and retry next cycle.
	ErrNetwork = errors.New("network error")

	// ErrStorage roots StorageError: a constraint violation on
	// fact_id or block_id. Not an error for facts: it is the signal
	// to corroborate. For blocks it indicates a race; the local
	// candidate is discarded.
	ErrStorage = errors.New("storage error")

	// ErrValidation roots ValidationError: hash mismatch, bad chain
	// link, content/id inconsistency. The offending object is
	// dropped and logged; the process never aborts for this.
	ErrValidation = errors.New("validation error")

	// ErrDecode roots DecodeError: corrupt compressed content or
	// malformed JSON from a peer. The record is skipped; repeated
	// occurrences count toward SYNC_ERROR.
	ErrDecode = errors.New("decode error")

	// ErrConfig roots ConfigError: unreadable database, unreachable
	// NLP collaborator, bad environment at startup. Fatal.
	ErrConfig = errors.New("config error")
)

// NetworkError wraps ErrNetwork with the operation that failed.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return "network: " + e.Op + ": " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return ErrNetwork }
func (e *NetworkError) Cause() error  { return e.Err }

func Network(op string, cause error) error {
	return &NetworkError{Op: op, Err: cause}
}

// StorageError wraps ErrStorage with the operation and underlying
// driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return ErrStorage }
func (e *StorageError) Cause() error  { return e.Err }

func Storage(op string, cause error) error {
	return &StorageError{Op: op, Err: cause}
}

// ValidationError wraps ErrValidation with a human-readable reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}

// DecodeError wraps ErrDecode with the operation and underlying cause.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return "decode: " + e.Op + ": " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return ErrDecode }
func (e *DecodeError) Cause() error  { return e.Err }

func Decode(op string, cause error) error {
	return &DecodeError{Op: op, Err: cause}
}

// ConfigError wraps ErrConfig with the operation and underlying cause.
// Always fatal at startup.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string { return "config: " + e.Op + ": " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return ErrConfig }
func (e *ConfigError) Cause() error  { return e.Err }

func Config(op string, cause error) error {
	return &ConfigError{Op: op, Err: cause}
}
