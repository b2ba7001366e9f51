package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrDBClosed       = errors.New("levelkv: db closed")
	ErrCursorReleased = errors.New("levelkv: cursor released")
	ErrBatchCommitted = errors.New("levelkv: batch already committed")
	ErrBatchTooLarge  = errors.New("levelkv: too many writes in one batch")
	ErrCorruptBatch   = errors.New("levelkv: corrupt write batch")
)

// TypeMismatchError reports an option whose value has the wrong type or
// falls outside its closed set of accepted values.
type TypeMismatchError struct {
	Option string
	Value  interface{}
}

func (e *TypeMismatchError) Error() string {
	return "levelkv: invalid type for " + e.Option
}

// ValidationError reports a malformed argument caught before any engine call.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("levelkv: %s: %s", e.Op, e.Reason)
}

// EngineError carries a failure reported by the storage engine. Its message
// is the engine's message, unmodified.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewTypeMismatch(option string, value interface{}) error {
	return errors.WithStack(&TypeMismatchError{Option: option, Value: value})
}

func NewValidation(op, format string, args ...interface{}) error {
	return errors.WithStack(&ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)})
}

var sentinels = []error{ErrDBClosed, ErrCursorReleased, ErrBatchCommitted, ErrBatchTooLarge, ErrCorruptBatch}

func isOwn(err error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return IsEngine(err) || IsValidation(err) || IsTypeMismatch(err)
}

// Engine wraps err as an EngineError unless it is nil or already one of
// the errors of this package.
func Engine(op string, err error) error {
	if err == nil || isOwn(err) {
		return err
	}
	return &EngineError{Op: op, Err: err}
}

func IsTypeMismatch(err error) bool {
	var e *TypeMismatchError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsEngine(err error) bool {
	var e *EngineError
	return errors.As(err, &e)
}
