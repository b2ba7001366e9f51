package levelkv

import "github.com/kezhuw/levelkv/internal/errors"

var (
	ErrDBClosed       = errors.ErrDBClosed       // operation on a closed db
	ErrCursorReleased = errors.ErrCursorReleased // Each on a drained or released cursor
	ErrBatchCommitted = errors.ErrBatchCommitted // second commit of a WriteBatch
	ErrBatchTooLarge  = errors.ErrBatchTooLarge
)

type (
	// TypeMismatchError reports an option value of the wrong type.
	TypeMismatchError = errors.TypeMismatchError

	// ValidationError reports a malformed argument. It is raised before the
	// storage engine is touched.
	ValidationError = errors.ValidationError

	// EngineError carries a failure reported by the storage engine. Its
	// message is the engine's own.
	EngineError = errors.EngineError
)

// IsTypeMismatch returns a boolean indicating whether the error is a
// *TypeMismatchError.
func IsTypeMismatch(err error) bool {
	return errors.IsTypeMismatch(err)
}

// IsValidation returns a boolean indicating whether the error is a
// *ValidationError.
func IsValidation(err error) bool {
	return errors.IsValidation(err)
}

// IsEngine returns a boolean indicating whether the error came from the
// storage engine.
func IsEngine(err error) bool {
	return errors.IsEngine(err)
}
