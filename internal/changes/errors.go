package changes

import (
	"errors"
	"fmt"
)

// InputErrorCode categorizes snapshot pairs that cannot be compared.
type InputErrorCode string

const (
	// ErrCodeMissingLabel indicates a label captured at one point only.
	ErrCodeMissingLabel InputErrorCode = "MISSING_LABEL"

	// ErrCodeColumnMismatch indicates start and end columns differ.
	ErrCodeColumnMismatch InputErrorCode = "COLUMN_MISMATCH"

	// ErrCodeKeyMismatch indicates start and end primary keys differ.
	ErrCodeKeyMismatch InputErrorCode = "KEY_MISMATCH"

	// ErrCodeKindMismatch indicates a table compared with a request.
	ErrCodeKindMismatch InputErrorCode = "KIND_MISMATCH"

	// ErrCodeDuplicateKey indicates two rows of one snapshot share a key.
	ErrCodeDuplicateKey InputErrorCode = "DUPLICATE_KEY"

	// ErrCodePointOrder indicates the end point was captured before the start.
	ErrCodePointOrder InputErrorCode = "POINT_ORDER"

	// ErrCodeNilSet indicates a missing snapshot set.
	ErrCodeNilSet InputErrorCode = "NIL_SET"
)

// InputError reports start and end snapshots that cannot be compared. No
// change is computed when it is returned.
type InputError struct {
	Code    InputErrorCode
	Label   string
	Message string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s: %s (label=%s)", e.Code, e.Message, e.Label)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInputError reports whether err is, or wraps, an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// ErrNoChange is returned by Find when no change matches.
var ErrNoChange = errors.New("no matching change")

// IsNoChange reports whether err wraps ErrNoChange.
func IsNoChange(err error) bool {
	return errors.Is(err, ErrNoChange)
}
