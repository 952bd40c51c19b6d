// Package errs defines the error kinds surfaced by the domain packages and
// the helpers the HTTP layer uses to classify them.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel kinds. Every error produced by this package matches exactly one
// of them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("already exists")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("operation not allowed")
)

// FieldError is a validation failure scoped to one request field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// Validation builds a FieldError for field.
func Validation(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// KindError pairs a sentinel kind with a caller-facing message.
type KindError struct {
	Kind    error
	Message string
}

func (e *KindError) Error() string {
	return e.Message
}

func (e *KindError) Unwrap() error {
	return e.Kind
}

func Conflict(format string, args ...any) error {
	return &KindError{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &KindError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &KindError{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// Invalid is a validation failure that is not tied to a request field.
func Invalid(format string, args ...any) error {
	return &KindError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing text of a classified error, or the
// plain error string otherwise.
func Message(err error) string {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Message
	}
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Field returns the request field a validation error is scoped to.
func Field(err error) (string, bool) {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Field, true
	}
	return "", false
}

// IsDuplicateKey reports whether err is a uniqueness violation raised by
// postgres or sqlite.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// IsForeignKeyViolation reports whether err is a reference to a row that does
// not exist, raised by postgres or sqlite.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}

// IsNotFound reports whether err is a domain not-found error or gorm's
// record-not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
