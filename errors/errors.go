// Package errors provides error types and handling for S3 upload operations.
//
// Every failure surfaced by the upload client is an *Error carrying the
// operation, the target object, a Kind from the error taxonomy and the number
// of transport attempts that were made. Use errors.Is with the sentinels below
// or the Is* helpers to branch on the kind.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an upload failure.
type Kind int

const (
	// KindUnknown is the zero value and is never produced by this module.
	KindUnknown Kind = iota

	// KindConfig indicates an invalid or missing configuration field.
	KindConfig

	// KindInvalidInput indicates invalid arguments to an operation.
	KindInvalidInput

	// KindPermanent indicates a transport failure that retrying cannot fix
	// (authentication, malformed request, checksum mismatch).
	KindPermanent

	// KindTransient indicates a single transport failure likely to succeed on
	// retry. UploadClient never returns it (an upload that fails transiently is
	// KindUpload); it exists for callers and transports that wrap their own
	// errors in this taxonomy.
	KindTransient

	// KindUpload indicates an upload whose every permitted attempt failed
	// transiently. With retries disabled that is a single attempt.
	KindUpload

	// KindClosed indicates an operation attempted on a closed client.
	KindClosed

	// KindCancelled indicates an operation aborted through its context.
	KindCancelled
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindInvalidInput:
		return "InvalidInputError"
	case KindPermanent:
		return "TransportError.Permanent"
	case KindTransient:
		return "TransportError.Transient"
	case KindUpload:
		return "UploadError"
	case KindClosed:
		return "ClosedClientError"
	case KindCancelled:
		return "CancelledError"
	default:
		return "UnknownError"
	}
}

// sentinel maps a kind to the sentinel matched by errors.Is.
func (k Kind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrInvalidConfig
	case KindInvalidInput:
		return ErrInvalidInput
	case KindUpload:
		return ErrRetriesExhausted
	case KindClosed:
		return ErrClientClosed
	case KindCancelled:
		return ErrCancelled
	default:
		return nil
	}
}

// Error represents an upload error with context about the operation that failed.
// It wraps the underlying transport or validation error with additional context
// for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "build", "new", "putObject")
	Op string

	// Kind is the taxonomy kind of the failure
	Kind Kind

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Attempts is the number of transport attempts made before failing
	Attempts int

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	var target string
	switch {
	case e.Bucket != "" && e.Key != "":
		target = fmt.Sprintf(" %s/%s", e.Bucket, e.Key)
	case e.Bucket != "":
		target = fmt.Sprintf(" bucket %s", e.Bucket)
	case e.Key != "":
		target = fmt.Sprintf(" object %s", e.Key)
	}

	if e.Attempts > 0 {
		return fmt.Sprintf("s3upload.%s%s: %s after %d attempt(s): %v", e.Op, target, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("s3upload.%s%s: %s: %v", e.Op, target, e.Kind, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind, so that
// errors.Is(err, ErrRetriesExhausted) holds for every KindUpload error
// regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithAttempts records how many transport attempts were made.
func (e *Error) WithAttempts(attempts int) *Error {
	e.Attempts = attempts
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation, kind and underlying error.
func NewError(op string, kind Kind, err error) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op string, kind Kind, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Kind:   kind,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for upload failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidConfig indicates a configuration field is missing or invalid
	ErrInvalidConfig = errors.New("s3upload: invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3upload: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3upload: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3upload: invalid object key")

	// ErrRetriesExhausted indicates every permitted attempt failed transiently,
	// including the single attempt made when retries are disabled
	ErrRetriesExhausted = errors.New("s3upload: transient failure on every permitted attempt")

	// ErrClientClosed indicates the client has released its connection pool
	ErrClientClosed = errors.New("s3upload: client closed")

	// ErrCancelled indicates the caller cancelled the operation
	ErrCancelled = errors.New("s3upload: operation cancelled")

	// ErrChecksumMismatch indicates that the returned entity tag does not match the payload
	ErrChecksumMismatch = errors.New("s3upload: checksum mismatch")

	// ErrAccessDenied indicates that the endpoint rejected the credentials
	ErrAccessDenied = errors.New("s3upload: access denied")
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// AttemptsOf returns the attempt count recorded on err, or 0.
func AttemptsOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Attempts
	}
	return 0
}

// IsConfig checks if an error is a configuration error.
func IsConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsClosed checks if an error was caused by using a closed client.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClientClosed)
}

// IsCancelled checks if an error was caused by caller cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsRetriesExhausted checks if an upload failed transiently on its last permitted attempt.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}

// IsPermanent checks if an error is a permanent transport failure.
func IsPermanent(err error) bool {
	return KindOf(err) == KindPermanent
}

// IsRetryable checks if an error was caused by transient failures, so that
// repeating the whole call later may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindUpload:
		return true
	default:
		return false
	}
}
