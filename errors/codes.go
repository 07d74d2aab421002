package errors

// ErrorCode is a stable, string-based identifier for an error kind.
// Codes are meant for logs and machine-readable output, where Kind's
// integer values would not survive serialization.
type ErrorCode string

const (
	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodePermanent indicates the storage endpoint rejected the request.
	CodePermanent ErrorCode = "TRANSPORT_PERMANENT"

	// CodeTransient indicates a network, timeout or server-side failure.
	CodeTransient ErrorCode = "TRANSPORT_TRANSIENT"

	// CodeRetriesExhausted indicates an upload failed on its last permitted attempt.
	CodeRetriesExhausted ErrorCode = "RETRIES_EXHAUSTED"

	// CodeClosed indicates the client was already closed.
	CodeClosed ErrorCode = "CLIENT_CLOSED"

	// CodeCancelled indicates the caller cancelled the operation.
	CodeCancelled ErrorCode = "CANCELLED"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Code returns the ErrorCode for the kind.
func (k Kind) Code() ErrorCode {
	switch k {
	case KindConfig:
		return CodeInvalidConfig
	case KindInvalidInput:
		return CodeInvalidInput
	case KindPermanent:
		return CodePermanent
	case KindTransient:
		return CodeTransient
	case KindUpload:
		return CodeRetriesExhausted
	case KindClosed:
		return CodeClosed
	case KindCancelled:
		return CodeCancelled
	default:
		return CodeUnknown
	}
}

// CodeOf returns the ErrorCode of err's kind.
func CodeOf(err error) ErrorCode {
	return KindOf(err).Code()
}
