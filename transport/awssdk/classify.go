package awssdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
)

// Service error codes that never succeed on retry.
var permanentCodes = map[string]bool{
	"AccessDenied":                 true,
	"AccountProblem":               true,
	"AllAccessDisabled":            true,
	"AuthorizationHeaderMalformed": true,
	"BadDigest":                    true,
	"EntityTooLarge":               true,
	"IncompleteBody":               true,
	"InvalidAccessKeyId":           true,
	"InvalidArgument":              true,
	"InvalidBucketName":            true,
	"InvalidDigest":                true,
	"InvalidRequest":               true,
	"MissingContentLength":         true,
	"NoSuchBucket":                 true,
	"SignatureDoesNotMatch":        true,
	"XAmzContentSHA256Mismatch":    true,
}

// Service error codes that signal throttling or server-side trouble.
var transientCodes = map[string]bool{
	"InternalError":            true,
	"OperationAborted":         true,
	"RequestTimeout":           true,
	"RequestTimeTooSkewed":     true,
	"ServiceUnavailable":       true,
	"SlowDown":                 true,
	"Throttling":               true,
	"ThrottlingException":      true,
	"TooManyRequestsException": true,
}

// Codes reported as access failures.
var accessDeniedCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
}

// sdkRetryables is the SDK's own retryable-error classifier, consulted last.
var sdkRetryables = retry.IsErrorRetryables(retry.DefaultRetryables)

// classify converts an SDK error into a classified *transport.Error.
func classify(err error) *transport.Error {
	te := &transport.Error{Class: transport.ClassPermanent, Err: err}

	if status, ok := httpStatusCode(err); ok {
		te.StatusCode = status
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		te.Code = apiErr.ErrorCode()
	}

	if accessDeniedCodes[te.Code] || te.StatusCode == http.StatusForbidden {
		te.Err = fmt.Errorf("%w: %w", s3errors.ErrAccessDenied, err)
	}

	if isTransient(err, te.StatusCode, te.Code) {
		te.Class = transport.ClassTransient
	}
	return te
}

func isTransient(err error, status int, code string) bool {
	// Caller cancellation is reported by the upload client itself.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if permanentCodes[code] {
		return false
	}
	if transientCodes[code] {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if isNetworkConnectionError(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && (dnsErr.IsTemporary || dnsErr.IsTimeout) {
		return true
	}

	if status != 0 {
		if status >= http.StatusInternalServerError {
			return true
		}
		switch status {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return false
	}

	return sdkRetryables.IsErrorRetryable(err) == aws.TrueTernary
}

func isNetworkConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	return false
}

func httpStatusCode(err error) (int, bool) {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode(), true
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode(), true
	}
	return 0, false
}
