// Package transport defines the storage transport capability the upload client
// depends on.
//
// A Transport owns request signing, HTTP framing and connection pooling. The
// upload client only ever talks to it through InitPool, Send and ClosePool,
// and relies on it to classify each failure as transient or permanent.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Class classifies a transport failure for the retry policy.
type Class int

const (
	// ClassPermanent failures will not succeed on retry (auth, bad request).
	ClassPermanent Class = iota

	// ClassTransient failures are likely to succeed on retry
	// (timeouts, connection resets, 5xx responses, throttling).
	ClassTransient
)

// String returns a readable name for the class.
func (c Class) String() string {
	if c == ClassTransient {
		return "transient"
	}
	return "permanent"
}

// PoolConfig carries everything a transport needs to build its connection pool.
type PoolConfig struct {
	Endpoint        string
	Region          string
	AccessKey       string
	SecretKey       string
	PathStyle       bool
	ChunkedEncoding *bool
	MaxConnections  int
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// Pool is an opaque handle to a transport's connection pool.
type Pool interface{}

// Request describes a single object upload attempt.
type Request struct {
	// Method is always PUT for uploads.
	Method string

	Bucket string
	Key    string

	// PathStyle places the bucket in the URL path instead of the host.
	PathStyle bool

	// Body yields exactly ContentLength bytes.
	Body          io.Reader
	ContentLength int64

	// ChunkedEncoding overrides the transport's chunked (aws-chunked) payload
	// behaviour; nil keeps the transport default.
	ChunkedEncoding *bool

	// ContentMD5 is the base64 MD5 of the payload, sent for server-side
	// verification when non-empty.
	ContentMD5 string

	ContentType string
	Metadata    map[string]string
}

// Response is the result of a successful Send.
type Response struct {
	ETag       string
	HTTPStatus int
	VersionID  string
}

// Transport is the external storage capability.
// Implementations must be safe for concurrent use of a single Pool.
type Transport interface {
	// InitPool acquires transport-level resources sized by cfg.
	InitPool(ctx context.Context, cfg PoolConfig) (Pool, error)

	// Send issues a single request. Failures should be *Error values.
	Send(ctx context.Context, pool Pool, req *Request) (*Response, error)

	// ClosePool releases the resources acquired by InitPool.
	ClosePool(pool Pool) error
}

// Error is a classified transport failure.
type Error struct {
	Class Class

	// StatusCode is the HTTP status when a response was received, otherwise 0.
	StatusCode int

	// Code is the service error code when one was returned (e.g. "AccessDenied").
	Code string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("transport %s failure (%d %s): %v", e.Class, e.StatusCode, e.Code, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport %s failure (%d): %v", e.Class, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("transport %s failure: %v", e.Class, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a transient failure.
func Transient(err error) *Error {
	return &Error{Class: ClassTransient, Err: err}
}

// Permanent wraps err as a permanent failure.
func Permanent(err error) *Error {
	return &Error{Class: ClassPermanent, Err: err}
}

// Classify returns the class recorded on err. Errors that carry no
// classification are treated as permanent.
func Classify(err error) Class {
	var te *Error
	if errors.As(err, &te) {
		return te.Class
	}
	return ClassPermanent
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	return err != nil && Classify(err) == ClassTransient
}
