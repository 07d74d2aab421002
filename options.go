package s3upload

import (
	"context"
	"log/slog"
	"maps"
	"math/rand"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/metrics"
)

// Option configures the Options passed to Build by NewConfig.
type Option func(*Options)

// WithRegion sets the signing region.
// If not specified, DefaultRegion is used.
func WithRegion(region string) Option {
	return func(o *Options) {
		o.Region = &region
	}
}

// WithPathStyle selects path-style (true) or virtual-hosted (false) addressing.
// Default is true, which most S3-compatible servers require.
func WithPathStyle(pathStyle bool) Option {
	return func(o *Options) {
		o.PathStyle = &pathStyle
	}
}

// WithChunkedEncoding forces aws-chunked payload framing on or off.
// Without it the transport default applies.
func WithChunkedEncoding(enabled bool) Option {
	return func(o *Options) {
		o.ChunkedEncoding = &enabled
	}
}

// WithConnectTimeout sets the timeout for establishing a connection.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = &d
	}
}

// WithReadTimeout sets how long an attempt waits for the response after the
// request has been sent.
func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = &d
	}
}

// WithWriteTimeout bounds each socket write while the request body is sent.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.WriteTimeout = &d
	}
}

// WithMaxConnections sets the connection pool size. Must be positive.
func WithMaxConnections(n int) Option {
	return func(o *Options) {
		o.MaxConnections = &n
	}
}

// WithRetry enables or disables retries of transient failures.
// Retries are disabled by default.
func WithRetry(enabled bool) Option {
	return func(o *Options) {
		o.RetryEnabled = &enabled
	}
}

// WithMaxRetries sets how many attempts may follow the first one.
// Default is 3. Only effective together with WithRetry(true).
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = &n
	}
}

// WithContentMD5 enables or disables payload digests.
// Default is true.
func WithContentMD5(enabled bool) Option {
	return func(o *Options) {
		o.ContentMD5 = &enabled
	}
}

// Sleeper waits for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// ClientOption configures an UploadClient.
type ClientOption func(*UploadClient)

// WithLogger sets the logger for the client.
// If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *UploadClient) {
		c.logger = logger
	}
}

// WithMetrics records upload and attempt metrics in m.
func WithMetrics(m *metrics.Collector) ClientOption {
	return func(c *UploadClient) {
		c.metrics = m
	}
}

// WithETagVerification compares plain 32-hex ETags against the payload MD5
// and fails the upload on a mismatch. It is off by default because servers
// using SSE-KMS or SSE-C return ETags that are not the content digest. It has
// no effect when ContentMD5 is disabled.
func WithETagVerification(enabled bool) ClientOption {
	return func(c *UploadClient) {
		c.verifyETag = enabled
	}
}

// WithRandSource sets the random source used for backoff jitter.
// The client serializes access to it.
func WithRandSource(src rand.Source) ClientOption {
	return func(c *UploadClient) {
		if src != nil {
			c.rng = rand.New(src) //nolint:gosec // jitter only
		}
	}
}

// WithSleeper replaces the function used to wait between attempts.
func WithSleeper(sleep Sleeper) ClientOption {
	return func(c *UploadClient) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// putOptions holds per-call upload settings.
type putOptions struct {
	contentType string
	metadata    map[string]string
}

// PutOption configures a single PutObject call.
type PutOption func(*putOptions)

// WithContentType sets the Content-Type of the uploaded object.
func WithContentType(contentType string) PutOption {
	return func(o *putOptions) {
		o.contentType = contentType
	}
}

// WithMetadata attaches user metadata to the uploaded object.
// Successive calls merge into the same map.
func WithMetadata(metadata map[string]string) PutOption {
	return func(o *putOptions) {
		if o.metadata == nil {
			o.metadata = make(map[string]string, len(metadata))
		}
		maps.Copy(o.metadata, metadata)
	}
}
