package s3upload

import (
	"fmt"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/validation"
)

// Defaults applied by Options.WithDefaults.
const (
	DefaultRegion         = "us-east-1"
	DefaultPathStyle      = true
	DefaultConnectTimeout = 3000 * time.Millisecond
	DefaultReadTimeout    = 5000 * time.Millisecond
	DefaultWriteTimeout   = 10000 * time.Millisecond
	DefaultMaxConnections = 1000
	DefaultRetryEnabled   = false
	DefaultMaxRetries     = 3
	DefaultContentMD5     = true

	// BaseRetryDelay scales the backoff window: the delay before retry n is
	// drawn uniformly from [0, BaseRetryDelay*2^n).
	BaseRetryDelay = 100 * time.Millisecond
)

// Options is the raw, partially populated form of a ClientConfig.
// Nil pointer fields pick up their documented default in WithDefaults.
type Options struct {
	// Endpoint is the absolute http(s) URI of the storage service. Required.
	Endpoint string

	// AccessKey and SecretKey are the static credentials. Required.
	AccessKey string
	SecretKey string

	// Region used for request signing. Default DefaultRegion.
	Region *string

	// PathStyle places the bucket in the URL path. Default true.
	PathStyle *bool

	// ChunkedEncoding toggles aws-chunked payload framing. Nil keeps the
	// transport default.
	ChunkedEncoding *bool

	ConnectTimeout *time.Duration
	ReadTimeout    *time.Duration
	WriteTimeout   *time.Duration

	// MaxConnections sizes the transport connection pool.
	MaxConnections *int

	// RetryEnabled turns on retries of transient failures.
	RetryEnabled *bool

	// MaxRetries is the number of attempts made after the first one.
	MaxRetries *int

	// ContentMD5 sends a Content-MD5 header and verifies single-part ETags.
	ContentMD5 *bool
}

// WithDefaults returns a copy of o with every unset optional field replaced by
// its default. Applying it more than once has no further effect.
func (o Options) WithDefaults() Options {
	out := o
	if out.Region == nil {
		out.Region = ptr(DefaultRegion)
	}
	if out.PathStyle == nil {
		out.PathStyle = ptr(DefaultPathStyle)
	}
	if out.ConnectTimeout == nil {
		out.ConnectTimeout = ptr(DefaultConnectTimeout)
	}
	if out.ReadTimeout == nil {
		out.ReadTimeout = ptr(DefaultReadTimeout)
	}
	if out.WriteTimeout == nil {
		out.WriteTimeout = ptr(DefaultWriteTimeout)
	}
	if out.MaxConnections == nil {
		out.MaxConnections = ptr(DefaultMaxConnections)
	}
	if out.RetryEnabled == nil {
		out.RetryEnabled = ptr(DefaultRetryEnabled)
	}
	if out.MaxRetries == nil {
		out.MaxRetries = ptr(DefaultMaxRetries)
	}
	if out.ContentMD5 == nil {
		out.ContentMD5 = ptr(DefaultContentMD5)
	}
	return out
}

// ClientConfig is a validated, immutable endpoint configuration.
// Build is the only way to obtain one.
type ClientConfig struct {
	endpoint        string
	accessKey       string
	secretKey       string
	region          string
	pathStyle       bool
	chunkedEncoding *bool
	connectTimeout  time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	maxConnections  int
	retryEnabled    bool
	maxRetries      int
	contentMD5      bool
}

// Build applies defaults to opts and validates the result.
// All failures are configuration errors matching errors.ErrInvalidConfig.
func Build(opts Options) (*ClientConfig, error) {
	o := opts.WithDefaults()

	if err := validation.ValidateEndpoint(o.Endpoint); err != nil {
		return nil, err
	}
	if o.AccessKey == "" {
		return nil, configError("access key is required")
	}
	if o.SecretKey == "" {
		return nil, configError("secret key is required")
	}
	if *o.Region == "" {
		return nil, configError("region cannot be empty")
	}
	if *o.MaxConnections <= 0 {
		return nil, configError(fmt.Sprintf("max connections must be positive, got %d", *o.MaxConnections))
	}
	if *o.MaxRetries < 0 {
		return nil, configError(fmt.Sprintf("max retries cannot be negative, got %d", *o.MaxRetries))
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"connect timeout", *o.ConnectTimeout},
		{"read timeout", *o.ReadTimeout},
		{"write timeout", *o.WriteTimeout},
	} {
		if t.d <= 0 {
			return nil, configError(fmt.Sprintf("%s must be positive, got %s", t.name, t.d))
		}
	}

	cfg := &ClientConfig{
		endpoint:       o.Endpoint,
		accessKey:      o.AccessKey,
		secretKey:      o.SecretKey,
		region:         *o.Region,
		pathStyle:      *o.PathStyle,
		connectTimeout: *o.ConnectTimeout,
		readTimeout:    *o.ReadTimeout,
		writeTimeout:   *o.WriteTimeout,
		maxConnections: *o.MaxConnections,
		retryEnabled:   *o.RetryEnabled,
		maxRetries:     *o.MaxRetries,
		contentMD5:     *o.ContentMD5,
	}
	if o.ChunkedEncoding != nil {
		cfg.chunkedEncoding = ptr(*o.ChunkedEncoding)
	}
	return cfg, nil
}

// NewConfig builds a ClientConfig from the required fields and functional options.
//
// Example:
//
//	cfg, err := s3upload.NewConfig("http://10.9.8.95:80", "testy", "testy",
//	    s3upload.WithRetry(true),
//	    s3upload.WithMaxRetries(5),
//	)
func NewConfig(endpoint, accessKey, secretKey string, opts ...Option) (*ClientConfig, error) {
	o := Options{
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return Build(o)
}

// Options returns a fully populated copy of the options the config was built
// from. Passing it back to Build yields an equal config.
func (c *ClientConfig) Options() Options {
	o := Options{
		Endpoint:       c.endpoint,
		AccessKey:      c.accessKey,
		SecretKey:      c.secretKey,
		Region:         ptr(c.region),
		PathStyle:      ptr(c.pathStyle),
		ConnectTimeout: ptr(c.connectTimeout),
		ReadTimeout:    ptr(c.readTimeout),
		WriteTimeout:   ptr(c.writeTimeout),
		MaxConnections: ptr(c.maxConnections),
		RetryEnabled:   ptr(c.retryEnabled),
		MaxRetries:     ptr(c.maxRetries),
		ContentMD5:     ptr(c.contentMD5),
	}
	if c.chunkedEncoding != nil {
		o.ChunkedEncoding = ptr(*c.chunkedEncoding)
	}
	return o
}

// Endpoint returns the service endpoint URI.
func (c *ClientConfig) Endpoint() string { return c.endpoint }

// AccessKey returns the access key ID.
func (c *ClientConfig) AccessKey() string { return c.accessKey }

// Region returns the signing region.
func (c *ClientConfig) Region() string { return c.region }

// PathStyle reports whether path-style addressing is used.
func (c *ClientConfig) PathStyle() bool { return c.pathStyle }

// ChunkedEncoding returns the chunked-encoding override and whether one is set.
func (c *ClientConfig) ChunkedEncoding() (enabled, set bool) {
	if c.chunkedEncoding == nil {
		return false, false
	}
	return *c.chunkedEncoding, true
}

// ConnectTimeout returns the connection establishment timeout.
func (c *ClientConfig) ConnectTimeout() time.Duration { return c.connectTimeout }

// ReadTimeout returns the response wait timeout per attempt.
func (c *ClientConfig) ReadTimeout() time.Duration { return c.readTimeout }

// WriteTimeout returns the per-write socket timeout.
func (c *ClientConfig) WriteTimeout() time.Duration { return c.writeTimeout }

// MaxConnections returns the connection pool size.
func (c *ClientConfig) MaxConnections() int { return c.maxConnections }

// RetryEnabled reports whether transient failures are retried.
func (c *ClientConfig) RetryEnabled() bool { return c.retryEnabled }

// MaxRetries returns the number of retries after the first attempt.
func (c *ClientConfig) MaxRetries() int { return c.maxRetries }

// ContentMD5 reports whether payload digests are sent and verified.
func (c *ClientConfig) ContentMD5() bool { return c.contentMD5 }

// String describes the config without the secret key.
func (c *ClientConfig) String() string {
	chunked := "default"
	if c.chunkedEncoding != nil {
		chunked = fmt.Sprintf("%t", *c.chunkedEncoding)
	}
	return fmt.Sprintf(
		"ClientConfig{endpoint=%s accessKey=%s region=%s pathStyle=%t chunked=%s connect=%s read=%s write=%s "+
			"maxConnections=%d retry=%t maxRetries=%d contentMD5=%t}",
		c.endpoint, c.accessKey, c.region, c.pathStyle, chunked,
		c.connectTimeout, c.readTimeout, c.writeTimeout,
		c.maxConnections, c.retryEnabled, c.maxRetries, c.contentMD5,
	)
}

func configError(msg string) error {
	return errors.NewError("build", errors.KindConfig, errors.ErrInvalidConfig).WithMessage(msg)
}

func ptr[T any](v T) *T {
	return &v
}
