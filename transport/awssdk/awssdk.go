// Package awssdk implements transport.Transport on top of AWS SDK for Go v2.
//
// The SDK supplies SigV4 signing, HTTP framing and checksum middleware. Its own
// retryer is disabled so that the upload client's retry policy is the only one
// in effect; every failure is classified into transport.ClassTransient or
// transport.ClassPermanent before it is returned.
package awssdk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
)

// keepAlive is the TCP keep-alive period for pooled connections.
const keepAlive = 30 * time.Second

// Transport is an AWS SDK v2 backed transport.Transport.
// It holds no per-pool state and may serve any number of pools.
type Transport struct {
	logger *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger routes AWS SDK log output to logger.
// If logger is nil, SDK logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates an AWS SDK transport.
func New(opts ...Option) *Transport {
	t := &Transport{}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

// pool is the Pool handle produced by InitPool.
type pool struct {
	client     *s3.Client
	httpClient *http.Client
	httpTrans  *http.Transport
}

var _ transport.Transport = (*Transport)(nil)

// InitPool builds a dedicated HTTP connection pool and S3 client for cfg.
func (t *Transport) InitPool(ctx context.Context, cfg transport.PoolConfig) (transport.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("awssdk: init pool: %w", err)
	}

	httpTrans := newHTTPTransport(cfg)
	httpClient := &http.Client{Transport: httpTrans}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: cfg.PathStyle,
		HTTPClient:   httpClient,
		Retryer:      aws.NopRetryer{},
		Logger:       newSDKLogger(t.logger),
	}
	applyChunkedEncoding(&opts, cfg.ChunkedEncoding)

	t.logger.Debug("initialized connection pool",
		"endpoint", cfg.Endpoint,
		"region", cfg.Region,
		"max_connections", cfg.MaxConnections,
		"connect_timeout", cfg.ConnectTimeout,
		"read_timeout", cfg.ReadTimeout,
	)

	return &pool{
		client:     s3.New(opts),
		httpClient: httpClient,
		httpTrans:  httpTrans,
	}, nil
}

// Send performs one PutObject call.
func (t *Transport) Send(ctx context.Context, pl transport.Pool, req *transport.Request) (*transport.Response, error) {
	p, ok := pl.(*pool)
	if !ok || p == nil {
		return nil, transport.Permanent(fmt.Errorf("awssdk: unsupported pool handle %T", pl))
	}
	if req.Method != "" && req.Method != http.MethodPut {
		return nil, transport.Permanent(fmt.Errorf("awssdk: unsupported method %q", req.Method))
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(req.Bucket),
		Key:           aws.String(req.Key),
		Body:          req.Body,
		ContentLength: aws.Int64(req.ContentLength),
	}
	if req.ContentMD5 != "" {
		input.ContentMD5 = aws.String(req.ContentMD5)
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if len(req.Metadata) > 0 {
		input.Metadata = req.Metadata
	}

	output, err := p.client.PutObject(ctx, input, func(o *s3.Options) {
		o.UsePathStyle = req.PathStyle
		applyChunkedEncoding(o, req.ChunkedEncoding)
	})
	if err != nil {
		return nil, classify(err)
	}

	status := http.StatusOK
	if raw, ok := awsmiddleware.GetRawResponse(output.ResultMetadata).(*smithyhttp.Response); ok && raw != nil {
		status = raw.StatusCode
	}

	return &transport.Response{
		ETag:       aws.ToString(output.ETag),
		HTTPStatus: status,
		VersionID:  aws.ToString(output.VersionId),
	}, nil
}

// ClosePool closes the pool's idle connections. In-flight requests finish on
// their own connections.
func (t *Transport) ClosePool(pl transport.Pool) error {
	p, ok := pl.(*pool)
	if !ok || p == nil {
		return fmt.Errorf("awssdk: unsupported pool handle %T", pl)
	}
	p.httpClient.CloseIdleConnections()
	t.logger.Debug("closed connection pool")
	return nil
}

// applyChunkedEncoding maps the chunked-encoding switch onto the SDK's
// checksum settings. Enabling it lets the SDK stream an aws-chunked body with a
// trailing checksum; disabling it only sends checksums the operation requires.
func applyChunkedEncoding(o *s3.Options, chunked *bool) {
	if chunked == nil {
		return
	}
	if *chunked {
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenSupported
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenSupported
		return
	}
	o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
}

// newHTTPTransport clones the default transport and sizes it from cfg.
func newHTTPTransport(cfg transport.PoolConfig) *http.Transport {
	var tr *http.Transport
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		tr = base.Clone()
	} else {
		tr = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}

	tr.DialContext = transport.Dialer(cfg, keepAlive)

	tr.MaxConnsPerHost = cfg.MaxConnections
	tr.MaxIdleConns = cfg.MaxConnections
	tr.MaxIdleConnsPerHost = cfg.MaxConnections
	tr.ResponseHeaderTimeout = cfg.ReadTimeout
	if cfg.ConnectTimeout > 0 {
		tr.TLSHandshakeTimeout = cfg.ConnectTimeout
	}
	return tr
}
