// Package miniosdk implements transport.Transport on top of minio-go.
//
// It is an alternative to the AWS SDK transport for S3-compatible servers
// (MinIO, Ceph RGW) where minio-go's signer is the better-tested path.
// minio-go's internal retries are disabled; failures are classified for the
// upload client's own retry policy.
//
// Chunked encoding is not switchable here. minio-go signs plain HTTP uploads
// with streaming aws-chunked signatures and TLS uploads with a signed payload
// whatever PoolConfig.ChunkedEncoding says; true only enables trailing
// checksum headers. WriteTimeout and ConnectTimeout apply as in the AWS SDK
// transport.
package miniosdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
)

// keepAlive is the TCP keep-alive period for pooled connections.
const keepAlive = 30 * time.Second

// Transport is a minio-go backed transport.Transport.
type Transport struct {
	logger *slog.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger for pool lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a minio-go transport.
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

var _ transport.Transport = (*Transport)(nil)

// pool holds one client per addressing style; minio-go fixes bucket lookup at
// construction time.
type pool struct {
	pathStyle *minio.Client
	dnsStyle  *minio.Client
	httpTrans *http.Transport
}

func (p *pool) client(pathStyle bool) *minio.Client {
	if pathStyle {
		return p.pathStyle
	}
	return p.dnsStyle
}

// InitPool builds the HTTP pool and minio clients for cfg.
func (t *Transport) InitPool(ctx context.Context, cfg transport.PoolConfig) (transport.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("miniosdk: init pool: %w", err)
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("miniosdk: parse endpoint: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("miniosdk: endpoint %q has no host", cfg.Endpoint)
	}

	httpTrans := newHTTPTransport(cfg)
	newClient := func(lookup minio.BucketLookupType) (*minio.Client, error) {
		return minio.New(u.Host, &minio.Options{
			Creds:           credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure:          u.Scheme == "https",
			Region:          cfg.Region,
			BucketLookup:    lookup,
			Transport:       httpTrans,
			TrailingHeaders: cfg.ChunkedEncoding != nil && *cfg.ChunkedEncoding,
			MaxRetries:      1,
		})
	}

	pathClient, err := newClient(minio.BucketLookupPath)
	if err != nil {
		return nil, fmt.Errorf("miniosdk: create client: %w", err)
	}
	dnsClient, err := newClient(minio.BucketLookupDNS)
	if err != nil {
		return nil, fmt.Errorf("miniosdk: create client: %w", err)
	}

	t.logger.Debug("initialized connection pool",
		"endpoint", cfg.Endpoint,
		"max_connections", cfg.MaxConnections,
	)

	return &pool{
		pathStyle: pathClient,
		dnsStyle:  dnsClient,
		httpTrans: httpTrans,
	}, nil
}

// Send performs one PutObject call.
func (t *Transport) Send(ctx context.Context, pl transport.Pool, req *transport.Request) (*transport.Response, error) {
	p, ok := pl.(*pool)
	if !ok || p == nil {
		return nil, transport.Permanent(fmt.Errorf("miniosdk: unsupported pool handle %T", pl))
	}
	if req.Method != "" && req.Method != http.MethodPut {
		return nil, transport.Permanent(fmt.Errorf("miniosdk: unsupported method %q", req.Method))
	}

	opts := minio.PutObjectOptions{
		ContentType:      req.ContentType,
		UserMetadata:     req.Metadata,
		SendContentMd5:   req.ContentMD5 != "",
		DisableMultipart: true,
	}

	info, err := p.client(req.PathStyle).PutObject(ctx, req.Bucket, req.Key, req.Body, req.ContentLength, opts)
	if err != nil {
		return nil, classify(err)
	}

	return &transport.Response{
		ETag:       info.ETag,
		HTTPStatus: http.StatusOK,
		VersionID:  info.VersionID,
	}, nil
}

// ClosePool closes idle pooled connections.
func (t *Transport) ClosePool(pl transport.Pool) error {
	p, ok := pl.(*pool)
	if !ok || p == nil {
		return fmt.Errorf("miniosdk: unsupported pool handle %T", pl)
	}
	p.httpTrans.CloseIdleConnections()
	return nil
}

func classify(err error) *transport.Error {
	te := &transport.Error{Class: transport.ClassPermanent, Err: err}

	resp := minio.ToErrorResponse(err)
	te.StatusCode = resp.StatusCode
	te.Code = resp.Code

	switch resp.Code {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		te.Err = fmt.Errorf("%w: %w", s3errors.ErrAccessDenied, err)
		return te
	case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout", "XMinioServerNotInitialized":
		te.Class = transport.ClassTransient
		return te
	}

	switch {
	case errors.Is(err, context.Canceled):
		// reported by the upload client
	case errors.Is(err, context.DeadlineExceeded):
		te.Class = transport.ClassTransient
	case resp.StatusCode >= http.StatusInternalServerError,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests:
		te.Class = transport.ClassTransient
	case resp.StatusCode == 0:
		var netErr net.Error
		if errors.As(err, &netErr) {
			te.Class = transport.ClassTransient
		}
	}
	return te
}

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
