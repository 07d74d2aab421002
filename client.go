package s3upload

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport/awssdk"
)

// UploadClient binds a ClientConfig to a transport connection pool.
// It is safe for concurrent use; each PutObject call is independent and the
// transport pool is the only shared resource.
type UploadClient struct {
	cfg       *ClientConfig
	transport transport.Transport
	pool      transport.Pool
	logger    *slog.Logger
	metrics   *metrics.Collector

	// rng is not safe for concurrent use
	rngMu sync.Mutex
	rng   *rand.Rand

	sleep      Sleeper
	verifyETag bool
	closed     atomic.Bool
}

// New validates cfg, asks tr for a connection pool sized from cfg and returns
// a ready client. The pool is acquired exactly once, here.
//
// Example:
//
//	cfg, err := s3upload.NewConfig("http://10.9.8.95:80", "testy", "testy")
//	if err != nil {
//	    return err
//	}
//	client, err := s3upload.New(cfg, awssdk.New())
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(cfg *ClientConfig, tr transport.Transport, opts ...ClientOption) (*UploadClient, error) {
	if cfg == nil {
		return nil, configNewError("config cannot be nil")
	}
	if tr == nil {
		return nil, configNewError("transport cannot be nil")
	}

	// A ClientConfig can only come from Build, but a zero value can still be
	// constructed by hand.
	if _, err := Build(cfg.Options()); err != nil {
		return nil, err
	}

	c := newClient(cfg, opts...)
	c.transport = tr

	pool, err := tr.InitPool(context.Background(), transport.PoolConfig{
		Endpoint:        cfg.endpoint,
		Region:          cfg.region,
		AccessKey:       cfg.accessKey,
		SecretKey:       cfg.secretKey,
		PathStyle:       cfg.pathStyle,
		ChunkedEncoding: cfg.chunkedEncoding,
		MaxConnections:  cfg.maxConnections,
		ConnectTimeout:  cfg.connectTimeout,
		ReadTimeout:     cfg.readTimeout,
		WriteTimeout:    cfg.writeTimeout,
	})
	if err != nil {
		return nil, errors.NewError("new", errors.KindConfig, err).WithMessage("failed to initialize connection pool")
	}
	c.pool = pool

	c.logger.Debug("upload client ready",
		"endpoint", cfg.endpoint,
		"region", cfg.region,
		"path_style", cfg.pathStyle,
		"retry_enabled", cfg.retryEnabled,
		"max_retries", cfg.maxRetries,
	)

	return c, nil
}

// NewFromConfig creates a client backed by the AWS SDK transport. The client
// logger, if any, also receives the SDK's log output.
func NewFromConfig(cfg *ClientConfig, opts ...ClientOption) (*UploadClient, error) {
	defaults := newClient(cfg, opts...)
	return New(cfg, awssdk.New(awssdk.WithLogger(defaults.logger)), opts...)
}

func newClient(cfg *ClientConfig, opts ...ClientOption) *UploadClient {
	c := &UploadClient{
		cfg:   cfg,
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // jitter only
	}
	return c
}

// Config returns the client's configuration.
func (c *UploadClient) Config() *ClientConfig {
	return c.cfg
}

// Close releases the transport connection pool. Only the first call has any
// effect; later calls return nil. Uploads started afterwards fail with
// errors.ErrClientClosed, uploads already in flight may fail with transport errors.
func (c *UploadClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if err := c.transport.ClosePool(c.pool); err != nil {
		return errors.NewError("close", errors.KindPermanent, err).WithMessage("failed to close connection pool")
	}
	c.logger.Debug("upload client closed")
	return nil
}

// Closed reports whether Close has been called.
func (c *UploadClient) Closed() bool {
	return c.closed.Load()
}

func configNewError(msg string) error {
	return errors.NewError("new", errors.KindConfig, errors.ErrInvalidConfig).WithMessage(msg)
}
