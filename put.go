package s3upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/payload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
)

// UploadResult describes a stored object.
type UploadResult struct {
	// ETag is the entity tag returned by the server, without surrounding quotes.
	ETag string

	// Size is the number of bytes uploaded.
	Size int64

	Bucket    string
	Key       string
	VersionID string

	// Attempts is the number of transport attempts, including the successful one.
	Attempts int

	// Duration is the wall time of the whole call, backoff included.
	Duration time.Duration
}

// PutObject uploads exactly contentLength bytes from body to bucket/key.
//
// Seekable bodies are rewound before every attempt; other bodies are read once
// into memory so retries send the same bytes. When retries are enabled,
// transient transport failures are retried up to MaxRetries times with
// exponential jittered backoff. Permanent failures and invalid input are
// returned immediately. Cancelling ctx aborts the current attempt and any
// remaining retries.
//
// Every error is an *errors.Error whose Kind identifies the failure class and
// whose Attempts field counts the transport attempts made.
func (c *UploadClient) PutObject(
	ctx context.Context,
	bucket, key string,
	body io.Reader,
	contentLength int64,
	opts ...PutOption,
) (UploadResult, error) {
	start := time.Now()
	result, err := c.putObject(ctx, start, bucket, key, body, contentLength, opts)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = errors.KindOf(err).String()
	}
	c.metrics.ObserveUpload(outcome, result.Size, time.Since(start))
	return result, err
}

func (c *UploadClient) putObject(
	ctx context.Context,
	start time.Time,
	bucket, key string,
	body io.Reader,
	contentLength int64,
	opts []PutOption,
) (UploadResult, error) {
	const op = "putObject"

	if c.closed.Load() {
		return UploadResult{}, errors.NewObjectError(op, errors.KindClosed, bucket, key, errors.ErrClientClosed)
	}

	var po putOptions
	for _, opt := range opts {
		opt(&po)
	}

	if err := validatePut(bucket, key, body, contentLength, &po); err != nil {
		return UploadResult{}, withObject(err, bucket, key)
	}

	if err := ctx.Err(); err != nil {
		return UploadResult{}, errors.NewObjectError(op, errors.KindCancelled, bucket, key, err)
	}

	pl, err := payload.Prepare(body, contentLength, c.cfg.contentMD5)
	if err != nil {
		return UploadResult{}, errors.NewObjectError(op, errors.KindInvalidInput, bucket, key, err)
	}

	log := c.logger.With(
		"request_id", uuid.NewString(),
		"bucket", bucket,
		"key", key,
	)

	maxAttempts := 1
	if c.cfg.retryEnabled {
		maxAttempts += c.cfg.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt)
			c.metrics.ObserveRetry()
			log.Warn("retrying upload after transient failure",
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return UploadResult{}, c.cancelled(ctx, log, bucket, key, attempt)
			}
		}
		if ctx.Err() != nil {
			return UploadResult{}, c.cancelled(ctx, log, bucket, key, attempt)
		}

		r, err := pl.Reader()
		if err != nil {
			return UploadResult{}, errors.NewObjectError(op, errors.KindInvalidInput, bucket, key, err).
				WithAttempts(attempt)
		}

		log.Debug("sending upload attempt", "attempt", attempt+1, "size", pl.Size())

		resp, err := c.send(ctx, &transport.Request{
			Method:          http.MethodPut,
			Bucket:          bucket,
			Key:             key,
			PathStyle:       c.cfg.pathStyle,
			Body:            r,
			ContentLength:   pl.Size(),
			ChunkedEncoding: c.cfg.chunkedEncoding,
			ContentMD5:      pl.ContentMD5(),
			ContentType:     po.contentType,
			Metadata:        po.metadata,
		})
		attempts := attempt + 1

		if err == nil {
			etag := strings.Trim(resp.ETag, `"`)
			if c.verifyETag && !pl.ETagMatches(etag) {
				c.metrics.ObserveAttempt(metrics.AttemptPermanent)
				err := errors.NewObjectError(op, errors.KindPermanent, bucket, key,
					fmt.Errorf("%w: etag %s, payload md5 %s", errors.ErrChecksumMismatch, etag, pl.MD5Hex())).
					WithAttempts(attempts)
				log.Error("upload failed", "attempts", attempts, "error", err)
				return UploadResult{}, err
			}

			c.metrics.ObserveAttempt(metrics.AttemptSuccess)
			result := UploadResult{
				ETag:      etag,
				Size:      pl.Size(),
				Bucket:    bucket,
				Key:       key,
				VersionID: resp.VersionID,
				Attempts:  attempts,
				Duration:  time.Since(start),
			}
			log.Debug("upload complete",
				"attempts", attempts,
				"etag", etag,
				"duration", result.Duration,
			)
			return result, nil
		}

		if ctx.Err() != nil {
			c.metrics.ObserveAttempt(metrics.AttemptCancelled)
			return UploadResult{}, c.cancelled(ctx, log, bucket, key, attempts)
		}

		if transport.Classify(err) == transport.ClassPermanent {
			c.metrics.ObserveAttempt(metrics.AttemptPermanent)
			perr := errors.NewObjectError(op, errors.KindPermanent, bucket, key, err).WithAttempts(attempts)
			log.Error("upload failed", "attempts", attempts, "error", err)
			return UploadResult{}, perr
		}

		c.metrics.ObserveAttempt(metrics.AttemptTransient)
		lastErr = err
		log.Debug("upload attempt failed", "attempt", attempts, "error", err)
	}

	reason := "transient failure, retries disabled"
	if c.cfg.retryEnabled {
		reason = "transient failure, retry budget exhausted"
	}
	uerr := errors.NewObjectError(op, errors.KindUpload, bucket, key, lastErr).
		WithAttempts(maxAttempts).
		WithMessage(reason)
	log.Error("upload failed", "attempts", maxAttempts, "error", lastErr)
	return UploadResult{}, uerr
}

// send performs one transport call and normalizes its outcome: a response
// with a non-2xx status is turned into a classified failure.
func (c *UploadClient) send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := c.transport.Send(ctx, c.pool, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, transport.Permanent(stderrors.New("transport returned no response"))
	}
	if resp.HTTPStatus != 0 && (resp.HTTPStatus < 200 || resp.HTTPStatus > 299) {
		class := transport.ClassPermanent
		if resp.HTTPStatus >= http.StatusInternalServerError ||
			resp.HTTPStatus == http.StatusRequestTimeout ||
			resp.HTTPStatus == http.StatusTooManyRequests {
			class = transport.ClassTransient
		}
		return nil, &transport.Error{
			Class:      class,
			StatusCode: resp.HTTPStatus,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.HTTPStatus)),
		}
	}
	return resp, nil
}

func (c *UploadClient) cancelled(ctx context.Context, log *slog.Logger, bucket, key string, attempts int) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	log.Debug("upload cancelled", "attempts", attempts, "error", cause)
	return errors.NewObjectError("putObject", errors.KindCancelled, bucket, key, cause).WithAttempts(attempts)
}

func validatePut(bucket, key string, body io.Reader, contentLength int64, po *putOptions) error {
	if err := validation.ValidateBucket(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return err
	}
	if body == nil {
		return errors.NewError("putObject", errors.KindInvalidInput, errors.ErrInvalidInput).
			WithMessage("body cannot be nil")
	}
	if contentLength < 0 {
		return errors.NewError("putObject", errors.KindInvalidInput, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("content length cannot be negative: %d", contentLength))
	}
	if err := validation.ValidateContentType(po.contentType); err != nil {
		return err
	}
	return validation.ValidateMetadata(po.metadata)
}

// withObject attaches bucket and key to a validation error.
func withObject(err error, bucket, key string) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		e.Bucket = bucket
		e.Key = key
	}
	return err
}
