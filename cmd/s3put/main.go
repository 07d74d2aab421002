// Command s3put uploads a single local file to an S3-compatible endpoint and
// prints the resulting entity tag.
//
// Usage:
//
//	s3put -endpoint http://10.9.8.95:80 -bucket test -key xxxxx -file ./payload.bin
//
// Credentials are taken from -access-key/-secret-key or the S3_ACCESS_KEY and
// S3_SECRET_KEY environment variables. Connection settings may also come from a
// YAML file given with -config; flags on the command line take precedence.
//
// With -metrics-file, upload metrics are written in the Prometheus text format
// once the upload finishes, for collection by a node exporter textfile collector.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/filesource"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport/awssdk"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport/miniosdk"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// output is the JSON document printed with -json.
type output struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ETag        string `json:"etag"`
	Size        int64  `json:"size"`
	VersionID   string `json:"versionId,omitempty"`
	ContentType string `json:"contentType"`
	Attempts    int    `json:"attempts"`
	DurationMS  int64  `json:"durationMs"`
}

// errorOutput is printed with -json when the upload fails.
type errorOutput struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run parses args, performs the upload and reports the outcome on stdout or
// stderr. Every failure has already been reported when it returns.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("s3put", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		endpoint       = fs.String("endpoint", "", "S3-compatible endpoint URI (required)")
		accessKey      = fs.String("access-key", "", "access key (default $S3_ACCESS_KEY)")
		secretKey      = fs.String("secret-key", "", "secret key (default $S3_SECRET_KEY)")
		region         = fs.String("region", s3upload.DefaultRegion, "signing region")
		pathStyle      = fs.Bool("path-style", s3upload.DefaultPathStyle, "use path-style addressing")
		chunked        = fs.String("chunked", "", "force chunked payload encoding: true, false or empty for the transport default")
		retry          = fs.Bool("retry", s3upload.DefaultRetryEnabled, "retry transient failures")
		maxRetries     = fs.Int("max-retries", s3upload.DefaultMaxRetries, "retries after the first attempt")
		connectTimeout = fs.Duration("connect-timeout", s3upload.DefaultConnectTimeout, "connection timeout")
		readTimeout    = fs.Duration("read-timeout", s3upload.DefaultReadTimeout, "response timeout")
		writeTimeout   = fs.Duration("write-timeout", s3upload.DefaultWriteTimeout, "per-write socket timeout")
		maxConns       = fs.Int("max-connections", s3upload.DefaultMaxConnections, "connection pool size")
		contentMD5     = fs.Bool("content-md5", s3upload.DefaultContentMD5, "send and verify payload MD5")
		transportName  = fs.String("transport", "aws", "storage transport: aws or minio")
		bucket         = fs.String("bucket", "", "destination bucket (required)")
		key            = fs.String("key", "", "destination object key (default: file name)")
		file           = fs.String("file", "", "local file to upload (required)")
		contentType    = fs.String("content-type", "", "content type (default: detected)")
		asJSON         = fs.Bool("json", false, "print the result as JSON")
		verbose        = fs.Bool("verbose", false, "log every attempt to stderr")
		configFile     = fs.String("config", "", "YAML file with connection settings")
		metricsFile    = fs.String("metrics-file", "", "write Prometheus metrics to this file when done")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	report := func(err error) error {
		if *asJSON {
			_ = json.NewEncoder(stdout).Encode(errorOutput{
				Error:    err.Error(),
				Kind:     errors.KindOf(err).String(),
				Code:     string(errors.CodeOf(err)),
				Attempts: errors.AttemptsOf(err),
			})
		} else {
			fmt.Fprintf(stderr, "s3put: %v\n", err)
		}
		return err
	}

	if *configFile != "" {
		if err := applyConfigFile(fs, *configFile); err != nil {
			return report(err)
		}
	}

	if *bucket == "" || *file == "" {
		fs.Usage()
		return report(fmt.Errorf("-bucket and -file are required"))
	}

	if *accessKey == "" {
		*accessKey = getenv("S3_ACCESS_KEY")
	}
	if *secretKey == "" {
		*secretKey = getenv("S3_SECRET_KEY")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := []s3upload.Option{
		s3upload.WithRegion(*region),
		s3upload.WithPathStyle(*pathStyle),
		s3upload.WithRetry(*retry),
		s3upload.WithMaxRetries(*maxRetries),
		s3upload.WithConnectTimeout(*connectTimeout),
		s3upload.WithReadTimeout(*readTimeout),
		s3upload.WithWriteTimeout(*writeTimeout),
		s3upload.WithMaxConnections(*maxConns),
		s3upload.WithContentMD5(*contentMD5),
	}
	if *chunked != "" {
		enabled, err := strconv.ParseBool(*chunked)
		if err != nil {
			return report(fmt.Errorf("invalid -chunked value %q: %w", *chunked, err))
		}
		opts = append(opts, s3upload.WithChunkedEncoding(enabled))
	}

	cfg, err := s3upload.NewConfig(*endpoint, *accessKey, *secretKey, opts...)
	if err != nil {
		return report(err)
	}

	tr, err := newTransport(*transportName, logger)
	if err != nil {
		return report(err)
	}

	clientOpts := []s3upload.ClientOption{s3upload.WithLogger(logger)}
	if *metricsFile != "" {
		reg := prometheus.NewRegistry()
		clientOpts = append(clientOpts, s3upload.WithMetrics(metrics.New(reg)))
		defer func() {
			if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
				logger.Warn("failed to write metrics", "path", *metricsFile, "error", err)
			}
		}()
	}

	client, err := s3upload.New(cfg, tr, clientOpts...)
	if err != nil {
		return report(err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close client", "error", err)
		}
	}()

	path, err := filepath.Abs(*file)
	if err != nil {
		return report(fmt.Errorf("resolve %s: %w", *file, err))
	}
	src, err := filesource.Open(filesource.OS(), path)
	if err != nil {
		return report(err)
	}
	defer src.Close()

	if *key == "" {
		*key = filepath.Base(path)
	}
	if *contentType == "" {
		*contentType = src.ContentType
	}

	result, err := client.PutObject(ctx, *bucket, *key, src.File, src.Size, s3upload.WithContentType(*contentType))
	if err != nil {
		return report(err)
	}

	if *asJSON {
		return json.NewEncoder(stdout).Encode(output{
			Bucket:      result.Bucket,
			Key:         result.Key,
			ETag:        result.ETag,
			Size:        result.Size,
			VersionID:   result.VersionID,
			ContentType: *contentType,
			Attempts:    result.Attempts,
			DurationMS:  result.Duration.Round(time.Millisecond).Milliseconds(),
		})
	}
	fmt.Fprintln(stdout, result.ETag)
	return nil
}

func newTransport(name string, logger *slog.Logger) (transport.Transport, error) {
	switch name {
	case "aws":
		return awssdk.New(awssdk.WithLogger(logger)), nil
	case "minio":
		return miniosdk.New(miniosdk.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown transport %q, want aws or minio", name)
	}
}
