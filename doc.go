// Package s3upload provides a validated upload client for S3-compatible
// object storage.
//
// Configuration is built in two stages: a raw Options value with optional
// fields, then Build, which applies defaults once and validates the result
// into an immutable ClientConfig. An UploadClient binds that config to a
// transport (AWS SDK v2 by default, minio-go as an alternative) and exposes a
// single PutObject operation with per-attempt timeouts, optional retries of
// transient failures and payload integrity checks.
//
// Key features:
//   - Path-style addressing and static credentials for self-hosted endpoints
//   - Exponential jittered backoff owned by the client, SDK retries disabled
//   - Replayable bodies: seekable sources are rewound, others buffered once
//   - Content-MD5 verification of single-part ETags
//   - Classified errors carrying kind, attempt count and cause
//
// Example usage:
//
//	cfg, err := s3upload.NewConfig("http://10.9.8.95:80", "testy", "testy",
//	    s3upload.WithRetry(true),
//	)
//	if err != nil {
//	    return err
//	}
//
//	client, err := s3upload.NewFromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	result, err := client.PutObject(ctx, "test", "xxxxx", bytes.NewReader(data), int64(len(data)))
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.ETag)
package s3upload
