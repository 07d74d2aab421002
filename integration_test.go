//go:build integration

package s3upload_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport/awssdk"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/transport/miniosdk"
)

func TestIntegration_PutObject(t *testing.T) {
	ls := testutil.SetupLocalStack(t)
	ctx := context.Background()

	const bucket = "integration-upload"
	require.NoError(t, ls.CreateBucket(ctx, bucket))

	verifier, err := ls.S3Client(ctx)
	require.NoError(t, err)

	transports := map[string]transport.Transport{
		"aws":   awssdk.New(),
		"minio": miniosdk.New(),
	}

	for name, tr := range transports {
		t.Run(name, func(t *testing.T) {
			cfg, err := s3upload.NewConfig(ls.Endpoint(), testutil.LocalStackAccessKey, testutil.LocalStackSecretKey,
				s3upload.WithRegion(ls.Region()),
				s3upload.WithRetry(true),
			)
			require.NoError(t, err)

			client, err := s3upload.New(cfg, tr)
			require.NoError(t, err)
			defer func() { assert.NoError(t, client.Close()) }()

			data := testutil.GenerateRandomData(1024)
			key := name + "/xxxxx"

			result, err := client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
				s3upload.WithContentType("application/octet-stream"),
				s3upload.WithMetadata(map[string]string{"origin": "integration"}),
			)
			require.NoError(t, err)
			assert.Equal(t, int64(1024), result.Size)
			assert.Equal(t, testutil.MD5Hex(data), result.ETag)

			out, err := verifier.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			require.NoError(t, err)
			defer out.Body.Close()

			got, err := io.ReadAll(out.Body)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			assert.Equal(t, "integration", out.Metadata["origin"])
		})
	}
}

func TestIntegration_SinglePassBody(t *testing.T) {
	ls := testutil.SetupLocalStack(t)
	ctx := context.Background()

	const bucket = "integration-stream"
	require.NoError(t, ls.CreateBucket(ctx, bucket))

	cfg, err := s3upload.NewConfig(ls.Endpoint(), testutil.LocalStackAccessKey, testutil.LocalStackSecretKey)
	require.NoError(t, err)

	client, err := s3upload.NewFromConfig(cfg)
	require.NoError(t, err)
	defer client.Close()

	data := testutil.GenerateRandomData(64 * 1024)
	result, err := client.PutObject(ctx, bucket, "stream.bin", &testutil.OnceReader{R: bytes.NewReader(data)}, int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, testutil.MD5Hex(data), result.ETag)
}

func TestIntegration_MissingBucketIsPermanent(t *testing.T) {
	ls := testutil.SetupLocalStack(t)

	cfg, err := s3upload.NewConfig(ls.Endpoint(), testutil.LocalStackAccessKey, testutil.LocalStackSecretKey,
		s3upload.WithRetry(true),
	)
	require.NoError(t, err)

	client, err := s3upload.NewFromConfig(cfg)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.PutObject(context.Background(), "does-not-exist", "k", bytes.NewReader([]byte("x")), 1)
	require.Error(t, err)
	assert.True(t, errors.IsPermanent(err))
	assert.Equal(t, 1, errors.AttemptsOf(err))
}
