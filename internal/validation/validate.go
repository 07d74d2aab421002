// Package validation provides centralized input validation logic.
// This includes endpoint validation, bucket and object key validation and
// metadata checks.
//
// All user inputs are validated before being handed to a transport so that
// invalid requests fail fast without consuming a network attempt.
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
)

const (
	// maxBucketLength is the longest bucket name accepted. S3 itself stops at
	// 63, but S3-compatible servers with path-style addressing allow more.
	maxBucketLength = 255

	// maxKeyLength is the S3 object key limit in bytes.
	maxKeyLength = 1024

	maxMetadataKeyLength   = 128
	maxMetadataValueLength = 2048
)

var mimePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9\-+.]*\/[a-zA-Z0-9][a-zA-Z0-9\-+.]*(\s*;.*)?$`)

// ValidateEndpoint checks that endpoint is an absolute http(s) URI with a host.
func ValidateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.NewError("validateEndpoint", errors.KindConfig, errors.ErrInvalidConfig).
			WithMessage("endpoint is required")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.NewError("validateEndpoint", errors.KindConfig, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)).
			WithMessage("endpoint must be a valid URI")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewError("validateEndpoint", errors.KindConfig, errors.ErrInvalidConfig).
			WithMessage(fmt.Sprintf("endpoint scheme must be http or https, got %q", u.Scheme))
	}
	if u.Host == "" {
		return errors.NewError("validateEndpoint", errors.KindConfig, errors.ErrInvalidConfig).
			WithMessage("endpoint must include a host")
	}

	return nil
}

// ValidateBucket validates a bucket name for S3-compatible endpoints.
// The rules are deliberately looser than AWS DNS naming, which path-style
// servers such as Ceph RGW do not enforce.
func ValidateBucket(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucket", errors.KindInvalidInput, errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot be empty")
	}

	if len(bucket) > maxBucketLength {
		return errors.NewError("validateBucket", errors.KindInvalidInput, errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage(fmt.Sprintf("bucket name cannot exceed %d characters", maxBucketLength))
	}

	if strings.ContainsRune(bucket, '/') {
		return errors.NewError("validateBucket", errors.KindInvalidInput, errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain '/'")
	}

	if hasControlCharacters(bucket) || strings.ContainsRune(bucket, ' ') {
		return errors.NewError("validateBucket", errors.KindInvalidInput, errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain spaces or control characters")
	}

	return nil
}

// ValidateObjectKey validates that an object key is valid according to S3 rules.
// Keys are opaque names, not paths: "..", "//" and a leading "/" are allowed.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.KindInvalidInput, errors.ErrInvalidObjectKey).
			WithMessage("object key cannot be empty")
	}

	if len(key) > maxKeyLength {
		return errors.NewError("validateObjectKey", errors.KindInvalidInput, errors.ErrInvalidObjectKey).
			WithMessage(fmt.Sprintf("object key cannot exceed %d bytes", maxKeyLength))
	}

	// S3 keys can contain any UTF-8 character but control characters break signing
	if hasControlCharacters(key) {
		return errors.NewError("validateObjectKey", errors.KindInvalidInput, errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key cannot contain control characters")
	}

	return nil
}

// ValidateMetadata validates metadata keys and values according to S3 rules.
func ValidateMetadata(metadata map[string]string) error {
	for key, value := range metadata {
		if err := validateMetadataKey(key); err != nil {
			return err
		}
		if err := validateMetadataValue(value); err != nil {
			return err
		}
	}

	return nil
}

// ValidateContentType validates that a content type is a well-formed MIME type.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return nil
	}

	if !mimePattern.MatchString(contentType) {
		return errors.NewError("validateContentType", errors.KindInvalidInput, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("content type %q must be a valid MIME type", contentType))
	}

	return nil
}

// hasControlCharacters checks for control characters in s
func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

// validateMetadataKey validates a metadata key according to S3 rules
func validateMetadataKey(key string) error {
	if key == "" {
		return errors.NewError("validateMetadata", errors.KindInvalidInput, errors.ErrInvalidInput).
			WithMessage("metadata key cannot be empty")
	}

	if len(key) > maxMetadataKeyLength {
		return errors.NewError("validateMetadata", errors.KindInvalidInput, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("metadata key cannot exceed %d characters", maxMetadataKeyLength))
	}

	// Keys cannot start with prefixes reserved by the service
	for _, prefix := range []string{"aws:", "x-amz-", "x-amz:"} {
		if strings.HasPrefix(strings.ToLower(key), prefix) {
			return errors.NewError("validateMetadata", errors.KindInvalidInput, errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("metadata key cannot start with reserved prefix: %s", prefix))
		}
	}

	// Keys travel as HTTP header names: printable ASCII without spaces
	for _, char := range key {
		if char <= 32 || char > 126 {
			return errors.NewError("validateMetadata", errors.KindInvalidInput, errors.ErrInvalidInput).
				WithMessage("metadata key can only contain printable ASCII characters")
		}
	}

	return nil
}

// validateMetadataValue validates a metadata value according to S3 rules
func validateMetadataValue(value string) error {
	if len(value) > maxMetadataValueLength {
		return errors.NewError("validateMetadata", errors.KindInvalidInput, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("metadata value cannot exceed %d characters", maxMetadataValueLength))
	}

	for _, char := range value {
		if !unicode.IsPrint(char) && char != '\t' {
			return errors.NewError("validateMetadata", errors.KindInvalidInput, errors.ErrInvalidInput).
				WithMessage("metadata value can only contain printable characters")
		}
	}

	return nil
}
