package validation

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"unicode"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3kit/errors"
)

const (
	minBucketLen     = 3
	maxBucketLen     = 63
	maxKeyLen        = 1024
	maxMetadataBytes = 2048
)

var (
	bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`)
	mimePattern   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*/[a-zA-Z0-9][a-zA-Z0-9!#$&^_.+-]*(\s*;.*)?$`)

	reservedBucketPrefixes = []string{"xn--", "sthree-"}
	reservedBucketSuffixes = []string{"-s3alias", "--ol-s3"}
	reservedMetadataPrefix = []string{"aws:", "x-amz-"}
)

func invalidBucket(bucket, reason string) error {
	return fmt.Errorf("%w %q: %s", errors.ErrInvalidBucketName, bucket, reason)
}

func invalidKey(reason string) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidObjectKey, reason)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// BucketName checks the S3 general purpose bucket naming rules.
func BucketName(bucket string) error {
	switch {
	case bucket == "":
		return invalidBucket(bucket, "bucket name is required")
	case len(bucket) < minBucketLen || len(bucket) > maxBucketLen:
		return invalidBucket(bucket, fmt.Sprintf("length must be between %d and %d", minBucketLen, maxBucketLen))
	case !bucketPattern.MatchString(bucket):
		return invalidBucket(bucket, "only lowercase letters, digits, dots and hyphens are allowed, "+
			"starting and ending with a letter or digit")
	case strings.Contains(bucket, ".."):
		return invalidBucket(bucket, "adjacent periods are not allowed")
	case isIPv4(bucket):
		return invalidBucket(bucket, "must not be formatted as an IP address")
	}

	for _, p := range reservedBucketPrefixes {
		if strings.HasPrefix(bucket, p) {
			return invalidBucket(bucket, "reserved prefix "+p)
		}
	}
	for _, s := range reservedBucketSuffixes {
		if strings.HasSuffix(bucket, s) {
			return invalidBucket(bucket, "reserved suffix "+s)
		}
	}
	return nil
}

func isIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

// ObjectKey checks that key is usable as an object key.
// Any UTF-8 text up to 1024 bytes is accepted except control characters.
func ObjectKey(key string) error {
	if key == "" {
		return invalidKey("object key is required")
	}
	if len(key) > maxKeyLen {
		return invalidKey(fmt.Sprintf("object key exceeds %d bytes", maxKeyLen))
	}
	if strings.IndexFunc(key, unicode.IsControl) >= 0 {
		return invalidKey("object key contains control characters")
	}
	return nil
}

// Object checks a bucket and key pair.
func Object(bucket, key string) error {
	if err := BucketName(bucket); err != nil {
		return err
	}
	return ObjectKey(key)
}

// Keys checks every key of a batch request. The error names the first bad position.
func Keys(keys []string) error {
	for i, k := range keys {
		if err := ObjectKey(k); err != nil {
			return fmt.Errorf("key %d: %w", i, err)
		}
	}
	return nil
}

// Metadata checks user metadata names and the combined size S3 accepts.
func Metadata(metadata map[string]string) error {
	total := 0
	for name, value := range metadata {
		if name == "" {
			return invalidInput("metadata name is required")
		}
		lower := strings.ToLower(name)
		for _, p := range reservedMetadataPrefix {
			if strings.HasPrefix(lower, p) {
				return invalidInput("metadata name %q uses reserved prefix %s", name, p)
			}
		}
		for _, r := range name {
			if r <= ' ' || r > '~' || r == ':' {
				return invalidInput("metadata name %q must be printable ASCII without spaces or colons", name)
			}
		}
		if strings.IndexFunc(value, func(r rune) bool { return unicode.IsControl(r) && r != '\t' }) >= 0 {
			return invalidInput("metadata value of %q contains control characters", name)
		}
		total += len(name) + len(value)
	}
	if total > maxMetadataBytes {
		return invalidInput("metadata exceeds %d bytes", maxMetadataBytes)
	}
	return nil
}

// ContentType checks that a non-empty content type looks like a MIME type.
func ContentType(contentType string) error {
	if contentType == "" || mimePattern.MatchString(contentType) {
		return nil
	}
	return invalidInput("content type %q is not a MIME type", contentType)
}
