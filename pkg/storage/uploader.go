package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/adforge-ai/adforge-agent/pkg/types"
)

const (
	defaultKeyPrefix   = "ads/"
	defaultExtension   = ".png"
	defaultContentType = "image/png"
)

// ObjectPutter is the slice of the S3 API the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader fetches a remote image and persists it in the configured bucket
// under a generated key. One attempt per call, no dedup: every upload
// produces a new object even for a repeated source URL.
type Uploader struct {
	httpClient *http.Client
	putter     ObjectPutter
	bucket     string
	region     string
	prefix     string
}

// New creates an uploader backed by the default AWS credential chain.
func New(ctx context.Context, bucket, region string) (*Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewWithPutter(s3.NewFromConfig(cfg), bucket, region), nil
}

// NewWithPutter creates an uploader with an explicit storage client.
func NewWithPutter(putter ObjectPutter, bucket, region string) *Uploader {
	return &Uploader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		putter:     putter,
		bucket:     bucket,
		region:     region,
		prefix:     defaultKeyPrefix,
	}
}

// Upload fetches the resource at sourceURL and writes it to the bucket,
// returning the object's public URL. Fetch and write failures surface
// immediately; nothing is retried.
func (u *Uploader) Upload(ctx context.Context, sourceURL string) (string, error) {
	data, err := u.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	key := u.generateKey()

	_, err = u.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(defaultContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}

	return u.ObjectURL(key), nil
}

// ObjectURL returns the virtual-hosted-style URL for a key in the bucket.
func (u *Uploader) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}

func (u *Uploader) fetch(ctx context.Context, sourceURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: content type %q", types.ErrNotImage, ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", types.ErrNotImage)
	}
	return data, nil
}

// generateKey builds a unique object key from the logical folder, the
// current timestamp and a random suffix.
func (u *Uploader) generateKey() string {
	return fmt.Sprintf("%s%d-%d%s", u.prefix, time.Now().UnixNano(), rand.Intn(1000000), defaultExtension)
}
