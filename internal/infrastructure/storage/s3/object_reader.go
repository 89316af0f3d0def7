package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultMaxObjectBytes = 1 << 20

type getObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MaxObjectBytes  int64
}

// ObjectReader reads small configuration objects from S3 compatible storage.
type ObjectReader struct {
	client   getObjectAPI
	maxBytes int64
}

func NewObjectReader(ctx context.Context, cfg Config) (*ObjectReader, error) {
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		options.UsePathStyle = cfg.UsePathStyle
	})

	return newObjectReader(client, cfg.MaxObjectBytes), nil
}

func newObjectReader(client getObjectAPI, maxBytes int64) *ObjectReader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxObjectBytes
	}
	return &ObjectReader{client: client, maxBytes: maxBytes}
}

// ReadObject returns the body of an object addressed as s3://bucket/key.
func (r *ObjectReader) ReadObject(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", location, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", location, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("object %s exceeds %d bytes", location, r.maxBytes)
	}
	return data, nil
}

// ParseLocation splits s3://bucket/key.
func ParseLocation(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 location: %q", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 location needs a bucket and a key: %q", location)
	}
	return bucket, key, nil
}
