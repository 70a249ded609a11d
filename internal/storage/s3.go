package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// S3Options configures an S3Publisher. Endpoint supports S3-compatible
// stores (Cloudflare R2, MinIO). PublicURL, when set, is the base under
// which stored objects are served; otherwise the standard virtual-hosted
// S3 URL is used.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

// S3Publisher stores images in an S3-compatible bucket. Keys are
// namespace-prefixed UUIDs, so every upload lands under a fresh name and
// never overwrites an existing object.
type S3Publisher struct {
	client *s3.Client
	opts   S3Options
}

// NewS3Publisher builds an S3 client from the default credential chain,
// or from static credentials when both keys are provided.
func NewS3Publisher(ctx context.Context, opts S3Options) (*S3Publisher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &S3Publisher{client: client, opts: opts}, nil
}

// Publish uploads the WebP buffer under a fresh UUID key in the namespace
// prefix and returns the object's public URL and key.
func (p *S3Publisher) Publish(ctx context.Context, data []byte, namespace string) (*PublishResult, error) {
	key := fmt.Sprintf("%s/%s.webp", namespace, uuid.NewString())
	contentType := "image/webp"

	log.Debug().
		Str("bucket", p.opts.Bucket).
		Str("key", key).
		Int("size", len(data)).
		Msg("Publishing image to S3")

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &p.opts.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return nil, &PublishError{
			StatusCode: http.StatusBadGateway,
			Message:    "image storage upload failed",
			Err:        err,
		}
	}

	url := p.objectURL(key)
	log.Info().Str("key", key).Str("url", url).Msg("Image published to S3")

	return &PublishResult{URL: url, ID: key}, nil
}

func (p *S3Publisher) objectURL(key string) string {
	if p.opts.PublicURL != "" {
		return fmt.Sprintf("%s/%s", p.opts.PublicURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.opts.Bucket, p.opts.Region, key)
}
