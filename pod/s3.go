package pod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/lakota-db/lakota/lkerr"
)

// S3Config configures an S3POD. Region and Bucket are required; the
// remaining fields mirror weaviate's aws client construction (an explicit
// static-credentials path, falling back to the SDK's default provider
// chain when Key is empty).
type S3Config struct {
	Region    string
	Bucket    string
	Prefix    string
	Key       string
	Secret    string
	Token     string
	Endpoint  string // non-empty for S3-compatible services (MinIO, etc.)
	PathStyle bool
}

// S3POD backs a Pod with an S3-compatible object store.
type S3POD struct {
	client *s3.Client
	bucket string
	prefix string
}

// OpenS3 constructs an S3POD, resolving credentials the way weaviate's AWS
// client does: static credentials when a key/secret pair is supplied,
// otherwise the SDK's default chain (environment, shared config, IAM role).
func OpenS3(ctx context.Context, cfg S3Config) (*S3POD, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, cfg.Token),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", lkerr.ErrRemoteIO, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
		// spec.md §7's Pod-layer retry policy: standard backoff, three
		// attempts, delegated to the SDK's own retryer rather than a hand
		// rolled loop.
		o.Retryer = retry.NewStandard(func(ro *retry.StandardOptions) {
			ro.MaxAttempts = retryAttempts
		})
	})
	return &S3POD{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

func (p *S3POD) key(k string) string { return join(p.prefix, k) }

func (p *S3POD) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, notFound(key)
		}
		return nil, fmt.Errorf("%w: get %s: %v", lkerr.ErrRemoteIO, key, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body %s: %v", lkerr.ErrRemoteIO, key, err)
	}
	return data, nil
}

func (p *S3POD) Put(ctx context.Context, key string, data []byte) error {
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", lkerr.ErrRemoteIO, key, err)
	}
	return nil
}

func (p *S3POD) Delete(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(key)),
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", lkerr.ErrRemoteIO, key, err)
	}
	return nil
}

func (p *S3POD) list(ctx context.Context, prefix string, delimiter string) ([]string, error) {
	full := p.key(prefix)
	seekPrefix := full
	if seekPrefix != "" {
		seekPrefix += "/"
	}
	var out []string
	var token *string
	for {
		resp, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(p.bucket),
			Prefix:            aws.String(seekPrefix),
			Delimiter:         aws.String(delimiter),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %v", lkerr.ErrRemoteIO, prefix, err)
		}
		if delimiter != "" {
			for _, cp := range resp.CommonPrefixes {
				name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), seekPrefix), "/")
				out = append(out, name)
			}
			for _, obj := range resp.Contents {
				name := strings.TrimPrefix(aws.ToString(obj.Key), seekPrefix)
				out = append(out, name)
			}
		} else {
			for _, obj := range resp.Contents {
				out = append(out, strings.TrimPrefix(aws.ToString(obj.Key), seekPrefix))
			}
		}
		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}
	return sortedCopy(out), nil
}

func (p *S3POD) List(ctx context.Context, prefix string) ([]string, error) {
	return p.list(ctx, prefix, "/")
}

func (p *S3POD) Walk(ctx context.Context, prefix string) ([]string, error) {
	return p.list(ctx, prefix, "")
}

func (p *S3POD) Move(ctx context.Context, from, to string) error {
	_, err := p.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(p.bucket),
		Key:        aws.String(p.key(to)),
		CopySource: aws.String(p.bucket + "/" + p.key(from)),
	})
	if err != nil {
		return fmt.Errorf("%w: copy %s -> %s: %v", lkerr.ErrRemoteIO, from, to, err)
	}
	return p.Delete(ctx, from)
}

func (p *S3POD) Sub(name string) Pod {
	return &S3POD{client: p.client, bucket: p.bucket, prefix: join(p.prefix, name)}
}
