package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"supplychain/internal/bootstrap/logging"
	"supplychain/internal/domain/catalog"
	"supplychain/internal/errs"
	"supplychain/internal/ports"
)

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates extracts in a bucket. Endpoint targets S3-compatible
// stores such as MinIO and switches to path-style addressing.
type S3Config struct {
	Bucket   string
	Prefix   string
	Region   string
	Endpoint string
}

// S3Reader reads extracts stored as objects under Prefix.
type S3Reader struct {
	client objectGetter
	bucket string
	prefix string
}

var _ ports.SourceReader = (*S3Reader)(nil)

// NewS3Reader builds a client from the default credential chain.
func NewS3Reader(ctx context.Context, cfg S3Config) (*S3Reader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errs.Wrap(err, "load aws config")
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Reader(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Reader(client objectGetter, bucket, prefix string) *S3Reader {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Reader{client: client, bucket: bucket, prefix: prefix}
}

func (r *S3Reader) Read(ctx context.Context, name string) (*catalog.RecordSet, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	key := r.prefix + name
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	if err != nil {
		var noKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noKey) || errors.As(err, &notFound) {
			return nil, errs.Mark(errs.Wrapf(err, "get s3://%s/%s", r.bucket, key), catalog.ErrMissingSource)
		}
		return nil, errs.Wrapf(err, "get s3://%s/%s", r.bucket, key)
	}
	defer func() { _ = out.Body.Close() }()

	rs, err := Decode(name, out.Body)
	if err != nil {
		return nil, errs.Wrapf(err, "decode s3://%s/%s", r.bucket, key)
	}
	logging.Debug(logging.WithComponent(ctx, "source.s3"), "extract read",
		slog.String("bucket", r.bucket),
		slog.String("key", key),
		slog.Int("rows", rs.Len()),
	)
	return rs, nil
}
