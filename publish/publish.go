// Package publish uploads synthesized documents for a provisioning engine to
// pick up.
package publish

import (
	"bytes"
	"context"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/synth"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client used by S3.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads documents to an S3 bucket. Documents are content addressed:
//
//	<prefix>/<stack>/<digest>.json
type S3 struct {
	Client S3API
	Bucket string
	Prefix string

	// Logger logs uploads. If not set, logs are discarded.
	Logger *zap.Logger
}

// NewS3 creates an uploader using the default AWS configuration chain.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return &S3{
		Client: s3.NewFromConfig(cfg),
		Bucket: bucket,
		Prefix: prefix,
	}, nil
}

// Key returns the object key for a document.
func (p *S3) Key(doc *synth.Document) string {
	return path.Join(p.Prefix, doc.Stack, doc.Digest+".json")
}

// Publish uploads a document and returns its key. The document must have a
// valid digest.
func (p *S3) Publish(ctx context.Context, doc *synth.Document) (string, error) {
	if doc.Stack == "" {
		return "", errors.New("document has no stack name")
	}
	if err := doc.Verify(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := doc.EncodeJSON(&buf); err != nil {
		return "", errors.Wrap(err, "encode document")
	}

	key := p.Key(doc)
	_, err := p.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"stack":  doc.Stack,
			"digest": doc.Digest,
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "put s3://%s/%s", p.Bucket, key)
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Published", zap.String("bucket", p.Bucket), zap.String("key", key))
	return key, nil
}
