package cloudwriter

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadTimeout = 2 * time.Minute

type S3Writer struct {
	client     *s3.Client
	bucket     string
	objectPath string
	buffer     bytes.Buffer
	closed     bool
}

type S3WriterFactory struct {
	client *s3.Client
}

func NewS3WriterFactory(ctx context.Context, region string) (*S3WriterFactory, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return &S3WriterFactory{client: s3.NewFromConfig(cfg)}, nil
}

func (f *S3WriterFactory) NewWriter(bucket, objectPath string) (CloudWriter, error) {
	if bucket == "" {
		return nil, fmt.Errorf("no bucket configured for %s", objectPath)
	}
	return &S3Writer{
		client:     f.client,
		bucket:     bucket,
		objectPath: objectPath,
	}, nil
}

func (w *S3Writer) Write(data []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("write to closed object %s", w.objectPath)
	}
	return w.buffer.Write(data)
}

// Close uploads the buffered object. Closing twice is a no-op.
func (w *S3Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.objectPath),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	}
	if ct := contentType(w.objectPath); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := w.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("unable to upload %s to S3: %w", w.objectPath, err)
	}
	return nil
}

func contentType(objectPath string) string {
	switch ext := path.Ext(objectPath); ext {
	case ".parquet":
		return "application/vnd.apache.parquet"
	case ".csv":
		return "text/csv"
	default:
		return mime.TypeByExtension(ext)
	}
}
