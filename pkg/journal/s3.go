package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Sink writes each batch as one JSON-lines object to an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	sink := journal.NewS3Sink(s3.NewFromConfig(cfg), "my-bucket", "journal/")
//	d := journal.Attach(topic.Stream(), "clicks", sink)
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
	seq    atomic.Uint64
}

// NewS3Sink creates an S3-backed journal sink.
//
// Parameters:
//   - client: S3 client from aws-sdk-go-v2
//   - bucket: bucket name
//   - prefix: key prefix for batch objects (e.g. "journal/clicks/")
func NewS3Sink(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Write uploads the batch as a single object. The key embeds the batch
// time and a sequence number so concurrent writers never collide on
// the same sink.
func (s *S3Sink) Write(ctx context.Context, entries []Entry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("journal: marshal entry: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	key := s.objectKey(time.Now())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("journal: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Close is a no-op; the S3 client is owned by the caller.
func (s *S3Sink) Close() error {
	return nil
}

func (s *S3Sink) objectKey(t time.Time) string {
	return fmt.Sprintf("%s%s-%06d.ndjson", s.prefix, t.UTC().Format("20060102T150405"), s.seq.Add(1))
}
