// Package archive persists raw feed snapshots to S3 for replay and
// debugging of catalog harvests.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// S3Client is the slice of the S3 API the archiver needs.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Archiver struct {
	client S3Client
	bucket string
	clock  clockwork.Clock
}

func NewS3Archiver(client S3Client, bucket string, clock clockwork.Clock) *S3Archiver {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &S3Archiver{client: client, bucket: bucket, clock: clock}
}

// PutSnapshot writes the raw catalog body under a timestamped key.
func (a *S3Archiver) PutSnapshot(ctx context.Context, body []byte) error {
	if a.bucket == "" {
		return fmt.Errorf("empty bucket name")
	}

	key := fmt.Sprintf("stations/%s.txt", a.clock.Now().UTC().Format("2006-01-02T15-04-05Z"))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("putting catalog snapshot: %w", err)
	}

	log.Debug().Str("bucket", a.bucket).Str("key", key).Msg("archived catalog snapshot")
	return nil
}
