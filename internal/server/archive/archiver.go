// Package archive retires finished sessions: a background sweep abandons
// idle lobbies, flags silent Active sessions as stale, and, once the
// retention window passes, exports terminal sessions to object storage and
// deletes them from the store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/tourmate-app/backend/internal/server/config"
	"github.com/tourmate-app/backend/internal/server/models"
)

// SessionBundle is the JSON document exported per archived session.
type SessionBundle struct {
	Session     *models.TourSession       `json:"session"`
	Memberships []*models.TeamMembership  `json:"memberships"`
	Progress    []*models.StopProgress    `json:"progress"`
	Unlocks     []*models.MilestoneUnlock `json:"unlocks"`
}

// Archiver exports one session bundle to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, bundle *SessionBundle) error
}

// ObjectPutter is the slice of the S3 API the archiver needs; *s3.Client
// satisfies it and tests substitute a fake.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes session bundles to an S3-compatible bucket (MinIO in
// development).
type S3Archiver struct {
	client ObjectPutter
	bucket string
}

func NewS3Archiver(client ObjectPutter, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

// NewS3ArchiverFromConfig builds the S3 client from server settings.
func NewS3ArchiverFromConfig(ctx context.Context, cfg *sc.Config) (*S3Archiver, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3RootUser,
			cfg.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return NewS3Archiver(client, cfg.S3Bucket), nil
}

// StorageKey places bundles under sessions/<year>/<month>/<day>/<id>.json.
func StorageKey(session *models.TourSession) string {
	ended := session.CreatedAt
	if session.EndedAt != nil {
		ended = *session.EndedAt
	}
	return fmt.Sprintf("sessions/%d/%02d/%02d/%s.json", ended.Year(), ended.Month(), ended.Day(), session.ID)
}

func (a *S3Archiver) Archive(ctx context.Context, bundle *SessionBundle) error {
	body, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	key := StorageKey(bundle.Session)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// NopArchiver drops bundles; used when archival is disabled so expired
// sessions are still deleted on schedule.
type NopArchiver struct{}

func (NopArchiver) Archive(_ context.Context, _ *SessionBundle) error { return nil }
