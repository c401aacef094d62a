package s3

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type ItfS3 interface {
	UploadBytes(ctx context.Context, fileName string, data []byte, contentType string) (string, error)
}

type s3Client struct {
	uploader   *s3manager.Uploader
	bucketName string
	prefix     string
}

func New() (ItfS3, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &s3Client{
		uploader:   s3manager.NewUploader(sess),
		bucketName: os.Getenv("AWS_BUCKET_NAME"),
		prefix:     os.Getenv("AWS_VOICE_NOTE_PREFIX"),
	}, nil
}

// UploadBytes stores data under a time-prefixed key and returns its location.
func (s *s3Client) UploadBytes(ctx context.Context, fileName string, data []byte, contentType string) (string, error) {
	key := path.Join(s.prefix, generateUniqueFileName(fileName, time.Now()))

	uploadOutput, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	return uploadOutput.Location, nil
}

func newSession() (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})

	if err != nil {
		return nil, err
	}

	return sess, nil
}

// generateUniqueFileName groups archived notes by UTC day.
func generateUniqueFileName(fileName string, now time.Time) string {
	return fmt.Sprintf("%s/%s", now.UTC().Format("2006/01/02"), strings.ReplaceAll(fileName, " ", "-"))
}
