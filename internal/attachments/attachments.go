// Package attachments stores chat attachment blobs that are too large to
// keep inline in the messages table. Blobs go to S3 when AWS credentials are
// configured, otherwise to a local directory.
package attachments

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type Store struct {
	s3Client *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	useS3    bool
	localDir string
}

// NewStore initializes either S3 or local blob storage based on the
// environment (AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY,
// AWS_S3_BUCKET).
func NewStore(localDir string) (*Store, error) {
	awsRegion := os.Getenv("AWS_REGION")
	awsAccessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	awsSecretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")

	if awsRegion != "" && awsAccessKey != "" && awsSecretKey != "" && bucket != "" {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(awsRegion),
			Credentials: credentials.NewStaticCredentials(awsAccessKey, awsSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %v", err)
		}
		return &Store{
			s3Client: s3.New(sess),
			uploader: s3manager.NewUploader(sess),
			bucket:   bucket,
			useS3:    true,
		}, nil
	}

	if localDir == "" {
		localDir = "uploads"
	}
	if err := os.MkdirAll(filepath.Join(localDir, "attachments"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %v", err)
	}
	return &Store{localDir: localDir}, nil
}

// Put stores a blob and returns its key.
func (s *Store) Put(filename, contentType string, data []byte) (string, error) {
	key := fmt.Sprintf("attachments/%d%s", time.Now().UnixNano(), filepath.Ext(filename))
	if s.useS3 {
		_, err := s.uploader.Upload(&s3manager.UploadInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return "", fmt.Errorf("failed to upload to S3: %v", err)
		}
		return key, nil
	}

	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %v", err)
	}
	return key, nil
}

// Get fetches a blob back by key.
func (s *Store) Get(key string) ([]byte, error) {
	if s.useS3 {
		out, err := s.s3Client.GetObject(&s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch from S3: %v", err)
		}
		defer out.Body.Close()
		return io.ReadAll(out.Body)
	}
	return os.ReadFile(filepath.Join(s.localDir, filepath.FromSlash(key)))
}

// Delete removes a blob. Missing blobs are not an error.
func (s *Store) Delete(key string) error {
	if s.useS3 {
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		return err
	}
	err := os.Remove(filepath.Join(s.localDir, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
