package writer

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "krakensync/config"
	"krakensync/logger"
)

// S3Uploader copies export files to an S3 bucket so downstream tooling can
// pick them up without access to the sync host.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Log
}

// NewS3Uploader configures the AWS SDK from the storage settings.
func NewS3Uploader(ctx context.Context, cfg appconfig.S3Config) (*S3Uploader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &S3Uploader{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    logger.GetLogger(),
	}, nil
}

// UploadFiles puts each file under prefix/<basename>. Files that fail to
// upload are reported but do not block the remaining ones.
func (u *S3Uploader) UploadFiles(ctx context.Context, paths []string) error {
	log := u.log.WithComponent("s3_uploader").WithFields(logger.Fields{"bucket": u.bucket})

	var firstErr error
	for _, filePath := range paths {
		file, err := os.Open(filePath)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"path": filePath}).Error("failed to open export file")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		key := path.Join(u.prefix, filepath.Base(filePath))
		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
			Body:   file,
		})
		file.Close()
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"key": key}).Error("failed to upload export file")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		log.WithFields(logger.Fields{"key": key}).Info("export file uploaded")
	}
	return firstErr
}
