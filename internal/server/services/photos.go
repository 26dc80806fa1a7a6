package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/checkpost/internal/common"
	sc "github.com/dmitrijs2005/checkpost/internal/server/config"
	"github.com/google/uuid"
)

const photoURLValidity = 15 * time.Minute

// seams for tests
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// PhotoService hands out presigned upload URLs for passage photos.
type PhotoService struct {
	config *sc.Config
}

func NewPhotoService(cfg *sc.Config) *PhotoService {
	return &PhotoService{config: cfg}
}

// PhotoKey is the object key of a passage photo. One photo per passage.
func PhotoKey(checkpostID int64, clientID string, at time.Time) string {
	return fmt.Sprintf("passages/%d/%d/%02d/%02d/%s.jpg", checkpostID, at.Year(), at.Month(), at.Day(), clientID)
}

func (s *PhotoService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload returns the object key and a presigned PUT URL for the
// photo of passage clientID.
func (s *PhotoService) PresignUpload(ctx context.Context, checkpostID int64, clientID string) (string, string, error) {
	if _, err := uuid.Parse(clientID); err != nil {
		return "", "", fmt.Errorf("%w: client_id: %v", common.ErrInvalidPassage, err)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("presign client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := PhotoKey(checkpostID, clientID, time.Now().UTC())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String("image/jpeg"),
	}, s3.WithPresignExpires(photoURLValidity))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}

	return key, req.URL, nil
}
