package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const uploadURLExpiry = 5 * time.Minute

// UploadService hands out pre-signed S3 PUT URLs for dual post images.
// The client uploads directly to S3 and references the object URL in
// the post.
type UploadService struct {
	s3Client *s3.Client
	bucket   string
	region   string
}

// NewUploadService creates a new upload service. endpoint may be empty
// to use the default AWS endpoint; accessKey/secretKey may be empty to
// use the ambient credential chain.
func NewUploadService(ctx context.Context, region, bucket, accessKey, secretKey, endpoint string) (*UploadService, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &UploadService{
		s3Client: s3Client,
		bucket:   bucket,
		region:   region,
	}, nil
}

// UploadTarget is a pre-signed upload slot: PUT the image to UploadURL,
// then use ImageURL as the post's image reference.
type UploadTarget struct {
	UploadURL string `json:"upload_url"`
	ImageURL  string `json:"image_url"`
	ExpiresIn int    `json:"expires_in"`
}

// NewUploadURL generates a pre-signed PUT URL for a post image owned by
// the given user.
func (s *UploadService) NewUploadURL(ctx context.Context, userID, contentType string) (*UploadTarget, error) {
	key := fmt.Sprintf("posts/%s/%s.jpg", userID, uuid.New().String())

	presignClient := s3.NewPresignClient(s.s3Client)
	request, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &UploadTarget{
		UploadURL: request.URL,
		ImageURL:  fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key),
		ExpiresIn: int(uploadURLExpiry.Seconds()),
	}, nil
}
