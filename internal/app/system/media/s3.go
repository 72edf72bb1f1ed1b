package media

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 stores uploads in a bucket. URLs use PublicURL when set (a CDN in
// front of the bucket), else the virtual-hosted bucket URL.
type S3 struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

// NewS3 loads AWS credentials from the default chain (env, shared config,
// instance role).
func NewS3(ctx context.Context, region, bucket, prefix, publicURL string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *S3) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	key := ObjectName(folder, fh.Filename)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}

	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(ContentType(fh)),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}
