package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/younsl/ec2utils/internal/models"
)

// MaxDeleteBatch is the most keys a single DeleteObjects call accepts
const MaxDeleteBatch = 1000

// S3API is the part of the S3 API used here
type S3API interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Client struct for S3 client
type S3Client struct {
	client S3API
	region string
}

// NewS3ClientFromAPI creates an S3Client around an existing API implementation
func NewS3ClientFromAPI(api S3API, region string) *S3Client {
	return &S3Client{
		client: api,
		region: region,
	}
}

// ListObjectVersions returns every object version under prefix. Delete
// markers are not included.
func (c *S3Client) ListObjectVersions(ctx context.Context, bucket, prefix string) ([]models.ObjectVersion, error) {
	input := &s3.ListObjectVersionsInput{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var versions []models.ObjectVersion
	paginator := s3.NewListObjectVersionsPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing object versions in %s: %w", bucket, err)
		}

		for _, v := range page.Versions {
			version := models.ObjectVersion{
				Key:       aws.ToString(v.Key),
				VersionID: aws.ToString(v.VersionId),
				Size:      aws.ToInt64(v.Size),
				IsLatest:  aws.ToBool(v.IsLatest),
			}
			if v.LastModified != nil {
				version.LastModified = *v.LastModified
			}
			versions = append(versions, version)
		}
	}

	return versions, nil
}

// DeleteObjectVersions deletes the given versions in batches and returns how
// many were deleted. Per-key failures are joined into the returned error.
func (c *S3Client) DeleteObjectVersions(ctx context.Context, bucket string, versions []models.ObjectVersion) (int, error) {
	deleted := 0
	var errs []error

	for start := 0; start < len(versions); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(versions))

		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, v := range versions[start:end] {
			objects = append(objects, types.ObjectIdentifier{
				Key:       aws.String(v.Key),
				VersionId: aws.String(v.VersionID),
			})
		}

		out, err := c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return deleted, fmt.Errorf("error deleting object versions in %s: %w", bucket, err)
		}

		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("%s (%s): %s: %s",
				aws.ToString(e.Key), aws.ToString(e.VersionId), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
		deleted += len(objects) - len(out.Errors)
	}

	return deleted, errors.Join(errs...)
}
