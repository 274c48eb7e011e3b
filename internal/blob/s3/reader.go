package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// Reader serves attachment downloads and archive listings from the bucket.
// It also deletes objects, so one value backs both domain.BlobReader and
// domain.BlobDeleter.
type Reader struct {
	s3     *s3.Client
	bucket string
}

func NewReader(c *Client) *Reader {
	return &Reader{s3: c.s3, bucket: c.bucket}
}

// Get streams the object at key; the caller closes the body. A missing
// object maps to domain.ErrNotFound so handlers can 404 without inspecting
// SDK error types.
func (r *Reader) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		return out.Body, nil
	case objectMissing(err):
		return nil, fmt.Errorf("s3blob: get %s: %w", key, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("s3blob: get %s: %w", key, err)
	}
}

// List walks every object under prefix. Archive months accumulate one
// object per folder per month, so the paginated walk stays small in
// practice but is still followed to the end.
func (r *Reader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	pager := s3.NewListObjectsV2Paginator(r.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})

	var infos []domain.BlobInfo
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list prefix %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, blobInfo(obj))
		}
	}
	return infos, nil
}

// Exists reports whether key is present. Used before generating an archive
// object so a re-run does not clobber an existing month.
func (r *Reader) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if objectMissing(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3blob: exists %s: %w", key, err)
}

// Delete removes key; deleting an absent object succeeds, which keeps
// attachment cleanup idempotent.
func (r *Reader) Delete(ctx context.Context, key string) error {
	if _, err := r.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3blob: delete %s: %w", key, err)
	}
	return nil
}

func blobInfo(obj types.Object) domain.BlobInfo {
	info := domain.BlobInfo{
		Key:  aws.ToString(obj.Key),
		Size: aws.ToInt64(obj.Size),
	}
	// ContentType is not part of list responses; it stays empty here and
	// is only known on Get.
	if obj.LastModified != nil {
		info.LastModified = *obj.LastModified
	}
	return info
}

// objectMissing recognises the three shapes a 404 arrives in: NoSuchKey
// from GetObject, NotFound from HeadObject, and a bare HTTP 404 from
// S3-compatible stores that skip the typed errors.
func objectMissing(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var httpErr interface{ HTTPStatusCode() int }
	return errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404
}

var (
	_ domain.BlobReader  = (*Reader)(nil)
	_ domain.BlobDeleter = (*Reader)(nil)
)
