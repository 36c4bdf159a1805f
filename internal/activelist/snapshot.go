package activelist

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SnapshotFetcher hands back the raw active-list snapshot.
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// ObjectFetcher reads the snapshot from an S3-compatible bucket.
type ObjectFetcher struct {
	client *minio.Client
	bucket string
	object string
}

func NewObjectFetcher(endpoint, accessKey, secretKey, bucket, object string, useSSL bool) (*ObjectFetcher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &ObjectFetcher{client: client, bucket: bucket, object: object}, nil
}

func (f *ObjectFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	object, err := f.client.GetObject(ctx, f.bucket, f.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", f.bucket, f.object, err)
	}
	return object, nil
}

// FileFetcher reads the snapshot from a local file drop.
type FileFetcher struct {
	path string
}

func NewFileFetcher(path string) *FileFetcher {
	return &FileFetcher{path: path}
}

func (f *FileFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open active list file: %w", err)
	}
	return file, nil
}
