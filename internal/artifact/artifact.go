// Package artifact loads serialized model artifacts by logical name.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crimson-sun/ucrf/internal/blob"
)

// Ext is the file extension of stored artifacts.
const Ext = ".onnx"

// ErrNotFound is returned when no artifact exists under a name.
var ErrNotFound = errors.New("artifact: not found")

// Store returns the raw bytes of a named artifact.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// DirStore reads artifacts from <Dir>/<name>.onnx.
type DirStore struct {
	Dir string
}

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{Dir: dir}
}

// Path returns the file an artifact name resolves to.
func (s *DirStore) Path(name string) string {
	return filepath.Join(s.Dir, name+Ext)
}

// Load reads the artifact file.
func (s *DirStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path(name))
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: reading %s: %w", name, err)
	}
	return data, nil
}

// S3Store reads artifacts from s3://<Bucket>/<Prefix><name>.onnx.
type S3Store struct {
	client blob.GetObjectAPI
	bucket string
	prefix string
}

// NewS3Store creates a store over an S3 bucket.
func NewS3Store(client blob.GetObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Load downloads the artifact object.
func (s *S3Store) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := blob.Fetch(ctx, s.client, s.bucket, s.prefix+name+Ext)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("artifact: %w", err)
	}
	return data, nil
}
