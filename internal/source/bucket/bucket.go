// Package bucket reads raw vehicle tables stored as CSV or XLSX objects
// in S3. Locations have the form "bucket/key".
package bucket

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/crimson-sun/ucrf/internal/blob"
	"github.com/crimson-sun/ucrf/internal/model"
	"github.com/crimson-sun/ucrf/internal/source"
)

func init() {
	source.Register("s3", func(loc string, env source.Env) (source.Source, error) {
		b, key, err := SplitLocation(loc)
		if err != nil {
			return nil, err
		}
		return New(env.S3, env.S3Region, b, key), nil
	})
}

// SplitLocation splits "bucket/key", tolerating an s3:// prefix.
func SplitLocation(loc string) (bucket, key string, err error) {
	loc = strings.TrimPrefix(loc, "//")
	bucket, key, ok := strings.Cut(loc, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("bucket: location %q is not bucket/key", loc)
	}
	return bucket, key, nil
}

// Source reads one S3 object.
type Source struct {
	bucket string
	key    string
	region string

	mu     sync.Mutex
	client blob.GetObjectAPI
}

// New creates an S3 source. A nil client is built from the default AWS
// credential chain on first Read.
func New(client blob.GetObjectAPI, region, bucket, key string) *Source {
	return &Source{client: client, region: region, bucket: bucket, key: key}
}

// Name returns "s3:<bucket>/<key>".
func (s *Source) Name() string {
	return "s3:" + s.bucket + "/" + s.key
}

func (s *Source) api(ctx context.Context) (blob.GetObjectAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		c, err := blob.NewS3Client(ctx, s.region, "")
		if err != nil {
			return nil, err
		}
		s.client = c
	}
	return s.client, nil
}

// Read downloads and decodes the object; keys ending in .xlsx are read as
// workbooks, everything else as CSV.
func (s *Source) Read(ctx context.Context) (model.Table, error) {
	api, err := s.api(ctx)
	if err != nil {
		return model.Table{}, err
	}
	data, err := blob.Fetch(ctx, api, s.bucket, s.key)
	if err != nil {
		return model.Table{}, err
	}

	var t model.Table
	if strings.HasSuffix(strings.ToLower(s.key), ".xlsx") {
		t, err = source.DecodeXLSX(bytes.NewReader(data))
	} else {
		t, err = source.DecodeCSV(bytes.NewReader(data))
	}
	if err != nil {
		return model.Table{}, fmt.Errorf("bucket: %s: %w", s.Name(), err)
	}
	return t, nil
}
