package bucket

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/crimson-sun/ucrf/internal/blob"
	"github.com/crimson-sun/ucrf/internal/source"
)

type fakeS3 map[string]string

func (f fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestSplitLocation(t *testing.T) {
	b, k, err := SplitLocation("//raw-data/2024/inventory.csv")
	if err != nil || b != "raw-data" || k != "2024/inventory.csv" {
		t.Errorf("SplitLocation = %q %q %v", b, k, err)
	}
	if _, _, err := SplitLocation("raw-data"); err == nil {
		t.Error("expected error without key")
	}
}

func TestRead(t *testing.T) {
	api := fakeS3{"raw-data/inventory.csv": "Manufacturer,Model,Year\nFord,F150,2020\n"}
	src, err := source.Open("s3:raw-data/inventory.csv", source.Env{S3: api})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Name() != "s3:raw-data/inventory.csv" {
		t.Errorf("Name = %q", src.Name())
	}

	tbl, err := src.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.Len() != 1 || tbl.Rows[0]["Manufacturer"] != "Ford" {
		t.Errorf("table = %+v", tbl)
	}
}

func TestReadMissingObject(t *testing.T) {
	_, err := New(fakeS3{}, "", "raw-data", "gone.csv").Read(context.Background())
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("expected blob.ErrNotFound, got %v", err)
	}
}
