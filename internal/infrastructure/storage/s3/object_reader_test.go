package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeGetObject struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetObject) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestObjectReader_ReadObject(t *testing.T) {
	client := &fakeGetObject{body: "- title: qps\n"}
	r := newObjectReader(client, 0)

	data, err := r.ReadObject(context.Background(), "s3://deploy-board-config/site/metrics.yaml")
	if err != nil {
		t.Fatalf("ReadObject() error = %v", err)
	}
	if string(data) != "- title: qps\n" {
		t.Fatalf("data = %q", data)
	}
	if client.bucket != "deploy-board-config" || client.key != "site/metrics.yaml" {
		t.Fatalf("bucket/key = %s/%s", client.bucket, client.key)
	}
}

func TestObjectReader_Errors(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		r := newObjectReader(&fakeGetObject{body: strings.Repeat("x", 32)}, 16)
		if _, err := r.ReadObject(context.Background(), "s3://b/k"); err == nil {
			t.Fatal("expected size error")
		}
	})

	t.Run("get failure", func(t *testing.T) {
		boom := errors.New("access denied")
		r := newObjectReader(&fakeGetObject{err: boom}, 0)
		if _, err := r.ReadObject(context.Background(), "s3://b/k"); !errors.Is(err, boom) {
			t.Fatalf("error = %v", err)
		}
	})
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{in: "s3://bucket/a/b.yaml", bucket: "bucket", key: "a/b.yaml"},
		{in: "s3://bucket/", wantErr: true},
		{in: "s3://bucket", wantErr: true},
		{in: "/etc/metrics.yaml", wantErr: true},
	}

	for _, tt := range tests {
		bucket, key, err := ParseLocation(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLocation(%q) error = %v", tt.in, err)
		}
		if bucket != tt.bucket || key != tt.key {
			t.Fatalf("ParseLocation(%q) = %s, %s", tt.in, bucket, key)
		}
	}
}
