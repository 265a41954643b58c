package filesource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestSplitGCSURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{name: "simple", uri: "gs://bucket/object.csv", wantBucket: "bucket", wantObject: "object.csv"},
		{name: "nested object", uri: "gs://bucket/exports/2024/alipay.csv", wantBucket: "bucket", wantObject: "exports/2024/alipay.csv"},
		{name: "not gcs", uri: "/tmp/file.csv", wantErr: true},
		{name: "missing object", uri: "gs://bucket", wantErr: true},
		{name: "empty object", uri: "gs://bucket/", wantErr: true},
		{name: "empty bucket", uri: "gs:///object", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := SplitGCSURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SplitGCSURI(%q) expected error", tt.uri)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitGCSURI(%q) unexpected error: %v", tt.uri, err)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("SplitGCSURI(%q) = %q, %q; want %q, %q", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFetch_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(path, []byte("a,b,c"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := New(zerolog.Nop())
	data, err := f.Fetch(context.Background(), path)
	if err != nil {
		t.Fatalf("Fetch unexpected error: %v", err)
	}
	if string(data) != "a,b,c" {
		t.Errorf("Fetch = %q, want %q", data, "a,b,c")
	}
}

func TestFetch_MissingLocalFile(t *testing.T) {
	f := New(zerolog.Nop())
	if _, err := f.Fetch(context.Background(), "/does/not/exist.csv"); err == nil {
		t.Error("Fetch expected error for missing file")
	}
}
