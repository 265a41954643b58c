// Package filesource fetches export files by URI, supporting gs:// objects
// and local paths.
package filesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// Fetcher resolves export source URIs to raw bytes.
type Fetcher struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Fetcher {
	return &Fetcher{log: log}
}

// Fetch downloads gs:// URIs from Cloud Storage; anything else is read as a
// local file path.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		return f.fetchGCS(ctx, uri)
	}
	data, err := os.ReadFile(uri)
	if err != nil {
		return nil, fmt.Errorf("read local export %s: %w", uri, err)
	}
	return data, nil
}

func (f *Fetcher) fetchGCS(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := SplitGCSURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", uri, err)
	}

	f.log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("Export downloaded")
	return data, nil
}

// SplitGCSURI splits gs://bucket/object/path into bucket and object.
func SplitGCSURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", "", fmt.Errorf("not a gs:// URI: %s", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed gs:// URI: %s", uri)
	}
	return parts[0], parts[1], nil
}
