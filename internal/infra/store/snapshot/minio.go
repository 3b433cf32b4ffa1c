// Package snapshot archives raw fetched descriptions for later inspection.
package snapshot

import (
	"context"
	"crypto/sha1"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

type MinIOStore struct {
	client *minio.Client
	bucket string
}

func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket}
}

// Archive stores the fetched description under <source>/<sha1(url)>.txt.
// Re-archiving the same URL overwrites the previous snapshot.
func (s *MinIOStore) Archive(ctx context.Context, source, url, body string) error {
	key := fmt.Sprintf("%s/%x.txt", source, sha1.Sum([]byte(url)))

	reader := strings.NewReader(body)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
		UserMetadata: map[string]string{
			"Source-Url": url,
		},
	})
	if err != nil {
		return fmt.Errorf("put snapshot %s: %w", key, err)
	}

	return nil
}
