package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Bucket addresses one Storage bucket.
type Bucket struct {
	client *Client
	name   string
}

func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{client: c, name: name}
}

// Upload stores data at path, overwriting any existing object.
func (b *Bucket) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	target := fmt.Sprintf("%s/storage/v1/object/%s/%s", b.client.baseURL, b.name, strings.TrimPrefix(path, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	b.client.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := b.client.do(req)
	if err != nil {
		return err
	}
	return resp.Err()
}

func (b *Bucket) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.client.baseURL, b.name, strings.TrimPrefix(path, "/"))
}
