package posterapi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
)

// Download saves the resource at ref to dest and returns the bytes written.
// ref may be relative to the service root, as returned in download_url.
func (c *Client) Download(ctx context.Context, ref, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("download: create directory: %w", err)
	}

	// Write to a sibling file so a failed download never leaves a partial deck.
	tmp := dest + ".part"
	_, err := c.call(ctx, "download", func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Accept", "*/*").SetOutput(tmp).Get(c.ResolveURL(ref))
	})
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("download: %w", err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	return info.Size(), nil
}
