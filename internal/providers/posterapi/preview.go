package posterapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
)

// Preview is the result of fetching a preview reference.
type Preview struct {
	// Ready is true when Image holds the rendered preview.
	Ready       bool
	ContentType string
	Image       []byte
	// Document is the poster as reported while the preview is still being
	// rendered. Nil when Ready.
	Document *poster.Document
}

// FetchPreview fetches the raster preview at ref. The service answers 202
// with the poster while rendering and the image once done.
func (c *Client) FetchPreview(ctx context.Context, ref string) (*Preview, error) {
	resp, err := c.call(ctx, "preview", func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Accept", "image/png, application/json").Get(c.ResolveURL(ref))
	})
	if err != nil {
		return nil, err
	}

	ct := resp.Header().Get("Content-Type")
	if resp.StatusCode() == http.StatusOK && strings.HasPrefix(ct, "image/") {
		return &Preview{Ready: true, ContentType: ct, Image: resp.Body()}, nil
	}

	var doc poster.Document
	if err := sonic.ConfigStd.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("preview: decode status: %w", err)
	}
	return &Preview{ContentType: ct, Document: &doc}, nil
}
