package posterapi

import (
	"bytes"
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
)

// ImageField is the multipart field the service reads uploads from.
const ImageField = "image_file"

// UploadSectionImage uploads an image into a section and returns the
// updated document.
func (c *Client) UploadSectionImage(ctx context.Context, posterID, sectionID, filename string, data []byte) (*poster.Document, error) {
	var out poster.Document
	_, err := c.call(ctx, "upload_image", func(r *resty.Request) (*resty.Response, error) {
		return r.
			SetPathParams(map[string]string{"id": posterID, "sid": sectionID}).
			SetFileReader(ImageField, filename, bytes.NewReader(data)).
			SetResult(&out).
			Post("/posters/{id}/sections/{sid}/upload_image")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
