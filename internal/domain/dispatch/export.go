package dispatch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// Downloader fetches a service resource to a local file.
type Downloader interface {
	Download(ctx context.Context, ref, dest string) (int64, error)
	ResolveURL(ref string) string
}

// LinkExporter reports the absolute download URL without fetching it.
type LinkExporter struct {
	Resolver interface{ ResolveURL(ref string) string }
}

// Export implements Exporter.
func (e LinkExporter) Export(_ context.Context, _ string, res *poster.ExportResponse) (string, error) {
	return e.Resolver.ResolveURL(res.DownloadURL), nil
}

// DownloadExporter saves each exported deck to Dir/<poster id>.pptx.
type DownloadExporter struct {
	Dir    string
	Client Downloader
	Logger *logging.Logger
}

// Export implements Exporter.
func (e DownloadExporter) Export(ctx context.Context, posterID string, res *poster.ExportResponse) (string, error) {
	if res.DownloadURL == "" {
		return "", fmt.Errorf("export: service returned no download url")
	}
	dest := filepath.Join(e.Dir, filepath.Base(posterID)+".pptx")
	n, err := e.Client.Download(ctx, res.DownloadURL, dest)
	if err != nil {
		return "", err
	}
	e.Logger.Component("export").Info("Deck saved",
		zap.String("poster_id", posterID),
		zap.String("path", dest),
		zap.Int64("bytes", n))
	return dest, nil
}
