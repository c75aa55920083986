package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/moorebrett0/digicord/internal/species"
)

// DownloadResult counts what DownloadAll did.
type DownloadResult struct {
	Downloaded int
	Failed     int
	Skipped    int // records without a URL
}

// Downloader fetches sprite and field images into the layout the bot reads.
type Downloader struct {
	imagesDir string
	fetcher   *fetcher
}

// NewDownloader creates a Downloader writing under imagesDir.
func NewDownloader(imagesDir string, cfg Config) *Downloader {
	return &Downloader{imagesDir: imagesDir, fetcher: newFetcher(cfg)}
}

// DownloadAll fetches both images of every record, replacing existing
// files. Individual failures are logged and counted; only a cancelled
// context stops the run.
func (d *Downloader) DownloadAll(ctx context.Context, records []species.Record) (DownloadResult, error) {
	var res DownloadResult

	for _, rec := range records {
		jobs := []struct {
			url  string
			path string
		}{
			{rec.SpriteURL, species.SpritePath(d.imagesDir, rec.SpeciesNumber)},
			{rec.FieldURL, species.FieldPath(d.imagesDir, rec.SpeciesNumber)},
		}

		for _, job := range jobs {
			if job.url == "" {
				res.Skipped++
				continue
			}
			if err := d.download(ctx, job.url, job.path); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				slog.Error("images: download failed", "url", job.url, "path", job.path, "err", err)
				res.Failed++
				continue
			}
			res.Downloaded++
		}
	}

	slog.Info("images: done", "downloaded", res.Downloaded, "failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func (d *Downloader) download(ctx context.Context, rawURL, path string) error {
	resp, err := d.fetcher.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", rawURL, err)
	}

	slog.Debug("images: saving", "path", path, "bytes", len(data))
	return writeFileAtomic(path, data)
}
