package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/relaypoint/relaypoint/pkg/storage"
)

// ErrDownloadFailed wraps any remote failure while fetching an asset:
// a non-success status or an interrupted transfer.
var ErrDownloadFailed = errors.New("asset download failed")

// Fetcher downloads single release assets to local storage. Transfers
// stream through a temp file and rename into place, so peak memory is
// bounded regardless of asset size and a cancelled or crashed download
// never leaves a partial file behind.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher. Asset transfers can be large, so the
// client timeout is 10 minutes, well above the API client's.
func NewFetcher(transport http.RoundTripper) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout:   10 * time.Minute,
			Transport: transport,
		},
		userAgent: "relaypoint-release-sync",
	}
}

// Download fetches url into destPath, creating missing parent
// directories, and returns the byte count of the file written to disk.
// The size is taken from the final file, not a response header, so the
// recorded size always matches the bytes actually stored.
func (f *Fetcher) Download(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: %s returned status %d", ErrDownloadFailed, url, resp.StatusCode)
	}

	if _, err := storage.AtomicWriteReader(destPath, resp.Body, 0644); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat downloaded asset: %w", err)
	}
	return info.Size(), nil
}
