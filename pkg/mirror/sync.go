package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaypoint/relaypoint/pkg/github"
)

// DownloadURLPrefix is the local mirror path recorded for stored assets.
const DownloadURLPrefix = "/releases/download"

// ErrNoAssets is returned when a sync stores zero assets: the release is
// not committed and the previous slot state stays untouched.
var ErrNoAssets = errors.New("no assets downloaded for release")

// Downloader fetches one remote asset to local storage.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) (int64, error)
}

// Lister lists the upstream repository's releases.
type Lister interface {
	ListReleases(ctx context.Context) ([]github.Release, error)
}

// Synchronizer orchestrates fetching all assets of a release and
// committing it into the store. Both the webhook handler and the manual
// sync endpoint drive it with identical semantics.
type Synchronizer struct {
	store    *Store
	fetcher  Downloader
	upstream Lister
	log      *zap.Logger
}

// NewSynchronizer creates a synchronizer.
func NewSynchronizer(store *Store, fetcher Downloader, upstream Lister, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{store: store, fetcher: fetcher, upstream: upstream, log: log}
}

// SyncResult reports the outcome of a pull-based sync.
type SyncResult struct {
	Synced  []string `json:"synced"`
	Stable  string   `json:"stable,omitempty"`
	Nightly string   `json:"nightly,omitempty"`
}

// SyncRelease downloads the assets of one release descriptor and commits
// the release into the store. Assets already present locally are not
// re-downloaded; their on-disk size is recorded instead. Per-asset
// failures are logged and skipped. The release is committed when at
// least one asset was stored; storing none is a total failure and leaves
// the store untouched.
func (s *Synchronizer) SyncRelease(ctx context.Context, desc ReleaseDescriptor) (bool, error) {
	s.log.Info("syncing release", zap.String("tag", desc.TagName))

	var stored []StoredAsset
	for _, asset := range desc.Assets {
		destPath := s.store.AssetPath(desc.TagName, asset.Name)

		if s.store.AssetExists(desc.TagName, asset.Name) {
			size, err := assetSize(destPath)
			if err != nil {
				s.log.Warn("failed to stat existing asset",
					zap.String("asset", asset.Name), zap.Error(err))
				continue
			}
			s.log.Debug("asset already mirrored", zap.String("asset", asset.Name))
			stored = append(stored, StoredAsset{
				Name:        asset.Name,
				Size:        size,
				DownloadURL: localDownloadURL(desc.TagName, asset.Name),
			})
			continue
		}

		size, err := s.fetcher.Download(ctx, asset.DownloadURL, destPath)
		if err != nil {
			if ctx.Err() != nil {
				return false, fmt.Errorf("sync cancelled: %w", ctx.Err())
			}
			s.log.Error("failed to download asset",
				zap.String("tag", desc.TagName),
				zap.String("asset", asset.Name),
				zap.Error(err))
			continue
		}

		s.log.Info("downloaded asset",
			zap.String("asset", asset.Name), zap.Int64("size", size))
		stored = append(stored, StoredAsset{
			Name:        asset.Name,
			Size:        size,
			DownloadURL: localDownloadURL(desc.TagName, asset.Name),
		})
	}

	if len(stored) == 0 {
		return false, fmt.Errorf("%w: %s", ErrNoAssets, desc.TagName)
	}

	// A cancelled request must not reach the commit.
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("sync cancelled: %w", err)
	}

	if len(stored) < len(desc.Assets) {
		s.log.Warn("release committed with partial asset set",
			zap.String("tag", desc.TagName),
			zap.Int("stored", len(stored)),
			zap.Int("expected", len(desc.Assets)))
	}

	publishedAt := desc.PublishedAt
	if publishedAt == "" {
		publishedAt = time.Now().UTC().Format(time.RFC3339)
	}

	release := StoredRelease{
		TagName:     desc.TagName,
		Prerelease:  desc.Prerelease,
		PublishedAt: publishedAt,
		Assets:      stored,
	}
	if err := s.store.Upsert(release); err != nil {
		return false, err
	}

	s.log.Info("release synced",
		zap.String("tag", desc.TagName), zap.Int("assets", len(stored)))
	return true, nil
}

// SyncLatest determines the latest stable and latest nightly release
// known upstream and syncs each whose tag differs from the local slot.
// Channels that are already current are skipped.
func (s *Synchronizer) SyncLatest(ctx context.Context) (*SyncResult, error) {
	releases, err := s.upstream.ListReleases(ctx)
	if err != nil {
		return nil, err
	}

	var latestStable, latestNightly *github.Release
	for i := range releases {
		r := &releases[i]
		nightly := strings.HasPrefix(r.TagName, NightlyTagPrefix)
		if latestStable == nil && !nightly && !r.Prerelease {
			latestStable = r
		}
		if latestNightly == nil && nightly {
			latestNightly = r
		}
	}

	result := &SyncResult{Synced: []string{}}

	if latestStable != nil {
		if existing := s.store.LatestStable(); existing == nil || existing.TagName != latestStable.TagName {
			if ok, err := s.SyncRelease(ctx, DescriptorFromRelease(latestStable)); err != nil {
				s.log.Error("stable sync failed",
					zap.String("tag", latestStable.TagName), zap.Error(err))
			} else if ok {
				result.Synced = append(result.Synced, latestStable.TagName)
			}
		} else {
			s.log.Info("stable already up to date", zap.String("tag", existing.TagName))
		}
	}

	if latestNightly != nil {
		if existing := s.store.LatestNightly(); existing == nil || existing.TagName != latestNightly.TagName {
			if ok, err := s.SyncRelease(ctx, DescriptorFromRelease(latestNightly)); err != nil {
				s.log.Error("nightly sync failed",
					zap.String("tag", latestNightly.TagName), zap.Error(err))
			} else if ok {
				result.Synced = append(result.Synced, latestNightly.TagName)
			}
		} else {
			s.log.Info("nightly already up to date", zap.String("tag", existing.TagName))
		}
	}

	if stable := s.store.LatestStable(); stable != nil {
		result.Stable = stable.TagName
	}
	if nightly := s.store.LatestNightly(); nightly != nil {
		result.Nightly = nightly.TagName
	}
	return result, nil
}

// DescriptorFromRelease converts an upstream release into a sync
// descriptor.
func DescriptorFromRelease(r *github.Release) ReleaseDescriptor {
	desc := ReleaseDescriptor{
		TagName:     r.TagName,
		Prerelease:  r.Prerelease,
		PublishedAt: r.PublishedAt,
	}
	for _, a := range r.Assets {
		desc.Assets = append(desc.Assets, AssetDescriptor{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			Size:        a.Size,
		})
	}
	return desc
}

func localDownloadURL(tag, assetName string) string {
	return fmt.Sprintf("%s/%s/%s", DownloadURLPrefix, tag, assetName)
}

func assetSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
