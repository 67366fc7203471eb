package mirror

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaypoint/relaypoint/pkg/github"
	"github.com/relaypoint/relaypoint/pkg/storage"
)

// fakeDownloader writes a fixed payload per URL and counts calls. URLs
// listed in fail return an error instead.
type fakeDownloader struct {
	payloads map[string][]byte
	fail     map[string]bool
	calls    int
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{
		payloads: make(map[string][]byte),
		fail:     make(map[string]bool),
	}
}

func (d *fakeDownloader) add(url string, payload []byte) {
	d.payloads[url] = payload
}

func (d *fakeDownloader) Download(ctx context.Context, url, destPath string) (int64, error) {
	d.calls++
	if d.fail[url] {
		return 0, fmt.Errorf("download %s: connection reset", url)
	}
	payload, ok := d.payloads[url]
	if !ok {
		return 0, fmt.Errorf("download %s: not found", url)
	}
	if err := storage.AtomicWriteFile(destPath, payload, 0644); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

type fakeLister struct {
	releases []github.Release
	err      error
}

func (l *fakeLister) ListReleases(ctx context.Context) ([]github.Release, error) {
	return l.releases, l.err
}

func descriptor(tag string, assets ...AssetDescriptor) ReleaseDescriptor {
	return ReleaseDescriptor{
		TagName:     tag,
		PublishedAt: "2024-03-01T12:00:00Z",
		Assets:      assets,
	}
}

func TestSyncRelease_DownloadsAndCommits(t *testing.T) {
	store := newTestStore(t)
	dl := newFakeDownloader()
	dl.add("https://upstream/app.exe", []byte("exe-bytes"))
	dl.add("https://upstream/app.dmg", []byte("dmg-bytes!"))

	sync := NewSynchronizer(store, dl, nil, nil)
	ok, err := sync.SyncRelease(context.Background(), descriptor("v1.0.0",
		AssetDescriptor{Name: "app.exe", DownloadURL: "https://upstream/app.exe"},
		AssetDescriptor{Name: "app.dmg", DownloadURL: "https://upstream/app.dmg"},
	))
	require.NoError(t, err)
	assert.True(t, ok)

	stable := store.LatestStable()
	require.NotNil(t, stable)
	assert.Equal(t, "v1.0.0", stable.TagName)
	require.Len(t, stable.Assets, 2)
	assert.Equal(t, int64(9), stable.Assets[0].Size)
	assert.Equal(t, "/releases/download/v1.0.0/app.exe", stable.Assets[0].DownloadURL)
	assert.True(t, store.AssetExists("v1.0.0", "app.exe"))
	assert.True(t, store.AssetExists("v1.0.0", "app.dmg"))
}

func TestSyncRelease_SkipsExistingAssets(t *testing.T) {
	store := newTestStore(t)
	dl := newFakeDownloader()
	dl.add("https://upstream/app.exe", []byte("exe-bytes"))
	sync := NewSynchronizer(store, dl, nil, nil)

	desc := descriptor("v1.0.0",
		AssetDescriptor{Name: "app.exe", DownloadURL: "https://upstream/app.exe"})

	_, err := sync.SyncRelease(context.Background(), desc)
	require.NoError(t, err)
	require.Equal(t, 1, dl.calls)

	ok, err := sync.SyncRelease(context.Background(), desc)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, dl.calls, "an asset already on disk must not be re-downloaded")

	stable := store.LatestStable()
	require.NotNil(t, stable)
	assert.Equal(t, int64(9), stable.Assets[0].Size, "size is taken from disk")
}

func TestSyncRelease_PartialFailureStillCommits(t *testing.T) {
	store := newTestStore(t)
	dl := newFakeDownloader()
	dl.add("https://upstream/app.exe", []byte("exe-bytes"))
	dl.fail["https://upstream/app.dmg"] = true

	sync := NewSynchronizer(store, dl, nil, nil)
	ok, err := sync.SyncRelease(context.Background(), descriptor("v1.0.0",
		AssetDescriptor{Name: "app.exe", DownloadURL: "https://upstream/app.exe"},
		AssetDescriptor{Name: "app.dmg", DownloadURL: "https://upstream/app.dmg"},
	))
	require.NoError(t, err)
	assert.True(t, ok)

	stable := store.LatestStable()
	require.NotNil(t, stable)
	require.Len(t, stable.Assets, 1, "only the successful asset is recorded")
	assert.Equal(t, "app.exe", stable.Assets[0].Name)
}

func TestSyncRelease_TotalFailureLeavesStoreUntouched(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(stableRelease("v0.9.0")))

	dl := newFakeDownloader()
	dl.fail["https://upstream/app.exe"] = true

	sync := NewSynchronizer(store, dl, nil, nil)
	ok, err := sync.SyncRelease(context.Background(), descriptor("v1.0.0",
		AssetDescriptor{Name: "app.exe", DownloadURL: "https://upstream/app.exe"},
	))
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrNoAssets)

	stable := store.LatestStable()
	require.NotNil(t, stable)
	assert.Equal(t, "v0.9.0", stable.TagName, "a failed sync must not disturb the current slot")
	_, statErr := os.Stat(store.ReleasePath("v1.0.0"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSyncRelease_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	dl := newFakeDownloader()
	dl.fail["https://upstream/app.exe"] = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sync := NewSynchronizer(store, dl, nil, nil)
	ok, err := sync.SyncRelease(ctx, descriptor("v1.0.0",
		AssetDescriptor{Name: "app.exe", DownloadURL: "https://upstream/app.exe"},
	))
	assert.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSyncRelease_EmptyPublishedAtGetsTimestamp(t *testing.T) {
	store := newTestStore(t)
	dl := newFakeDownloader()
	dl.add("https://upstream/app.exe", []byte("exe-bytes"))

	sync := NewSynchronizer(store, dl, nil, nil)
	desc := descriptor("v1.0.0",
		AssetDescriptor{Name: "app.exe", DownloadURL: "https://upstream/app.exe"})
	desc.PublishedAt = ""

	_, err := sync.SyncRelease(context.Background(), desc)
	require.NoError(t, err)

	stable := store.LatestStable()
	require.NotNil(t, stable)
	assert.NotEmpty(t, stable.PublishedAt)
}

func TestSyncLatest_SyncsBothChannels(t *testing.T) {
	store := newTestStore(t)
	dl := newFakeDownloader()
	dl.add("https://upstream/stable.exe", []byte("stable"))
	dl.add("https://upstream/nightly.exe", []byte("nightly"))

	lister := &fakeLister{releases: []github.Release{
		{
			TagName: "nightly-2024-03-02",
			Assets: []github.Asset{
				{Name: "nightly.exe", BrowserDownloadURL: "https://upstream/nightly.exe", Size: 7},
			},
		},
		{
			TagName: "v2.0.0-rc.1",
			Prerelease: true,
			Assets: []github.Asset{
				{Name: "rc.exe", BrowserDownloadURL: "https://upstream/rc.exe", Size: 2},
			},
		},
		{
			TagName: "v1.5.0",
			Assets: []github.Asset{
				{Name: "stable.exe", BrowserDownloadURL: "https://upstream/stable.exe", Size: 6},
			},
		},
	}}

	sync := NewSynchronizer(store, dl, lister, nil)
	result, err := sync.SyncLatest(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"v1.5.0", "nightly-2024-03-02"}, result.Synced)
	assert.Equal(t, "v1.5.0", result.Stable,
		"flagged prereleases are not eligible as the upstream stable pick")
	assert.Equal(t, "nightly-2024-03-02", result.Nightly)
}

func TestSyncLatest_SkipsCurrentChannels(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Upsert(stableRelease("v1.5.0")))

	dl := newFakeDownloader()
	lister := &fakeLister{releases: []github.Release{
		{
			TagName: "v1.5.0",
			Assets: []github.Asset{
				{Name: "stable.exe", BrowserDownloadURL: "https://upstream/stable.exe", Size: 6},
			},
		},
	}}

	sync := NewSynchronizer(store, dl, lister, nil)
	result, err := sync.SyncLatest(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Synced)
	assert.Equal(t, 0, dl.calls, "an up-to-date channel performs no downloads")
	assert.Equal(t, "v1.5.0", result.Stable)
}

func TestSyncLatest_UpstreamError(t *testing.T) {
	store := newTestStore(t)
	lister := &fakeLister{err: github.ErrUpstreamUnavailable}

	sync := NewSynchronizer(store, newFakeDownloader(), lister, nil)
	_, err := sync.SyncLatest(context.Background())
	require.ErrorIs(t, err, github.ErrUpstreamUnavailable)
}

func TestDescriptorFromRelease(t *testing.T) {
	r := &github.Release{
		TagName:     "v1.0.0",
		Prerelease:  false,
		PublishedAt: "2024-03-01T12:00:00Z",
		Assets: []github.Asset{
			{Name: "app.exe", BrowserDownloadURL: "https://upstream/app.exe", Size: 42},
		},
	}
	desc := DescriptorFromRelease(r)
	assert.Equal(t, "v1.0.0", desc.TagName)
	require.Len(t, desc.Assets, 1)
	assert.Equal(t, int64(42), desc.Assets[0].Size)
	assert.Equal(t, "https://upstream/app.exe", desc.Assets[0].DownloadURL)
}
