package daemon

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaypoint/relaypoint/pkg/api"
	"github.com/relaypoint/relaypoint/pkg/github"
	"github.com/relaypoint/relaypoint/pkg/mirror"
)

const syncSecretHeader = "X-Sync-Secret"

// releaseResponse is the wire shape of a release, identical for
// mirrored and upstream-sourced data.
type releaseResponse struct {
	TagName     string          `json:"tag_name"`
	Assets      []assetResponse `json:"assets"`
	Prerelease  bool            `json:"prerelease"`
	PublishedAt string          `json:"published_at"`
}

type assetResponse struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

func storedToResponse(r *mirror.StoredRelease) releaseResponse {
	resp := releaseResponse{
		TagName:     r.TagName,
		Assets:      []assetResponse{},
		Prerelease:  r.Prerelease,
		PublishedAt: r.PublishedAt,
	}
	for _, a := range r.Assets {
		resp.Assets = append(resp.Assets, assetResponse{
			Name:               a.Name,
			BrowserDownloadURL: a.DownloadURL,
			Size:               a.Size,
		})
	}
	return resp
}

func upstreamToResponse(r *github.Release) releaseResponse {
	resp := releaseResponse{
		TagName:     r.TagName,
		Assets:      []assetResponse{},
		Prerelease:  r.Prerelease,
		PublishedAt: r.PublishedAt,
	}
	for _, a := range r.Assets {
		resp.Assets = append(resp.Assets, assetResponse{
			Name:               a.Name,
			BrowserDownloadURL: a.BrowserDownloadURL,
			Size:               a.Size,
		})
	}
	return resp
}

// handleWebhook ingests release-published events from the upstream
// host. The signature is verified over the exact raw body bytes before
// anything is parsed.
func (d *Daemon) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}

	if d.config.WebhookSecret == "" {
		d.log.Error("webhook secret not configured")
		api.WriteError(w, r, api.InternalServerError("webhook not configured"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		api.WriteError(w, r, api.BadRequest("empty request body"))
		return
	}

	signature := r.Header.Get(github.SignatureHeader)
	if err := github.VerifySignature(body, signature, d.config.WebhookSecret); err != nil {
		d.stats.RecordWebhookRejected()
		d.log.Warn("webhook signature rejected", zap.Error(err))
		api.WriteError(w, r, api.Unauthorized("invalid signature"))
		return
	}

	payload, err := github.ParseWebhookPayload(body)
	if err != nil {
		api.WriteError(w, r, api.ValidationError("malformed payload"))
		return
	}

	if payload.Action != "published" {
		d.stats.RecordWebhookIgnored()
		d.log.Info("ignoring webhook action", zap.String("action", payload.Action))
		api.WriteOK(w, map[string]string{
			"status": "ignored",
			"action": payload.Action,
		})
		return
	}

	d.stats.RecordWebhook()
	desc := mirror.DescriptorFromRelease(&payload.Release)

	ok, err := d.sync.SyncRelease(r.Context(), desc)
	if err != nil || !ok {
		d.log.Error("webhook sync failed",
			zap.String("tag", desc.TagName), zap.Error(err))
		api.WriteError(w, r, api.BadGateway("release sync failed"))
		return
	}
	d.stats.RecordReleaseSynced()

	assetsCount := 0
	if stored := d.store.Latest(mirror.ChannelOf(desc.TagName)); stored != nil {
		assetsCount = len(stored.Assets)
	}
	api.WriteOK(w, map[string]interface{}{
		"status":       "success",
		"tag_name":     desc.TagName,
		"assets_count": assetsCount,
	})
}

// handleSync triggers a pull-based sync of the latest stable and
// nightly releases. Guarded by a shared-secret header.
func (d *Daemon) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}

	if d.config.SyncSecret == "" {
		api.WriteError(w, r, api.InternalServerError("sync not configured"))
		return
	}

	provided := r.Header.Get(syncSecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(d.config.SyncSecret)) != 1 {
		api.WriteError(w, r, api.Unauthorized("invalid sync secret"))
		return
	}

	result, err := d.sync.SyncLatest(r.Context())
	if err != nil {
		d.log.Error("manual sync failed", zap.Error(err))
		api.WriteError(w, r, api.BadGateway("sync failed"))
		return
	}
	for range result.Synced {
		d.stats.RecordReleaseSynced()
	}

	api.WriteOK(w, map[string]interface{}{
		"status":  "success",
		"synced":  result.Synced,
		"stable":  result.Stable,
		"nightly": result.Nightly,
	})
}

// handleListReleases lists known releases, preferring the local mirror
// and falling back to the upstream host with a short-lived cache.
func (d *Daemon) handleListReleases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}

	if stored := d.store.Load(); len(stored) > 0 {
		responses := make([]releaseResponse, 0, len(stored))
		for i := range stored {
			responses = append(responses, storedToResponse(&stored[i]))
		}
		api.WriteOK(w, responses)
		return
	}

	if cached, ok := d.listCache.Get(); ok {
		api.WriteOK(w, upstreamListToResponse(cached))
		return
	}

	releases, err := d.upstream.ListReleases(r.Context())
	if err != nil {
		// Serve stale cache past its freshness window rather than fail.
		if stale, ok := d.listCache.GetStale(); ok {
			d.log.Warn("upstream error, serving stale release list", zap.Error(err))
			api.WriteOK(w, upstreamListToResponse(stale))
			return
		}
		api.WriteError(w, r, api.BadGateway("failed to fetch releases"))
		return
	}
	d.listCache.Put(releases)

	api.WriteOK(w, upstreamListToResponse(releases))
}

func upstreamListToResponse(releases []github.Release) []releaseResponse {
	responses := make([]releaseResponse, 0, len(releases))
	for i := range releases {
		responses = append(responses, upstreamToResponse(&releases[i]))
	}
	return responses
}

// handleLatestRelease returns the latest release of a channel, stable
// by default, nightly with ?channel=nightly. Mirror first, upstream
// fallback with stale-on-error.
func (d *Daemon) handleLatestRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}

	channel := mirror.ChannelStable
	switch r.URL.Query().Get("channel") {
	case "", "stable":
	case "nightly":
		channel = mirror.ChannelNightly
	default:
		api.WriteError(w, r, api.ValidationError("unknown channel"))
		return
	}

	if stored := d.store.Latest(channel); stored != nil {
		api.WriteOK(w, storedToResponse(stored))
		return
	}

	if channel == mirror.ChannelNightly {
		d.serveLatestNightlyFromUpstream(w, r)
		return
	}

	if cached, ok := d.latestCache.Get(); ok {
		api.WriteOK(w, upstreamToResponse(cached))
		return
	}

	release, err := d.upstream.LatestRelease(r.Context())
	if err != nil {
		if stale, ok := d.latestCache.GetStale(); ok {
			d.log.Warn("upstream error, serving stale latest release", zap.Error(err))
			api.WriteOK(w, upstreamToResponse(stale))
			return
		}
		if errors.Is(err, github.ErrReleaseNotFound) {
			api.WriteError(w, r, api.NotFound("release"))
			return
		}
		api.WriteError(w, r, api.BadGateway("failed to fetch latest release"))
		return
	}
	d.latestCache.Put(release)

	api.WriteOK(w, upstreamToResponse(release))
}

// serveLatestNightlyFromUpstream resolves the nightly channel through
// the upstream release list, since the upstream "latest" endpoint only
// covers stable releases.
func (d *Daemon) serveLatestNightlyFromUpstream(w http.ResponseWriter, r *http.Request) {
	releases, ok := d.listCache.Get()
	if !ok {
		fetched, err := d.upstream.ListReleases(r.Context())
		if err != nil {
			if stale, staleOK := d.listCache.GetStale(); staleOK {
				releases = stale
			} else {
				api.WriteError(w, r, api.BadGateway("failed to fetch releases"))
				return
			}
		} else {
			d.listCache.Put(fetched)
			releases = fetched
		}
	}

	for i := range releases {
		if strings.HasPrefix(releases[i].TagName, mirror.NightlyTagPrefix) {
			api.WriteOK(w, upstreamToResponse(&releases[i]))
			return
		}
	}
	api.WriteError(w, r, api.NotFound("nightly release"))
}

// handleDownload streams one mirrored asset. Path format:
// /releases/download/{tag}/{assetName}.
func (d *Daemon) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, mirror.DownloadURLPrefix+"/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		api.WriteError(w, r, api.BadRequest("expected {tag}/{asset} path"))
		return
	}
	tag, assetName := parts[0], parts[1]

	// Parent-directory references and backslashes never reach the
	// filesystem.
	if containsTraversal(tag) || containsTraversal(assetName) {
		api.WriteError(w, r, api.ValidationError("invalid path"))
		return
	}

	filePath := d.store.AssetPath(tag, assetName)
	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		api.WriteError(w, r, api.NotFound("asset"))
		return
	}

	file, err := os.Open(filePath)
	if err != nil {
		api.WriteError(w, r, api.InternalServerError("failed to read asset"))
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", assetContentType(assetName))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", assetName))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	written, err := io.Copy(w, file)
	if err != nil {
		d.log.Warn("asset stream interrupted",
			zap.String("tag", tag), zap.String("asset", assetName), zap.Error(err))
		return
	}
	d.stats.RecordDownloadServed(written)
}

func containsTraversal(segment string) bool {
	return strings.Contains(segment, "..") || strings.Contains(segment, `\`)
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}
	api.WriteOK(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(d.startTime).Seconds()),
		"timestamp":      time.Now().UTC(),
	})
}

func (d *Daemon) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, r, api.BadRequest("method not allowed"))
		return
	}

	var stable, nightly string
	if s := d.store.LatestStable(); s != nil {
		stable = s.TagName
	}
	if n := d.store.LatestNightly(); n != nil {
		nightly = n.TagName
	}

	api.WriteOK(w, map[string]interface{}{
		"status":     "running",
		"go_version": runtime.Version(),
		"uptime":     time.Since(d.startTime).String(),
		"stable":     stable,
		"nightly":    nightly,
		"statistics": d.stats.Snapshot(),
	})
}
