// Package mirror maintains the local durable copy of the latest upstream
// release per channel: a metadata document plus one asset directory per
// mirrored tag, with a fixed retention of exactly one stable and one
// nightly slot.
package mirror

import "strings"

// NightlyTagPrefix marks a release tag as belonging to the nightly channel.
const NightlyTagPrefix = "nightly-"

// Channel is a release track. It is derived structurally from the tag
// name: the prerelease flag does not participate, so a release flagged
// prerelease without the nightly prefix still occupies the stable slot.
type Channel string

const (
	ChannelStable  Channel = "stable"
	ChannelNightly Channel = "nightly"
)

// ChannelOf derives the channel of a release tag.
func ChannelOf(tag string) Channel {
	if strings.HasPrefix(tag, NightlyTagPrefix) {
		return ChannelNightly
	}
	return ChannelStable
}

// StoredAsset identifies a single binary file belonging to a mirrored
// release. Immutable once recorded.
type StoredAsset struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
}

// StoredRelease is one mirrored release. At most one per channel exists
// in the metadata document at any time.
type StoredRelease struct {
	TagName     string        `json:"tag_name"`
	Prerelease  bool          `json:"prerelease"`
	PublishedAt string        `json:"published_at"`
	Assets      []StoredAsset `json:"assets"`
}

// Channel returns the channel this release occupies.
func (r *StoredRelease) Channel() Channel {
	return ChannelOf(r.TagName)
}

// ReleaseDescriptor describes one upstream release to synchronize: the
// tag, prerelease flag, publish timestamp, and asset list.
type ReleaseDescriptor struct {
	TagName     string
	Prerelease  bool
	PublishedAt string
	Assets      []AssetDescriptor
}

// AssetDescriptor describes one remote asset of a release descriptor.
type AssetDescriptor struct {
	Name        string
	DownloadURL string
	Size        int64
}
