package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/relaypoint/relaypoint/pkg/storage"
)

const metadataFileName = "releases.json"

// Store is the durable record of currently mirrored releases: a single
// JSON document under the storage root plus one subdirectory per release
// tag holding its asset files.
//
// Upsert is a load-modify-save critical section; the store serializes
// all writers through an internal mutex so concurrent syncs cannot lose
// updates or violate the one-slot-per-channel invariant.
type Store struct {
	dir string
	log *zap.Logger

	mu sync.Mutex
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{dir: dir, log: log}
}

// Dir returns the storage root directory.
func (s *Store) Dir() string {
	return s.dir
}

// MetadataPath returns the path of the metadata document.
func (s *Store) MetadataPath() string {
	return filepath.Join(s.dir, metadataFileName)
}

// ReleasePath returns the asset directory for a release tag.
func (s *Store) ReleasePath(tag string) string {
	return filepath.Join(s.dir, tag)
}

// AssetPath returns the on-disk path of one asset of a release.
func (s *Store) AssetPath(tag, assetName string) string {
	return filepath.Join(s.ReleasePath(tag), assetName)
}

// AssetExists reports whether an asset is present in the local mirror.
func (s *Store) AssetExists(tag, assetName string) bool {
	return storage.FileExists(s.AssetPath(tag, assetName))
}

// Load reads the metadata document. It fails soft: an absent or
// unparsable file yields an empty list, never an error.
func (s *Store) Load() []StoredRelease {
	data, err := os.ReadFile(s.MetadataPath())
	if err != nil {
		return nil
	}

	var releases []StoredRelease
	if err := json.Unmarshal(data, &releases); err != nil {
		s.log.Warn("unparsable release metadata, starting empty",
			zap.Error(err))
		return nil
	}
	return releases
}

// Save serializes the full release list, overwriting the document. Not
// additive: callers load, modify, and save the whole document.
func (s *Store) Save(releases []StoredRelease) error {
	data, err := json.MarshalIndent(releases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal release metadata: %w", err)
	}
	if err := storage.AtomicWriteFile(s.MetadataPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to save release metadata: %w", err)
	}
	return nil
}

// Upsert inserts a release, replacing the existing release of the same
// channel. When the replaced release has a different tag its asset
// directory is deleted first. After a successful Upsert the channel's
// slot holds exactly the given release.
func (s *Store) Upsert(release StoredRelease) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	releases := s.Load()
	channel := release.Channel()

	oldIndex := -1
	for i, r := range releases {
		if r.Channel() == channel {
			oldIndex = i
			break
		}
	}

	if oldIndex >= 0 {
		old := releases[oldIndex]
		if old.TagName != release.TagName {
			oldPath := s.ReleasePath(old.TagName)
			if err := os.RemoveAll(oldPath); err != nil {
				return fmt.Errorf("failed to delete superseded release %s: %w", old.TagName, err)
			}
			s.log.Info("deleted superseded release",
				zap.String("tag", old.TagName),
				zap.String("channel", string(channel)))
		}
		releases = append(releases[:oldIndex], releases[oldIndex+1:]...)
	}

	releases = append([]StoredRelease{release}, releases...)

	return s.Save(releases)
}

// LatestStable returns the mirrored stable release, or nil.
func (s *Store) LatestStable() *StoredRelease {
	return s.latest(ChannelStable)
}

// LatestNightly returns the mirrored nightly release, or nil.
func (s *Store) LatestNightly() *StoredRelease {
	return s.latest(ChannelNightly)
}

// Latest returns the mirrored release for a channel, or nil.
func (s *Store) Latest(channel Channel) *StoredRelease {
	return s.latest(channel)
}

func (s *Store) latest(channel Channel) *StoredRelease {
	for _, r := range s.Load() {
		if r.Channel() == channel {
			release := r
			return &release
		}
	}
	return nil
}
