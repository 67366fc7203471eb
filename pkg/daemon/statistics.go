package daemon

import (
	"sync"
	"time"
)

// Statistics tracks operational counters of the mirror service.
type Statistics struct {
	mu sync.RWMutex

	// WebhooksReceived is the number of webhook deliveries accepted
	WebhooksReceived int64

	// WebhooksIgnored is the number of acknowledged non-published events
	WebhooksIgnored int64

	// WebhooksRejected is the number of deliveries failing authentication
	WebhooksRejected int64

	// ReleasesSynced is the number of releases committed to the mirror
	ReleasesSynced int64

	// DownloadsServed is the number of asset downloads served locally
	DownloadsServed int64

	// BytesServed is the cumulative bytes of assets served locally
	BytesServed int64

	// LastSyncTime is when a release was last committed
	LastSyncTime time.Time
}

// NewStatistics creates a Statistics with zero values.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// RecordWebhook counts an accepted webhook delivery.
func (s *Statistics) RecordWebhook() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WebhooksReceived++
}

// RecordWebhookIgnored counts an acknowledged but ignored event.
func (s *Statistics) RecordWebhookIgnored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WebhooksIgnored++
}

// RecordWebhookRejected counts a delivery that failed authentication.
func (s *Statistics) RecordWebhookRejected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WebhooksRejected++
}

// RecordReleaseSynced counts a committed release sync.
func (s *Statistics) RecordReleaseSynced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReleasesSynced++
	s.LastSyncTime = time.Now()
}

// RecordDownloadServed counts one locally served asset download.
func (s *Statistics) RecordDownloadServed(bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DownloadsServed++
	s.BytesServed += bytes
}

// StatisticsSnapshot is a point-in-time copy of the counters.
type StatisticsSnapshot struct {
	WebhooksReceived int64     `json:"webhooks_received"`
	WebhooksIgnored  int64     `json:"webhooks_ignored"`
	WebhooksRejected int64     `json:"webhooks_rejected"`
	ReleasesSynced   int64     `json:"releases_synced"`
	DownloadsServed  int64     `json:"downloads_served"`
	BytesServed      int64     `json:"bytes_served"`
	LastSyncTime     time.Time `json:"last_sync_time,omitempty"`
}

// Snapshot returns a consistent copy of the counters.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatisticsSnapshot{
		WebhooksReceived: s.WebhooksReceived,
		WebhooksIgnored:  s.WebhooksIgnored,
		WebhooksRejected: s.WebhooksRejected,
		ReleasesSynced:   s.ReleasesSynced,
		DownloadsServed:  s.DownloadsServed,
		BytesServed:      s.BytesServed,
		LastSyncTime:     s.LastSyncTime,
	}
}
