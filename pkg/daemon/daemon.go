package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/relaypoint/relaypoint/pkg/api"
	"github.com/relaypoint/relaypoint/pkg/github"
	"github.com/relaypoint/relaypoint/pkg/mirror"
)

// Upstream is the release surface of the upstream source-control host
// used by the read endpoints and the pull-based sync.
type Upstream interface {
	ListReleases(ctx context.Context) ([]github.Release, error)
	LatestRelease(ctx context.Context) (*github.Release, error)
}

// Daemon is the relaypoint server: release mirror, webhook ingestion,
// and the query/download endpoints.
type Daemon struct {
	config *Config
	log    *zap.Logger
	stats  *Statistics

	store    *mirror.Store
	sync     *mirror.Synchronizer
	upstream Upstream

	// Fallback caches for the read paths when the mirror is empty.
	listCache   *github.Cache[[]github.Release]
	latestCache *github.Cache[*github.Release]

	httpServer *http.Server
	listener   net.Listener
	startTime  time.Time
}

// Option overrides a collaborator, used by tests to inject fakes.
type Option func(*Daemon)

// WithUpstream replaces the upstream release client.
func WithUpstream(u Upstream) Option {
	return func(d *Daemon) {
		d.upstream = u
	}
}

// WithDownloader replaces the asset downloader.
func WithDownloader(dl mirror.Downloader) Option {
	return func(d *Daemon) {
		d.sync = mirror.NewSynchronizer(d.store, dl, upstreamLister{d}, d.log)
	}
}

type upstreamLister struct {
	d *Daemon
}

func (u upstreamLister) ListReleases(ctx context.Context) ([]github.Release, error) {
	return u.d.upstream.ListReleases(ctx)
}

// New creates a Daemon instance with the given configuration.
func New(config *Config, log *zap.Logger, opts ...Option) (*Daemon, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.EnsureStorageDir(); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	// One DNS-caching transport serves both the API client and the
	// asset fetcher, so only a single refresh goroutine runs.
	transport := github.NewCachingTransport()

	d := &Daemon{
		config:      config,
		log:         log,
		stats:       NewStatistics(),
		store:       mirror.NewStore(config.StorageDir, log),
		upstream:    github.NewClient(config.RepoOwner, config.RepoName, github.WithTransport(transport)),
		listCache:   github.NewCache[[]github.Release](github.DefaultCacheTTL),
		latestCache: github.NewCache[*github.Release](github.DefaultCacheTTL),
		startTime:   time.Now(),
	}

	d.sync = mirror.NewSynchronizer(d.store, mirror.NewFetcher(transport), upstreamLister{d}, log)

	for _, opt := range opts {
		opt(d)
	}

	router := api.NewRouter()
	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware(log))
	d.registerRoutes(router)

	d.httpServer = &http.Server{
		Addr:    config.ListenAddr,
		Handler: router,
		// No WriteTimeout: asset downloads may stream for a long time.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return d, nil
}

// Handler returns the daemon's HTTP handler. Used by tests with
// httptest.Server.
func (d *Daemon) Handler() http.Handler {
	return d.httpServer.Handler
}

// Store returns the daemon's metadata store.
func (d *Daemon) Store() *mirror.Store {
	return d.store
}

// Start begins serving requests. It returns once the listener is bound;
// serving continues in the background until Stop.
func (d *Daemon) Start() error {
	listener, err := net.Listen("tcp", d.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.config.ListenAddr, err)
	}
	d.listener = listener

	go func() {
		if err := d.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("http server stopped", zap.Error(err))
		}
	}()

	d.log.Info("daemon started",
		zap.String("listen_addr", listener.Addr().String()),
		zap.String("storage_dir", d.config.StorageDir),
		zap.String("repo", d.config.RepoOwner+"/"+d.config.RepoName))
	return nil
}

// Stop shuts the HTTP server down gracefully, letting in-flight
// requests finish within a bounded window.
func (d *Daemon) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := d.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	d.log.Info("daemon stopped")
	return nil
}

func (d *Daemon) registerRoutes(router *api.Router) {
	router.Handle("/health", d.handleHealth)
	router.Handle("/status", d.handleStatus)

	router.Handle("/releases", d.handleListReleases)
	router.Handle("/releases/latest", d.handleLatestRelease)
	router.Handle("/releases/webhook", d.handleWebhook)
	router.Handle("/releases/sync", d.handleSync)
	router.Handle("/releases/download/", d.handleDownload)
}
