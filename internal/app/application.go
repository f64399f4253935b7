package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raysh454/trygglink/internal/engine"
	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/provider"
	"github.com/raysh454/trygglink/internal/ratelimit"
	"github.com/raysh454/trygglink/internal/resolver"
	"github.com/raysh454/trygglink/internal/store"
	"github.com/raysh454/trygglink/internal/webclient"
)

// Application is the runtime state container. It owns every long-lived
// component and hands them to the HTTP layer and the CLI.
type Application struct {
	Config *Config
	Logger logging.Logger

	Engine  *engine.Engine
	Store   store.Store
	Scans   *ScanService
	Jobs    *Jobs
	Limiter *ratelimit.Limiter

	scheduler *Scheduler
	clients   []webclient.WebClient
	providers []string

	// internal context for cancellation / lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// Option overrides a component NewApplication would otherwise build.
type Option func(*options)

type options struct {
	store     store.Store
	providers []provider.Provider
	hasProvs  bool
	resolver  provider.HostResolver
}

// WithStore uses st instead of opening the configured store.
func WithStore(st store.Store) Option {
	return func(o *options) { o.store = st }
}

// WithProviders replaces the vendor adapters built from config.
func WithProviders(ps ...provider.Provider) Option {
	return func(o *options) {
		o.providers = ps
		o.hasProvs = true
	}
}

// WithResolver replaces the DNS resolver used for reputation lookups and
// DomainInfo.
func WithResolver(r provider.HostResolver) Option {
	return func(o *options) { o.resolver = r }
}

// NewApplication builds every component from cfg. Nothing runs in the
// background until Start.
func NewApplication(cfg *Config, logger logging.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("trygglink")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &Application{Config: cfg, Logger: logger}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	st := o.store
	if st == nil {
		var err error
		if st, err = openStore(cfg.Store, logger); err != nil {
			a.cancel()
			return nil, err
		}
	}
	a.Store = st

	var res provider.HostResolver = resolver.New(cfg.Resolver, logger)
	if o.resolver != nil {
		res = o.resolver
	}
	providers := o.providers
	if !o.hasProvs {
		ps, clients, err := buildProviders(cfg, res, logger)
		if err != nil {
			a.closeAll()
			return nil, err
		}
		providers = ps
		a.clients = clients
	}

	for _, p := range providers {
		a.providers = append(a.providers, p.Name())
	}
	a.Engine = engine.New(cfg.Engine, providers, res, logger)
	feed := NewFeed()
	a.Scans = NewScanService(cfg.Scans, a.Engine, st, feed, logger)
	a.Jobs = NewJobs(cfg.Jobs, st, deepScanFetcher(providers), feed, logger)
	a.Limiter = ratelimit.New(cfg.HTTP.RateLimit)

	sched, err := NewScheduler(a.ctx, cfg.Jobs, a.Jobs, logger)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	a.scheduler = sched
	return a, nil
}

func openStore(cfg StoreConfig, logger logging.Logger) (store.Store, error) {
	switch cfg.Driver {
	case StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreSQLite, "":
		path, err := expandPath(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding store path: %w", err)
		}
		return store.OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// buildProviders constructs the vendor adapters in pipeline order. The page
// inspector gets its own client when rendering is enabled.
func buildProviders(cfg *Config, res provider.HostResolver, logger logging.Logger) ([]provider.Provider, []webclient.WebClient, error) {
	wc, err := webclient.NewWebClient(cfg.WebClient, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating webclient: %w", err)
	}
	clients := []webclient.WebClient{wc}

	pc := cfg.Providers
	ps := []provider.Provider{
		provider.NewSafeBrowsing(pc.SafeBrowsing, wc),
		provider.NewAbuseIPDB(pc.AbuseIPDB, wc, res),
		provider.NewWhois(pc.Whois, wc),
		provider.NewURLScan(pc.URLScan, wc),
		provider.NewVirusTotal(pc.VirusTotal, wc),
	}

	if pc.PageContent.Enabled {
		pageClient := wc
		if pc.PageContent.Render {
			rcfg := cfg.WebClient
			rcfg.Client = webclient.ClientChromedp
			rc, err := webclient.NewWebClient(rcfg, logger)
			if err != nil {
				for _, c := range clients {
					_ = c.Close()
				}
				return nil, nil, fmt.Errorf("creating render client: %w", err)
			}
			clients = append(clients, rc)
			pageClient = rc
		}
		ps = append(ps, provider.NewPageContent(pc.PageContent.PageContentConfig, pageClient))
	}
	return ps, clients, nil
}

func deepScanFetcher(ps []provider.Provider) DeepScanFetcher {
	for _, p := range ps {
		if f, ok := p.(DeepScanFetcher); ok {
			return f
		}
	}
	return nil
}

// Start launches the background jobs.
func (a *Application) Start() error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application starting",
		logging.Field{Key: "providers", Value: a.providers},
		logging.Field{Key: "store", Value: string(a.Config.Store.Driver)})
	a.scheduler.Start()
	return nil
}

// Shutdown stops the scheduler, disconnects feed subscribers and closes the
// store and outbound clients.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var errs []error
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stopping scheduler: %w", err))
	}
	a.Scans.Feed().Close()
	if err := a.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *Application) closeAll() error {
	a.cancel()
	var errs []error
	for _, c := range a.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing webclient: %w", err))
		}
	}
	a.clients = nil
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
		a.Store = nil
	}
	return errors.Join(errs...)
}
