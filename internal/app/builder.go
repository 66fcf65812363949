package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/omprussia/weblate-omp/internal/addons"
	"github.com/omprussia/weblate-omp/internal/addons/autotranslate"
	"github.com/omprussia/weblate-omp/internal/addons/synchronize"
	"github.com/omprussia/weblate-omp/internal/api"
	"github.com/omprussia/weblate-omp/internal/app/storage"
	autotranslation "github.com/omprussia/weblate-omp/internal/autotranslate"
	"github.com/omprussia/weblate-omp/internal/config"
	"github.com/omprussia/weblate-omp/internal/lifecycle"
	"github.com/omprussia/weblate-omp/internal/memory"
	"github.com/omprussia/weblate-omp/internal/service"
	"github.com/omprussia/weblate-omp/internal/tasks"
	"github.com/omprussia/weblate-omp/internal/telemetry"
	"github.com/omprussia/weblate-omp/internal/translations"
	"github.com/omprussia/weblate-omp/internal/vcs"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// Option configures the application builder
type Option func(*appConfig) error

// appConfig holds the builder state. Component overrides are mostly for tests.
type appConfig struct {
	config  *config.Config
	version string

	storageFactory storage.Factory
	repository     vcs.Repository
	broker         tasks.Broker
	index          memory.Index
	telemetry      *telemetry.Telemetry
	eager          bool

	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...Option) (*appConfig, error) {
	cfg := &appConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.config == nil {
		cfg.config = config.Default()
	}
	return cfg, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) Option {
	return func(cfg *appConfig) error {
		cfg.config = c
		return nil
	}
}

// WithVersion sets the version reported to telemetry
func WithVersion(v string) Option {
	return func(cfg *appConfig) error {
		cfg.version = v
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) Option {
	return func(cfg *appConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}
		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *appConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory injects the storage backend
func WithStorageFactory(f storage.Factory) Option {
	return func(cfg *appConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithRepository injects the component repository collaborator
func WithRepository(r vcs.Repository) Option {
	return func(cfg *appConfig) error {
		cfg.repository = r
		return nil
	}
}

// WithBroker injects the job broker
func WithBroker(b tasks.Broker) Option {
	return func(cfg *appConfig) error {
		cfg.broker = b
		return nil
	}
}

// WithIndex injects the translation memory
func WithIndex(ix memory.Index) Option {
	return func(cfg *appConfig) error {
		cfg.index = ix
		return nil
	}
}

// WithTelemetry injects the telemetry providers
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(cfg *appConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// WithEagerJobs runs queued jobs inline instead of publishing them to the
// configured broker
func WithEagerJobs() Option {
	return func(cfg *appConfig) error {
		cfg.eager = true
		return nil
	}
}

// NewComponents wires every component except the HTTP server. The caller
// owns the result and must Close it.
func NewComponents(ctx context.Context, opts ...Option) (*Components, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	return buildComponents(ctx, cfg)
}

func buildComponents(ctx context.Context, b *appConfig) (_ *Components, err error) {
	cfg := b.config
	c := &Components{}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	if c.Telemetry = b.telemetry; c.Telemetry == nil {
		if c.Telemetry, err = telemetry.New(ctx, cfg.Telemetry, b.version); err != nil {
			return nil, err
		}
	}
	metrics := c.Telemetry.Metrics()

	if c.Storage = b.storageFactory; c.Storage == nil {
		if c.Storage, err = storage.NewStorageFactory(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}
	s := c.Storage.Store()
	txns := c.Storage.Transactions()

	if c.Index = b.index; c.Index == nil {
		c.Index, err = memory.Open(cfg.Memory.Path,
			memory.WithRetryPolicy(memory.RetryPolicy{
				MaxTries:        cfg.Memory.Retry.MaxTries,
				InitialInterval: cfg.Memory.Retry.GetInitialInterval(),
				MaxInterval:     cfg.Memory.Retry.GetMaxInterval(),
			}),
			memory.WithMetrics(metrics))
		if err != nil {
			return nil, err
		}
	}

	var eager *tasks.EagerBroker
	switch {
	case b.broker != nil:
		c.Broker = b.broker
	case b.eager:
		eager = tasks.NewEagerBroker()
		c.Broker = eager
	default:
		if c.Broker, err = tasks.NewBroker(&cfg.Queue); err != nil {
			return nil, fmt.Errorf("failed to create job broker: %w", err)
		}
	}
	c.Queue = tasks.NewProducer(c.Broker, tasks.NewRouter(cfg.Queue.Routes), tasks.WithProducerMetrics(metrics))

	repo := b.repository
	if repo == nil {
		repo = vcs.NewGitRepository(cfg.VCS.Root, cfg.VCS.Remote)
	}
	messages, err := translations.NewMessages(cfg.CommitMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to compile commit messages: %w", err)
	}
	manager := translations.NewManager(s, repo, translations.WithMessages(messages))

	activations := synchronize.NewMemoryActivationStore()
	if cfg.Sync.StatePath != "" {
		activations = synchronize.NewFileActivationStore(cfg.Sync.StatePath)
	}
	importer := memory.NewImporter(s, c.Index)
	c.Coordinator = synchronize.NewCoordinator(
		manager,
		repo,
		c.Queue,
		synchronize.NewActorContext(s, cfg.Sync.GetCIUsername()),
		synchronize.WithActivationStore(activations),
		synchronize.WithMemorySnapshot(importer),
		synchronize.WithMetrics(metrics),
	)

	c.Registry = addons.NewRegistry(c.Coordinator, autotranslate.New(manager, repo, c.Queue))
	c.Dispatcher = addons.NewDispatcher(c.Registry, s, addons.WithDispatcherMetrics(metrics))
	c.Installer = addons.NewInstaller(c.Registry, s, c.Dispatcher, txns)

	c.Updater = lifecycle.NewUpdater(s, repo, c.Dispatcher, txns)
	c.Scheduler = lifecycle.NewScheduler(c.Updater, cfg.Daily.GetInterval())

	c.Pool = tasks.NewPool(c.Broker, cfg.Queue.Queues, cfg.Queue.Workers, tasks.WithPoolMetrics(metrics))
	registerHandlers(c.Pool, s, c.Index, importer, c.Installer)
	if eager != nil {
		eager.Bind(c.Pool)
	}

	c.Service = service.New(c.Registry, c.Installer, c.Updater, s, c.Queue,
		service.WithReadinessCheck(c.Storage.Ping))

	slog.Info("Application components initialized",
		"storage", cfg.Storage.Type,
		"broker", cfg.Queue.Broker,
		"addons", len(c.Registry.List()))
	return c, nil
}

func registerHandlers(
	pool *tasks.Pool, s storeForJobs, index memory.Index, importer *memory.Importer, installer *addons.Installer,
) {
	runner := autotranslation.NewRunner(s, index)
	tasks.Register(pool, func(ctx context.Context, job tasks.AutoTranslate) error {
		result, err := runner.Run(ctx, job)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Automatic translation finished",
			"translation", job.TranslationID,
			"translated", result.Translated,
			"suggested", result.Suggested)
		return nil
	})

	tasks.Register(pool, func(ctx context.Context, job tasks.ImportMemory) error {
		_, err := importer.ImportProject(ctx, job.ProjectID, job.UserID)
		return err
	})

	tasks.Register(pool, installer.HandleInstallJob)
}

// storeForJobs is what the job handlers need from the store.
type storeForJobs interface {
	autotranslation.Store
	memory.ImportStore
}

// Close releases the resources held by the components.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	if c.Broker != nil {
		errs = append(errs, c.Broker.Close())
	}
	if c.Index != nil {
		errs = append(errs, c.Index.Close())
	}
	if c.Storage != nil {
		c.Storage.Cleanup()
	}
	if c.Telemetry != nil {
		errs = append(errs, c.Telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// NewApp builds the components and the HTTP server
func NewApp(ctx context.Context, opts ...Option) (*App, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components)
	if err != nil {
		_ = components.Close(context.Background())
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	return &App{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
		workers:    make(chan error, 1),
	}, nil
}

func buildHTTPServer(b *appConfig, c *Components) (*http.Server, error) {
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	b.middlewares = append([]func(http.Handler) http.Handler{c.Telemetry.HookMetrics().Middleware}, b.middlewares...)

	router := api.NewServer(c.Service, api.WithMiddlewares(b.middlewares...))
	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
