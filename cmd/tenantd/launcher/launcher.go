package launcher

import (
	"context"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/percussion/tenantd"
	"github.com/percussion/tenantd/authority"
	"github.com/percussion/tenantd/bolt"
	"github.com/percussion/tenantd/cache"
	"github.com/percussion/tenantd/http"
	"github.com/percussion/tenantd/inmem"
	"github.com/percussion/tenantd/internal/fs"
	"github.com/percussion/tenantd/kit/cli"
	"github.com/percussion/tenantd/kit/prom"
	"github.com/percussion/tenantd/kit/signals"
	"github.com/percussion/tenantd/kit/tracing"
	kithttp "github.com/percussion/tenantd/kit/transport/http"
	"github.com/percussion/tenantd/kv"
	tenantdlogger "github.com/percussion/tenantd/logger"
	"github.com/percussion/tenantd/sqlite"
	"github.com/percussion/tenantd/sqlite/migrations"
	"github.com/percussion/tenantd/tenant"
	"github.com/percussion/tenantd/usage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

const (
	// BoltStore stores the tenant registry in boltdb.
	BoltStore = "bolt"
	// MemoryStore stores the tenant registry and usage in memory (useful for testing).
	MemoryStore = "memory"

	// RegistryAuthority authorizes tenants from the local registry.
	RegistryAuthority = "registry"
	// RemoteAuthority asks another tenantd for signed authorizations.
	RemoteAuthority = "remote"

	// JaegerTracing enables tracing via the Jaeger client library
	JaegerTracing = "jaeger"
)

// NewCommand returns the run command. The server stops on SIGINT and SIGTERM.
func NewCommand(v *viper.Viper) (*cobra.Command, error) {
	l := NewLauncher()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tenantd server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := l.loadConfigFile(v); err != nil {
				return err
			}

			// exit with SIGINT and SIGTERM
			ctx := signals.WithStandardSignals(context.Background())
			if err := l.run(ctx); err != nil {
				return err
			}

			<-ctx.Done()

			// Attempt clean shutdown.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return l.Shutdown(ctx)
		},
	}

	if err := l.bindOptions(v, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Launcher represents the main program execution.
type Launcher struct {
	wg      sync.WaitGroup
	cancel  func()
	running bool
	group   *errgroup.Group

	opts       []cli.Opt
	configPath string

	logLevel    zapcore.Level
	logFormat   string
	tracingType string

	httpBindAddress string
	storeType       string
	boltPath        string
	sqlitePath      string

	cacheConfig  cache.Config
	filterConfig http.TenantFilterConfig

	authorityType string
	authorityURL  string
	authorityRate float64
	signingKey    string
	adminToken    string
	upstreamURL   string

	usageFlushInterval time.Duration

	boltStore   *bolt.KVStore
	sqlStore    *sqlite.SqlStore
	tenantCache *cache.SimpleCache
	tenantSvc   tenantd.TenantService
	usageSvc    *usage.Service

	httpPort   int
	httpServer *nethttp.Server

	jaegerTracerCloser io.Closer
	log                *zap.Logger
	reg                *prom.Registry

	Stdout io.Writer
	Stderr io.Writer
}

// NewLauncher returns a new instance of Launcher connected to standard out/err.
func NewLauncher() *Launcher {
	l := &Launcher{
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		cacheConfig:  cache.NewConfig(),
		filterConfig: http.NewTenantFilterConfig(),
	}
	l.opts = l.options()
	return l
}

func (l *Launcher) options() []cli.Opt {
	return []cli.Opt{
		cli.NewOpt(&l.configPath, "config-path", "", "path to a TOML, YAML or JSON config file"),
		cli.NewOpt(&l.logLevel, "log-level", zapcore.InfoLevel, "supported log levels are debug, info, warn and error"),
		cli.NewOpt(&l.logFormat, "log-format", "auto", "log format: auto, logfmt, json or console"),
		cli.NewOpt(&l.tracingType, "tracing-type", "", fmt.Sprintf("supported tracing types are %s", JaegerTracing)),
		cli.NewOpt(&l.httpBindAddress, "http-bind-address", ":8086", "bind address for the REST HTTP API"),
		cli.NewOpt(&l.storeType, "store", BoltStore, "backing store for the tenant registry (bolt or memory)"),
		cli.NewOpt(&l.boltPath, "bolt-path", fs.DataFile("tenantd.bolt"), "path to boltdb database"),
		cli.NewOpt(&l.sqlitePath, "sqlite-path", fs.DataFile(sqlite.DefaultFilename), "path to the sqlite usage database"),
		cli.NewOpt(&l.cacheConfig.TTL, "cache-ttl", cache.DefaultTTL, "how long an authorized tenant stays cached"),
		cli.NewOpt(&l.cacheConfig.NegativeTTL, "cache-negative-ttl", cache.DefaultNegativeTTL, "how long a denied tenant stays cached"),
		cli.NewOpt(&l.cacheConfig.ScavengeInterval, "cache-scavenge-interval", cache.DefaultScavengeInterval, "interval between sweeps of expired cache entries"),
		cli.NewOpt(&l.cacheConfig.StaleGrace, "cache-stale-grace", cache.DefaultStaleGrace, "how long an expired authorization may be served while the authority is unavailable"),
		cli.NewOpt(&l.filterConfig.HeaderName, "tenant-header", http.DefaultTenantHeader, "request header carrying the tenant id"),
		cli.NewOpt(&l.filterConfig.ParamName, "tenant-param", http.DefaultTenantParam, "query parameter carrying the tenant id when the header is absent"),
		cli.NewOpt(&l.filterConfig.ExcludedPaths, "tenant-excluded-paths", []string{}, "path prefixes proxied without a tenant"),
		cli.NewOpt(&l.authorityType, "authority", RegistryAuthority, "where tenants are authorized (registry or remote)"),
		cli.NewOpt(&l.authorityURL, "authority-url", "", "URL of the tenantd answering authorizations in remote mode"),
		cli.NewOpt(&l.authorityRate, "authority-rate", float64(authority.DefaultRate), "authorization requests per second sent to the authority; 0 disables the limit"),
		cli.NewOpt(&l.signingKey, "signing-key", "", "key signing authorization tokens"),
		cli.NewOpt(&l.adminToken, "admin-token", "", "token guarding the admin API"),
		cli.NewOpt(&l.upstreamURL, "upstream-url", "", "proxy filtered requests to this URL"),
		cli.NewOpt(&l.usageFlushInterval, "usage-flush-interval", usage.DefaultFlushInterval, "interval between writes of request counts to sqlite"),
	}
}

func (l *Launcher) bindOptions(v *viper.Viper, cmd *cobra.Command) error {
	cli.SetupEnv(v, "tenantd")
	return cli.BindOptions(v, cmd, l.opts)
}

// loadConfigFile applies the config file below flags and env vars.
func (l *Launcher) loadConfigFile(v *viper.Viper) error {
	if l.configPath == "" {
		return nil
	}
	if err := cli.LoadConfigFile(v, l.configPath); err != nil {
		return err
	}
	return cli.Resolve(v, l.opts)
}

// Running returns true if the main Launcher has started running.
func (l *Launcher) Running() bool {
	return l.running
}

// Registry returns the prometheus metrics registry.
func (l *Launcher) Registry() *prom.Registry {
	return l.reg
}

// Logger returns the launchers logger.
func (l *Launcher) Logger() *zap.Logger {
	return l.log
}

// URL returns the URL to connect to the HTTP server.
func (l *Launcher) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", l.httpPort)
}

// TenantCache returns the tenant authorization cache.
func (l *Launcher) TenantCache() *cache.SimpleCache {
	return l.tenantCache
}

// TenantService returns the tenant registry, or nil in remote mode.
func (l *Launcher) TenantService() tenantd.TenantService {
	return l.tenantSvc
}

// UsageService returns the usage service.
func (l *Launcher) UsageService() *usage.Service {
	return l.usageSvc
}

// Run executes the program with the given CLI arguments and returns once the
// server is listening.
func (l *Launcher) Run(ctx context.Context, args ...string) error {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tenantd server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := l.loadConfigFile(v); err != nil {
				return err
			}
			return l.run(ctx)
		},
	}

	if err := l.bindOptions(v, cmd); err != nil {
		return err
	}

	cmd.SetArgs(args)
	return cmd.Execute()
}

// Shutdown shuts down the HTTP server, waits for the background services and
// closes the stores.
func (l *Launcher) Shutdown(ctx context.Context) error {
	var err error
	if l.httpServer != nil {
		l.log.Info("Stopping", zap.String("service", "http"))
		if serr := l.httpServer.Shutdown(ctx); serr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to shut down http server: %w", serr))
		}
	}

	if l.cancel != nil {
		l.cancel()
	}
	if l.group != nil {
		// usage flushes once more on its way out
		if gerr := l.group.Wait(); gerr != nil {
			err = multierr.Append(err, gerr)
		}
	}
	l.wg.Wait()

	if l.sqlStore != nil {
		l.log.Info("Stopping", zap.String("service", "sqlite"))
		err = multierr.Append(err, l.sqlStore.Close())
	}
	if l.boltStore != nil {
		l.log.Info("Stopping", zap.String("service", "bolt"))
		err = multierr.Append(err, l.boltStore.Close())
	}
	if l.jaegerTracerCloser != nil {
		if cerr := l.jaegerTracerCloser.Close(); cerr != nil {
			l.log.Warn("Failed to close Jaeger tracer", zap.Error(cerr))
		}
	}

	_ = l.log.Sync()
	l.running = false
	return err
}

func (l *Launcher) run(ctx context.Context) (err error) {
	l.running = true
	ctx, l.cancel = context.WithCancel(ctx)
	defer func() {
		if err != nil {
			l.cancel()
			l.closeStores()
			l.running = false
		}
	}()

	logconf := &tenantdlogger.Config{
		Format: l.logFormat,
		Level:  l.logLevel,
	}
	l.log, err = logconf.New(l.Stdout)
	if err != nil {
		return err
	}

	info := tenantd.GetBuildInfo()
	l.log.Info("Welcome to tenantd",
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.String("build_date", info.Date),
	)

	switch l.tracingType {
	case "":
	case JaegerTracing:
		l.log.Info("Tracing via Jaeger")
		closer, err := tracing.NewJaegerTracer("tenantd")
		if err != nil {
			l.log.Error("Failed to instantiate Jaeger tracer", zap.Error(err))
			break
		}
		l.jaegerTracerCloser = closer
	default:
		return fmt.Errorf("unknown tracing type %q; expected %s or empty", l.tracingType, JaegerTracing)
	}

	if err := l.cacheConfig.Validate(); err != nil {
		return err
	}

	l.reg = prom.NewRegistry(l.log.With(zap.String("service", "prom_registry")))

	authorizer, issuer, err := l.openAuthority(ctx)
	if err != nil {
		return err
	}

	l.tenantCache = cache.NewSimpleCache(authorizer, l.cacheConfig,
		cache.WithLogger(l.log.With(zap.String("service", "tenant_cache"))))
	l.reg.MustRegister(l.tenantCache)

	var tenantCache tenantd.TenantCache = l.tenantCache
	tenantCache = cache.NewLogger(l.log.With(zap.String("service", "tenant_cache")), tenantCache)
	tenantCache = cache.NewMetrics(l.reg, tenantCache)

	if l.tenantSvc != nil {
		var ts tenantd.TenantService = l.tenantSvc
		ts = tenant.NewCacheInvalidator(l.log.With(zap.String("service", "tenant_invalidator")), ts, tenantCache)
		ts = tenant.NewLogger(l.log.With(zap.String("service", "tenant")), ts)
		ts = tenant.NewMetrics(l.reg, ts)
		l.tenantSvc = ts
	}

	if err := l.openUsage(ctx); err != nil {
		return err
	}

	var upstream *url.URL
	if l.upstreamURL != "" {
		upstream, err = url.Parse(l.upstreamURL)
		if err != nil || upstream.Scheme == "" || upstream.Host == "" {
			return fmt.Errorf("invalid upstream url %q", l.upstreamURL)
		}
	}

	httpLogger := l.log.With(zap.String("service", "http"))
	reqMetrics, reqDurations := kithttp.NewRequestMetrics("tenantd")
	l.reg.MustRegister(reqMetrics, reqDurations)

	backend := http.PlatformBackend{
		Log:              httpLogger,
		MetricsHandler:   l.reg.HTTPHandler(),
		RequestMetrics:   reqMetrics,
		RequestDurations: reqDurations,
		TenantCache:      tenantCache,
		TenantService:    l.tenantSvc,
		UsageService:     l.usageSvc,
		TokenIssuer:      issuer,
		AdminToken:       l.adminToken,
		Upstream:         upstream,
		Filter:           http.NewTenantSecurityFilter(httpLogger.With(zap.String("handler", "tenant_filter")), tenantCache, l.usageSvc, l.filterConfig),
	}

	l.httpServer = &nethttp.Server{
		Addr:              l.httpBindAddress,
		Handler:           http.NewPlatformHandler(backend),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(httpLogger),
	}

	ln, err := net.Listen("tcp", l.httpBindAddress)
	if err != nil {
		httpLogger.Error("Failed http listener", zap.Error(err))
		return err
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		l.httpPort = addr.Port
	}

	g, gctx := errgroup.WithContext(ctx)
	l.group = g
	g.Go(func() error {
		return l.tenantCache.Run(gctx)
	})
	g.Go(func() error {
		return l.usageSvc.Run(gctx)
	})

	l.wg.Add(1)
	go func(log *zap.Logger) {
		defer l.wg.Done()
		log.Info("Listening",
			zap.String("transport", "http"),
			zap.String("addr", l.httpBindAddress),
			zap.Int("port", l.httpPort))

		if err := l.httpServer.Serve(ln); err != nethttp.ErrServerClosed {
			log.Error("Failed http service", zap.Error(err))
		}
		log.Info("Stopping")
	}(httpLogger)

	return nil
}

// openAuthority builds the authorizer behind the cache. In registry mode it
// also opens the tenant store and returns the token issuer other instances
// verify against.
func (l *Launcher) openAuthority(ctx context.Context) (tenantd.Authorizer, tenant.TokenIssuer, error) {
	var issuer *authority.Issuer
	if l.signingKey != "" {
		var err error
		issuer, err = authority.NewIssuer([]byte(l.signingKey))
		if err != nil {
			return nil, nil, err
		}
	}

	switch l.authorityType {
	case RegistryAuthority:
		store, err := l.openKVStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		ts := tenant.NewStore(store)
		l.reg.MustRegister(ts)
		svc := tenant.NewService(ts)
		l.tenantSvc = svc
		if issuer == nil {
			// a nil *Issuer must not become a non-nil TokenIssuer
			return tenant.NewAuthorizer(svc), nil, nil
		}
		return tenant.NewAuthorizer(svc), issuer, nil

	case RemoteAuthority:
		if issuer == nil {
			return nil, nil, fmt.Errorf("signing-key is required with the %s authority", RemoteAuthority)
		}
		if l.authorityURL == "" {
			return nil, nil, fmt.Errorf("authority-url is required with the %s authority", RemoteAuthority)
		}
		c, err := authority.NewClient(l.authorityURL, l.adminToken, issuer,
			authority.WithRateLimit(l.authorityRate, int(l.authorityRate)+1),
			authority.WithLogger(l.log.With(zap.String("service", "authority"))))
		if err != nil {
			return nil, nil, err
		}
		l.log.Info("Authorizing tenants remotely", zap.String("url", l.authorityURL))
		return c, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown authority %q; expected %s or %s", l.authorityType, RegistryAuthority, RemoteAuthority)
	}
}

func (l *Launcher) openKVStore(ctx context.Context) (kv.Store, error) {
	switch l.storeType {
	case BoltStore:
		l.boltStore = bolt.NewKVStore(l.log.With(zap.String("service", "bolt")), l.boltPath)
		if err := l.boltStore.Open(ctx); err != nil {
			l.log.Error("Failed opening bolt", zap.Error(err))
			l.boltStore = nil
			return nil, err
		}
		l.reg.MustRegister(l.boltStore)
		return l.boltStore, nil
	case MemoryStore:
		return inmem.NewKVStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type %s; expected %s or %s", l.storeType, BoltStore, MemoryStore)
	}
}

func (l *Launcher) openUsage(ctx context.Context) error {
	path := l.sqlitePath
	if l.storeType == MemoryStore {
		path = sqlite.InmemPath
	}

	log := l.log.With(zap.String("service", "sqlite"))
	store, err := sqlite.NewSqlStore(path, log)
	if err != nil {
		log.Error("Failed opening sqlite store", zap.Error(err))
		return err
	}
	l.sqlStore = store

	if err := sqlite.NewMigrator(store, log).Up(ctx, migrations.AllUp); err != nil {
		log.Error("Failed to apply sqlite migrations", zap.Error(err))
		return err
	}

	l.usageSvc = usage.NewService(l.log.With(zap.String("service", "usage")), usage.NewStore(store),
		usage.WithFlushInterval(l.usageFlushInterval))
	return nil
}

func (l *Launcher) closeStores() {
	if l.sqlStore != nil {
		_ = l.sqlStore.Close()
		l.sqlStore = nil
	}
	if l.boltStore != nil {
		_ = l.boltStore.Close()
		l.boltStore = nil
	}
}
