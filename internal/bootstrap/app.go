package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/juju/clock"
	"github.com/mohammadpnp/theme-setup/internal/application/customizer"
	"github.com/mohammadpnp/theme-setup/internal/application/importer"
	"github.com/mohammadpnp/theme-setup/internal/application/importjob"
	"github.com/mohammadpnp/theme-setup/internal/application/onboarding"
	"github.com/mohammadpnp/theme-setup/internal/application/widget"
	"github.com/mohammadpnp/theme-setup/internal/application/wxr"
	"github.com/mohammadpnp/theme-setup/internal/config"
	"github.com/mohammadpnp/theme-setup/internal/domain/content"
	infrafile "github.com/mohammadpnp/theme-setup/internal/infrastructure/file"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/metrics"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/nonce"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/repository"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/scratch"
	"github.com/mohammadpnp/theme-setup/internal/infrastructure/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// App holds the wired components shared by the API and the CLI.
type App struct {
	DB       *gorm.DB
	Store    *store.Store
	Engine   *importer.Engine
	Widgets  *widget.Importer
	Wizard   *onboarding.Wizard
	Worker   *importjob.Worker
	Jobs     *repository.ImportJobRepository
	Nonces   *nonce.Signer
	Recorder *metrics.Recorder

	closers []func()
}

// OpenDatabase connects gorm to Postgres or SQLite.
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}
	switch cfg.Driver {
	case "", DriverPostgres:
		return gorm.Open(postgres.Open(cfg.URL), gcfg)
	case DriverSQLite:
		return gorm.Open(sqlite.Open(cfg.URL), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewApp connects the stores and builds every component from cfg. reg
// receives the import metrics; nil keeps them on a private registry.
func NewApp(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) (*App, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	app := &App{Recorder: metrics.New(reg), Nonces: nonce.NewSigner(cfg.Auth.NonceSecret)}

	db, err := OpenDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	app.DB = db
	app.Store = store.New(db, logger)
	if err := app.Store.Migrate(ctx); err != nil {
		app.Close()
		return nil, err
	}
	app.Jobs = repository.NewImportJobRepository(db)

	var existence content.ExistenceSource = app.Store
	if cfg.Database.Driver == "" || cfg.Database.Driver == DriverPostgres {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		app.closers = append(app.closers, pool.Close)
		existence = repository.NewExistenceRepository(pool)
	}

	scratchStore, closeScratch, err := newScratch(cfg.Redis, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeScratch)

	httpClient := &http.Client{}
	uploads := infrafile.NewUploads(cfg.Paths.Uploads, cfg.Paths.BaseURL)
	fetcher := infrafile.NewHTTPFetcher(httpClient, cfg.Import.HTTPTimeout)
	sideloader := importer.NewSideloader(uploads, fetcher, cfg.Import.AttachmentMaxBytes, logger)

	parser := wxr.NewParser(wxr.Capabilities{
		Strategy:    wxr.Strategy(cfg.WXR.Strategy),
		DOMMaxBytes: cfg.WXR.DOMMaxBytes,
	}, logger)
	app.Engine = importer.NewEngine(app.Store, scratchStore, existence, parser, importer.Config{
		MapTTL:        cfg.Import.MapTTL,
		CurrentUserID: cfg.Import.CurrentUserID,
		PostTypes:     cfg.Theme.PostTypes,
		Taxonomies:    cfg.Theme.Taxonomies,
		WooCommerce:   cfg.Theme.WooCommerce,
		Attachments:   sideloader,
		Recorder:      app.Recorder,
	}, logger)

	app.Widgets = widget.NewImporter(app.Store, widget.Config{
		Sidebars: cfg.Theme.Sidebars,
		Widgets:  cfg.Theme.Widgets,
	}, logger)
	customizerImporter := customizer.NewImporter(app.Store, sideloader, uploads, customizer.Config{
		Stylesheet: cfg.Theme.Stylesheet,
	}, logger)

	downloader := infrafile.NewDownloader(infrafile.DownloaderConfig{
		Dir:     cfg.Paths.Downloads,
		Timeout: cfg.Import.DownloadTimeout,
	}, httpClient, logger)

	app.Wizard = onboarding.NewWizard(onboarding.Config{
		PostsPerChunk: cfg.Import.PostsPerChunk,
		AfterImport:   cfg.Import.AfterImport,
		Plugins: onboarding.PluginsConfig{
			TGMPAURL: cfg.Plugins.TGMPAURL,
			Menu:     cfg.Plugins.Menu,
		},
		Recorder: app.Recorder,
	}, onboarding.Deps{
		Demos:      onboarding.NewDemoRegistry(cfg.Demos, logger),
		Files:      onboarding.NewFileResolver(scratchStore, downloader, infrafile.NewLocalSource(cfg.Paths.Demos), cfg.Import.BaseNameTTL, logger),
		Engine:     app.Engine,
		Widgets:    app.Widgets,
		Customizer: customizerImporter,
		Sliders:    onboarding.NewSliderImporter(cfg.Paths.Uploads, app.Store, logger),
		Redux:      onboarding.NewReduxImporter(app.Store, logger),
		Pages: onboarding.NewPageSetup(app.Store, app.Store, onboarding.PagesConfig{
			HomePageTitle: cfg.Import.HomePageTitle,
			BlogPageTitle: cfg.Import.BlogPageTitle,
			WooCommerce:   cfg.Theme.WooCommerce,
		}, logger),
		State: onboarding.NewSetupState(app.Store, cfg.Theme.Slug),
		License: onboarding.NewLicenseActivator(httpClient, app.Store, onboarding.LicenseConfig{
			APIURL:    cfg.License.APIURL,
			ItemName:  cfg.License.ItemName,
			ThemeSlug: cfg.License.ThemeSlug,
			HomeURL:   cfg.License.HomeURL,
		}, logger),
		Plugins: onboarding.NewOptionPlugins(app.Store, cfg.Plugins.Items),
		Nonces:  app.Nonces,
	}, logger)

	app.Worker = importjob.NewWorker(app.Jobs, infrafile.NewLocalSource(cfg.Jobs.BaseDir), app.Engine, importjob.WorkerConfig{
		Workers:       cfg.Jobs.Workers,
		ChunkSize:     cfg.Import.PostsPerChunk,
		PollInterval:  cfg.Jobs.PollInterval,
		LeaseDuration: cfg.Jobs.LeaseDuration,
		Recorder:      app.Recorder,
	}, logger)

	return app, nil
}

func newScratch(cfg config.RedisConfig, logger *zap.Logger) (content.ScratchStore, func(), error) {
	if cfg.Host == "" {
		logger.Info("redis host not set, using in-memory scratch store")
		return scratch.NewMemoryStore(clock.WallClock), func() {}, nil
	}
	rs, err := scratch.NewRedisStore(scratch.RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
		Prefix:   cfg.Prefix,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return rs, func() {
		if err := rs.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}, nil
}

// Close releases the connections NewApp opened.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
