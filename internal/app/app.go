// Package app wires configuration, storage and services together for the
// command layer.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"emailbuilder/internal/catalog"
	"emailbuilder/internal/config"
	"emailbuilder/internal/domain"
	"emailbuilder/internal/editor"
	applog "emailbuilder/internal/log"
	"emailbuilder/internal/registry"
	"emailbuilder/internal/secret"
	"emailbuilder/internal/service"
	"emailbuilder/internal/storage"
)

// Options select the config file and override its log level. Secrets
// defaults to the macOS Keychain.
type Options struct {
	ConfigPath string
	LogLevel   string
	Secrets    secret.Store
}

// App owns the process-wide resources. Close releases them.
type App struct {
	loader *config.Loader
	logger *zap.Logger

	db        *storage.DB
	templates *storage.TemplateStore
	revisions *storage.RevisionStore
	approvals *storage.ApprovalStore

	secrets secret.Store
	catalog catalog.Catalog
}

// New loads the configuration, builds the logger and opens the database.
func New(opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.Path()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logOpts := applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Path: cfg.Logging.Path}
	if opts.LogLevel != "" {
		logOpts.Level = opts.LogLevel
	}
	logger, err := applog.New(logOpts)
	if err != nil {
		return nil, err
	}
	applog.Set(logger)

	loader := config.NewLoader(path, logger)
	if _, err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("database opened", zap.String("path", db.Path()))

	secrets := opts.Secrets
	if secrets == nil {
		secrets = secret.NewKeychainStore()
	}

	return &App{
		loader:    loader,
		secrets:   secrets,
		logger:    logger,
		db:        db,
		templates: storage.NewTemplateStore(db),
		revisions: storage.NewRevisionStore(db),
		approvals: storage.NewApprovalStore(db),
	}, nil
}

func (a *App) Config() *config.Config { return a.loader.Config() }

func (a *App) Logger() *zap.Logger { return a.logger }

func (a *App) Store() *storage.TemplateStore { return a.templates }

func (a *App) Revisions() *storage.RevisionStore { return a.revisions }

func (a *App) Approvals() *storage.ApprovalStore { return a.approvals }

// Templates builds a template service on the configured editor settings.
// Branding is read from the loader on every render so reloads apply to
// open sessions.
func (a *App) Templates(opts ...service.Option) *service.TemplateService {
	cfg := a.Config()
	editorOpts := []editor.Option{editor.WithHistoryLimit(cfg.Editor.HistoryLimit)}
	if len(cfg.Editor.ImportantTypes) > 0 {
		editorOpts = append(editorOpts, editor.WithImportantTypes(cfg.Editor.ImportantTypes...))
	}

	base := []service.Option{
		service.WithLogger(a.logger.Named("templates")),
		service.WithEditorOptions(editorOpts...),
	}
	branding := service.BrandingFunc(func() domain.Branding { return a.Config().Branding })
	return service.NewTemplateService(a.templates, registry.Default, branding, append(base, opts...)...)
}

// Pickers opens the configured catalog and returns one picker per kind.
// Without a catalog section the map is empty.
func (a *App) Pickers(ctx context.Context) (map[domain.PickKind]domain.Picker, error) {
	pickers := make(map[domain.PickKind]domain.Picker)
	src := a.Config().Catalog
	if src == nil {
		return pickers, nil
	}
	if a.catalog == nil {
		c, err := catalog.Open(a.withPassword(*src), catalog.WithLogger(a.logger.Named("catalog")))
		if err != nil {
			return nil, fmt.Errorf("open catalog: %w", err)
		}
		a.catalog = c
		a.logger.Info("catalog connected", zap.String("driver", src.Driver))
	}
	for _, kind := range catalog.Kinds {
		pickers[kind] = catalog.Picker(a.catalog, kind)
	}
	return pickers, nil
}

// withPassword fills in a password kept in the secret store when the
// config file has none.
func (a *App) withPassword(src catalog.Source) catalog.Source {
	if src.Password != "" || src.Username == "" {
		return src
	}
	pw, err := a.secrets.Get(catalogKey(src))
	if err != nil {
		a.logger.Warn("read catalog password", zap.Error(err))
		return src
	}
	src.Password = string(pw)
	return src
}

// SetCatalogPassword stores the password for the configured catalog in the
// secret store.
func (a *App) SetCatalogPassword(password string) error {
	src := a.Config().Catalog
	if src == nil {
		return errors.New("no catalog configured")
	}
	if src.Username == "" {
		return errors.New("catalog has no username")
	}
	return a.secrets.Set(catalogKey(*src), []byte(password))
}

func catalogKey(src catalog.Source) string {
	return secret.CatalogKey(src.Driver, src.Username, src.Host, src.Database)
}

// Retention builds the revision pruner with the configured keep count.
func (a *App) Retention(emitter service.EventEmitter) *service.Retention {
	return service.NewRetention(a.revisions, a.Config().Revisions.Keep, emitter, a.logger.Named("retention"))
}

// Close releases the catalog, the database and the config watcher.
func (a *App) Close() error {
	var err error
	if a.catalog != nil {
		err = multierr.Append(err, a.catalog.Close())
	}
	err = multierr.Append(err, a.db.Close())
	err = multierr.Append(err, a.loader.Close())
	applog.Flush()
	return err
}
