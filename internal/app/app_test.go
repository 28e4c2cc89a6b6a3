package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailbuilder/internal/catalog"
	"emailbuilder/internal/config"
	"emailbuilder/internal/domain"
	"emailbuilder/internal/secret"
	"emailbuilder/internal/service"
	"emailbuilder/internal/storage"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "data", "emailbuilder.db")
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(cfg, path))

	a, err := New(Options{ConfigPath: path, LogLevel: "error", Secrets: secret.NewMemoryStore()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Branding.StoreName = "Acme Outdoor"
		c.Editor.HistoryLimit = 5
	})
	assert.Equal(t, "Acme Outdoor", a.Config().Branding.StoreName)

	svc := a.Templates()
	assert.Equal(t, "Acme Outdoor", svc.Branding().StoreName)

	sess, err := svc.Create(context.Background(), "Welcome")
	require.NoError(t, err)
	require.NoError(t, sess.Save(context.Background()))

	revs, err := a.Revisions().List(context.Background(), sess.ID())
	require.NoError(t, err)
	assert.Len(t, revs, 1)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "x.db")
	cfg.Revisions.Schedule = "whenever"
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(cfg, path))

	_, err := New(Options{ConfigPath: path, Secrets: secret.NewMemoryStore()})
	assert.Error(t, err)
}

func TestPickersWithoutCatalog(t *testing.T) {
	a := newTestApp(t, nil)
	pickers, err := a.Pickers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pickers)

	assert.Error(t, a.SetCatalogPassword("pw"))
}

func TestCatalogPasswordFromSecrets(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Catalog = &catalog.Source{Driver: catalog.DriverMySQL, Host: "db.internal", Port: 3306, Database: "shop", Username: "builder"}
	})

	src := a.withPassword(*a.Config().Catalog)
	assert.Empty(t, src.Password)

	require.NoError(t, a.SetCatalogPassword("s3cret"))
	src = a.withPassword(*a.Config().Catalog)
	assert.Equal(t, "s3cret", src.Password)

	explicit := *a.Config().Catalog
	explicit.Password = "from-file"
	assert.Equal(t, "from-file", a.withPassword(explicit).Password)
}

func TestPickersFromSQLiteCatalog(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) {
		c.Catalog = &catalog.Source{Driver: catalog.DriverSQLite, Host: filepath.Join(t.TempDir(), "catalog.db")}
	})
	pickers, err := a.Pickers(context.Background())
	require.NoError(t, err)
	for _, kind := range catalog.Kinds {
		assert.Contains(t, pickers, kind)
	}
	assert.NotContains(t, pickers, domain.PickKind("gift-card"))
}

func TestWatch(t *testing.T) {
	a := newTestApp(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	em := &service.MockEmitter{}

	require.NoError(t, a.Approvals().Insert(ctx, storage.Approval{ID: "a1", Tool: "delete_block", Description: "Delete product"}))

	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, 5*time.Millisecond, em) }()

	require.Eventually(t, func() bool {
		return len(em.Named(EventApprovalRequired)) == 1
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, a.Store().CreateTemplate(ctx, &domain.Template{Name: "Weekly"}))
	require.Eventually(t, func() bool {
		return len(em.Named(EventTemplatesChanged)) >= 1
	}, 5*time.Second, 5*time.Millisecond)

	// Still pending, so it is not reported again.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, em.Named(EventApprovalRequired), 1)

	cancel()
	require.NoError(t, <-done)
}
