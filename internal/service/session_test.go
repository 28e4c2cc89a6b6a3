package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/dragdrop"
	"emailbuilder/internal/editor"
	"emailbuilder/internal/registry"
	"emailbuilder/internal/service"
)

var errNotFound = errors.New("not found")

// memStore is an in-memory domain.TemplateStore.
type memStore struct {
	mu        sync.Mutex
	templates map[string]*domain.Template
	saves     int
	saveErr   error

	entered chan struct{}
	release chan struct{}
}

func newMemStore() *memStore {
	return &memStore{templates: map[string]*domain.Template{}}
}

func (m *memStore) CreateTemplate(_ context.Context, t *domain.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memStore) GetTemplate(_ context.Context, id string) (*domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *t
	cp.Blocks = domain.CloneTree(t.Blocks)
	return &cp, nil
}

func (m *memStore) ListTemplates(_ context.Context) ([]domain.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Template
	for _, t := range m.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memStore) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return errNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memStore) SaveTemplate(_ context.Context, id, html string, blocks []*domain.Block) error {
	if m.entered != nil {
		m.entered <- struct{}{}
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	t, ok := m.templates[id]
	if !ok {
		return errNotFound
	}
	t.HTML = html
	t.Blocks = domain.CloneTree(blocks)
	m.saves++
	return nil
}

func (m *memStore) get(id string) *domain.Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.templates[id]
}

func newService(t *testing.T, store *memStore) (*service.TemplateService, *service.MockEmitter) {
	t.Helper()
	em := &service.MockEmitter{}
	svc := service.NewTemplateService(store, registry.Default,
		service.StaticBranding{StoreName: "Acme Goods"},
		service.WithEmitter(em))
	return svc, em
}

func newSessionWith(t *testing.T, store *memStore) (*service.Session, *service.MockEmitter) {
	t.Helper()
	svc, em := newService(t, store)
	sess, err := svc.Create(context.Background(), "Welcome")
	require.NoError(t, err)
	return sess, em
}

// ─────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────

func TestCreate_RequiresName(t *testing.T) {
	svc, _ := newService(t, newMemStore())
	_, err := svc.Create(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrEmptyName)
}

func TestOpen_ReusesSessionAndLoadsTree(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(t, store)
	ctx := context.Background()

	store.templates["t1"] = &domain.Template{ID: "t1", Name: "Stored", Blocks: []*domain.Block{
		{ID: "h", Type: registry.TypeHeading, Content: domain.Content{"text": "Hi", "level": 1}},
	}}

	a, err := svc.Open(ctx, "t1")
	require.NoError(t, err)
	b, err := svc.Open(ctx, "t1")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, "Stored", a.Name())
	require.Len(t, a.Blocks(), 1)
	assert.Equal(t, []string{"t1"}, svc.Sessions())

	_, err = svc.Open(ctx, "missing")
	assert.ErrorIs(t, err, errNotFound)

	svc.CloseSession("t1")
	_, ok := svc.Session("t1")
	assert.False(t, ok)
}

func TestDelete_ClosesSession(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(t, store)
	sess, err := svc.Create(context.Background(), "Gone")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), sess.ID()))
	_, ok := svc.Session(sess.ID())
	assert.False(t, ok)
	assert.Nil(t, store.get(sess.ID()))
}

// ─────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────

func TestSave_PersistsRenderedHTMLAndTree(t *testing.T) {
	store := newMemStore()
	sess, em := newSessionWith(t, store)
	ctx := context.Background()

	_, err := sess.Insert(ctx, registry.TypeHeading)
	require.NoError(t, err)
	_, err = sess.Insert(ctx, registry.TypeFooter)
	require.NoError(t, err)

	require.NoError(t, sess.Save(ctx))

	saved := store.get(sess.ID())
	require.Len(t, saved.Blocks, 2)
	assert.Contains(t, saved.HTML, "Welcome to our store")
	assert.Contains(t, saved.HTML, "Acme Goods")
	assert.Contains(t, saved.HTML, "{{unsubscribe_url}}")
	assert.Len(t, em.Named(service.EventTemplateSaved), 1)
	assert.False(t, sess.Saving())
}

func TestSave_EmptyTreeStoresEmptyList(t *testing.T) {
	store := newMemStore()
	sess, _ := newSessionWith(t, store)
	require.NoError(t, sess.Save(context.Background()))
	saved := store.get(sess.ID())
	assert.NotNil(t, saved.Blocks)
	assert.Empty(t, saved.Blocks)
	assert.Contains(t, saved.HTML, "email-container")
}

func TestSave_CommitsPendingContent(t *testing.T) {
	store := newMemStore()
	sess, _ := newSessionWith(t, store)
	ctx := context.Background()

	b, err := sess.Insert(ctx, registry.TypeHeading)
	require.NoError(t, err)
	require.NoError(t, sess.Do(func(e *editor.Engine) error {
		c := b.Content.Clone()
		c["text"] = "Summer sale"
		return e.UpdateContent(b.ID, c)
	}))

	require.NoError(t, sess.Save(ctx))
	assert.Equal(t, "Summer sale", store.get(sess.ID()).Blocks[0].Content["text"])

	require.NoError(t, sess.Do(func(e *editor.Engine) error {
		assert.False(t, e.Dirty())
		require.True(t, e.Undo())
		got, _ := e.Block(b.ID)
		assert.Equal(t, "Welcome to our store", got.Content["text"])
		return nil
	}))
}

func TestSave_FailureKeepsTreeAndSelection(t *testing.T) {
	store := newMemStore()
	sess, em := newSessionWith(t, store)
	ctx := context.Background()

	b, err := sess.Insert(ctx, registry.TypeText)
	require.NoError(t, err)
	require.NoError(t, sess.Do(func(e *editor.Engine) error { return e.Select(b.ID) }))

	store.saveErr = errors.New("disk full")
	err = sess.Save(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")

	failed := em.Named(service.EventTemplateSaveFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "disk full", failed[0].Data.(map[string]any)["error"])

	require.NoError(t, sess.Do(func(e *editor.Engine) error {
		assert.Equal(t, 1, e.Len())
		assert.Equal(t, b.ID, e.Selected())
		return nil
	}))

	store.saveErr = nil
	require.NoError(t, sess.Save(ctx))
	assert.Len(t, store.get(sess.ID()).Blocks, 1)
}

func TestSave_SecondConcurrentSaveRejected(t *testing.T) {
	store := newMemStore()
	sess, _ := newSessionWith(t, store)
	ctx := context.Background()

	store.entered = make(chan struct{})
	store.release = make(chan struct{})

	first := make(chan error, 1)
	go func() { first <- sess.Save(ctx) }()
	<-store.entered

	assert.True(t, sess.Saving())
	assert.ErrorIs(t, sess.Save(ctx), service.ErrSaveInProgress)
	assert.ErrorIs(t, sess.SaveRawHTML(ctx, "<p>x</p>"), service.ErrSaveInProgress)

	// Editing continues while the save is in flight.
	_, err := sess.Insert(ctx, registry.TypeDivider)
	require.NoError(t, err)

	close(store.release)
	select {
	case err := <-first:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("save did not finish")
	}
	assert.False(t, sess.Saving())
	assert.Empty(t, store.get(sess.ID()).Blocks)
}

func TestWaitSaves_BlocksUntilSaveFinishes(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(t, store)
	ctx := context.Background()
	sess, err := svc.Create(ctx, "Welcome")
	require.NoError(t, err)

	store.entered = make(chan struct{})
	store.release = make(chan struct{})
	saved := make(chan error, 1)
	go func() { saved <- sess.Save(ctx) }()
	<-store.entered

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	svc.WaitSaves(short)
	assert.True(t, sess.Saving(), "WaitSaves returns on ctx expiry")

	waited := make(chan struct{})
	go func() {
		svc.WaitSaves(ctx)
		close(waited)
	}()
	close(store.release)
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitSaves did not return")
	}
	require.NoError(t, <-saved)
	assert.False(t, sess.Saving())
}

func TestSaveRawHTML_DiscardsBlockTree(t *testing.T) {
	store := newMemStore()
	sess, em := newSessionWith(t, store)
	ctx := context.Background()

	_, err := sess.Insert(ctx, registry.TypeHeading)
	require.NoError(t, err)

	require.NoError(t, sess.SaveRawHTML(ctx, "<html><body>hand made</body></html>"))

	saved := store.get(sess.ID())
	assert.Equal(t, "<html><body>hand made</body></html>", saved.HTML)
	assert.Empty(t, saved.Blocks)
	assert.NotNil(t, saved.Blocks)
	assert.Empty(t, sess.Blocks())
	require.NoError(t, sess.Do(func(e *editor.Engine) error {
		assert.False(t, e.CanUndo())
		return nil
	}))
	saves := em.Named(service.EventTemplateSaved)
	require.Len(t, saves, 1)
	assert.Equal(t, true, saves[0].Data.(map[string]any)["raw"])
}

func TestSaveRawHTML_FailureKeepsTree(t *testing.T) {
	store := newMemStore()
	sess, em := newSessionWith(t, store)
	ctx := context.Background()
	_, err := sess.Insert(ctx, registry.TypeHeading)
	require.NoError(t, err)

	store.saveErr = errors.New("offline")
	require.Error(t, sess.SaveRawHTML(ctx, "<p>x</p>"))
	assert.Len(t, sess.Blocks(), 1)
	assert.Len(t, em.Named(service.EventTemplateSaveFailed), 1)
}

// ─────────────────────────────────────────────────────────────
// Insert & render
// ─────────────────────────────────────────────────────────────

func TestInsert_RejectionEmitsEvent(t *testing.T) {
	sess, em := newSessionWith(t, newMemStore())
	ctx := context.Background()

	_, err := sess.Insert(ctx, registry.TypeLogo)
	require.NoError(t, err)
	_, err = sess.Insert(ctx, registry.TypeLogo)
	assert.ErrorIs(t, err, editor.ErrMaxPerDocument)

	rejected := em.Named(service.EventInsertRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, registry.TypeLogo, rejected[0].Data.(map[string]any)["type"])
	assert.Len(t, sess.Blocks(), 1)
}

func TestDelete_ConfirmRunsOutsideSessionLock(t *testing.T) {
	asked := make(chan *domain.Block, 1)
	answer := make(chan bool)
	svc := service.NewTemplateService(newMemStore(), registry.Default,
		service.StaticBranding{StoreName: "Acme Goods"},
		service.WithEditorOptions(editor.WithConfirm(func(b *domain.Block) bool {
			asked <- b
			return <-answer
		})))
	ctx := context.Background()
	sess, err := svc.Create(ctx, "Welcome")
	require.NoError(t, err)
	product, err := sess.Insert(ctx, registry.TypeProduct)
	require.NoError(t, err)

	deleted := make(chan error, 1)
	go func() { deleted <- sess.Delete(product.ID) }()
	assert.Equal(t, product.ID, (<-asked).ID)

	// The session stays usable while the confirmation is pending.
	free := make(chan struct{})
	go func() {
		sess.Blocks()
		_ = sess.Save(ctx)
		close(free)
	}()
	select {
	case <-free:
	case <-time.After(5 * time.Second):
		t.Fatal("session locked while delete confirmation pending")
	}

	answer <- true
	require.NoError(t, <-deleted)
	assert.Empty(t, sess.Blocks())
}

func TestDelete_DeclinedOrVanishedBlock(t *testing.T) {
	ctx := context.Background()
	answer := true
	var sess *service.Session
	svc := service.NewTemplateService(newMemStore(), registry.Default,
		service.StaticBranding{},
		service.WithEditorOptions(editor.WithConfirm(func(b *domain.Block) bool {
			if answer {
				// Removed by another caller while the human was deciding.
				require.NoError(t, sess.Do(func(e *editor.Engine) error { return e.DeleteConfirmed(b.ID) }))
			}
			return answer
		})))
	sess, err := svc.Create(ctx, "Welcome")
	require.NoError(t, err)

	grid, err := sess.Insert(ctx, registry.TypeProductGrid)
	require.NoError(t, err)
	text, err := sess.Insert(ctx, registry.TypeText)
	require.NoError(t, err)

	answer = false
	assert.ErrorIs(t, sess.Delete(grid.ID), editor.ErrDeleteDeclined)
	assert.Len(t, sess.Blocks(), 2)

	require.NoError(t, sess.Delete(text.ID), "plain types skip confirmation")
	assert.ErrorIs(t, sess.Delete(text.ID), editor.ErrBlockNotFound)

	answer = true
	assert.ErrorIs(t, sess.Delete(grid.ID), editor.ErrBlockNotFound)
	assert.Empty(t, sess.Blocks())
}

func TestLogEmitter_NilLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { service.LogEmitter{}.Emit(context.Background(), "x", nil) })
}

func TestRender_ReadsBrandingAtRenderTime(t *testing.T) {
	name := "First"
	svc := service.NewTemplateService(newMemStore(), registry.Default,
		service.BrandingFunc(func() domain.Branding { return domain.Branding{StoreName: name} }))
	sess, err := svc.Create(context.Background(), "Branded")
	require.NoError(t, err)
	_, err = sess.Insert(context.Background(), registry.TypeFooter)
	require.NoError(t, err)

	assert.Contains(t, sess.Render(), "First")
	name = "Second"
	assert.Contains(t, sess.Render(), "Second")
}

func TestDrag_PaletteDropInserts(t *testing.T) {
	sess, _ := newSessionWith(t, newMemStore())

	var dropped *domain.Block
	require.NoError(t, sess.Drag(func(c *dragdrop.Controller) error {
		c.DragStartPalette(registry.TypeButton)
		c.DragOver(editor.DropTarget{Index: 0})
		b, err := c.Drop(editor.DropTarget{Index: 0})
		dropped = b
		return err
	}))
	require.NotNil(t, dropped)
	blocks := sess.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, dropped.ID, blocks[0].ID)
	assert.Equal(t, registry.TypeButton, blocks[0].Type)
}

// ─────────────────────────────────────────────────────────────
// Pickers
// ─────────────────────────────────────────────────────────────

func productPicker(calls *atomic.Int32) domain.Picker {
	return domain.PickerFunc(func(_ context.Context, ref string) (domain.PickedRecord, error) {
		if calls != nil {
			calls.Add(1)
		}
		if ref == "broken" {
			return nil, errors.New("catalog unavailable")
		}
		return domain.PickedRecord{
			"id": ref, "name": "Mug " + ref, "price": "$12.00",
			"imageUrl": "https://cdn.example.com/" + ref + ".png", "url": "https://shop.example.com/" + ref,
			"stock": 4,
		}, nil
	})
}

func TestApplyPick_CopiesKeptFieldsAsOneEdit(t *testing.T) {
	sess, _ := newSessionWith(t, newMemStore())
	ctx := context.Background()
	b, err := sess.Insert(ctx, registry.TypeProduct)
	require.NoError(t, err)

	require.NoError(t, sess.ApplyPick(ctx, b.ID, productPicker(nil), "p1"))

	require.NoError(t, sess.Do(func(e *editor.Engine) error {
		got, _ := e.Block(b.ID)
		assert.Equal(t, "p1", got.Content["productId"])
		assert.Equal(t, "Mug p1", got.Content["name"])
		assert.Equal(t, "$12.00", got.Content["price"])
		assert.NotContains(t, got.Content, "stock")
		assert.Equal(t, "Buy now", got.Content["buttonText"])

		require.True(t, e.Undo())
		got, _ = e.Block(b.ID)
		assert.Equal(t, "", got.Content["productId"])
		return nil
	}))
}

func TestApplyPick_FailureKeepsContent(t *testing.T) {
	sess, em := newSessionWith(t, newMemStore())
	ctx := context.Background()
	b, err := sess.Insert(ctx, registry.TypeProduct)
	require.NoError(t, err)
	require.NoError(t, sess.ApplyPick(ctx, b.ID, productPicker(nil), "p1"))

	err = sess.ApplyPick(ctx, b.ID, productPicker(nil), "broken")
	assert.ErrorContains(t, err, "catalog unavailable")

	got := sess.Blocks()[0]
	assert.Equal(t, "p1", got.Content["productId"])
	failed := em.Named(service.EventPickerFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].Data.(map[string]any)["ref"])
}

func TestApplyPick_RejectsBlocksWithoutPicker(t *testing.T) {
	sess, _ := newSessionWith(t, newMemStore())
	ctx := context.Background()
	b, err := sess.Insert(ctx, registry.TypeHeading)
	require.NoError(t, err)

	var calls atomic.Int32
	assert.ErrorIs(t, sess.ApplyPick(ctx, b.ID, productPicker(&calls), "p1"), service.ErrNotPickable)
	assert.ErrorIs(t, sess.ApplyPick(ctx, "nope", productPicker(&calls), "p1"), editor.ErrBlockNotFound)
	assert.Zero(t, calls.Load())
}

func TestApplyPick_Discount(t *testing.T) {
	sess, _ := newSessionWith(t, newMemStore())
	ctx := context.Background()
	b, err := sess.Insert(ctx, registry.TypeDiscount)
	require.NoError(t, err)

	picker := domain.PickerFunc(func(context.Context, string) (domain.PickedRecord, error) {
		return domain.PickedRecord{
			"id": "SAVE10", "code": "SAVE10", "description": "10% off (expired)",
			"expiresAt": "2020-01-01T00:00:00Z", "expired": true,
		}, nil
	})
	require.NoError(t, sess.ApplyPick(ctx, b.ID, picker, "SAVE10"))

	got := sess.Blocks()[0]
	assert.Equal(t, "SAVE10", got.Content["code"])
	assert.Equal(t, "2020-01-01T00:00:00Z", got.Content["expiresAt"])
	assert.NotContains(t, got.Content, "expired")
	assert.Contains(t, sess.Render(), "SAVE10")
}

func TestApplyPicks_FillsGrid(t *testing.T) {
	sess, _ := newSessionWith(t, newMemStore())
	ctx := context.Background()
	b, err := sess.Insert(ctx, registry.TypeProductGrid)
	require.NoError(t, err)

	require.NoError(t, sess.ApplyPicks(ctx, b.ID, productPicker(nil), []string{"a", "b", "c"}))

	got := sess.Blocks()[0]
	products := got.Content.Records(service.PicksKey)
	require.Len(t, products, 3)
	assert.Equal(t, "Mug b", products[1].String("name"))
	html := sess.Render()
	assert.Contains(t, html, "Mug a")
	assert.Contains(t, html, "Mug c")
}

func TestApplyPicks_AnyFailureChangesNothing(t *testing.T) {
	sess, em := newSessionWith(t, newMemStore())
	ctx := context.Background()
	b, err := sess.Insert(ctx, registry.TypeProductGrid)
	require.NoError(t, err)

	err = sess.ApplyPicks(ctx, b.ID, productPicker(nil), []string{"a", "broken"})
	require.Error(t, err)
	assert.NotContains(t, sess.Blocks()[0].Content, service.PicksKey)
	assert.Len(t, em.Named(service.EventPickerFailed), 1)
}
