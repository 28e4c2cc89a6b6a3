package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailbuilder/internal/domain"
)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "builder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// ─────────────────────────────────────────────────────────────
// TemplateStore
// ─────────────────────────────────────────────────────────────

func TestTemplateStore_CreateGetList(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(openDB(t))

	tpl := &domain.Template{Name: "Welcome"}
	require.NoError(t, s.CreateTemplate(ctx, tpl))
	assert.NotEmpty(t, tpl.ID)
	assert.False(t, tpl.CreatedAt.IsZero())

	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", got.Name)
	assert.NotNil(t, got.Blocks)
	assert.Empty(t, got.Blocks)

	require.NoError(t, s.CreateTemplate(ctx, &domain.Template{ID: "fixed", Name: "Sale"}))
	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = s.GetTemplate(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateStore_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := NewTemplateStore(db)
	require.NoError(t, s.CreateTemplate(ctx, &domain.Template{ID: "t1", Name: "News"}))

	blocks := []*domain.Block{
		{ID: "h", Type: "heading", Content: domain.Content{"text": "Hi", "level": 2},
			Layout: domain.Layout{Padding: domain.Padding{Top: 8}, Align: "center"}},
		{ID: "c", Type: "columns", Content: domain.Content{}, Children: []*domain.Block{
			{ID: "t", Type: "text", Content: domain.Content{"text": "inside"}},
		}},
	}
	require.NoError(t, s.SaveTemplate(ctx, "t1", "<html>v1</html>", blocks))

	got, err := s.GetTemplate(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "<html>v1</html>", got.HTML)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, "Hi", got.Blocks[0].Content.String("text"))
	assert.Equal(t, 2, got.Blocks[0].Content.Int("level", 0))
	assert.Equal(t, "center", got.Blocks[0].Layout.Align)
	assert.Equal(t, 8, got.Blocks[0].Layout.Padding.Top)
	require.Len(t, got.Blocks[1].Children, 1)
	assert.Equal(t, "inside", got.Blocks[1].Children[0].Content.String("text"))

	revs, err := NewRevisionStore(db).List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "<html>v1</html>", revs[0].HTML)
}

func TestTemplateStore_SaveEmptyTreeAsArray(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := NewTemplateStore(db)
	require.NoError(t, s.CreateTemplate(ctx, &domain.Template{ID: "t1", Name: "Raw"}))
	require.NoError(t, s.SaveTemplate(ctx, "t1", "<p>hand edited</p>", nil))

	var raw string
	require.NoError(t, db.Conn().QueryRow(`SELECT blocks_json FROM templates WHERE id = ?`, "t1").Scan(&raw))
	assert.Equal(t, "[]", raw)
}

func TestTemplateStore_SaveMissing(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	err := NewTemplateStore(db).SaveTemplate(ctx, "nope", "<p/>", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	revs, err := NewRevisionStore(db).List(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, revs, "failed save leaves no revision")
}

func TestTemplateStore_Delete(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := NewTemplateStore(db)
	require.NoError(t, s.CreateTemplate(ctx, &domain.Template{ID: "t1", Name: "Gone"}))
	require.NoError(t, s.SaveTemplate(ctx, "t1", "x", nil))

	require.NoError(t, s.DeleteTemplate(ctx, "t1"))
	_, err := s.GetTemplate(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	revs, err := NewRevisionStore(db).List(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, revs)

	assert.ErrorIs(t, s.DeleteTemplate(ctx, "t1"), ErrNotFound)
}

// ─────────────────────────────────────────────────────────────
// RevisionStore
// ─────────────────────────────────────────────────────────────

func TestRevisionStore_PruneKeepsNewest(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	s := NewTemplateStore(db)
	revs := NewRevisionStore(db)
	for _, id := range []string{"a", "b"} {
		require.NoError(t, s.CreateTemplate(ctx, &domain.Template{ID: id, Name: id}))
	}
	for i := range 5 {
		require.NoError(t, s.SaveTemplate(ctx, "a", string(rune('0'+i)), nil))
	}
	require.NoError(t, s.SaveTemplate(ctx, "b", "only", nil))

	n, err := revs.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	left, err := revs.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "4", left[0].HTML)
	assert.Equal(t, "3", left[1].HTML)

	other, err := revs.List(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	got, err := revs.Get(ctx, left[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.TemplateID)
	_, err = revs.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// ─────────────────────────────────────────────────────────────
// ApprovalStore
// ─────────────────────────────────────────────────────────────

func TestApprovalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewApprovalStore(openDB(t))

	require.NoError(t, s.Insert(ctx, Approval{ID: "a1", Tool: "delete_block", Description: "Delete product"}))
	require.NoError(t, s.Insert(ctx, Approval{ID: "a2", Tool: "delete_block", Description: "Delete grid"}))

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a1", pending[0].ID)
	assert.Equal(t, "{}", pending[0].Metadata)

	require.NoError(t, s.Resolve(ctx, "a1", true))
	require.NoError(t, s.Resolve(ctx, "a2", false))
	assert.ErrorIs(t, s.Resolve(ctx, "a1", false), ErrNotFound, "already resolved")

	status, err := s.Status(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, status)
	status, err = s.Status(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, status)

	pending, err = s.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, s.Delete(ctx, "a1"))
	_, err = s.Status(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)
}
