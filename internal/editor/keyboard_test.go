package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/registry"
)

func TestHandleKey(t *testing.T) {
	e := newEngine()
	a := mustInsert(t, e, registry.TypeHeading)
	mustInsert(t, e, registry.TypeText)

	handled, err := e.HandleKey(KeyEvent{Key: "Delete"})
	require.NoError(t, err)
	assert.False(t, handled, "delete without selection is ignored")

	require.NoError(t, e.Select(a.ID))
	handled, _ = e.HandleKey(KeyEvent{Key: "Delete", InTextInput: true})
	assert.False(t, handled)
	assert.Equal(t, 2, e.Len())

	handled, err = e.HandleKey(KeyEvent{Key: "Delete"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 1, e.Len())
	assert.Empty(t, e.Selected())

	handled, _ = e.HandleKey(KeyEvent{Key: "z", Meta: true})
	assert.True(t, handled)
	assert.Equal(t, 2, e.Len())

	e.HandleKey(KeyEvent{Key: "Z", Meta: true, Shift: true})
	assert.Equal(t, 1, e.Len())

	e.HandleKey(KeyEvent{Key: "z", Ctrl: true})
	e.HandleKey(KeyEvent{Key: "y", Ctrl: true})
	assert.Equal(t, 1, e.Len())

	require.NoError(t, e.Select(e.Blocks()[0].ID))
	handled, _ = e.HandleKey(KeyEvent{Key: "Escape"})
	assert.True(t, handled)
	assert.Empty(t, e.Selected())

	handled, _ = e.HandleKey(KeyEvent{Key: "z"})
	assert.False(t, handled, "plain z is not a shortcut")
}

func TestHandleKey_DeclinedDeleteSurfacesError(t *testing.T) {
	e := newEngine(WithConfirm(func(*domain.Block) bool { return false }))
	p := mustInsert(t, e, registry.TypeCollection)
	require.NoError(t, e.Select(p.ID))

	handled, err := e.HandleKey(KeyEvent{Key: "Delete"})
	assert.True(t, handled)
	assert.ErrorIs(t, err, ErrDeleteDeclined)
	assert.Equal(t, p.ID, e.Selected())
}
