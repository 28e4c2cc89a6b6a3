package mcpserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/service"
)

func waitPending(t *testing.T, q *ApprovalQueue) string {
	t.Helper()
	var id string
	require.Eventually(t, func() bool {
		p := q.Pending()
		if len(p) == 0 {
			return false
		}
		id = p[0]
		return true
	}, 5*time.Second, 5*time.Millisecond)
	return id
}

func TestApprovalQueue_ChannelApprove(t *testing.T) {
	em := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), em, nil)

	go func() { q.Approve(waitPending(t, q)) }()

	ok, err := q.Request("delete_block", "Delete product")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, em.Named("mcp:approval-required"), 1)
	assert.Empty(t, q.Pending())
}

func TestApprovalQueue_ChannelReject(t *testing.T) {
	q := NewApprovalQueue(context.Background(), nil, nil)
	go func() { q.Reject(waitPending(t, q)) }()

	ok, err := q.Request("delete_block", "Delete product")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestApprovalQueue_Timeout(t *testing.T) {
	em := &service.MockEmitter{}
	q := NewApprovalQueue(context.Background(), em, nil)
	q.SetTimeout(20 * time.Millisecond)

	ok, err := q.Request("delete_block", "Delete product")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Len(t, em.Named("mcp:approval-dismissed"), 1)
}

func TestApprovalQueue_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewApprovalQueue(ctx, nil, nil)
	go func() {
		waitPending(t, q)
		cancel()
	}()
	ok, err := q.Request("delete_block", "Delete product")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApprovalQueue_ConfirmTreatsErrorsAsRefusal(t *testing.T) {
	q := NewApprovalQueue(context.Background(), nil, nil)
	q.SetTimeout(10 * time.Millisecond)
	assert.False(t, q.Confirm(&domain.Block{ID: "b1", Type: "product"}))

	q.SetTimeout(5 * time.Second)
	go func() { q.Approve(waitPending(t, q)) }()
	assert.True(t, q.Confirm(&domain.Block{ID: "b1", Type: "product"}))
}

func TestApprovalQueue_UnknownIDIsIgnored(t *testing.T) {
	q := NewApprovalQueue(context.Background(), nil, nil)
	q.Approve("nope")
	q.Reject("nope")
}
