package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/storage"
)

var (
	ErrRejected = errors.New("action rejected by user")
	ErrTimedOut = errors.New("action timed out")
)

// EventEmitter allows the approval queue to notify a host UI.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

// ApprovalBackend is the shared approval table used when the approving
// human is in another process (the CLI).
type ApprovalBackend interface {
	Insert(ctx context.Context, a storage.Approval) error
	Status(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. block IDs)
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process: channels plus emitted events, resolved with Approve/Reject
//   - Store-based: writes to the mcp_approvals table and polls for the result
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan actionResult
	ctx     context.Context
	emitter EventEmitter
	logger  *zap.Logger
	timeout time.Duration
	poll    time.Duration

	store ApprovalBackend
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter, logger *zap.Logger) *ApprovalQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}
	return &ApprovalQueue{
		pending: make(map[string]chan actionResult),
		ctx:     ctx,
		emitter: emitter,
		logger:  logger,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// SetStore enables store-based approval for the standalone MCP process.
func (q *ApprovalQueue) SetStore(store ApprovalBackend) {
	q.store = store
}

// SetTimeout changes how long a request waits for a decision.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	if d > 0 {
		q.timeout = d
	}
}

// Request asks for approval and blocks until approved, rejected or timed
// out. metadata is optional JSON with extra context.
func (q *ApprovalQueue) Request(tool, description string, metadata ...string) (bool, error) {
	id := uuid.New().String()
	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}

	q.logger.Info("approval requested",
		zap.String("id", id), zap.String("tool", tool), zap.String("description", description))
	if q.store != nil {
		return q.requestViaStore(id, tool, description, meta)
	}
	return q.requestViaChannel(id, tool, description, meta)
}

// Confirm is an editor confirmation hook: deleting an important block
// waits for a human decision. Any failure counts as a refusal.
func (q *ApprovalQueue) Confirm(b *domain.Block) bool {
	meta, _ := json.Marshal(map[string]string{"blockId": b.ID, "type": b.Type})
	ok, err := q.Request("delete_block",
		fmt.Sprintf("Delete %s block %s", b.Type, b.ID), string(meta))
	if err != nil {
		q.logger.Info("delete not approved", zap.String("block_id", b.ID), zap.Error(err))
		return false
	}
	return ok
}

// requestViaStore writes a pending approval and polls until resolved.
func (q *ApprovalQueue) requestViaStore(id, tool, description, metadata string) (bool, error) {
	err := q.store.Insert(q.ctx, storage.Approval{
		ID:          id,
		Tool:        tool,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		return false, err
	}
	// Resolved rows are removed whatever the outcome.
	defer q.store.Delete(context.Background(), id)

	deadline := time.Now().Add(q.timeout)
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				return false, fmt.Errorf("%w after %s: %s", ErrTimedOut, q.timeout, tool)
			}
			status, err := q.store.Status(q.ctx, id)
			if err != nil {
				continue
			}
			switch status {
			case storage.StatusApproved:
				return true, nil
			case storage.StatusRejected:
				return false, fmt.Errorf("%w: %s", ErrRejected, tool)
			}
		case <-q.ctx.Done():
			return false, fmt.Errorf("approval %s: %w", id, q.ctx.Err())
		}
	}
}

// requestViaChannel is the in-process mode.
func (q *ApprovalQueue) requestViaChannel(id, tool, description, metadata string) (bool, error) {
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()

	q.emitter.Emit(q.ctx, "mcp:approval-required", PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    metadata,
	})

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		q.cleanup(id)
		if !result.approved {
			return false, fmt.Errorf("%w: %s", ErrRejected, tool)
		}
		return true, nil
	case <-timer.C:
		q.cleanup(id)
		q.emitter.Emit(q.ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return false, fmt.Errorf("%w after %s: %s", ErrTimedOut, q.timeout, tool)
	case <-q.ctx.Done():
		q.cleanup(id)
		return false, fmt.Errorf("approval %s: %w", id, q.ctx.Err())
	}
}

// Pending lists in-process requests still awaiting a decision.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

// Approve marks a pending action as approved (in-process mode).
func (q *ApprovalQueue) Approve(actionID string) {
	q.resolve(actionID, true)
}

// Reject marks a pending action as rejected (in-process mode).
func (q *ApprovalQueue) Reject(actionID string) {
	q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- actionResult{approved: approved}:
	default:
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
