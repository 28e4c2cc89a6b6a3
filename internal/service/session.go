package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/dragdrop"
	"emailbuilder/internal/editor"
)

// ─────────────────────────────────────────────────────────────
// Session: one template open in an editor
// ─────────────────────────────────────────────────────────────

// Session owns the editor engine of one template. All engine access goes
// through the session lock, the way a UI event loop serializes handlers.
type Session struct {
	svc  *TemplateService
	id   string
	name string

	mu     sync.Mutex
	engine *editor.Engine
	drag   *dragdrop.Controller
}

func newSession(svc *TemplateService, t *domain.Template) *Session {
	engine := editor.Load(svc.reg, t.Blocks, svc.editorOpts...)
	return &Session{
		svc:    svc,
		id:     t.ID,
		name:   t.Name,
		engine: engine,
		drag:   dragdrop.New(engine, svc.logger.With(zap.String("template_id", t.ID))),
	}
}

// ID is the template id.
func (s *Session) ID() string { return s.id }

// Name is the template name.
func (s *Session) Name() string { return s.name }

// Do runs fn with exclusive access to the engine.
func (s *Session) Do(fn func(e *editor.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Drag runs fn with exclusive access to the drag/drop controller.
func (s *Session) Drag(fn func(c *dragdrop.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.drag)
}

// Blocks returns a copy of the current tree.
func (s *Session) Blocks() []*domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Blocks()
}

// Insert adds a block, emitting block:insert-rejected when the engine
// refuses it.
func (s *Session) Insert(ctx context.Context, typeID string, opts ...editor.PlaceOption) (*domain.Block, error) {
	s.mu.Lock()
	b, err := s.engine.Insert(typeID, opts...)
	s.mu.Unlock()
	if err != nil {
		s.svc.emitter.Emit(ctx, EventInsertRejected, map[string]any{
			"templateId": s.id,
			"type":       typeID,
			"error":      err.Error(),
		})
		return nil, err
	}
	return b, nil
}

// Delete removes a block. Confirmation of important types happens with the
// session unlocked, so reads and saves go on while an approval is pending.
// A block removed in the meantime reports ErrBlockNotFound.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	b, ok := s.engine.Block(id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", editor.ErrBlockNotFound, id)
	}
	if !s.engine.ConfirmDelete(b) {
		return editor.ErrDeleteDeclined
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.DeleteConfirmed(id)
}

// Render returns the send-time HTML for the current tree.
func (s *Session) Render() string {
	return s.svc.Render(s.Blocks())
}

// Saving reports whether a save of this template is in flight.
func (s *Session) Saving() bool {
	return s.svc.guard.Running(s.id)
}

// Save commits pending edits, renders the tree and hands both to the
// persister. The session lock is not held while persisting so editing
// can continue. On failure the tree is left as it was.
func (s *Session) Save(ctx context.Context) error {
	if !s.svc.guard.TryLock(s.id) {
		return ErrSaveInProgress
	}
	defer s.svc.guard.Unlock(s.id)

	s.mu.Lock()
	s.engine.Commit()
	blocks := s.engine.Blocks()
	problems := s.engine.Lint()
	s.mu.Unlock()

	for id, err := range problems {
		s.svc.logger.Warn("saving block with invalid content",
			zap.String("template_id", s.id), zap.String("block_id", id), zap.Error(err))
	}

	html := s.svc.Render(blocks)
	if blocks == nil {
		blocks = []*domain.Block{}
	}
	if err := s.svc.store.SaveTemplate(ctx, s.id, html, blocks); err != nil {
		s.svc.logger.Error("save failed", zap.String("template_id", s.id), zap.Error(err))
		s.svc.emitter.Emit(ctx, EventTemplateSaveFailed, map[string]any{
			"templateId": s.id,
			"error":      err.Error(),
		})
		return fmt.Errorf("save template: %w", err)
	}

	s.svc.logger.Info("template saved", zap.String("template_id", s.id), zap.Int("blocks", len(blocks)))
	s.svc.emitter.Emit(ctx, EventTemplateSaved, map[string]any{
		"templateId": s.id,
		"blocks":     len(blocks),
	})
	return nil
}

// SaveRawHTML stores hand-edited HTML with an empty block tree. The block
// tree cannot be rebuilt from arbitrary HTML, so the session is reset and
// block editing starts over.
func (s *Session) SaveRawHTML(ctx context.Context, html string) error {
	if !s.svc.guard.TryLock(s.id) {
		return ErrSaveInProgress
	}
	defer s.svc.guard.Unlock(s.id)

	if err := s.svc.store.SaveTemplate(ctx, s.id, html, []*domain.Block{}); err != nil {
		s.svc.emitter.Emit(ctx, EventTemplateSaveFailed, map[string]any{
			"templateId": s.id,
			"error":      err.Error(),
			"raw":        true,
		})
		return fmt.Errorf("save raw html: %w", err)
	}

	s.mu.Lock()
	discarded := s.engine.Counts()
	s.engine.Reset()
	s.mu.Unlock()

	total := 0
	for _, n := range discarded {
		total += n
	}
	s.svc.logger.Warn("raw HTML saved; block tree discarded",
		zap.String("template_id", s.id), zap.Int("discarded_blocks", total))
	s.svc.emitter.Emit(ctx, EventTemplateSaved, map[string]any{
		"templateId": s.id,
		"blocks":     0,
		"raw":        true,
	})
	return nil
}
