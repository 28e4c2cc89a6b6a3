package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/editor"
	"emailbuilder/internal/registry"
)

// PicksKey is the content field multi-select pickers fill.
const PicksKey = "products"

// pickTarget resolves the block and its type's pick mapping.
func (s *Session) pickTarget(blockID string) (*domain.Block, *registry.BlockType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.engine.Block(blockID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", editor.ErrBlockNotFound, blockID)
	}
	bt, ok := s.svc.reg.Get(b.Type)
	if !ok || bt.PickKind == "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotPickable, b.Type)
	}
	return b, bt, nil
}

// ApplyPick resolves ref through picker and copies the record fields the
// block type keeps into the block's content as one undoable edit. When the
// picker fails the block keeps its prior content.
func (s *Session) ApplyPick(ctx context.Context, blockID string, picker domain.Picker, ref string) error {
	_, bt, err := s.pickTarget(blockID)
	if err != nil {
		return err
	}

	rec, err := picker.Pick(ctx, ref)
	if err != nil {
		s.pickFailed(ctx, blockID, bt, ref, err)
		return fmt.Errorf("pick %s: %w", bt.PickKind, err)
	}
	if expired, _ := rec["expired"].(bool); expired {
		s.svc.logger.Warn("picked discount has expired",
			zap.String("template_id", s.id), zap.String("ref", ref))
	}

	return s.commitContent(blockID, func(c domain.Content) {
		for src, dst := range bt.PickFields {
			if v, ok := rec[src]; ok {
				c[dst] = v
			}
		}
	})
}

// ApplyPicks resolves every ref for multi-select blocks such as the product
// grid and replaces the picked list. Nothing changes if any pick fails.
func (s *Session) ApplyPicks(ctx context.Context, blockID string, picker domain.Picker, refs []string) error {
	_, bt, err := s.pickTarget(blockID)
	if err != nil {
		return err
	}

	picked := make([]any, 0, len(refs))
	for _, ref := range refs {
		rec, err := picker.Pick(ctx, ref)
		if err != nil {
			s.pickFailed(ctx, blockID, bt, ref, err)
			return fmt.Errorf("pick %s %q: %w", bt.PickKind, ref, err)
		}
		item := map[string]any{}
		for src, dst := range bt.PickFields {
			if v, ok := rec[src]; ok {
				item[dst] = v
			}
		}
		picked = append(picked, item)
	}

	return s.commitContent(blockID, func(c domain.Content) {
		c[PicksKey] = picked
	})
}

// commitContent applies fn to a copy of the block's current content and
// records it as its own history entry.
func (s *Session) commitContent(blockID string, fn func(c domain.Content)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.engine.Block(blockID)
	if !ok {
		return fmt.Errorf("%w: %s", editor.ErrBlockNotFound, blockID)
	}
	c := b.Content.Clone()
	if c == nil {
		c = domain.Content{}
	}
	fn(c)
	s.engine.Commit()
	if err := s.engine.UpdateContent(blockID, c); err != nil {
		return err
	}
	s.engine.Commit()
	return nil
}

func (s *Session) pickFailed(ctx context.Context, blockID string, bt *registry.BlockType, ref string, err error) {
	s.svc.logger.Warn("picker failed",
		zap.String("template_id", s.id),
		zap.String("block_id", blockID),
		zap.String("kind", string(bt.PickKind)),
		zap.String("ref", ref),
		zap.Error(err))
	s.svc.emitter.Emit(ctx, EventPickerFailed, map[string]any{
		"templateId": s.id,
		"blockId":    blockID,
		"kind":       string(bt.PickKind),
		"ref":        ref,
		"error":      err.Error(),
	})
}
