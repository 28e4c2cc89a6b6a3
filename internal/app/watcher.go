package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"emailbuilder/internal/service"
	"emailbuilder/internal/storage"
)

// Events reported by Watch.
const (
	EventApprovalRequired = "mcp:approval-required"
	EventTemplatesChanged = "templates:changed"
)

// watcher polls the database for changes made by another process, such as
// a serve-mcp session, and reports each change once.
type watcher struct {
	templates *storage.TemplateStore
	approvals *storage.ApprovalStore
	emitter   service.EventEmitter
	logger    *zap.Logger

	lastTemplates string
	seen          map[string]bool
}

// Watch polls every interval until ctx is done. Pending approvals are
// reported once each; template saves, creations and deletions are reported
// as a single changed event per poll.
func (a *App) Watch(ctx context.Context, interval time.Duration, emitter service.EventEmitter) error {
	w := &watcher{
		templates: a.templates,
		approvals: a.approvals,
		emitter:   emitter,
		logger:    a.logger.Named("watch"),
		seen:      make(map[string]bool),
	}
	// The first poll sets the baseline without reporting template changes.
	w.poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *watcher) poll(ctx context.Context) {
	if err := w.checkTemplates(ctx); err != nil {
		w.logger.Warn("poll templates", zap.Error(err))
	}
	if err := w.checkApprovals(ctx); err != nil {
		w.logger.Warn("poll approvals", zap.Error(err))
	}
}

func (w *watcher) checkTemplates(ctx context.Context) error {
	list, err := w.templates.ListTemplates(ctx)
	if err != nil {
		return err
	}
	var newest time.Time
	for _, t := range list {
		if t.UpdatedAt.After(newest) {
			newest = t.UpdatedAt
		}
	}
	fingerprint := fmt.Sprintf("%d:%d", len(list), newest.UnixNano())

	changed := w.lastTemplates != "" && w.lastTemplates != fingerprint
	w.lastTemplates = fingerprint
	if changed {
		w.emitter.Emit(ctx, EventTemplatesChanged, map[string]any{"count": len(list)})
	}
	return nil
}

func (w *watcher) checkApprovals(ctx context.Context) error {
	pending, err := w.approvals.Pending(ctx)
	if err != nil {
		return err
	}
	still := make(map[string]bool, len(pending))
	for _, p := range pending {
		still[p.ID] = true
		if w.seen[p.ID] {
			continue
		}
		w.seen[p.ID] = true
		w.emitter.Emit(ctx, EventApprovalRequired, p)
	}
	// Resolved or deleted approvals drop out of tracking.
	for id := range w.seen {
		if !still[id] {
			delete(w.seen, id)
		}
	}
	return nil
}
