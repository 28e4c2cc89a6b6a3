// Package service hosts editor sessions over saved templates: it loads a
// template into an editor engine, serializes saves through the persister,
// applies picker records to blocks and prunes revisions.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"emailbuilder/internal/domain"
	"emailbuilder/internal/editor"
	"emailbuilder/internal/registry"
	"emailbuilder/internal/render"
)

var (
	ErrSaveInProgress = errors.New("save already in progress")
	ErrNotPickable    = errors.New("block type has no picker")
	ErrEmptyName      = errors.New("template name is required")
)

// BrandingSource yields the branding snapshot used at render time.
type BrandingSource interface {
	Branding() domain.Branding
}

// BrandingFunc adapts a function to BrandingSource.
type BrandingFunc func() domain.Branding

func (f BrandingFunc) Branding() domain.Branding { return f() }

// StaticBranding is a fixed BrandingSource.
type StaticBranding domain.Branding

func (b StaticBranding) Branding() domain.Branding { return domain.Branding(b) }

// ─────────────────────────────────────────────────────────────
// TemplateService
// ─────────────────────────────────────────────────────────────

// TemplateService manages templates and the live editing sessions over them.
type TemplateService struct {
	store    domain.TemplateStore
	reg      *registry.Registry
	renderer *render.Renderer
	branding BrandingSource
	emitter  EventEmitter
	logger   *zap.Logger

	editorOpts []editor.Option
	guard      runningGuard

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option configures a TemplateService.
type Option func(*TemplateService)

func WithLogger(l *zap.Logger) Option {
	return func(s *TemplateService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithEmitter(e EventEmitter) Option {
	return func(s *TemplateService) {
		if e != nil {
			s.emitter = e
		}
	}
}

func WithRenderer(r *render.Renderer) Option {
	return func(s *TemplateService) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithEditorOptions are applied to every engine the service creates.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(s *TemplateService) { s.editorOpts = append(s.editorOpts, opts...) }
}

// NewTemplateService creates the service. branding may be nil, in which
// case an empty snapshot is rendered.
func NewTemplateService(store domain.TemplateStore, reg *registry.Registry, branding BrandingSource, opts ...Option) *TemplateService {
	if branding == nil {
		branding = StaticBranding{}
	}
	s := &TemplateService{
		store:    store,
		reg:      reg,
		renderer: render.New(),
		branding: branding,
		emitter:  LogEmitter{},
		logger:   zap.NewNop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if le, ok := s.emitter.(LogEmitter); ok && le.Logger == nil {
		s.emitter = LogEmitter{Logger: s.logger}
	}
	return s
}

// Registry returns the block registry sessions are built on.
func (s *TemplateService) Registry() *registry.Registry { return s.reg }

// Branding returns the current branding snapshot.
func (s *TemplateService) Branding() domain.Branding { return s.branding.Branding() }

// Create stores a new empty template and opens a session on it.
func (s *TemplateService) Create(ctx context.Context, name string) (*Session, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	now := time.Now().UTC()
	t := &domain.Template{
		ID:        uuid.NewString(),
		Name:      name,
		HTML:      s.renderer.Render(nil, s.branding.Branding()),
		Blocks:    []*domain.Block{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	s.logger.Info("template created", zap.String("template_id", t.ID), zap.String("name", name))
	return s.open(t), nil
}

// Open returns the live session for id, loading the template if needed.
func (s *TemplateService) Open(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	return s.open(t), nil
}

func (s *TemplateService) open(t *domain.Template) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[t.ID]; ok {
		return sess
	}
	sess := newSession(s, t)
	s.sessions[t.ID] = sess
	s.logger.Debug("session opened",
		zap.String("template_id", t.ID),
		zap.String("outline", domain.Outline(t.Blocks)))
	return sess
}

// Session returns an already open session.
func (s *TemplateService) Session(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Sessions lists the ids of open sessions in sorted order.
func (s *TemplateService) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseSession discards the in-memory session; unsaved edits are lost.
func (s *TemplateService) CloseSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// List returns saved templates.
func (s *TemplateService) List(ctx context.Context) ([]domain.Template, error) {
	return s.store.ListTemplates(ctx)
}

// Delete removes a template and closes its session.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	s.CloseSession(id)
	return nil
}

// Render renders blocks with the current branding.
func (s *TemplateService) Render(blocks []*domain.Block) string {
	return s.renderer.Render(blocks, s.branding.Branding())
}

// WaitSaves blocks until in-flight saves finish or ctx is done.
func (s *TemplateService) WaitSaves(ctx context.Context) {
	s.guard.WaitAll(ctx)
}
