package domain

import (
	"context"
	"time"
)

// Branding is the read-only store snapshot the renderer consumes.
type Branding struct {
	StoreName    string `json:"storeName" yaml:"store_name" toml:"store_name" validate:"required"`
	Address      string `json:"address" yaml:"address" toml:"address"`
	LogoURL      string `json:"logoUrl" yaml:"logo_url" toml:"logo_url" validate:"omitempty,url"`
	PrimaryColor string `json:"primaryColor" yaml:"primary_color" toml:"primary_color" validate:"omitempty,hexcolor"`
}

// Template is a saved email template: the rendered HTML plus the block tree
// it was compiled from. Blocks is empty when the HTML was edited by hand.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HTML      string    `json:"html"`
	Blocks    []*Block  `json:"blocks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Persister is the save collaborator handed (html, blocks) by an editor session.
type Persister interface {
	SaveTemplate(ctx context.Context, id, html string, blocks []*Block) error
}

// TemplateStore manages saved templates.
type TemplateStore interface {
	Persister
	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// Revision is a point-in-time copy of a saved template.
type Revision struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"templateId"`
	HTML       string    `json:"html"`
	BlocksJSON string    `json:"blocksJson"`
	CreatedAt  time.Time `json:"createdAt"`
}
