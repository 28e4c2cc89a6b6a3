package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"emailbuilder/internal/domain"
)

// TemplateStore implements domain.TemplateStore using SQLite.
// Every SaveTemplate also records a revision.
type TemplateStore struct {
	db *DB
}

var _ domain.TemplateStore = (*TemplateStore)(nil)

func NewTemplateStore(db *DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// encodeBlocks always yields a JSON array; an empty tree is "[]".
func encodeBlocks(blocks []*domain.Block) (string, error) {
	if blocks == nil {
		blocks = []*domain.Block{}
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("encode blocks: %w", err)
	}
	return string(data), nil
}

// DecodeBlocks parses a stored block tree.
func DecodeBlocks(data string) ([]*domain.Block, error) {
	blocks := []*domain.Block{}
	if data == "" {
		return blocks, nil
	}
	if err := json.Unmarshal([]byte(data), &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return blocks, nil
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	blocksJSON, err := encodeBlocks(t.Blocks)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO templates (id, name, html, blocks_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.HTML, blocksJSON, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (s *TemplateStore) GetTemplate(ctx context.Context, id string) (*domain.Template, error) {
	t := &domain.Template{}
	var blocksJSON string
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, name, html, blocks_json, created_at, updated_at FROM templates WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.HTML, &blocksJSON, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if t.Blocks, err = DecodeBlocks(blocksJSON); err != nil {
		return nil, fmt.Errorf("get template %s: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns templates without their HTML and blocks, newest first.
func (s *TemplateStore) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM templates ORDER BY updated_at DESC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		var t domain.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TemplateStore) DeleteTemplate(ctx context.Context, id string) error {
	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM template_revisions WHERE template_id = ?`, id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete template %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// SaveTemplate stores html and the block tree it came from and appends a
// revision, atomically.
func (s *TemplateStore) SaveTemplate(ctx context.Context, id, html string, blocks []*domain.Block) error {
	blocksJSON, err := encodeBlocks(blocks)
	if err != nil {
		return err
	}

	tx, err := s.db.Conn().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE templates SET html = ?, blocks_json = ?, updated_at = ? WHERE id = ?`,
		html, blocksJSON, now, id,
	)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save template %s: %w", id, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO template_revisions (id, template_id, html, blocks_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), id, html, blocksJSON, now,
	); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return tx.Commit()
}
