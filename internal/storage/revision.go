package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"emailbuilder/internal/domain"
)

// DefaultRevisionLimit is how many revisions per template survive a prune.
const DefaultRevisionLimit = 40

// RevisionStore reads and prunes the revisions written by TemplateStore.
type RevisionStore struct {
	db *DB
}

func NewRevisionStore(db *DB) *RevisionStore {
	return &RevisionStore{db: db}
}

// List returns a template's revisions, newest first.
func (s *RevisionStore) List(ctx context.Context, templateID string) ([]domain.Revision, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, template_id, html, blocks_json, created_at
		 FROM template_revisions WHERE template_id = ? ORDER BY created_at DESC, rowid DESC`, templateID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Revision
	for rows.Next() {
		var r domain.Revision
		if err := rows.Scan(&r.ID, &r.TemplateID, &r.HTML, &r.BlocksJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *RevisionStore) Get(ctx context.Context, id string) (*domain.Revision, error) {
	r := &domain.Revision{}
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, template_id, html, blocks_json, created_at FROM template_revisions WHERE id = ?`, id,
	).Scan(&r.ID, &r.TemplateID, &r.HTML, &r.BlocksJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get revision %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return r, nil
}

// Prune keeps the newest keep revisions of every template and reports how
// many were removed. keep <= 0 uses DefaultRevisionLimit.
func (s *RevisionStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultRevisionLimit
	}
	res, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM template_revisions WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY template_id ORDER BY created_at DESC, rowid DESC
				) AS rn FROM template_revisions
			) WHERE rn > ?
		)`, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
