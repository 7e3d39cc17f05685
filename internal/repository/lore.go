package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larpforge/storyai/internal/domain"
	"github.com/larpforge/storyai/internal/pagination"
	"github.com/larpforge/storyai/internal/service"
)

// LoreDocumentRepository persists lore documents.
type LoreDocumentRepository struct {
	db dbtx
}

func NewLoreDocumentRepository(pool *pgxpool.Pool) *LoreDocumentRepository {
	return &LoreDocumentRepository{db: pool}
}

func (r *LoreDocumentRepository) Create(ctx context.Context, d *domain.LoreDocument) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO lore_documents
			(id, larp_id, title, body, category, priority, always_include, active, tags, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.LARPID, d.Title, d.Body, nullableString(d.Category),
		d.Priority, d.AlwaysInclude, d.Active, d.Tags, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

func (r *LoreDocumentRepository) GetByID(ctx context.Context, id string) (*domain.LoreDocument, error) {
	var d domain.LoreDocument
	var category *string
	err := r.db.QueryRow(ctx,
		`SELECT id, larp_id, title, body, category, priority, always_include, active, tags, created_at, updated_at
		 FROM lore_documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.LARPID, &d.Title, &d.Body, &category, &d.Priority,
		&d.AlwaysInclude, &d.Active, &d.Tags, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoreDocumentNotFound
		}
		return nil, err
	}
	if category != nil {
		d.Category = *category
	}
	return &d, nil
}

func (r *LoreDocumentRepository) Update(ctx context.Context, d *domain.LoreDocument) error {
	d.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE lore_documents
		 SET title = $1, body = $2, category = $3, priority = $4,
		     always_include = $5, active = $6, tags = $7, updated_at = $8
		 WHERE id = $9`,
		d.Title, d.Body, nullableString(d.Category), d.Priority,
		d.AlwaysInclude, d.Active, d.Tags, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLoreDocumentNotFound
	}
	return nil
}

// Delete removes a document; chunk rows cascade via foreign key.
func (r *LoreDocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM lore_documents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrLoreDocumentNotFound
	}
	return nil
}

func (r *LoreDocumentRepository) ListByLARPWithCursor(ctx context.Context, larpID string, cursor *pagination.Cursor, limit int) (*service.LorePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, larp_id, title, body, category, priority, always_include, active, tags, created_at, updated_at
			 FROM lore_documents
			 WHERE larp_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			larpID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, larp_id, title, body, category, priority, always_include, active, tags, created_at, updated_at
			 FROM lore_documents
			 WHERE larp_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			larpID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanLoreDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &service.LorePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListAlwaysInclude returns the active always-include documents of one LARP
// projected as retrieval results. They carry full similarity since they are
// pinned rather than scored.
func (r *LoreDocumentRepository) ListAlwaysInclude(ctx context.Context, larpID string) ([]*domain.RetrievalResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, larp_id, title, body, priority
		 FROM lore_documents
		 WHERE larp_id = $1 AND always_include AND active
		 ORDER BY priority DESC, title ASC`,
		larpID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.RetrievalResult
	for rows.Next() {
		var res domain.RetrievalResult
		if err := rows.Scan(&res.ID, &res.LARPID, &res.Title, &res.Content, &res.Priority); err != nil {
			return nil, err
		}
		res.Kind = domain.UnitKindLore
		res.TypeLabel = "lore"
		res.DocumentID = res.ID
		res.Preview = service.MakeSnippet(res.Content)
		res.Similarity = 1
		res.AlwaysInclude = true
		results = append(results, &res)
	}
	return results, rows.Err()
}

func scanLoreDocumentRows(rows pgx.Rows) ([]*domain.LoreDocument, error) {
	var results []*domain.LoreDocument
	for rows.Next() {
		var d domain.LoreDocument
		var category *string
		if err := rows.Scan(&d.ID, &d.LARPID, &d.Title, &d.Body, &category, &d.Priority,
			&d.AlwaysInclude, &d.Active, &d.Tags, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if category != nil {
			d.Category = *category
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}
