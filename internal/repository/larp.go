package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larpforge/storyai/internal/domain"
)

type LARPRepository struct {
	db dbtx
}

func NewLARPRepository(pool *pgxpool.Pool) *LARPRepository {
	return &LARPRepository{db: pool}
}

func (r *LARPRepository) Create(ctx context.Context, l *domain.LARP) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO larps (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`,
		l.ID, l.Name, nullableString(l.Slug), l.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrLARPAlreadyExists
		}
		return err
	}
	return nil
}

func (r *LARPRepository) GetByID(ctx context.Context, id string) (*domain.LARP, error) {
	var l domain.LARP
	var slug *string
	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM larps WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.Name, &slug, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLARPNotFound
		}
		return nil, err
	}
	if slug != nil {
		l.Slug = *slug
	}
	return &l, nil
}

func (r *LARPRepository) List(ctx context.Context) ([]*domain.LARP, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, slug, created_at FROM larps ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.LARP
	for rows.Next() {
		var l domain.LARP
		var slug *string
		if err := rows.Scan(&l.ID, &l.Name, &slug, &l.CreatedAt); err != nil {
			return nil, err
		}
		if slug != nil {
			l.Slug = *slug
		}
		results = append(results, &l)
	}
	return results, rows.Err()
}
