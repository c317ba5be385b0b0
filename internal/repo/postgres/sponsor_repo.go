package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valentina-app/backend/internal/domain/model"
)

type SponsorRepo struct {
	pool *pgxpool.Pool
}

func NewSponsorRepo(pool *pgxpool.Pool) *SponsorRepo {
	return &SponsorRepo{pool: pool}
}

func (r *SponsorRepo) Create(ctx context.Context, s model.Sponsor) (model.Sponsor, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Sponsor{}, err
	}

	created, err := scanSponsor(q.QueryRow(ctx, `
INSERT INTO sponsors (id, name, link, logo_url, logo_key, created_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
RETURNING id::text, name, link, logo_url, logo_key, created_at
`, s.ID, s.Name, s.Link, s.LogoURL, s.LogoKey, s.CreatedAt))
	if err != nil {
		return model.Sponsor{}, fmt.Errorf("insert sponsor: %w", err)
	}
	return created, nil
}

func (r *SponsorRepo) List(ctx context.Context) ([]model.Sponsor, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
SELECT id::text, name, link, logo_url, logo_key, created_at
FROM sponsors
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("list sponsors: %w", err)
	}
	defer rows.Close()

	items := make([]model.Sponsor, 0, 8)
	for rows.Next() {
		s, err := scanSponsor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sponsor: %w", err)
		}
		items = append(items, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate sponsors: %w", rows.Err())
	}
	return items, nil
}

func (r *SponsorRepo) SetLogo(ctx context.Context, id, key, url string) (model.Sponsor, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return model.Sponsor{}, err
	}

	s, err := scanSponsor(q.QueryRow(ctx, `
UPDATE sponsors
SET logo_key = $2, logo_url = $3
WHERE id = $1::uuid
RETURNING id::text, name, link, logo_url, logo_key, created_at
`, id, key, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Sponsor{}, ErrNotFound
		}
		return model.Sponsor{}, fmt.Errorf("set sponsor logo: %w", err)
	}
	return s, nil
}

func (r *SponsorRepo) Delete(ctx context.Context, id string) (bool, error) {
	q, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}

	res, err := q.Exec(ctx, `DELETE FROM sponsors WHERE id = $1::uuid`, id)
	if err != nil {
		return false, fmt.Errorf("delete sponsor: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

func scanSponsor(row pgx.Row) (model.Sponsor, error) {
	var s model.Sponsor
	if err := row.Scan(&s.ID, &s.Name, &s.Link, &s.LogoURL, &s.LogoKey, &s.CreatedAt); err != nil {
		return model.Sponsor{}, err
	}
	return s, nil
}
