// Package postgres implements promotion.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowmart/promogen/internal/promotion"
)

// ensure pgStore implements promotion.Store
var _ promotion.Store = (*pgStore)(nil)

type pgStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS promotions (
	id TEXT PRIMARY KEY,
	plndp_no TEXT NOT NULL UNIQUE,
	country_code TEXT NOT NULL,
	category TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	theme TEXT,
	hero_banner_image_url TEXT NOT NULL,
	detail_image_urls JSONB,
	products JSONB,
	trend_keywords JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_promotions_country_created
	ON promotions (country_code, created_at DESC);
`

const columns = `id, plndp_no, country_code, category, title, description, theme,
	hero_banner_image_url, detail_image_urls, products, trend_keywords,
	created_at, updated_at`

// New creates a PostgreSQL-backed promotion.Store.
func New(ctx context.Context, dsn string) (promotion.Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &pgStore{pool: pool}, nil
}

func (s *pgStore) Save(ctx context.Context, rec *promotion.Record) (*promotion.Record, error) {
	saved := *rec
	saved.ID = uuid.New().String()
	now := time.Now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now

	detailsJSON, err := json.Marshal(saved.DetailImageURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode detail urls: %w", err)
	}
	productsJSON, err := json.Marshal(saved.Products)
	if err != nil {
		return nil, fmt.Errorf("failed to encode products: %w", err)
	}
	keywordsJSON, err := json.Marshal(saved.TrendKeywords)
	if err != nil {
		return nil, fmt.Errorf("failed to encode keywords: %w", err)
	}

	query := `
	INSERT INTO promotions (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.pool.Exec(ctx, query,
		saved.ID,
		saved.PlanNo,
		saved.CountryCode,
		saved.Category,
		saved.Title,
		saved.Description,
		saved.Theme,
		saved.HeroBannerURL,
		detailsJSON,
		productsJSON,
		keywordsJSON,
		saved.CreatedAt,
		saved.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert promotion: %w", err)
	}

	return &saved, nil
}

func (s *pgStore) ByCountry(ctx context.Context, countryCode string) ([]*promotion.Record, error) {
	query := `SELECT ` + columns + ` FROM promotions WHERE country_code = $1 ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, countryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query promotions: %w", err)
	}
	defer rows.Close()

	var records []*promotion.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate promotions: %w", err)
	}
	return records, nil
}

func (s *pgStore) LatestByCountry(ctx context.Context, countryCode string) (*promotion.Record, error) {
	query := `SELECT ` + columns + ` FROM promotions WHERE country_code = $1 ORDER BY created_at DESC LIMIT 1`
	return s.queryOne(ctx, query, countryCode)
}

func (s *pgStore) ByPlanNo(ctx context.Context, planNo string) (*promotion.Record, error) {
	query := `SELECT ` + columns + ` FROM promotions WHERE plndp_no = $1`
	return s.queryOne(ctx, query, planNo)
}

func (s *pgStore) queryOne(ctx context.Context, query string, arg any) (*promotion.Record, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query promotion: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read promotion: %w", err)
		}
		return nil, promotion.ErrNotFound
	}
	return scanRecord(rows)
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(rows pgx.Rows) (*promotion.Record, error) {
	var (
		rec          promotion.Record
		detailsJSON  []byte
		productsJSON []byte
		keywordsJSON []byte
	)
	err := rows.Scan(
		&rec.ID, &rec.PlanNo, &rec.CountryCode, &rec.Category, &rec.Title,
		&rec.Description, &rec.Theme, &rec.HeroBannerURL, &detailsJSON,
		&productsJSON, &keywordsJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan promotion: %w", err)
	}

	if err := decodeJSON(detailsJSON, &rec.DetailImageURLs); err != nil {
		return nil, err
	}
	if err := decodeJSON(productsJSON, &rec.Products); err != nil {
		return nil, err
	}
	if err := decodeJSON(keywordsJSON, &rec.TrendKeywords); err != nil {
		return nil, err
	}
	return &rec, nil
}

func decodeJSON(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
