// Package sqlite implements promotion.Store on SQLite, used for local
// development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/glowmart/promogen/internal/promotion"
)

// ensure sqliteStore implements promotion.Store
var _ promotion.Store = (*sqliteStore)(nil)

type sqliteStore struct {
	db *sql.DB
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
	detail_image_urls TEXT,
	products TEXT,
	trend_keywords TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const columns = `id, plndp_no, country_code, category, title, description, theme,
	hero_banner_image_url, detail_image_urls, products, trend_keywords,
	created_at, updated_at`

// New creates a SQLite-backed promotion.Store.
func New(dsn string) (promotion.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Save(ctx context.Context, rec *promotion.Record) (*promotion.Record, error) {
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
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		saved.ID,
		saved.PlanNo,
		saved.CountryCode,
		saved.Category,
		saved.Title,
		saved.Description,
		saved.Theme,
		saved.HeroBannerURL,
		string(detailsJSON),
		string(productsJSON),
		string(keywordsJSON),
		saved.CreatedAt,
		saved.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert promotion: %w", err)
	}

	return &saved, nil
}

func (s *sqliteStore) ByCountry(ctx context.Context, countryCode string) ([]*promotion.Record, error) {
	query := `SELECT ` + columns + ` FROM promotions WHERE country_code = ? ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, countryCode)
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

func (s *sqliteStore) LatestByCountry(ctx context.Context, countryCode string) (*promotion.Record, error) {
	query := `SELECT ` + columns + ` FROM promotions WHERE country_code = ? ORDER BY created_at DESC LIMIT 1`
	return s.queryOne(ctx, query, countryCode)
}

func (s *sqliteStore) ByPlanNo(ctx context.Context, planNo string) (*promotion.Record, error) {
	query := `SELECT ` + columns + ` FROM promotions WHERE plndp_no = ?`
	return s.queryOne(ctx, query, planNo)
}

func (s *sqliteStore) queryOne(ctx context.Context, query string, arg any) (*promotion.Record, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, promotion.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*promotion.Record, error) {
	var (
		rec          promotion.Record
		detailsJSON  string
		productsJSON string
		keywordsJSON string
	)
	err := row.Scan(
		&rec.ID, &rec.PlanNo, &rec.CountryCode, &rec.Category, &rec.Title,
		&rec.Description, &rec.Theme, &rec.HeroBannerURL, &detailsJSON,
		&productsJSON, &keywordsJSON, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
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

func decodeJSON(data string, dst any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
