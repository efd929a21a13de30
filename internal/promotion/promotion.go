// Package promotion defines the persisted promotion record and the Store
// contract its backends implement.
package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = errors.New("promotion not found")

// Product is one entry of a promotion's structured product list. Only the
// catalog id is guaranteed; the storefront enriches the rest later.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Category      string  `json:"category,omitempty"`
	Price         float64 `json:"price,omitempty"`
	DiscountPrice float64 `json:"discount_price,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
}

// Record is a generated promotion. The pipeline assembles it once per run and
// never mutates it afterwards; Save assigns ID and the timestamps.
type Record struct {
	ID              string    `json:"id"`
	PlanNo          string    `json:"plndp_no"`
	CountryCode     string    `json:"country_code"`
	Category        string    `json:"category"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Theme           string    `json:"theme,omitempty"`
	HeroBannerURL   string    `json:"hero_banner_image_url"`
	DetailImageURLs []string  `json:"detail_image_urls,omitempty"`
	Products        []Product `json:"products,omitempty"`
	TrendKeywords   []string  `json:"trend_keywords,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewPlanNo derives the human-referenceable plan number from the country code
// and generation time. The country code is part of the identifier so two
// records generated in the same millisecond for different countries cannot
// collide.
func NewPlanNo(countryCode string, at time.Time) string {
	return fmt.Sprintf("PLNDP-%s-%d", countryCode, at.UnixMilli())
}

// Store persists and queries promotion records.
type Store interface {
	// Save stores a record without an identifier and returns the same record
	// with ID and timestamps assigned. Constraint violations and size limits
	// surface as errors.
	Save(ctx context.Context, rec *Record) (*Record, error)
	// ByCountry lists records for a country, newest first.
	ByCountry(ctx context.Context, countryCode string) ([]*Record, error)
	// LatestByCountry returns the most recent record for a country.
	LatestByCountry(ctx context.Context, countryCode string) (*Record, error)
	// ByPlanNo returns the record with the given plan number.
	ByPlanNo(ctx context.Context, planNo string) (*Record, error)
	Close() error
}
