package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prestige-scraper/pkg/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS product_urls (
	url TEXT PRIMARY KEY,
	discovered_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS product_details (
	url TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	product_code TEXT NOT NULL DEFAULT '',
	price_retail REAL,
	price_medium REAL,
	price_large REAL,
	currency TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	rating REAL,
	availability TEXT NOT NULL DEFAULT '',
	delivery_info TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL,
	last_updated DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS scrape_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	kind TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	attempts INTEGER NOT NULL DEFAULT 0,
	occurred_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrape_errors_url ON scrape_errors (url);
`

// maxErrorMessage bounds stored failure messages.
const maxErrorMessage = 500

// Store persists discovered product URLs, their latest details and per-URL
// failures in a sqlite file. It holds a single connection: the scraper is
// the only writer.
type Store struct {
	db *sql.DB

	// Now stamps discovery and update times. Tests replace it.
	Now func() time.Time
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 10000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema in %s: %w", dbPath, err)
	}

	return &Store{db: db, Now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

// UpsertProductURL records a discovered URL. It reports whether the URL was
// new; an already known URL is left untouched.
func (s *Store) UpsertProductURL(ctx context.Context, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO product_urls (url, discovered_at) VALUES (?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		url, s.now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to record url %s: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// StoredHash returns the content hash of the last written detail for url.
// ok is false when the URL has never been scraped successfully.
func (s *Store) StoredHash(ctx context.Context, url string) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM product_details WHERE url = ?`, url,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read hash for %s: %w", url, err)
	}
	return hash, true, nil
}

// UpsertDetail replaces the detail row for url in one transaction. The URL
// row is created too if discovery never recorded it.
func (s *Store) UpsertDetail(ctx context.Context, url string, f models.Fields, hash string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", url, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO product_urls (url, discovered_at) VALUES (?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		url, now,
	); err != nil {
		return fmt.Errorf("failed to record url %s: %w", url, err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO product_details (
			url, name, description, sku, product_code,
			price_retail, price_medium, price_large, currency,
			image_url, rating, availability, delivery_info,
			content_hash, last_updated
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			sku = excluded.sku,
			product_code = excluded.product_code,
			price_retail = excluded.price_retail,
			price_medium = excluded.price_medium,
			price_large = excluded.price_large,
			currency = excluded.currency,
			image_url = excluded.image_url,
			rating = excluded.rating,
			availability = excluded.availability,
			delivery_info = excluded.delivery_info,
			content_hash = excluded.content_hash,
			last_updated = excluded.last_updated`,
		url, f.Name, f.Description, f.SKU, f.ProductCode,
		nullFloat(f.PriceRetail), nullFloat(f.PriceMedium), nullFloat(f.PriceLarge), f.Currency,
		f.ImageURL, nullFloat(f.Rating), f.Availability, f.DeliveryInfo,
		hash, now,
	); err != nil {
		return fmt.Errorf("failed to write detail for %s: %w", url, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit detail for %s: %w", url, err)
	}
	return nil
}

const detailColumns = `d.url, d.name, d.description, d.sku, d.product_code,
	d.price_retail, d.price_medium, d.price_large, d.currency,
	d.image_url, d.rating, d.availability, d.delivery_info,
	d.content_hash, d.last_updated`

// GetDetail returns the stored detail for url or models.ErrProductNotFound.
func (s *Store) GetDetail(ctx context.Context, url string) (*models.ProductDetail, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+detailColumns+` FROM product_details d WHERE d.url = ?`, url)

	var d models.ProductDetail
	var retail, medium, large, rating sql.NullFloat64
	err := row.Scan(
		&d.URL, &d.Fields.Name, &d.Fields.Description, &d.Fields.SKU, &d.Fields.ProductCode,
		&retail, &medium, &large, &d.Fields.Currency,
		&d.Fields.ImageURL, &rating, &d.Fields.Availability, &d.Fields.DeliveryInfo,
		&d.ContentHash, &d.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to read detail for %s: %w", url, err)
	}
	d.Fields.PriceRetail = floatPtr(retail)
	d.Fields.PriceMedium = floatPtr(medium)
	d.Fields.PriceLarge = floatPtr(large)
	d.Fields.Rating = floatPtr(rating)
	return &d, nil
}

// ListProducts returns every discovered URL in discovery order, joined with
// its detail when one has been written.
func (s *Store) ListProducts(ctx context.Context) ([]models.ProductRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT u.url, u.discovered_at,
       d.url, d.name, d.description, d.sku, d.product_code,
       d.price_retail, d.price_medium, d.price_large, d.currency,
       d.image_url, d.rating, d.availability, d.delivery_info,
       d.content_hash, d.last_updated
FROM product_urls u
LEFT JOIN product_details d ON d.url = u.url
ORDER BY u.rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []models.ProductRecord
	for rows.Next() {
		var rec models.ProductRecord
		var (
			detailURL, name, description, sku, code, currency sql.NullString
			image, availability, delivery, hash               sql.NullString
			retail, medium, large, rating                     sql.NullFloat64
			lastUpdated                                       sql.NullTime
		)
		if err := rows.Scan(
			&rec.URL, &rec.DiscoveredAt,
			&detailURL, &name, &description, &sku, &code,
			&retail, &medium, &large, &currency,
			&image, &rating, &availability, &delivery,
			&hash, &lastUpdated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		if detailURL.Valid {
			rec.Detail = &models.ProductDetail{
				URL: detailURL.String,
				Fields: models.Fields{
					Name:         name.String,
					Description:  description.String,
					SKU:          sku.String,
					ProductCode:  code.String,
					PriceRetail:  floatPtr(retail),
					PriceMedium:  floatPtr(medium),
					PriceLarge:   floatPtr(large),
					Currency:     currency.String,
					ImageURL:     image.String,
					Rating:       floatPtr(rating),
					Availability: availability.String,
					DeliveryInfo: delivery.String,
				},
				ContentHash: hash.String,
				LastUpdated: lastUpdated.Time,
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
