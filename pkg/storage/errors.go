package storage

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"prestige-scraper/pkg/models"
)

// RecordError appends a per-URL failure to the scrape_errors log.
func (s *Store) RecordError(ctx context.Context, e models.ScrapeError) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	msg := truncate(e.Message, maxErrorMessage)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_errors (run_id, url, kind, message, attempts, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.URL, e.Kind, msg, e.Attempts, e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record error for %s: %w", e.URL, err)
	}
	return nil
}

// ListErrors returns the most recent failures first. limit <= 0 means all.
func (s *Store) ListErrors(ctx context.Context, limit int) ([]models.ScrapeError, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, url, kind, message, attempts, occurred_at
		 FROM scrape_errors ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list errors: %w", err)
	}
	defer rows.Close()

	var out []models.ScrapeError
	for rows.Next() {
		var e models.ScrapeError
		if err := rows.Scan(&e.ID, &e.RunID, &e.URL, &e.Kind, &e.Message, &e.Attempts, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan error row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats summarises the store. Activity counters cover everything at or
// after since.
func (s *Store) Stats(ctx context.Context, since time.Time) (*models.Stats, error) {
	st := &models.Stats{ErrorsByKind: make(map[string]int64)}
	since = since.UTC()

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&st.TotalURLs, `SELECT COUNT(*) FROM product_urls`, nil},
		{&st.TotalDetails, `SELECT COUNT(*) FROM product_details`, nil},
		{&st.PendingURLs, `SELECT COUNT(*) FROM product_urls u
			WHERE NOT EXISTS (SELECT 1 FROM product_details d WHERE d.url = u.url)`, nil},
		{&st.TotalErrors, `SELECT COUNT(*) FROM scrape_errors`, nil},
		{&st.RecentlyUpdated, `SELECT COUNT(*) FROM product_details WHERE last_updated >= ?`, []any{since}},
		{&st.RecentlyDiscovered, `SELECT COUNT(*) FROM product_urls WHERE discovered_at >= ?`, []any{since}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM scrape_errors GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute error breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		st.ErrorsByKind[kind] = n
	}
	return st, rows.Err()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
