package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"prestige-scraper/pkg/models"
)

var header = []string{
	"url", "discovered_at",
	"name", "description", "sku", "product_code",
	"price_retail", "price_medium", "price_large", "currency",
	"image_url", "rating", "availability", "delivery_info",
	"content_hash", "last_updated",
}

// WriteCSV writes one row per discovered URL. Detail columns are empty for
// URLs that have not been scraped successfully.
func WriteCSV(w io.Writer, records []models.ProductRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		row := make([]string, 0, len(header))
		row = append(row, r.URL, timestamp(r.DiscoveredAt))
		if d := r.Detail; d != nil {
			f := d.Fields
			row = append(row,
				f.Name, f.Description, f.SKU, f.ProductCode,
				money(f.PriceRetail), money(f.PriceMedium), money(f.PriceLarge), f.Currency,
				f.ImageURL, number(f.Rating), f.Availability, f.DeliveryInfo,
				d.ContentHash, timestamp(d.LastUpdated),
			)
		} else {
			for len(row) < len(header) {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.URL, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func money(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
