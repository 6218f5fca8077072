package change

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"

	"prestige-scraper/pkg/models"
)

// HashStore is the storage lookup the detector needs.
type HashStore interface {
	StoredHash(ctx context.Context, url string) (string, bool, error)
}

// Canonical renders fields as a flat string map: whitespace collapsed,
// prices with two decimals, missing numbers as "". json.Marshal sorts map
// keys, so the encoding does not depend on declaration order.
func Canonical(f models.Fields) map[string]string {
	return map[string]string{
		"name":          normalize(f.Name),
		"description":   normalize(f.Description),
		"sku":           normalize(f.SKU),
		"product_code":  normalize(f.ProductCode),
		"price_retail":  price(f.PriceRetail),
		"price_medium":  price(f.PriceMedium),
		"price_large":   price(f.PriceLarge),
		"currency":      strings.ToUpper(normalize(f.Currency)),
		"image_url":     normalize(f.ImageURL),
		"rating":        number(f.Rating),
		"availability":  normalize(f.Availability),
		"delivery_info": normalize(f.DeliveryInfo),
	}
}

// Hash is the SHA-256 hex digest of the canonical encoding of f.
func Hash(f models.Fields) string {
	data, err := json.Marshal(Canonical(f))
	if err != nil {
		// a map[string]string always encodes
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type Detector struct {
	store HashStore
}

func NewDetector(store HashStore) *Detector {
	return &Detector{store: store}
}

// HasChanged reports whether f differs from what was last written for url
// and returns the hash to store. A URL with no stored hash has changed.
func (d *Detector) HasChanged(ctx context.Context, url string, f models.Fields) (bool, string, error) {
	hash := Hash(f)
	stored, ok, err := d.store.StoredHash(ctx, url)
	if err != nil {
		return false, hash, err
	}
	if !ok {
		return true, hash, nil
	}
	return stored != hash, hash, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func price(v *float64) string {
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
