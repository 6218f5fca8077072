package models

import "time"

type ProductURL struct {
	URL          string    `json:"url"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Fields are the values pulled off a product detail page. Prices and rating
// are nil when the page does not show them.
type Fields struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	SKU          string   `json:"sku,omitempty"`
	ProductCode  string   `json:"product_code,omitempty"`
	PriceRetail  *float64 `json:"price_retail,omitempty"`
	PriceMedium  *float64 `json:"price_medium,omitempty"`
	PriceLarge   *float64 `json:"price_large,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	Availability string   `json:"availability,omitempty"`
	DeliveryInfo string   `json:"delivery_info,omitempty"`
}

// ProductDetail is the latest stored version of a product page.
type ProductDetail struct {
	URL         string    `json:"url"`
	Fields      Fields    `json:"fields"`
	ContentHash string    `json:"content_hash"`
	LastUpdated time.Time `json:"last_updated"`
}

type ProductRecord struct {
	ProductURL
	Detail *ProductDetail `json:"detail,omitempty"`
}

// Float returns a pointer to v, handy when building Fields by hand.
func Float(v float64) *float64 {
	return &v
}
