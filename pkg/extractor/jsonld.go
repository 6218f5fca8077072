package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldProduct is the subset of a schema.org Product we read. Several fields
// appear as either a scalar, an object or a list, so they stay raw until
// used.
type ldProduct struct {
	Type            json.RawMessage `json:"@type"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	SKU             json.RawMessage `json:"sku"`
	Image           json.RawMessage `json:"image"`
	Offers          json.RawMessage `json:"offers"`
	AggregateRating *struct {
		RatingValue json.RawMessage `json:"ratingValue"`
	} `json:"aggregateRating"`
}

type ldOffer struct {
	Price         json.RawMessage `json:"price"` // string or number
	PriceCurrency string          `json:"priceCurrency"`
	Availability  string          `json:"availability"`
}

// findProduct returns the first Product node in the page's JSON-LD blocks,
// looking inside top-level lists and @graph containers.
func findProduct(doc *goquery.Document) *ldProduct {
	var found *ldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = productFromJSON([]byte(s.Text()))
		return found == nil
	})
	return found
}

func productFromJSON(data []byte) *ldProduct {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		for _, item := range items {
			if p := productFromJSON(item); p != nil {
				return p
			}
		}
		return nil
	}

	var node struct {
		ldProduct
		Graph []json.RawMessage `json:"@graph"`
	}
	if err := json.Unmarshal(data, &node); err != nil {
		return nil
	}
	if isType(node.Type, "Product") {
		p := node.ldProduct
		return &p
	}
	for _, item := range node.Graph {
		if p := productFromJSON(item); p != nil {
			return p
		}
	}
	return nil
}

func isType(raw json.RawMessage, want string) bool {
	for _, t := range stringList(raw) {
		if t == want {
			return true
		}
	}
	return false
}

// stringList reads a JSON string or list of strings.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// scalar reads a JSON string or number as text.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.Trim(string(raw), `"' `)
}

func number(raw json.RawMessage) *float64 {
	s := scalar(raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "£"), 64)
	if err != nil {
		return nil
	}
	return &v
}

func (p *ldProduct) image() string {
	if len(p.Image) == 0 {
		return ""
	}
	if list := stringList(p.Image); len(list) > 0 {
		return list[0]
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(p.Image, &obj); err == nil {
		return obj.URL
	}
	var objs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(p.Image, &objs); err == nil && len(objs) > 0 {
		return objs[0].URL
	}
	return ""
}

func (p *ldProduct) offer() *ldOffer {
	if len(p.Offers) == 0 {
		return nil
	}
	var one ldOffer
	if err := json.Unmarshal(p.Offers, &one); err == nil {
		return &one
	}
	var many []ldOffer
	if err := json.Unmarshal(p.Offers, &many); err == nil && len(many) > 0 {
		return &many[0]
	}
	return nil
}

func (p *ldProduct) rating() *float64 {
	if p.AggregateRating == nil {
		return nil
	}
	return number(p.AggregateRating.RatingValue)
}
