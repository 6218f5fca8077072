package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"prestige-scraper/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	poundRe    = regexp.MustCompile(`£\s*(\d[\d,]*(?:\.\d{1,2})?)`)
	skuRe      = regexp.MustCompile(`(?i)(?:SKU|Product Code)\s*[:#]?\s*([A-Z0-9][A-Z0-9\-]*)`)
	deliveryRe = regexp.MustCompile(`(?i)(?:Delivery|Shipping)\s*:\s*([^\n]+)`)
)

// Extract parses a product detail page. Bot challenges and pages without a
// product name (listing or error pages) yield models.ErrNotProductPage
// instead of a record, even when product markup sits under a challenge.
func Extract(html string) (*models.Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if IsChallenge(documentTitle(doc), html) {
		return nil, fmt.Errorf("challenge page: %w", models.ErrNotProductPage)
	}

	ld := findProduct(doc)
	if ld == nil {
		ld = &ldProduct{}
	}

	f := &models.Fields{
		Name:        clean(ld.Name),
		Description: clean(metaDescription(doc)),
		ProductCode: strings.TrimSpace(doc.Find("input#productid").AttrOr("value", "")),
		SKU:         scalar(ld.SKU),
		ImageURL:    strings.TrimSpace(ld.image()),
		Rating:      ld.rating(),
	}

	if f.Name == "" {
		f.Name = clean(doc.Find("h1.products-name").First().Text())
	}
	if f.Name == "" {
		return nil, models.ErrNotProductPage
	}

	if f.Description == "" {
		f.Description = clean(ld.Description)
	}
	if f.ImageURL == "" {
		f.ImageURL = strings.TrimSpace(doc.Find(`meta[property="og:image"]`).AttrOr("content", ""))
	}

	bodyText := doc.Find("body").Text()
	if f.SKU == "" {
		if m := skuRe.FindStringSubmatch(bodyText); m != nil {
			f.SKU = m[1]
		}
	}

	extractPrices(doc, f)

	if offer := ld.offer(); offer != nil {
		if f.PriceRetail == nil {
			f.PriceRetail = number(offer.Price)
		}
		if offer.PriceCurrency != "" {
			f.Currency = strings.ToUpper(strings.TrimSpace(offer.PriceCurrency))
		}
		f.Availability = availability(offer.Availability)
	}
	if f.Currency == "" && f.PriceRetail != nil {
		f.Currency = "GBP"
	}

	f.DeliveryInfo = deliveryInfo(doc, bodyText)

	return f, nil
}

// extractPrices reads the base price and the size surcharges. Medium and
// large are the base price plus the first and second surcharge.
func extractPrices(doc *goquery.Document, f *models.Fields) {
	if v, ok := pounds(doc.Find("span.price-retail").First().Text()); ok {
		f.PriceRetail = models.Float(v)
	}
	if f.PriceRetail == nil {
		return
	}

	base := *f.PriceRetail
	doc.Find("span.size-cost").EachWithBreak(func(i int, s *goquery.Selection) bool {
		cost, ok := pounds(s.Text())
		if !ok {
			return i < 1
		}
		switch i {
		case 0:
			f.PriceMedium = models.Float(base + cost)
		case 1:
			f.PriceLarge = models.Float(base + cost)
		}
		return i < 1
	})
}

func pounds(text string) (float64, bool) {
	m := poundRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func metaDescription(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return doc.Find(`meta[name="description"]`).AttrOr("content", "")
}

func deliveryInfo(doc *goquery.Document, bodyText string) string {
	if s := doc.Find("div.delivery-info, .shipping-info, .delivery-details").First(); s.Length() > 0 {
		return clean(s.Text())
	}
	if m := deliveryRe.FindStringSubmatch(bodyText); m != nil {
		return clean(m[1])
	}
	return ""
}

// availability turns "https://schema.org/InStock" into "InStock".
func availability(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.LastIndex(v, "/"); i >= 0 {
		v = v[i+1:]
	}
	return v
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
