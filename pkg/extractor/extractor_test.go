package extractor

import (
	"testing"

	"prestige-scraper/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosePage = `<!DOCTYPE html>
<html>
<head>
	<title>Rose Bouquet | Prestige Flowers</title>
	<meta property="og:description" content="Twelve   red roses,
		hand tied.">
	<meta property="og:image" content="https://cdn.example/og-rose.jpg">
	<script type="application/ld+json">
	{"@context":"https://schema.org","@type":"BreadcrumbList","itemListElement":[]}
	</script>
	<script type="application/ld+json">
	{
		"@context": "https://schema.org",
		"@type": "Product",
		"name": "Rose Bouquet",
		"sku": "PF-ROSE-12",
		"image": ["https://cdn.example/rose-1.jpg", "https://cdn.example/rose-2.jpg"],
		"aggregateRating": {"@type": "AggregateRating", "ratingValue": "4.8", "reviewCount": 120},
		"offers": {"@type": "Offer", "price": "20.00", "priceCurrency": "gbp", "availability": "https://schema.org/InStock"}
	}
	</script>
</head>
<body>
	<h1 class="products-name">Rose Bouquet</h1>
	<input type="hidden" id="productid" value="4471">
	<span class="price-retail">£20</span>
	<div class="sizes">
		<span class="size-cost">+ £10.00</span>
		<span class="size-cost">+ £20.50</span>
		<span class="size-cost">+ £99.00</span>
	</div>
	<div class="delivery-info">
		Free next day delivery
	</div>
</body>
</html>`

func TestExtract_ProductPage(t *testing.T) {
	f, err := Extract(rosePage)
	require.NoError(t, err)

	assert.Equal(t, "Rose Bouquet", f.Name)
	assert.Equal(t, "Twelve red roses, hand tied.", f.Description)
	assert.Equal(t, "PF-ROSE-12", f.SKU)
	assert.Equal(t, "4471", f.ProductCode)
	assert.Equal(t, "https://cdn.example/rose-1.jpg", f.ImageURL)
	require.NotNil(t, f.PriceRetail)
	assert.Equal(t, 20.0, *f.PriceRetail)
	require.NotNil(t, f.PriceMedium)
	assert.Equal(t, 30.0, *f.PriceMedium)
	require.NotNil(t, f.PriceLarge)
	assert.Equal(t, 40.5, *f.PriceLarge)
	assert.Equal(t, "GBP", f.Currency)
	require.NotNil(t, f.Rating)
	assert.Equal(t, 4.8, *f.Rating)
	assert.Equal(t, "InStock", f.Availability)
	assert.Equal(t, "Free next day delivery", f.DeliveryInfo)
}

func TestExtract_HTMLOnly(t *testing.T) {
	html := `<html><head><meta name="description" content="A festive plant"></head><body>
		<h1 class="products-name">  Christmas
			Cactus </h1>
		<span class="price-retail">Now £24.99</span>
		<p>Product Code: XMAS-77</p>
		<p>Delivery: Nationwide, 7 days a week</p>
	</body></html>`

	f, err := Extract(html)
	require.NoError(t, err)

	assert.Equal(t, "Christmas Cactus", f.Name)
	assert.Equal(t, "A festive plant", f.Description)
	assert.Equal(t, "XMAS-77", f.SKU)
	require.NotNil(t, f.PriceRetail)
	assert.Equal(t, 24.99, *f.PriceRetail)
	assert.Nil(t, f.PriceMedium)
	assert.Nil(t, f.Rating)
	assert.Equal(t, "GBP", f.Currency)
	assert.Equal(t, "Nationwide, 7 days a week", f.DeliveryInfo)
}

func TestExtract_JSONLDVariants(t *testing.T) {
	tests := []struct {
		name      string
		ld        string
		wantPrice float64
		wantImage string
	}{
		{
			name:      "graph container, numeric price, image object",
			ld:        `{"@context":"https://schema.org","@graph":[{"@type":"WebPage"},{"@type":"Product","name":"Lily","image":{"url":"https://cdn.example/lily.jpg"},"offers":{"price":15.5}}]}`,
			wantPrice: 15.5,
			wantImage: "https://cdn.example/lily.jpg",
		},
		{
			name:      "top-level list, offers list",
			ld:        `[{"@type":"Organization"},{"@type":"Product","name":"Lily","image":"https://cdn.example/lily.jpg","offers":[{"price":"18"},{"price":"25"}]}]`,
			wantPrice: 18,
			wantImage: "https://cdn.example/lily.jpg",
		},
		{
			name:      "type list",
			ld:        `{"@type":["Product","Thing"],"name":"Lily","image":"https://cdn.example/lily.jpg","offers":{"price":"12.00"}}`,
			wantPrice: 12,
			wantImage: "https://cdn.example/lily.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<html><head><script type="application/ld+json">` + tt.ld + `</script></head><body></body></html>`
			f, err := Extract(html)
			require.NoError(t, err)
			assert.Equal(t, "Lily", f.Name)
			require.NotNil(t, f.PriceRetail)
			assert.Equal(t, tt.wantPrice, *f.PriceRetail)
			assert.Equal(t, tt.wantImage, f.ImageURL)
		})
	}
}

func TestExtract_BrokenJSONLDFallsBackToHTML(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{"@type":"Product",</script></head>
		<body><h1 class="products-name">Orchid</h1></body></html>`

	f, err := Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "Orchid", f.Name)
	assert.Nil(t, f.PriceRetail)
	assert.Empty(t, f.Currency)
}

func TestExtract_ThousandsSeparator(t *testing.T) {
	html := `<html><body>
		<h1 class="products-name">Big Hamper</h1>
		<span class="price-retail">£1,250.00</span>
		<span class="size-cost">+ £1,000</span>
	</body></html>`

	f, err := Extract(html)
	require.NoError(t, err)

	require.NotNil(t, f.PriceRetail)
	assert.Equal(t, 1250.0, *f.PriceRetail)
	require.NotNil(t, f.PriceMedium)
	assert.Equal(t, 2250.0, *f.PriceMedium)
}

func TestPounds(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"£20", 20, true},
		{"Now £ 24.99", 24.99, true},
		{"£12,345.6", 12345.6, true},
		{"£20, then more", 20, true},
		{"20.00", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := pounds(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsChallenge(t *testing.T) {
	tests := []struct {
		name  string
		title string
		html  string
		want  bool
	}{
		{"cloudflare title", "Just a moment...", "<html></html>", true},
		{"attention title", "Attention Required! | Cloudflare", "", true},
		{"checking browser", "Checking your browser before accessing", "", true},
		{"challenge form", "Prestige Flowers", `<form id="challenge-form" action="/">`, true},
		{"chl opt script", "", `<script>window._cf_chl_opt={cvId:'3'}</script>`, true},
		{"product page", "Rose Bouquet | Prestige Flowers", `<h1>Rose Bouquet</h1>`, false},
		{"normal page with cf beacon", "Christmas Plants", `<script src="/cdn-cgi/challenge-platform/scripts/jsd/main.js"></script>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsChallenge(tt.title, tt.html))
		})
	}
}

func TestPageTitle(t *testing.T) {
	assert.Equal(t, "Rose Bouquet | Prestige Flowers", PageTitle(rosePage))
	assert.Empty(t, PageTitle("<html><body>no title</body></html>"))
}

func TestExtract_NotProductPage(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"challenge", `<html><head><title>Just a moment...</title></head><body><div id="challenge-running">Checking your browser</div><form id="challenge-form"></form></body></html>`},
		{"challenge over product markup", `<html><head><title>Just a moment...</title></head><body><div id="challenge-running"></div><h1 class="products-name">Rose</h1><span class="price-retail">£20</span></body></html>`},
		{"challenge marker under product title", `<html><head><title>Rose | Prestige Flowers</title></head><body><form id="challenge-form"></form><h1 class="products-name">Rose</h1></body></html>`},
		{"category page", `<html><head><title>Christmas Plants</title></head><body><a class="product-img" href="/christmas-plants/cactus">Cactus</a></body></html>`},
		{"empty", ``},
		{"non-product JSON-LD", `<html><head><script type="application/ld+json">{"@type":"Organization","name":"Prestige Flowers"}</script></head><body></body></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Extract(tt.html)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, models.ErrNotProductPage)
		})
	}
}

func TestProductLinks(t *testing.T) {
	html := `<html><body>
		<a class="product-img" href="/christmas-plants/poinsettia">P</a>
		<a class="product-img" href="https://www.prestigeflowers.co.uk/christmas-plants/cactus#reviews">C</a>
		<a class="product-img" href="/christmas-plants/poinsettia">P again</a>
		<a class="product-img" href="christmas-plants/amaryllis">relative</a>
		<a class="product-img" href="https://other.example/christmas-plants/fake">offsite</a>
		<a class="product-img" href="javascript:void(0)">js</a>
		<a class="product-img">no href</a>
		<a class="nav" href="/roses">Roses</a>
	</body></html>`

	links, err := ProductLinks(html, "https://www.prestigeflowers.co.uk/christmas-plants", "a.product-img")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.prestigeflowers.co.uk/christmas-plants/poinsettia",
		"https://www.prestigeflowers.co.uk/christmas-plants/cactus",
		"https://www.prestigeflowers.co.uk/christmas-plants/amaryllis",
	}, links)
}

func TestProductLinks_FallbackToCategoryPath(t *testing.T) {
	html := `<html><body>
		<a href="/christmas-plants">All</a>
		<a href="/christmas-plants/">All again</a>
		<a href="/christmas-plants/poinsettia">P</a>
		<a href="/roses/red">Roses</a>
		<a href="/christmas-plants/cactus">C</a>
	</body></html>`

	links, err := ProductLinks(html, "https://www.prestigeflowers.co.uk/christmas-plants", "a.product-img")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.prestigeflowers.co.uk/christmas-plants/poinsettia",
		"https://www.prestigeflowers.co.uk/christmas-plants/cactus",
	}, links)
}

func TestProductLinks_None(t *testing.T) {
	links, err := ProductLinks(`<html><body><p>Nothing here</p></body></html>`, "https://shop.example/cat", "a.product-img")
	require.NoError(t, err)
	assert.Empty(t, links)
}
