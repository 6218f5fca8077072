package change

import (
	"context"
	"errors"
	"testing"

	"prestige-scraper/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string]string

func (m mapStore) StoredHash(_ context.Context, url string) (string, bool, error) {
	h, ok := m[url]
	return h, ok, nil
}

type failingStore struct{}

func (failingStore) StoredHash(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk on fire")
}

func rose() models.Fields {
	return models.Fields{
		Name:        "Rose Bouquet",
		Description: "Twelve red roses",
		PriceRetail: models.Float(20),
		Currency:    "GBP",
		Rating:      models.Float(4.5),
	}
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, Hash(rose()), Hash(rose()))
	assert.Len(t, Hash(rose()), 64)
}

func TestHash_IgnoresIncidentalWhitespace(t *testing.T) {
	messy := rose()
	messy.Name = "  Rose\n\tBouquet "
	messy.Description = "Twelve   red\nroses"
	messy.Currency = " gbp"

	assert.Equal(t, Hash(rose()), Hash(messy))
}

func TestHash_PriceFormatting(t *testing.T) {
	a := rose()
	a.PriceRetail = models.Float(20)
	b := rose()
	b.PriceRetail = models.Float(20.000000001)

	assert.Equal(t, Hash(a), Hash(b), "sub-penny noise does not count as a change")
}

func TestHash_DetectsRealChanges(t *testing.T) {
	base := Hash(rose())

	tests := []struct {
		name   string
		mutate func(f *models.Fields)
	}{
		{"price", func(f *models.Fields) { f.PriceRetail = models.Float(22) }},
		{"price removed", func(f *models.Fields) { f.PriceRetail = nil }},
		{"medium price added", func(f *models.Fields) { f.PriceMedium = models.Float(30) }},
		{"name", func(f *models.Fields) { f.Name = "Rose Bouquet Deluxe" }},
		{"rating", func(f *models.Fields) { f.Rating = models.Float(4.6) }},
		{"availability", func(f *models.Fields) { f.Availability = "OutOfStock" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rose()
			tt.mutate(&f)
			assert.NotEqual(t, base, Hash(f))
		})
	}
}

func TestHash_EmptyStringAndZeroPriceDiffer(t *testing.T) {
	a := rose()
	a.PriceMedium = nil
	b := rose()
	b.PriceMedium = models.Float(0)

	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestDetector_FirstSeenIsChanged(t *testing.T) {
	d := NewDetector(mapStore{})

	changed, hash, err := d.HasChanged(context.Background(), "https://shop.example/a", rose())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, Hash(rose()), hash)
}

func TestDetector_SameHashUnchanged(t *testing.T) {
	d := NewDetector(mapStore{"https://shop.example/a": Hash(rose())})

	changed, _, err := d.HasChanged(context.Background(), "https://shop.example/a", rose())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDetector_DifferentHashChanged(t *testing.T) {
	d := NewDetector(mapStore{"https://shop.example/a": Hash(rose())})
	f := rose()
	f.PriceRetail = models.Float(25)

	changed, hash, err := d.HasChanged(context.Background(), "https://shop.example/a", f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, Hash(rose()), hash)
}

func TestDetector_StoreError(t *testing.T) {
	d := NewDetector(failingStore{})

	_, _, err := d.HasChanged(context.Background(), "https://shop.example/a", rose())
	assert.Error(t, err)
}
