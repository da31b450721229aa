package domain

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyRenderedWithTwoPlaces(t *testing.T) {
	p := Product{ID: 1, Name: "Banana", Price: decimal.RequireFromString("1.5"), IsPublished: true}

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "1.50", got["price"])
	assert.Equal(t, "Banana", got["name"])
	assert.Equal(t, true, got["is_published"])

	raw, err = json.Marshal(NearbyProduct{Product: p, MerchantName: "TopOrderSt", DistanceKm: 1.25})
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "1.50", got["price"])
	assert.Equal(t, "TopOrderSt", got["merchant_name"])
	assert.Equal(t, 1.25, got["distance_km"])

	// обратное чтение нужно кэшу поиска
	var back NearbyProduct
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Price.Equal(p.Price))
	assert.Equal(t, "TopOrderSt", back.MerchantName)

	o := Order{
		ID:    7,
		Total: decimal.NewFromInt(9),
		Items: []OrderItem{{ProductID: 1, Quantity: 6, UnitPrice: decimal.RequireFromString("1.5"), LineTotal: decimal.NewFromInt(9)}},
	}
	raw, err = json.Marshal(o)
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "9.00", got["total"])
	item := got["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "1.50", item["unit_price"])
	assert.Equal(t, "9.00", item["line_total"])
}

func TestGeoPolygon_JSON(t *testing.T) {
	var zone DeliveryZone
	body := `{"name":"Zone1","area":{"type":"Polygon","coordinates":[[[0,0],[0,3],[3,3],[3,0],[0,0]]]}}`
	require.NoError(t, json.Unmarshal([]byte(body), &zone))
	require.Len(t, zone.Area.Polygon, 1)
	assert.Len(t, zone.Area.Polygon[0], 5)
	assert.Equal(t, orb.Point{0, 3}, zone.Area.Polygon[0][1])

	raw, err := json.Marshal(zone)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))

	bad := map[string]string{
		"point":      `{"type":"Point","coordinates":[1,2]}`,
		"open ring":  `{"type":"Polygon","coordinates":[[[0,0],[0,3],[3,3],[3,0]]]}`,
		"short ring": `{"type":"Polygon","coordinates":[[[0,0],[0,3],[0,0]]]}`,
		"no rings":   `{"type":"Polygon","coordinates":[]}`,
		"range":      `{"type":"Polygon","coordinates":[[[0,0],[0,95],[3,3],[0,0]]]}`,
		"garbage":    `"zone"`,
	}
	for name, in := range bad {
		var p GeoPolygon
		assert.ErrorIs(t, json.Unmarshal([]byte(in), &p), ErrInvalidGeometry, name)
	}
}
