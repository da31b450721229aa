package cmd

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomarket/internal/domain"
)

func TestRenderNearby(t *testing.T) {
	var buf bytes.Buffer
	err := renderNearby(&buf, []domain.NearbyProduct{{
		Product:      domain.Product{ID: 7, Name: "Milk", Price: decimal.RequireFromString("1.2")},
		MerchantName: "corner shop",
		DistanceKm:   0.5,
	}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Milk")
	assert.Contains(t, out, "corner shop")
	assert.Contains(t, out, "1.20")
	assert.Contains(t, out, "0.500")
}
