package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInputs(t *testing.T) {
	data := map[string]any{
		"name":   "John",
		"age":    int64(30),
		"score":  9.5,
		"active": true,
		"tags":   []any{"a"},
		"note":   nil,
		"address": map[string]any{
			"city": "Oslo",
			"geo":  map[string]any{"lat": 59.9},
		},
	}
	got := GenerateInputs(data, "user_")
	assert.Equal(t, map[string]GeneratedInput{
		"user_name":            {ContextKey: "name", Type: "str"},
		"user_age":             {ContextKey: "age", Type: "int"},
		"user_score":           {ContextKey: "score", Type: "float"},
		"user_active":          {ContextKey: "active", Type: "bool"},
		"user_tags":            {ContextKey: "tags", Type: "list"},
		"user_note":            {ContextKey: "note", Type: "any"},
		"user_address_city":    {ContextKey: "address.city", Type: "str"},
		"user_address_geo_lat": {ContextKey: "address.geo.lat", Type: "float"},
	}, got)
}

func TestEncodeInputsParsesBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeInputs(&buf, GenerateInputs(map[string]any{
		"price": 1.5,
		"coin":  map[string]any{"symbol": "BTC"},
	}, "")))

	cfg, err := Parse(buf.Bytes(), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "coin.symbol", cfg.Inputs["coin_symbol"].ContextKey)
	assert.Equal(t, "str", cfg.Inputs["coin_symbol"].Type)
	assert.Equal(t, "float", cfg.Inputs["price"].Type)
	assert.Equal(t, []string{"coin_symbol", "price"}, cfg.InputOrder)
}
