package responses

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeywordContainer(t *testing.T) {
	body := []byte(`{"keywordSearchReturn":{"numberOfResults":2,"products":[
		{"sku":"2525225","displayName":"RASPBERRY PI 4 MODEL B 4GB"},
		{"sku":"2525226","displayName":"RASPBERRY PI 4 MODEL B 8GB"}
	]}}`)

	products, err := ParseSearchResponse(body)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "2525225", products[0].Sku)
	assert.JSONEq(t, `{"sku":"2525225","displayName":"RASPBERRY PI 4 MODEL B 4GB"}`, string(products[0].Raw))
}

func TestParseAlternateContainers(t *testing.T) {
	for _, key := range []string{"premierFarnellPartNumberReturn", "manufacturerPartNumberSearchReturn"} {
		body := []byte(`{"` + key + `":{"numberOfResults":1,"products":[{"sku":"1","displayName":"X"}]}}`)
		products, err := ParseSearchResponse(body)
		require.NoError(t, err, key)
		require.Len(t, products, 1, key)
	}
}

func TestParseUnwrappedEnvelope(t *testing.T) {
	body := []byte(`{"numberOfResults":1,"products":[{"sku":"7","displayName":"BC547"}]}`)

	products, err := ParseSearchResponse(body)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "7", products[0].Sku)
}

func TestParseSingleProductObject(t *testing.T) {
	body := []byte(`{"keywordSearchReturn":{"numberOfResults":1,"products":{"sku":"42","displayName":"LM317"}}}`)

	products, err := ParseSearchResponse(body)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "42", products[0].Sku)
}

func TestParseNoProductsIsEmptySuccess(t *testing.T) {
	body := []byte(`{"keywordSearchReturn":{"numberOfResults":0}}`)

	products, err := ParseSearchResponse(body)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestParseDropsUnusableProducts(t *testing.T) {
	body := []byte(`{"keywordSearchReturn":{"numberOfResults":3,"products":[
		{"sku":"1","displayName":"usable"},
		{"brandName":"no id, no name"},
		{"displayName":"name only"}
	]}}`)

	products, err := ParseSearchResponse(body)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "1", products[0].Sku)
	assert.Equal(t, "name only", products[1].DisplayName)
}

func TestParseMalformedBody(t *testing.T) {
	_, err := ParseSearchResponse([]byte(`<html>gateway error</html>`))
	require.Error(t, err)
}
