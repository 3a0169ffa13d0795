package responses

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The upstream envelope is not stable: depending on the term type the product
// list sits under one of several container keys, and a single result may come
// back as a bare object instead of a one-element list. Container keys are
// tried in priority order, then the top-level object itself is treated as the
// container. Upstream schema drift is expected here.
var containerKeys = []string{
	"keywordSearchReturn",
	"premierFarnellPartNumberReturn",
	"manufacturerPartNumberSearchReturn",
}

type searchReturn struct {
	NumberOfResults int             `json:"numberOfResults"`
	Products        json.RawMessage `json:"products"`
}

// Product carries the two fields the sync engine needs plus the untouched
// payload for storage.
type Product struct {
	Sku         string          `json:"sku"`
	DisplayName string          `json:"displayName"`
	Raw         json.RawMessage `json:"-"`
}

// ParseSearchResponse extracts products from a search response body. A
// container without a products field is a valid empty result, not an error.
// Products missing both sku and display name are dropped, they are unusable.
func ParseSearchResponse(body []byte) ([]Product, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	var container searchReturn
	found := false
	for _, key := range containerKeys {
		raw, ok := top[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &container); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", key, err)
		}
		found = true
		break
	}
	if !found {
		if err := json.Unmarshal(body, &container); err != nil {
			return nil, fmt.Errorf("decoding unwrapped search response: %w", err)
		}
	}

	if len(container.Products) == 0 {
		return nil, nil
	}
	return parseProducts(container.Products)
}

func parseProducts(raw json.RawMessage) ([]Product, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var rawList []json.RawMessage
	if trimmed[0] == '{' {
		// exactly one result comes back as a bare object
		rawList = []json.RawMessage{raw}
	} else if err := json.Unmarshal(raw, &rawList); err != nil {
		return nil, fmt.Errorf("decoding products list: %w", err)
	}

	products := make([]Product, 0, len(rawList))
	for _, r := range rawList {
		var p Product
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, fmt.Errorf("decoding product: %w", err)
		}
		if p.Sku == "" && p.DisplayName == "" {
			continue
		}
		p.Raw = r
		products = append(products, p)
	}
	return products, nil
}
