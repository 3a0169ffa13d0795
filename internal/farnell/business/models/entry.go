package models

import (
	"encoding/json"
	"time"
)

// Supplier is a closed set of supplier codes. Only farnell has a live
// integration; mouser and digikey are reserved for future ones.
type Supplier string

const (
	SupplierFarnell Supplier = "farnell"
	SupplierMouser  Supplier = "mouser"
	SupplierDigikey Supplier = "digikey"
	SupplierMock    Supplier = "mock"
)

func (s Supplier) Valid() bool {
	switch s {
	case SupplierFarnell, SupplierMouser, SupplierDigikey, SupplierMock:
		return true
	}
	return false
}

// CatalogueEntry is the canonical ingested unit, stored in catalog.entries.
// Raw keeps the upstream payload verbatim so fields can be extracted later
// without another upstream call.
type CatalogueEntry struct {
	Supplier        Supplier        `json:"supplier"`
	SupplierSku     string          `json:"supplier_sku"`
	Name            string          `json:"name"`
	Raw             json.RawMessage `json:"raw,omitempty"`
	SourceUpdatedAt time.Time       `json:"source_updated_at"`
}

// SupplierKey is the globally unique identifier of an entry and the sole
// upsert conflict key.
func (e *CatalogueEntry) SupplierKey() string {
	return string(e.Supplier) + ":" + e.SupplierSku
}
