package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"partscatalog_api/internal/farnell/business/models"
)

// Filter narrows FindMany. Keys wins over the term fields; SKU and NameLike
// are combined with OR (exact sku match or case-insensitive name substring).
type Filter struct {
	Supplier string
	SKU      string
	NameLike string
	Keys     []string
	Offset   int
}

// CatalogStore is the persistence surface the sync engine and the resolver
// work against. UpsertMany is atomic per invocation.
type CatalogStore interface {
	FindMany(ctx context.Context, filter Filter, limit int) ([]models.CatalogueEntry, error)
	FindOne(ctx context.Context, supplierKey string) (*models.CatalogueEntry, error)
	UpsertMany(ctx context.Context, entries []models.CatalogueEntry) error
	Count(ctx context.Context) (int, error)
}

type CatalogueRepository struct {
	db *sql.DB
}

func NewCatalogueRepository(db *sql.DB) *CatalogueRepository {
	return &CatalogueRepository{db: db}
}

const entryColumns = "supplier, supplier_sku, name, raw, source_updated_at"

func (r *CatalogueRepository) FindMany(ctx context.Context, filter Filter, limit int) ([]models.CatalogueEntry, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Keys) > 0 {
		conds = append(conds, fmt.Sprintf("supplier_key = ANY(%s)", arg(pq.Array(filter.Keys))))
	} else if filter.SKU != "" || filter.NameLike != "" {
		sku := filter.SKU
		if sku == "" {
			sku = filter.NameLike
		}
		like := filter.NameLike
		if like == "" {
			like = filter.SKU
		}
		conds = append(conds, fmt.Sprintf("(supplier_sku = %s OR name ILIKE %s)",
			arg(sku), arg("%"+like+"%")))
	}
	if filter.Supplier != "" {
		conds = append(conds, fmt.Sprintf("supplier = %s", arg(filter.Supplier)))
	}

	query := "SELECT " + entryColumns + " FROM catalog.entries"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY supplier_key"
	query += fmt.Sprintf(" LIMIT %s", arg(limit))
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %s", arg(filter.Offset))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CatalogueEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog entries: %w", err)
	}
	return entries, nil
}

func (r *CatalogueRepository) FindOne(ctx context.Context, supplierKey string) (*models.CatalogueEntry, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM catalog.entries WHERE supplier_key = $1", supplierKey)

	var entry models.CatalogueEntry
	var raw []byte
	err := row.Scan(&entry.Supplier, &entry.SupplierSku, &entry.Name, &raw, &entry.SourceUpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying catalog entry %s: %w", supplierKey, err)
	}
	entry.Raw = raw
	return &entry, nil
}

// UpsertMany writes all entries in one transaction, keyed by supplier_key.
// An entry that already exists gets its mutable fields overwritten.
func (r *CatalogueRepository) UpsertMany(ctx context.Context, entries []models.CatalogueEntry) error {
	entries = dedupeByKey(entries)
	if len(entries) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*6)
	for i, entry := range entries {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)",
			i*6+1, i*6+2, i*6+3, i*6+4, i*6+5, i*6+6))
		args = append(args, entry.Supplier, entry.SupplierSku, entry.SupplierKey(),
			entry.Name, []byte(entry.Raw), entry.SourceUpdatedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO catalog.entries (supplier, supplier_sku, supplier_key, name, raw, source_updated_at)
		VALUES
			%s
		ON CONFLICT (supplier_key) DO UPDATE
		SET
			name = EXCLUDED.name,
			raw = EXCLUDED.raw,
			source_updated_at = EXCLUDED.source_updated_at;
	`, strings.Join(valueStrings, ", "))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("upserting %d catalog entries: %w", len(entries), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert transaction: %w", err)
	}
	return nil
}

func (r *CatalogueRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog.entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting catalog entries: %w", err)
	}
	return count, nil
}

// dedupeByKey keeps the last occurrence of every supplier key so a batch
// cannot conflict with itself inside one INSERT.
func dedupeByKey(entries []models.CatalogueEntry) []models.CatalogueEntry {
	if len(entries) < 2 {
		return entries
	}
	seen := make(map[string]int, len(entries))
	result := make([]models.CatalogueEntry, 0, len(entries))
	for _, entry := range entries {
		key := entry.SupplierKey()
		if idx, ok := seen[key]; ok {
			result[idx] = entry
			continue
		}
		seen[key] = len(result)
		result = append(result, entry)
	}
	return result
}

func scanEntry(rows *sql.Rows) (models.CatalogueEntry, error) {
	var entry models.CatalogueEntry
	var raw []byte
	if err := rows.Scan(&entry.Supplier, &entry.SupplierSku, &entry.Name, &raw, &entry.SourceUpdatedAt); err != nil {
		return entry, fmt.Errorf("scanning catalog entry: %w", err)
	}
	entry.Raw = raw
	return entry, nil
}
