package catalog

import (
	"database/sql"
	"fmt"
	"log"
)

type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS migrations;
	CREATE TABLE IF NOT EXISTS migrations.migrations (
		name VARCHAR(255) PRIMARY KEY,
		time TIMESTAMP NOT NULL
	);`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations registry: %w", err)
	}
	return nil
}

type CreateCatalogSchema struct{}

func (m *CreateCatalogSchema) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS catalog;`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create schema catalog: %w", err)
	}
	return nil
}

type CreateCatalogEntriesTable struct{}

func (m *CreateCatalogEntriesTable) UpMigration(db *sql.DB) error {
	if ok, err := checkAndSkipMigration(db, "catalog.entries"); err != nil {
		return err
	} else if ok {
		return nil
	}
	query := `
	CREATE TABLE IF NOT EXISTS catalog.entries (
		entry_id SERIAL PRIMARY KEY,
		supplier VARCHAR(32) NOT NULL CHECK (supplier IN ('farnell', 'mouser', 'digikey', 'mock')),
		supplier_sku VARCHAR(255) NOT NULL,
		supplier_key VARCHAR(288) NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		raw JSONB,
		source_updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS catalog_entries_supplier_sku_idx
		ON catalog.entries(supplier_sku);`
	if err := executeAndMarkMigration(db, query, "catalog.entries"); err != nil {
		return err
	}
	log.Println("Migration 'catalog.entries' completed successfully.")
	return nil
}

func checkAndSkipMigration(db *sql.DB, name string) (bool, error) {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", name).Scan(&migrationExists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.", name)
	}
	return migrationExists, nil
}

func executeAndMarkMigration(db *sql.DB, query, name string) error {
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to apply '%s' migration: %w", name, err)
	}
	_, err := db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", name)
	if err != nil {
		return fmt.Errorf("failed to mark '%s' migration as complete: %w", name, err)
	}
	return nil
}
