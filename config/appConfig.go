package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"partscatalog_api/config/values"
)

type Config interface {
}

type SupplierConfig interface {
}

// FarnellConfig holds everything needed to talk to the element14/Farnell
// product search API plus the tuning values for the sync engine.
type FarnellConfig struct {
	ApiKey        string            `yaml:"api_key"`
	StoreID       string            `yaml:"store_id"`
	BaseURL       string            `yaml:"base_url"`
	ApiVersion    string            `yaml:"api_version"`
	ResultsFilter string            `yaml:"results_filter"`
	ResponseGroup string            `yaml:"response_group"`
	Sync          values.SyncValues `yaml:"sync"`
}

type AppConfig struct {
	Farnell  FarnellConfig  `yaml:"farnell"`
	Postgres PostgresConfig `yaml:"postgres"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.Farnell.Sync.ApplyDefaults()
	return config, nil
}
