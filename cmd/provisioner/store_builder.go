package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yaegashi/resourceprovisioner/adapters/store/inmem"
	"github.com/yaegashi/resourceprovisioner/adapters/store/rdb"
	"github.com/yaegashi/resourceprovisioner/config/provisionercfg"
	"github.com/yaegashi/resourceprovisioner/domain"
)

// storeURL returns --db-url when given, otherwise the configured store.url.
func storeURL(cmd *cobra.Command, cfg *provisionercfg.Root) string {
	if v := flagString(cmd, "db-url"); v != "" {
		return v
	}
	if cfg != nil && cfg.Store.URL != "" {
		return cfg.Store.URL
	}
	return provisionercfg.DefaultStoreURL
}

// buildResourceRunRepository opens the run history store.
func buildResourceRunRepository(dbURL string) (domain.ResourceRunRepository, error) {
	switch {
	case strings.HasPrefix(dbURL, "memory:"):
		return inmem.NewStore().ResourceRunRepo, nil
	case strings.HasPrefix(dbURL, "sqlite:") || strings.HasPrefix(dbURL, "sqlite3:"):
		db, err := rdb.OpenFromURL(dbURL)
		if err != nil {
			return nil, err
		}
		if err := rdb.AutoMigrate(db); err != nil {
			return nil, err
		}
		return rdb.NewResourceRunRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported db-url: %s", dbURL)
	}
}
