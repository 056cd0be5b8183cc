package rdb

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDSN = "./provisioner.db"

// OpenFromURL opens a GORM DB based on a simple db-url string.
// Supported:
//   - sqlite:<dsn>   e.g., sqlite:./provisioner.db or sqlite::memory:
//   - sqlite3:<dsn>  alias of sqlite
func OpenFromURL(dbURL string) (*gorm.DB, error) {
	var dsn string
	switch {
	case strings.HasPrefix(dbURL, "sqlite:"):
		dsn = strings.TrimPrefix(dbURL, "sqlite:")
	case strings.HasPrefix(dbURL, "sqlite3:"):
		dsn = strings.TrimPrefix(dbURL, "sqlite3:")
	default:
		return nil, fmt.Errorf("unsupported db scheme: %s", dbURL)
	}
	if dsn == "" {
		dsn = defaultDSN
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
}

// AutoMigrate applies schema migrations for all RDB models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ResourceRunRecord{})
}
