package database

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-exchange/internal/config"
	"github.com/codyseavey/tcg-exchange/internal/logging"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

const slowQueryThreshold = 200 * time.Millisecond

// Open connects to the configured database and migrates the schema.
func Open(cfg config.DatabaseConfig, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.Gorm(log, slowQueryThreshold),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver != "postgres" {
		// SQLite allows one writer; a single connection keeps transactions
		// from failing with SQLITE_BUSY under concurrent requests.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.WithField("driver", cfg.Driver).Info("database connected")

	if err := Migrate(db, log); err != nil {
		return nil, err
	}
	log.Info("database migration completed")
	return db, nil
}

// Migrate creates or updates every table and applies data migrations. It is
// safe to run on every start.
func Migrate(db *gorm.DB, log logrus.FieldLogger) error {
	if err := removeOrphanedPostImages(db, log); err != nil {
		return fmt.Errorf("clean trade post images: %w", err)
	}

	err := db.AutoMigrate(
		&models.PrivilegeRecord{},
		&models.Collector{},
		&models.Campaign{},
		&models.Collectible{},
		&models.CollectionEntry{},
		&models.WantlistEntry{},
		&models.TradePost{},
		&models.TradePostImage{},
		&models.TradeOffer{},
		&models.PastTradeOffer{},
		&models.ExchangeHistory{},
		&models.MarketSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return RunMigrations(db)
}

// sqliteDSN turns on foreign keys and a busy timeout unless the DSN already
// sets them.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "tcg_exchange.db"
	}
	var params []string
	if !strings.Contains(dsn, "_foreign_keys") {
		params = append(params, "_foreign_keys=on")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// MemoryDSN names a private shared-cache in-memory SQLite database, one per
// name. Tests pass t.Name().
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", unsafeNameChars.ReplaceAllString(name, "_"))
}
