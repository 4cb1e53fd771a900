package models

import (
	"fmt"
	"strings"

	"github.com/huangang/peerreview/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to the configured store without touching the package-level DB.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off per connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1&_busy_timeout=5000"
}

// Tables in dependency order: parents first.
func schemaModels() []interface{} {
	return []interface{}{
		&User{},
		&Metric{},
		&Rating{},
		&UserAuth{},
	}
}

// AutoMigrate creates the four review tables if they are absent.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(schemaModels()...)
}

// StoreExists reports whether the review schema has been created before.
func StoreExists(db *gorm.DB) bool {
	return db.Migrator().HasTable(&User{})
}

// DeleteAllData wipes every row of the review tables, children first, and
// restarts SQLite's autoincrement counters.
func DeleteAllData(tx *gorm.DB) error {
	children := []interface{}{&Rating{}, &UserAuth{}, &Metric{}, &User{}}
	for _, model := range children {
		if !tx.Migrator().HasTable(model) {
			continue
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}

	if tx.Dialector.Name() == "sqlite" && tx.Migrator().HasTable("sqlite_sequence") {
		if err := tx.Exec("DELETE FROM sqlite_sequence").Error; err != nil {
			return err
		}
	}
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
