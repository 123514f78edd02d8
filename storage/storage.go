package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"traffic-count-api/config"
	"traffic-count-api/models"
)

// Open connects to the configured database and verifies the connection.
// SQLite is the default system of record; postgres is available for
// shared deployments via DB_DRIVER=postgres.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var db *gorm.DB
	var err error
	switch cfg.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
	default:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", mkErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(cfg.Path), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Location{},
		&models.Observation{},
	)
}

// Seed inserts reference data against an empty database: the counting
// locations and one observer account. Populated tables are left alone.
func Seed(db *gorm.DB, cfg config.SeedConfig) error {
	var count int64
	if err := db.Model(&models.Location{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count locations: %w", err)
	}
	if count == 0 {
		locations := defaultLocations()
		if err := db.Create(&locations).Error; err != nil {
			return fmt.Errorf("failed to seed locations: %w", err)
		}
	}

	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count == 0 && cfg.Username != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}
		user := models.User{Username: cfg.Username, Password: string(hash)}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}

	return nil
}

func defaultLocations() []models.Location {
	return []models.Location{
		{Name: "High Street"},
		{Name: "Station Road"},
		{Name: "Market Square"},
		{Name: "Riverside Bridge"},
		{Name: "North Ring Road"},
		{Name: "School Lane"},
	}
}
