package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the sqlite store and migrates the AOI and signal tables.
func InitDB(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if err := DB.AutoMigrate(&AreaOfInterest{}, &SignalRecord{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
