package database

import (
	"FareWatch/internal/model"
	"FareWatch/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate 创建提醒表和价格记录表
func Migrate() error {
	db := DB()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	logger.Logger.Info("Starting database migration...")

	err := db.AutoMigrate(
		&model.FlightAlert{},
		&model.PriceRecord{},
	)
	if err != nil {
		logger.Logger.Error("Database migration failed", zap.Error(err))
		return err
	}

	logger.Logger.Info("Database migration completed successfully")
	return nil
}
