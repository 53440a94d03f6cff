// Package database 提供 MySQL 连接、迁移与 Redis 客户端的初始化。
package database

import (
	"fmt"
	"time"

	"intranet_admin/internal/model"
	"intranet_admin/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

// OpenMySQL 根据 DSN 连接 MySQL，SQL 日志通过 zapgorm2 输出到应用 logger。
// 会配置连接池（最大空闲连接数、最大打开连接数、连接最大存活时间）。
// 开启 TranslateError，唯一约束冲突以 gorm.ErrDuplicatedKey 返回。
func OpenMySQL(dsn string) (*gorm.DB, error) {
	gormLogger := zapgorm2.New(log.GetLogger())
	gormLogger.LogLevel = logger.Warn
	gormLogger.SlowThreshold = 200 * time.Millisecond
	gormLogger.SetAsDefault()

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	// 获取底层 *sql.DB 以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("MySQL initialized successfully")
	return db, nil
}

// RunMigrate 自动迁移全部表结构。
func RunMigrate(db *gorm.DB) error {
	log.Info("Running migrations...")

	if err := db.AutoMigrate(
		&model.User{},
		&model.Company{},
		&model.Delegation{},
		&model.Product{},
		&model.News{},
		&model.Alert{},
		&model.Event{},
		&model.Category{},
		&model.Subcategory{},
		&model.Level3Category{},
	); err != nil {
		log.Errorf("Failed to run migrations: %v", err)
		return err
	}

	log.Info("Migrations completed successfully")
	return nil
}
