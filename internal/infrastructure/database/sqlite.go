package database

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"simplebank/internal/config"
	"simplebank/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite 打开本地 SQLite 数据库文件
//
// _txlock=immediate 让每个事务在 BEGIN 时就拿到写锁，多个连接上的转账因此串行执行；
// _busy_timeout 让等锁的连接阻塞等待，而不是立即返回 SQLITE_BUSY。
func OpenSQLite(cfg *config.StorageConfig, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(DSN(cfg)), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 DB 失败: %w", err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&model.Card{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移表结构失败: %w", err)
	}

	slog.Debug("SQLite 连接成功", "file", cfg.File)
	return db, nil
}

// DSN 拼接 go-sqlite3 连接串
func DSN(cfg *config.StorageConfig) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", cfg.BusyTimeoutMS))
	q.Set("_journal_mode", "WAL")
	q.Set("_txlock", "immediate")
	return "file:" + cfg.File + "?" + q.Encode()
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
