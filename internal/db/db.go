package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Models 列出需要自动迁移的全部模型
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UsageCounter{},
		&UserStats{},
		&Streak{},
		&ActivityDay{},
		&Achievement{},
		&AchievementUnlock{},
		&QuestionLog{},
		&SystemSetting{},
	}
}

// Init 初始化数据库连接、执行自动迁移并同步成就目录。
// databasePath 为空时将回退到默认值 explainer.db。
func Init(databasePath string) error {
	gdb, err := Open(databasePath, false)
	if err != nil {
		return err
	}
	DB = gdb

	return EnsureAchievements(DB)
}

// Open 打开 sqlite 数据库并迁移表结构，quiet 为 true 时关闭 SQL 日志。
func Open(databasePath string, quiet bool) (*gorm.DB, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "explainer.db"
	}

	if err := ensureParentDir(path); err != nil {
		return nil, err
	}

	cfg := &gorm.Config{}
	if quiet {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	gdb, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, err
	}

	// sqlite 只允许单写者，单连接让事务串行化，避免 database is locked
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(Models()...); err != nil {
		return nil, err
	}

	return gdb, nil
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
