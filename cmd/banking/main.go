package main

import (
	"context"
	"fmt"
	"os"

	"simplebank/internal/config"
	"simplebank/internal/infrastructure/database"
	"simplebank/internal/logger"
	"simplebank/internal/repository"
	"simplebank/internal/service"
	"simplebank/internal/session"
	"simplebank/pkg/idgen"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 加载配置
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	// 日志写 stderr，stdout 留给菜单交互
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	// 初始化 SQLite
	db, err := database.OpenSQLite(&cfg.Storage, logger.NewGormLogger(cfg.Log.Level, os.Stderr))
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("关闭数据库失败", "error", err)
		}
	}()

	// 初始化卡号生成器
	gen, err := idgen.NewGenerator(cfg.Business.IssuerPrefix, nil)
	if err != nil {
		return err
	}

	svc := service.NewAccountService(
		repository.NewCardRepository(db),
		gen,
		cfg.Business.MaxOpenAttempts,
		log,
	)

	log.Debug("会话开始", "file", cfg.Storage.File)
	return session.NewController(svc, os.Stdout, log).Run(context.Background(), os.Stdin)
}
