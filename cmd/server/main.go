package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/config"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/handler"
	"github.com/kanjilog/internal/router"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 环境变量提供了超级用户时确保其存在
	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword, cfg.SuperRootTimezone); err != nil {
		log.Fatalf("failed to ensure super root user: %v", err)
	}

	api := handler.NewAPI(db.DB)

	// 引导问卷首次启动时播种
	if err := api.Preferences().SeedQuestions(); err != nil {
		log.Fatalf("failed to seed preference questions: %v", err)
	}

	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		CORSOrigins:   cfg.CORSOrigins,
		SecureCookies: cfg.SecureCookies,
	})
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
