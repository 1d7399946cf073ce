package main

import (
	"context"
	"time"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/middleware"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/routes"
	"github.com/yatube/yatube/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	if err := middleware.InitSessionStore(cfg); err != nil {
		utils.Sugar.Fatalf("session store: %v", err)
	}

	handler := routes.NewHandler(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	utils.StartUploadCleaner(ctx, db, time.Duration(cfg.UploadCleanerIntervalMin)*time.Minute)

	utils.Sugar.Infow("starting server", "port", cfg.AppPort, "db", cfg.DBDriver, "redis", cfg.RedisHost != "")
	if err := utils.GraceServer(":"+cfg.AppPort, handler, cancel, utils.CloseRedis); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
