package main

import (
	"log"

	"learnhub_backend/internal/app"
	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

// @title LearnHub Backend API
// @version 1.0
// @description 课程市场后端：AI学习辅助与学习进度聚合
// @BasePath /
func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	application, err := app.NewApp(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := application.Run(); err != nil {
		logger.Log.Fatal("Application error", zap.Error(err))
	}
}
