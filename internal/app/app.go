package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 服务生命周期的聚合根
type App struct {
	cfg            *config.Config
	engine         *gin.Engine
	db             *gorm.DB
	rdb            *redis.Client
	tracerProvider *sdktrace.TracerProvider
}

func NewApp(cfg *config.Config) (*App, error) {
	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// Redis不可用时测验缓存降级为直连AI，不阻塞启动
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, quiz cache disabled", zap.Error(err))
		rdb = nil
	}

	monitoring.Init()

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer("learnhub-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Warn("Tracing init failed, continuing without tracing", zap.Error(err))
		}
	}

	return &App{
		cfg:            cfg,
		engine:         NewRouter(cfg, db, rdb),
		db:             db,
		rdb:            rdb,
		tracerProvider: tp,
	}, nil
}

// Run 启动HTTP服务并阻塞至收到退出信号，随后优雅关停
func (a *App) Run() error {
	srv := &http.Server{
		Addr:    ":" + a.cfg.Server.Port,
		Handler: a.engine,
	}

	go configwatcher.WatchConfig("configs/config.yaml", a.cfg, func(newCfg interface{}) {
		if cfg, ok := newCfg.(*config.Config); ok {
			*a.cfg = *cfg
			logger.Log.Info("Config reloaded")
		}
	})

	go func() {
		logger.Log.Info("Server starting", zap.String("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			logger.Log.Warn("Redis close failed", zap.Error(err))
		}
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
	return nil
}
