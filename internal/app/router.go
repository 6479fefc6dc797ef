package app

import (
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// NewRouter 组装依赖并注册全部路由
func NewRouter(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(security.CORS(cfg.CORS.AllowedOrigins))
	engine.Use(security.Secure())
	engine.Use(monitoring.MetricsMiddleware())
	if cfg.Tracing.Enabled {
		engine.Use(tracing.GinMiddleware())
	}
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		if window <= 0 {
			window = time.Minute
		}
		engine.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewStudentProgressRepository(db)

	var quizCache service.QuizCache
	if rdb != nil {
		quizCache = repository.NewRedisQuizCache(rdb)
	}

	// AI层级按优先级固定排序，未配置的层级在调用时自行跳过
	tiers := []llm.Provider{
		llm.NewGroqProvider(cfg.AI.Groq),
		llm.NewOllamaProvider(cfg.AI.Ollama),
		llm.NewOpenAIProvider(cfg.AI.OpenAI),
	}

	progressService := service.NewProgressService(progressRepo, courseRepo)
	assistantService := service.NewAssistantService(tiers, courseRepo, cfg.AI.Timeout)
	quizService := service.NewQuizService(assistantService, courseRepo, quizCache, progressService)

	healthCtl := controller.NewHealthController()
	aiCtl := controller.NewAIController(assistantService, quizService)
	progressCtl := controller.NewProgressController(progressService)

	engine.GET("/health", healthCtl.Health)
	engine.GET("/metrics", monitoring.PrometheusHandler())

	api := engine.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg))
	{
		ai := api.Group("/ai")
		{
			ai.POST("/chat", aiCtl.Chat)
			ai.POST("/analyze-video", aiCtl.AnalyzeVideo)
			ai.POST("/study-questions", aiCtl.StudyQuestions)
			ai.POST("/quiz/generate", aiCtl.GenerateQuiz)
			ai.POST("/quiz/submit", aiCtl.SubmitQuiz)
		}

		progress := api.Group("/progress")
		{
			progress.GET("/my-progress", progressCtl.MyProgress)
			progress.GET("/statistics", progressCtl.Statistics)
			progress.GET("/course/:courseId", progressCtl.CourseProgress)
			progress.POST("/video", progressCtl.RecordVideo)
			progress.POST("/lesson", progressCtl.RecordLesson)
			progress.POST("/quiz-result", progressCtl.RecordQuizResult)
		}

		// 进度覆写仅限教师和管理员
		api.PUT("/progress",
			middleware.RoleMiddleware(model.Educator, model.Admin),
			progressCtl.OverrideProgress,
		)
	}

	return engine
}
