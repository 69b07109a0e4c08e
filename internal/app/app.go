package app

import (
	"context"
	"course_studio_backend/internal/config"
	"course_studio_backend/internal/controller"
	"course_studio_backend/internal/repository"
	"course_studio_backend/internal/service"
	"course_studio_backend/pkg/configwatcher"
	"course_studio_backend/pkg/database"
	"course_studio_backend/pkg/errtrack"
	"course_studio_backend/pkg/logger"
	"course_studio_backend/pkg/monitoring"
	"course_studio_backend/pkg/security"
	"course_studio_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiters        *limiters
	reporter        *errtrack.RollbarReporter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	course  *repository.CourseRepository
	chapter *repository.ChapterRepository
	lesson  *repository.LessonRepository
}

type services struct {
	course      *service.CourseService
	structure   *service.CourseStructureService
	storage     *service.StorageService
	revalidator *service.RedisRevalidator
}

type controllers struct {
	course  *controller.CourseController
	chapter *controller.ChapterController
	lesson  *controller.LessonController
	upload  *controller.UploadController
	health  *controller.HealthController
}

// limiters 全局按 IP，管理写操作与上传按用户
type limiters struct {
	global *security.Limiter
	admin  *security.Limiter
	upload *security.Limiter
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		course:  repository.NewCourseRepository(db),
		chapter: repository.NewChapterRepository(db),
		lesson:  repository.NewLessonRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.revalidator = service.NewRedisRevalidator(rdb, cfg.Revalidation.Channel, cfg.Revalidation.CacheTTL())
	s.structure = service.NewCourseStructureService(db, repos.course, repos.chapter, repos.lesson, a.reporter, s.revalidator)
	s.course = service.NewCourseService(db, repos.course, repos.chapter, repos.lesson, s.revalidator, a.reporter, s.revalidator)

	storage, err := service.NewStorageService(cfg, a.reporter)
	if err != nil {
		logger.Log.Warn("Object storage unavailable, uploads will fail", zap.Error(err))
	}
	s.storage = storage

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		course:  controller.NewCourseController(s.course),
		chapter: controller.NewChapterController(s.structure),
		lesson:  controller.NewLessonController(s.structure, s.course),
		upload:  controller.NewUploadController(s.storage),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) initLimiters(cfg *config.Config) *limiters {
	window := cfg.RateLimit.Window()
	l := &limiters{
		global: security.NewLimiter(cfg.RateLimit.MaxRequests, window),
		admin:  security.NewLimiter(cfg.RateLimit.AdminMaxRequests, window),
		upload: security.NewLimiter(cfg.RateLimit.UploadMaxRequests, window),
	}

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		w := newCfg.RateLimit.Window()
		l.global.SetRate(newCfg.RateLimit.MaxRequests, w)
		l.admin.SetRate(newCfg.RateLimit.AdminMaxRequests, w)
		l.upload.SetRate(newCfg.RateLimit.UploadMaxRequests, w)
	})
	return l
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiters.global.Middleware(security.ByClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 限流条目清理、配置热更新、失效通知日志
func (a *App) startBackgroundTasks(ctx context.Context) {
	go a.limiters.global.Run(ctx)
	go a.limiters.admin.Run(ctx)
	go a.limiters.upload.Run(ctx)

	go func() {
		err := configwatcher.WatchConfig(ctx, configDir, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()

	go func() {
		err := a.services.revalidator.Subscribe(ctx, func(path string) {
			logger.Log.Debug("view revalidated", zap.String("path", path))
		})
		if err != nil {
			logger.Log.Warn("Revalidation subscriber stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	app.reporter = errtrack.NewRollbarReporter(cfg.Rollbar)
	app.RegisterConfigCallback(logger.ApplyConfig)

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, rdb)
	app.limiters = app.initLimiters(cfg)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-studio", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

func (a *App) Run() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.startBackgroundTasks(ctx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.reporter != nil {
		a.reporter.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
