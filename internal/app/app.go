package app

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/controller"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/internal/service"
	"edu_bridge_backend/pkg/authgateway"
	"edu_bridge_backend/pkg/configwatcher"
	"edu_bridge_backend/pkg/database"
	"edu_bridge_backend/pkg/logger"
	"edu_bridge_backend/pkg/monitoring"
	"edu_bridge_backend/pkg/security"
	"edu_bridge_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Gateway         authgateway.Gateway
	tracer          *sdktrace.TracerProvider
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	credential *repository.CredentialRepository
	class      *repository.ClassRepository
	lesson     *repository.LessonRepository
	assignment *repository.AssignmentRepository
	progress   *repository.ProgressRepository
}

type services struct {
	auth     *service.AuthService
	lesson   *service.LessonService
	progress *service.ProgressService
	sync     *service.SyncService
}

type controllers struct {
	auth     *controller.AuthController
	lesson   *controller.LessonController
	progress *controller.ProgressController
	sync     *controller.SyncController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		credential: repository.NewCredentialRepository(db),
		class:      repository.NewClassRepository(db),
		lesson:     repository.NewLessonRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		progress:   repository.NewProgressRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.auth = service.NewAuthService(a.Gateway, repos.user, cfg.Catalog.DefaultLanguage)
	s.lesson = service.NewLessonService(repos.lesson, repos.assignment, repos.user, cfg.Catalog.DefaultLanguage)
	s.progress = service.NewProgressService(repos.progress, repos.user, repos.class, repos.assignment, cfg.Dashboard.RiskThreshold)
	s.sync = service.NewSyncService(repos.progress, repos.assignment, repos.user, cfg.Sync)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		lesson:   controller.NewLessonController(s.lesson),
		progress: controller.NewProgressController(s.progress),
		sync:     controller.NewSyncController(s.sync),
		health:   controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// registerReloadHooks pushes hot-reloadable settings into running services.
// Everything else in the file needs a restart.
func (a *App) registerReloadHooks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.sync.UpdateSettings(cfg.Sync)
		logger.Log.Info("sync settings reloaded",
			zap.Int("max_changes", cfg.Sync.MaxChanges),
			zap.Bool("class_scoped_catch_up", cfg.Sync.ClassScopedCatchUp),
		)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.progress.SetRiskThreshold(cfg.Dashboard.RiskThreshold)
	})
}

func (a *App) reloadConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}
	db, err := database.InitDB(&cfg.Database, logLevel)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}

	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db)

	gateway, err := authgateway.New(cfg, repos.credential, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize auth gateway", zap.Error(err))
	}
	app.Gateway = gateway

	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services)
	app.registerReloadHooks(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		tracing.SetupPropagation()
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatching := context.WithCancel(context.Background())
	defer stopWatching()
	go func() {
		configFile := filepath.Join(a.ConfigDir, "config.yaml")
		if err := configwatcher.WatchConfig(watchCtx, configFile, a.reloadConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.String("file", configFile), zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
