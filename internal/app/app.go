package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantum_quest_backend/internal/config"
	"quantum_quest_backend/internal/controller"
	"quantum_quest_backend/internal/repository"
	"quantum_quest_backend/internal/service"
	"quantum_quest_backend/pkg/configwatcher"
	"quantum_quest_backend/pkg/database"
	"quantum_quest_backend/pkg/logger"
	"quantum_quest_backend/pkg/monitoring"
	"quantum_quest_backend/pkg/quantum"
	"quantum_quest_backend/pkg/security"
	"quantum_quest_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services       *services
	tracerProvider *sdktrace.TracerProvider
}

type repositories struct {
	user       *repository.UserRepository
	game       *repository.GameRepository
	level      *repository.LevelRepository
	progress   *repository.ProgressRepository
	proctoring *repository.ProctoringRepository
}

type services struct {
	user       *service.UserService
	game       *service.GameService
	challenge  *service.ChallengeService
	scoring    *service.ScoringService
	anticheat  *service.AnticheatService
	proctoring *service.ProctoringService
	progress   *service.ProgressService
	evidence   *service.EvidenceService
	monitor    *service.ProctoringMonitor
}

type controllers struct {
	user       *controller.UserController
	game       *controller.GameController
	progress   *controller.ProgressController
	proctoring *controller.ProctoringController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		game:       repository.NewGameRepository(db),
		level:      repository.NewLevelRepository(db),
		progress:   repository.NewProgressRepository(db),
		proctoring: repository.NewProctoringRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	oracle := quantum.NewHTTPOracle(cfg.Oracle.BaseURL, time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second)
	cache := service.NewSolutionCache(rdb, time.Duration(cfg.Integrity.SolutionCacheTTL)*time.Second)

	s.user = service.NewUserService(repos.user, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	s.game = service.NewGameService(repos.game, repos.level)
	s.challenge = service.NewChallengeService(repos.level)
	s.scoring = service.NewScoringService(oracle, cfg.Integrity)
	s.anticheat = service.NewAnticheatService(repos.game, repos.level, repos.progress, cache, cfg.Integrity)
	s.proctoring = service.NewProctoringService(repos.proctoring)
	s.progress = service.NewProgressService(
		repos.user,
		repos.game,
		repos.level,
		repos.progress,
		s.anticheat,
		s.scoring,
		s.proctoring,
	)
	s.monitor = service.NewProctoringMonitor(s.proctoring, time.Duration(cfg.Proctoring.HeartbeatIntervalSeconds)*time.Second)

	if cfg.Evidence.MinioEndpoint != "" {
		store, err := service.NewMinioEvidenceStore(&cfg.Evidence)
		if err != nil {
			logger.Log.Fatal("Failed to initialize evidence storage", zap.Error(err))
		}
		s.evidence = service.NewEvidenceService(store, s.proctoring)
	} else {
		logger.Log.Warn("Evidence storage not configured, snapshot uploads disabled")
	}

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		user:       controller.NewUserController(s.user),
		game:       controller.NewGameController(s.game, s.challenge),
		progress:   controller.NewProgressController(s.progress),
		proctoring: controller.NewProctoringController(s.proctoring, s.evidence, s.monitor),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// WatchPolicy hot-reloads the integrity policy block when the config file
// changes. Only the policy knobs take effect live; everything else needs a
// restart.
func (a *App) WatchPolicy(configFile string) {
	go configwatcher.WatchConfig(configFile, func(newCfg *config.Config) {
		a.services.anticheat.SetPolicy(newCfg.Integrity)
		a.services.scoring.SetPolicy(newCfg.Integrity)
		logger.Log.Info("integrity policy reloaded",
			zap.Float64("min_time_fraction", newCfg.Integrity.MinTimeFraction),
			zap.Float64("similarity_threshold", newCfg.Integrity.SimilarityThreshold))
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	svcs := app.initServices(repos, cfg, rdb)
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quantum-quest", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, ctrls, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
