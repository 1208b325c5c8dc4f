package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bobbyhedeny/alignator/internal/adapters"
	"github.com/bobbyhedeny/alignator/internal/analysis"
	"github.com/bobbyhedeny/alignator/internal/cache"
	"github.com/bobbyhedeny/alignator/internal/database"
	"github.com/bobbyhedeny/alignator/internal/errors"
	"github.com/bobbyhedeny/alignator/internal/ingest"
	"github.com/bobbyhedeny/alignator/internal/middleware"
	"github.com/bobbyhedeny/alignator/internal/monitoring"
	"github.com/bobbyhedeny/alignator/internal/ratelimit"
	"github.com/bobbyhedeny/alignator/internal/resilience"
	"github.com/bobbyhedeny/alignator/internal/security"
	"github.com/bobbyhedeny/alignator/internal/types"
)

const congressService = "congress-api"

// application bundles the wired services behind the HTTP surface
type application struct {
	logger         *monitoring.Logger
	metrics        *monitoring.Metrics
	db             *database.DB
	repo           *database.Repository
	analyzer       *analysis.Analyzer
	congress       *adapters.CongressClient
	ingest         *ingest.Service
	limiter        *ratelimit.RateLimiter
	compression    *middleware.CompressionMiddleware
	degradation    *resilience.DegradationManager
	cache          *cache.Cache
	defaultSession int
}

func main() {
	// .env is optional; environment variables win either way
	_ = godotenv.Load()

	appLogger := monitoring.NewLogger(parseLogLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(appLogger.Logger)

	// Configuration from environment with defaults
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	congressAPIKey := os.Getenv("CONGRESS_API_KEY")
	port := getEnvOrDefault("PORT", "8080")
	defaultSession := getEnvIntOrDefault("SESSION", 118)
	syncWorkers := getEnvIntOrDefault("SYNC_WORKERS", 4)

	if congressAPIKey == "" {
		slog.Warn("CONGRESS_API_KEY not set, data sync will be rejected by the upstream API")
	}

	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	analyzer := analysis.NewAnalyzer(repo, analysis.NewConfigStore(dataDir))

	congressClient := adapters.NewCongressClient(adapters.CongressConfig{
		APIKey: congressAPIKey,
	})

	appMetrics := monitoring.NewMetrics()

	// Redis-backed rate limiting with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(os.Getenv("REDIS_ADDR"), os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		slog.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}

	// Track upstream health so sync can be refused when the API is down
	degradation := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	degradation.RegisterService(congressService, nil)

	app := &application{
		logger:         appLogger,
		metrics:        appMetrics,
		db:             db,
		repo:           repo,
		analyzer:       analyzer,
		congress:       congressClient,
		ingest:         ingest.NewService(congressClient, repo, syncWorkers),
		limiter:        ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics),
		compression:    middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
		degradation:    degradation,
		cache:          cache.NewCache(15 * time.Minute),
		defaultSession: defaultSession,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go degradation.StartHealthChecks(rootCtx)

	r := app.routes()

	// Scheduled sync, e.g. SYNC_CRON="0 3 * * *" for 3am daily
	var scheduler *cron.Cron
	if spec := os.Getenv("SYNC_CRON"); spec != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(rootCtx, 30*time.Minute)
			defer cancel()

			slog.Info("Starting scheduled sync", "session", defaultSession)
			if _, err := app.runSync(ctx, defaultSession); err != nil {
				slog.Error("Scheduled sync failed", "error", err, "session", defaultSession)
			}
		})
		if err != nil {
			slog.Error("Invalid SYNC_CRON expression", "error", err, "spec", spec)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("Scheduled sync enabled", "spec", spec)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port, "session", defaultSession)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stopJobs := func() {
		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
	}
	if err := shutdownSequence(shutdownCtx, stopJobs, srv.Shutdown, func() { congressClient.Close() }); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// shutdownSequence stops background jobs, drains in-flight HTTP
// requests, and only then releases the upstream client. A sync still
// running inside drain needs its connection pool, so closeUpstream
// must not run earlier.
func shutdownSequence(ctx context.Context, stopJobs func(), drain func(context.Context) error, closeUpstream func()) error {
	stopJobs()
	err := drain(ctx)
	closeUpstream()
	return err
}

// routes builds the gin engine with the full middleware chain
func (app *application) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(app.compression.Handler())
	r.Use(monitoring.MonitoringMiddleware(app.metrics, app.logger))
	r.Use(errors.ErrorHandler())
	r.Use(security.SecurityHeadersMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.Use(app.limiter.IPRateLimitMiddleware())

	// Read endpoints share a 15 minute response cache. Analyses are
	// persisted, so a stale cache entry is at worst one sync behind.
	r.Use(app.cache.Middleware(app.metrics, map[string]bool{
		"/analyze": true,
		"/compare": true,
		"/party":   true,
		"/members": true,
	}))

	r.GET("/health", app.handleHealth)
	r.POST("/analyze", app.handleAnalyze)
	r.POST("/compare", app.handleCompare)
	r.GET("/party", app.handleParty)
	r.GET("/members", app.handleMembers)
	r.GET("/analysis/:memberID", app.handleLatestAnalysis)
	r.POST("/sync", app.limiter.SyncRateLimitMiddleware(), app.handleSync)

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, app.metrics.GetStats())
	})

	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, app.cache.Stats())
	})

	r.GET("/ratelimit/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, app.limiter.GetStats())
	})

	r.GET("/pools/congress", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "congress",
			"stats": app.congress.GetPoolStats(),
		})
	})

	r.GET("/pools/database", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "database",
			"stats": app.db.GetPoolStats(),
		})
	})

	r.GET("/pools/compression", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pool":  "compression",
			"stats": app.compression.GetStats(),
		})
	})

	return r
}

func (app *application) handleHealth(c *gin.Context) {
	services := app.degradation.GetAllServiceHealth()

	healthResponse := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"services":  services,
		"metrics":   app.metrics.GetStats(),
		"database":  app.db.GetPoolStats(),
	}

	for _, service := range services {
		if service.Level == resilience.LevelEmergency {
			healthResponse["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, healthResponse)
			return
		}
	}

	c.JSON(http.StatusOK, healthResponse)
}

func (app *application) handleAnalyze(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("member_id is required"))
		return
	}

	req.MemberID = strings.TrimSpace(req.MemberID)
	if req.MemberID == "" {
		c.Error(errors.NewValidationError("member_id cannot be empty"))
		return
	}
	if req.Session == 0 {
		req.Session = app.defaultSession
	}

	start := time.Now()
	result, err := app.analyzer.AnalyzeMember(ctx, req.MemberID, req.Session)
	if err != nil {
		c.Error(err)
		return
	}

	app.metrics.IncrementAnalysis()
	app.logger.AnalysisLogger(req.MemberID, req.Session, result.AlignmentScore, result.Ideology, time.Since(start), false)

	c.JSON(http.StatusOK, result)
}

func (app *application) handleCompare(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	var req types.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError("member_ids is required"))
		return
	}

	if len(req.MemberIDs) < 2 {
		c.Error(errors.NewValidationError("at least two member_ids are required"))
		return
	}
	if len(req.MemberIDs) > 10 {
		c.Error(errors.NewValidationError("at most ten member_ids can be compared"))
		return
	}
	if req.Session == 0 {
		req.Session = app.defaultSession
	}

	results := app.analyzer.CompareMembers(ctx, req.MemberIDs, req.Session)
	app.metrics.IncrementAnalysis()

	c.JSON(http.StatusOK, gin.H{
		"session":   req.Session,
		"requested": len(req.MemberIDs),
		"analyzed":  len(results),
		"results":   results,
	})
}

func (app *application) handleParty(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
	defer cancel()

	session := queryInt(c, "session", app.defaultSession)

	summaries, err := app.analyzer.PartyAnalysis(ctx, session)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"parties": summaries,
	})
}

func (app *application) handleMembers(c *gin.Context) {
	session := queryInt(c, "session", app.defaultSession)

	members, err := app.repo.GetMembers(c.Request.Context(), session)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"count":   len(members),
		"members": members,
	})
}

func (app *application) handleLatestAnalysis(c *gin.Context) {
	memberID := c.Param("memberID")
	session := queryInt(c, "session", app.defaultSession)

	result, err := app.repo.GetLatestAnalysis(c.Request.Context(), memberID, session)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (app *application) handleSync(c *gin.Context) {
	if !app.degradation.IsServiceAvailable(congressService) {
		c.Error(errors.NewSubsystemError(congressService, nil))
		return
	}

	// The body is optional; an empty request syncs the default session
	var req types.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError("invalid sync request body"))
			return
		}
	}
	if req.Session == 0 {
		req.Session = app.defaultSession
	}

	// Syncing a session walks every member, so the budget is generous
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Minute)
	defer cancel()

	stats, err := app.runSync(ctx, req.Session)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// runSync executes one ingestion run and records its outcome against
// the upstream health registry.
func (app *application) runSync(ctx context.Context, session int) (*ingest.Stats, error) {
	stats, err := app.ingest.SyncSession(ctx, session)
	if err != nil {
		app.degradation.RecordError(congressService, err)
		return nil, err
	}
	app.degradation.RecordRequest(congressService, stats.Failed == 0)

	app.metrics.IncrementSync()
	app.logger.SyncLogger(stats.Session, stats.Members, stats.Bills, stats.Votes, stats.Failed, stats.Duration)
	return stats, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
