package router

import (
	"fmt"
	"time"

	"cashledger/internal/config"
	"cashledger/internal/handler"
	"cashledger/internal/middleware"
	"cashledger/internal/repository"
	"cashledger/internal/service"
	"cashledger/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Shared domain helpers ────────────────────────────────────────────────
	denomValues, err := cfg.DenominationValues()
	if err != nil {
		return nil, fmt.Errorf("parsing CASH_DENOMINATIONS: %w", err)
	}
	counter := service.NewDenominationCounter(denomValues)

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	entryRepo := repository.NewEntryRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	registerSvc := service.NewRegisterService(registerRepo, sessionRepo)
	exportSvc := service.NewExportService(sessionRepo)
	sessionSvc := service.NewSessionService(sessionRepo, registerRepo, counter, exportSvc, dispatcher, cfg)
	movementSvc := service.NewMovementService(sessionRepo, accountRepo)
	transferSvc := service.NewTransferService(sessionRepo, registerRepo)
	auditSvc := service.NewAuditService(sessionRepo, counter)
	accountingSvc := service.NewAccountingService(entryRepo, accountRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	registersH := handler.NewRegisterHandler(registerSvc)
	sessionsH := handler.NewSessionHandler(sessionSvc, movementSvc, auditSvc, exportSvc)
	transfersH := handler.NewTransferHandler(transferSvc)
	accountingH := handler.NewAccountingHandler(accountingSvc)
	adminH := handler.NewAdminHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(middleware.RoleCashier, middleware.RoleSupervisor, middleware.RoleAdministrator)
		supervisorUp := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdministrator)
		adminOnly := middleware.RequireRole(middleware.RoleAdministrator)

		// Registers — all roles can read, supervisors and up manage
		v1.GET("/registers", anyRole, registersH.List)
		v1.GET("/registers/:id", anyRole, registersH.Get)
		registers := v1.Group("/registers", supervisorUp)
		{
			registers.POST("", registersH.Create)
			registers.PUT("/:id", registersH.Update)
			registers.DELETE("/:id", registersH.Deactivate)
			registers.POST("/:id/reactivate", registersH.Reactivate)
		}

		// Sessions — the daily cashier workflow
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", anyRole, sessionsH.Open)
			sessions.GET("/open", anyRole, sessionsH.ListOpen)
			sessions.GET("/:id", anyRole, sessionsH.Detail)
			sessions.POST("/:id/close", anyRole, sessionsH.Close)
			sessions.POST("/:id/movements", anyRole, sessionsH.RecordMovement)
			// Mid-session reconciliation and exports need a supervisor
			sessions.POST("/:id/audit", supervisorUp, sessionsH.Audit)
			sessions.GET("/:id/export", supervisorUp, sessionsH.Export)
		}

		v1.POST("/transfers", anyRole, transfersH.Create)

		// Accounting — reading needs a supervisor, manual entries an administrator
		accounting := v1.Group("/accounting", supervisorUp)
		{
			accounting.POST("/entries", adminOnly, accountingH.PostEntry)
			accounting.GET("/journal", accountingH.Journal)
			accounting.GET("/ledger", accountingH.Ledger)
			accounting.GET("/trial-balance", accountingH.TrialBalance)
			accounting.GET("/accounts", accountingH.ListAccounts)
		}

		v1.GET("/admin/dlq", adminOnly, adminH.DLQ)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r, nil
}
