package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"intranet_admin/internal/authgate"
	"intranet_admin/internal/config"
	"intranet_admin/internal/handler"
	"intranet_admin/internal/middleware"
	"intranet_admin/internal/model"
	"intranet_admin/internal/notify"
	"intranet_admin/internal/repository"
	"intranet_admin/internal/service"
	"intranet_admin/internal/viewstate"
	"intranet_admin/pkg/database"
	"intranet_admin/pkg/log"
	"intranet_admin/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run schema migrations before serving")
	return cmd
}

const viewStateSweepInterval = 10 * time.Minute

func serve(parent context.Context, cfg *config.Config, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Server starting")
	if cfg.Auth.BypassAdminCheck {
		log.Warnw("Admin check is bypassed, non-admin users can reach admin routes")
	}

	db, err := database.OpenMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		return err
	}
	if migrate {
		if err := database.RunMigrate(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	rdb, err := database.OpenRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	hub := notify.NewHub()
	defer hub.Close()
	registry := viewstate.NewRegistry()

	jwtManager := token.NewJWTManager(cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour,
		time.Duration(cfg.JWT.RefreshTokenExpireDays)*24*time.Hour)

	// 令牌自然过期的会话不会收到登出事件，按刷新令牌有效期回收它们的视图状态
	scheduler := cron.New()
	if _, err := registry.ScheduleSweep(scheduler, viewStateSweepInterval, jwtManager.RefreshTokenDuration()); err != nil {
		return fmt.Errorf("schedule view state sweep: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, repository.NewSessionRepository(rdb), jwtManager)

	gate := authgate.New(authgate.Policy{
		BypassAdminCheck:  cfg.Auth.BypassAdminCheck,
		LookupFailureRole: cfg.Auth.LookupFailureRole,
		AdminRole:         cfg.Auth.AdminRole,
		SignInPath:        cfg.Auth.SignInPath,
		DefaultPath:       cfg.Auth.DefaultPath,
		LookupTimeout:     cfg.Auth.LookupTimeout,
	}, authService, func(s authgate.Session, role string, err error) {
		log.Warnw("Role lookup failed, using configured role", "sessionId", s.ID, "userId", s.UserID, "role", role, "error", err)
	})

	// 登出（包括其他实例上的登出）使进行中的角色解析失效，清理该会话的视图状态并断开它的推送连接
	unsubscribe := authService.OnSessionChange(func(event repository.SessionEvent) {
		if event.Type != repository.SessionEventSignedOut {
			return
		}
		gate.Supersede(event.SessionID)
		registry.Drop(event.SessionID)
		hub.EndSession(event.SessionID, event.Type)
	})
	defer unsubscribe()

	go func() {
		if err := authService.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Session event listener stopped: %v", err)
		}
	}()

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger("/api/v1/auth"), gin.Recovery())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	registerRoutes(r, cfg, db, authService, userRepo, gate, hub, registry)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info("Shutdown signal received, closing server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info("Server stopped gracefully")
	return nil
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	authService service.AuthService,
	userRepo repository.UserRepository,
	gate *authgate.Gate,
	hub *notify.Hub,
	registry *viewstate.Registry,
) {
	list := handler.ListConfig{DefaultPageSize: cfg.List.DefaultPageSize, MaxPageSize: cfg.List.MaxPageSize}
	authRequired := middleware.AuthMiddleware(authService, gate)

	authHandler := handler.NewAuthHandler(authService)
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/sign-up", authHandler.SignUp)
		auth.POST("/sign-in", authHandler.SignIn)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/sign-out", authRequired, authHandler.SignOut)
		auth.GET("/me", authRequired, authHandler.Me)
	}

	categoryService := service.NewCategoryService(repository.NewCategoryRepository(db), registry, hub)

	admin := r.Group("/api/v1/admin", authRequired, middleware.AdminAuthMiddleware(gate))
	{
		handler.NewResourceHandler("company",
			service.NewCompanyService(repository.NewEntityRepository[model.Company](db, "name ASC", "status", "sector", "province"), hub),
			list).Register(admin, "/companies")
		handler.NewResourceHandler("delegation",
			service.NewDelegationService(repository.NewEntityRepository[model.Delegation](db, "name ASC", "company_id", "province"), hub),
			list).Register(admin, "/delegations")
		handler.NewResourceHandler("product",
			service.NewProductService(repository.NewEntityRepository[model.Product](db, "created_at DESC", "company_id", "category_id", "status"), categoryService, hub),
			list).Register(admin, "/products")
		handler.NewResourceHandler("user",
			service.NewUserService(userRepo, hub),
			list).Register(admin, "/users")
		handler.NewResourceHandler("news",
			service.NewNewsService(repository.NewEntityRepository[model.News](db, "created_at DESC", "status"), hub),
			list).Register(admin, "/news")
		handler.NewResourceHandler("alert",
			service.NewAlertService(repository.NewEntityRepository[model.Alert](db, "created_at DESC", "severity", "active"), hub),
			list).Register(admin, "/alerts")
		handler.NewResourceHandler("event",
			service.NewEventService(repository.NewEntityRepository[model.Event](db, "created_at DESC", "category"), hub),
			list).Register(admin, "/events")

		handler.NewCategoryHandler(categoryService).Register(admin)
		admin.GET("/ws", handler.NewWSHandler(hub).Serve)
	}
}
