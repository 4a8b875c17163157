package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/auth"
	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handler"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Redis  *redis.Client
}

// Deps are the collaborators the router is built from.
type Deps struct {
	DB      *gorm.DB
	Tokens  *auth.TokenManager
	Members handler.MembershipStore
	Logger  zerolog.Logger
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
}

func Init(cfg *config.Config) (*Server, error) {
	if cfg.AutoMigrate {
		if err := migrateUp(cfg); err != nil {
			return nil, err
		}
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	var members handler.MembershipStore = repository.NewMembershipRepository(db)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		members = cache.NewCachedMemberships(repository.NewMembershipRepository(db), redisClient, cfg.RoleCacheTTL)
		log.Info().Dur("ttl", cfg.RoleCacheTTL).Msg("✅ Role cache enabled")
	}

	engine := NewRouter(Deps{
		DB:      db,
		Tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry),
		Members: members,
		Logger:  log.Logger,
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
			if redisClient != nil {
				if err := redisClient.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		},
	})

	return &Server{
		Engine: engine,
		DB:     db,
		Config: cfg,
		Redis:  redisClient,
	}, nil
}

func migrateUp(cfg *config.Config) error {
	migrator, err := database.NewMigrator(cfg.MigrationURL())
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

// NewRouter wires repositories, the guard and handlers onto a gin engine.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger), gin.Recovery())

	db := deps.DB

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	columnRepo := repository.NewColumnRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	labelRepo := repository.NewLabelRepository(db)
	reorderRepo := repository.NewReorderRepository(db)
	guard := access.NewGuard(deps.Members, repository.NewHierarchyRepository(db))

	// Initialize handlers
	userHandler := handler.NewUserHandler(userRepo, deps.Tokens)
	projectHandler := handler.NewProjectHandler(projectRepo, deps.Members, guard)
	memberHandler := handler.NewMemberHandler(deps.Members, userRepo, guard)
	labelHandler := handler.NewLabelHandler(labelRepo, guard)
	boardHandler := handler.NewBoardHandler(boardRepo, guard)
	columnHandler := handler.NewColumnHandler(columnRepo, reorderRepo, guard)
	taskHandler := handler.NewTaskHandler(taskRepo, reorderRepo, deps.Members, guard)
	commentHandler := handler.NewCommentHandler(commentRepo, guard)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/healthz", healthz(deps.Ready))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(deps.Tokens))
	{
		// Project routes
		authorized.GET("/projects", projectHandler.GetAll)
		authorized.POST("/projects", projectHandler.Create)
		authorized.GET("/projects/:id", projectHandler.GetByID)
		authorized.PUT("/projects/:id", projectHandler.Update)
		authorized.DELETE("/projects/:id", projectHandler.Delete)

		// Membership routes
		authorized.GET("/projects/:id/members", memberHandler.List)
		authorized.POST("/projects/:id/members", memberHandler.Add)
		authorized.GET("/projects/:id/members/:member_id", memberHandler.Get)
		authorized.PUT("/projects/:id/members/:member_id", memberHandler.Update)
		authorized.DELETE("/projects/:id/members/:member_id", memberHandler.Remove)

		// Label routes
		authorized.GET("/projects/:id/labels", labelHandler.GetByProject)
		authorized.POST("/projects/:id/labels", labelHandler.Create)
		authorized.PUT("/labels/:id", labelHandler.Update)
		authorized.DELETE("/labels/:id", labelHandler.Delete)

		// Board routes
		authorized.GET("/boards", boardHandler.GetAll)
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards/:id", boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardHandler.Update)
		authorized.DELETE("/boards/:id", boardHandler.Delete)
		authorized.GET("/boards/:id/columns", columnHandler.GetByBoard)
		authorized.POST("/boards/:id/columns/reorder", columnHandler.Reorder)

		// Column routes
		authorized.GET("/columns", columnHandler.GetAll)
		authorized.POST("/columns", columnHandler.Create)
		authorized.GET("/columns/:id", columnHandler.GetByID)
		authorized.PUT("/columns/:id", columnHandler.Update)
		authorized.DELETE("/columns/:id", columnHandler.Delete)
		authorized.GET("/columns/:id/tasks", taskHandler.GetByColumn)
		authorized.POST("/columns/:id/tasks/reorder", taskHandler.Reorder)

		// Task routes
		authorized.GET("/tasks", taskHandler.GetAll)
		authorized.POST("/tasks", taskHandler.Create)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/move", taskHandler.Move)
		authorized.POST("/tasks/:id/assign", taskHandler.Assign)
		authorized.DELETE("/tasks/:id/assign", taskHandler.Unassign)
		authorized.POST("/tasks/:id/labels/:label_id", taskHandler.AddLabel)
		authorized.DELETE("/tasks/:id/labels/:label_id", taskHandler.RemoveLabel)

		// Comment routes
		authorized.GET("/tasks/:id/comments", commentHandler.List)
		authorized.POST("/tasks/:id/comments", commentHandler.Create)
		authorized.GET("/tasks/:id/comments/:comment_id", commentHandler.Get)
		authorized.PUT("/tasks/:id/comments/:comment_id", commentHandler.Update)
		authorized.DELETE("/tasks/:id/comments/:comment_id", commentHandler.Delete)
	}

	return r
}

func healthz(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("health check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              ":" + s.Config.ServerPort,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", s.Config.ServerPort).Msg("🚀 Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to listen: %w", err)
	case <-quit:
	}
	log.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.close()
	log.Info().Msg("✅ Server exited properly")
	return nil
}

func (s *Server) close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("closing redis")
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
}
