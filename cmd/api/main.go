package main

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
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flicky/storefront-api/internal/config"
	"github.com/flicky/storefront-api/internal/handler"
	"github.com/flicky/storefront-api/internal/logger"
	"github.com/flicky/storefront-api/internal/middleware"
	"github.com/flicky/storefront-api/internal/repository"
	"github.com/flicky/storefront-api/internal/service"
	"github.com/flicky/storefront-api/internal/token"
	"github.com/flicky/storefront-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to Redis: %w", err)
	}
	log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// RabbitMQ: one channel consumes, one publishes
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer amqpConn.Close()

	consumeCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer consumeCh.Close()

	if err := worker.SetupRabbitMQ(consumeCh); err != nil {
		return fmt.Errorf("setup RabbitMQ: %w", err)
	}

	publishCh, err := amqpConn.Channel()
	if err != nil {
		return fmt.Errorf("open RabbitMQ channel: %w", err)
	}
	defer publishCh.Close()
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	categoryRepo := repository.NewCategoryRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	adminRepo := repository.NewAdminRepository(dbPool)

	// Services
	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	authSvc := service.NewAuthService(userRepo, tokens)
	productSvc := service.NewProductService(productRepo, redisClient, log)
	categorySvc := service.NewCategoryService(categoryRepo)
	cartSvc := service.NewCartService(cartRepo, productRepo, worker.NewPublisher(publishCh), log)
	adminSvc := service.NewAdminService(adminRepo, userRepo)

	// Handlers
	handler.RegisterValidators()
	authH := handler.NewAuthHandler(authSvc, log)
	productH := handler.NewProductHandler(productSvc, log)
	categoryH := handler.NewCategoryHandler(categorySvc, log)
	cartH := handler.NewCartHandler(cartSvc, log)
	adminH := handler.NewAdminHandler(adminSvc, log)
	healthH := handler.NewHealthHandler(
		handler.PostgresCheck(dbPool),
		handler.RedisCheck(redisClient),
		handler.RabbitMQCheck(amqpConn),
	)

	// Worker
	checkoutWorker := worker.NewCheckoutWorker(consumeCh, redisClient, productSvc, log)

	// Router
	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	requireAuth := middleware.Auth(tokens)
	adminOnly := middleware.AdminOnly()
	authLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authLimiter.Middleware(), authH.Register)
		auth.POST("/login", authLimiter.Middleware(), authH.Login)
		auth.POST("/logout", requireAuth, authH.Logout)
		auth.GET("/me", requireAuth, authH.Me)
		auth.PUT("/profile", requireAuth, authH.UpdateProfile)

		products := v1.Group("/products")
		products.GET("/list", productH.List)
		products.GET("/detail/:id", productH.GetByID)
		products.GET("/category/:category", productH.ListByCategory)
		products.GET("/filter", productH.Filter)
		products.POST("", requireAuth, adminOnly, productH.Create)
		products.PUT("/:id", requireAuth, adminOnly, productH.Update)
		products.DELETE("/:id", requireAuth, adminOnly, productH.Delete)

		v1.GET("/categories", categoryH.List)
		v1.POST("/categories", requireAuth, adminOnly, categoryH.Create)

		cart := v1.Group("/cart", requireAuth)
		cart.GET("", cartH.GetCart)
		cart.GET("/paid", cartH.GetPaid)
		cart.POST("/add", cartH.AddItem)
		cart.PUT("/update-status", cartH.Checkout)
		cart.DELETE("/delete/:cartItemId", cartH.RemoveItem)
		cart.GET("/admin/user-cart", adminOnly, adminH.UserCarts)
		cart.GET("/admin/total-paid-items", adminOnly, adminH.PaidTotals)

		admin := v1.Group("/admin", requireAuth, adminOnly)
		admin.DELETE("/users/:id", adminH.DeleteUser)
	}

	if err := checkoutWorker.Start(ctx); err != nil {
		return fmt.Errorf("start checkout worker: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}

	checkoutWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
	return nil
}
