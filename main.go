package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudpharmacy/cloudstore/config"
	"github.com/cloudpharmacy/cloudstore/controllers"
	"github.com/cloudpharmacy/cloudstore/database"
	"github.com/cloudpharmacy/cloudstore/logger"
	"github.com/cloudpharmacy/cloudstore/middleware"
	"github.com/cloudpharmacy/cloudstore/repository"
	"github.com/cloudpharmacy/cloudstore/services"
	"github.com/cloudpharmacy/cloudstore/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type repositories struct {
	products   services.ProductRepository
	orders     services.OrderIndex
	categories interface {
		services.CategoryStore
		services.CategoryLookup
	}
	users services.UserStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
	zl.Info("server has been gracefully shutdown")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	repos, client, err := openRepositories(ctx, cfg.Database, zl)
	if err != nil {
		return err
	}
	if client != nil {
		defer database.Disconnect(client, zl)
	}

	blobs, closer, err := storage.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer closer.Close()
	zl.Info("blob store ready", zap.String("driver", cfg.Blob.Driver))

	catalog := services.NewCatalogService(
		repos.products,
		repos.orders,
		repos.categories,
		blobs,
		services.PhotoPolicy{Required: cfg.Photo.Required, MaxBytes: cfg.Photo.MaxBytes},
		zl,
	)
	categories := services.NewCategoryService(repos.categories)
	auth := services.NewAuthService(repos.users, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, zl)

	if cfg.Auth.AdminEmail != "" {
		if err := auth.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(middleware.RequestLogger(zl))
	r.Use(gin.Recovery())
	controllers.RegisterRoutes(r, controllers.NewApp(catalog, categories, auth, zl), cfg.APIPrefix, cfg.Auth.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errGrp, grpCtx := errgroup.WithContext(ctx)
	errGrp.Go(func() error {
		zl.Info("server started", zap.String("addr", srv.Addr), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	errGrp.Go(func() error {
		<-grpCtx.Done()
		zl.Info("server is gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server failed shutdown gracefully: %w", err)
		}
		return nil
	})
	return errGrp.Wait()
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig, zl *zap.Logger) (*repositories, *mongo.Client, error) {
	if cfg.Driver == "memory" {
		zl.Warn("using in-memory repositories, data is lost on restart")
		return &repositories{
			products:   repository.NewMemoryProductRepository(),
			orders:     repository.NewMemoryOrderIndex(),
			categories: repository.NewMemoryCategoryRepository(),
			users:      repository.NewMemoryUserRepository(),
		}, nil, nil
	}

	client, err := database.Connect(ctx, cfg.URI, zl)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(cfg.Name)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		database.Disconnect(client, zl)
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return &repositories{
		products:   repository.NewMongoProductRepository(db.Collection("products")),
		orders:     repository.NewMongoOrderIndex(db.Collection("orders")),
		categories: repository.NewMongoCategoryRepository(db.Collection("categories")),
		users:      repository.NewMongoUserRepository(db.Collection("users")),
	}, client, nil
}

func corsConfig(origins []string) cors.Config {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[origin] = true
	}
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
