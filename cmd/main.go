package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	c "github.com/hanbeyoglu/snelstart-order-app-sub001/internal/cache"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/events"
	h "github.com/hanbeyoglu/snelstart-order-app-sub001/internal/http"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/repository"
	s "github.com/hanbeyoglu/snelstart-order-app-sub001/internal/service"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/snelstart"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/submission"
	"github.com/hanbeyoglu/snelstart-order-app-sub001/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// MongoDB holds the working carts
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	repo := repository.NewMongoRepository(mongoDB)
	if err := repo.CreateIndexes(ctx); err != nil {
		log.Fatalf("failed to create MongoDB indexes: %v", err)
	}
	log.Printf("connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	// Postgres holds the submission attempts and their idempotency keys
	cred := &submission.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	submissionRepo, err := submission.NewRepository(cred)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer submissionRepo.Close()
	if err := submissionRepo.RunMigrations(cred); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Printf("connected to Postgres at %s:%d", cfg.PostgresHost, cfg.PostgresPort)

	publisher := events.NewPublisher(strings.Split(cfg.KafkaBrokers, ",")...)
	defer publisher.Close()

	tokens := snelstart.NewTokenSource(cfg.SnelstartTokenURL, cfg.SnelstartIntegrationKey, cfg.UpstreamTimeout)
	apiClient := snelstart.NewClient(cfg.SnelstartBaseURL, tokens, cfg.UpstreamTimeout)

	cache := c.NewRedisCache(redisClient)
	cartService := s.NewCartService(repo, cache)
	submitService := submission.NewService(submissionRepo, cartService, apiClient, cache, publisher)

	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	orderHandler := h.NewOrderHandler(submitService, apiClient, cache, cfg.RequestTimeout)
	sessionHandler := h.NewSessionHandler(cartService, tokens, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}/quantity", cartHandler.UpdateQuantity)
			r.Put("/items/{product_id}/price", cartHandler.UpdatePrice)
			r.Post("/items/{product_id}/price/validate", cartHandler.ValidatePrice)
			r.Put("/items/{product_id}/discount", cartHandler.ApplyDiscount)
			r.Delete("/items/{product_id}/price", cartHandler.ResetPrice)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Put("/customer", cartHandler.SetCustomer)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Submit)
			r.Get("/", orderHandler.List)
			r.Get("/{order_id}", orderHandler.Get)
		})
		r.Route("/session", func(r chi.Router) {
			r.Post("/login", sessionHandler.Login)
			r.Post("/logout", sessionHandler.Logout)
			r.Get("/status", sessionHandler.Status)
			r.Post("/refresh", sessionHandler.Refresh)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("order app starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Printf("MongoDB disconnect error: %v", err)
	}
	log.Println("order app stopped")
}
