package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/made-media/billdesk/internal/api"
	"github.com/made-media/billdesk/internal/auth"
	"github.com/made-media/billdesk/internal/billing"
	"github.com/made-media/billdesk/internal/cache"
	"github.com/made-media/billdesk/internal/config"
	"github.com/made-media/billdesk/internal/contracts"
	"github.com/made-media/billdesk/internal/freshdesk"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}

	if err := config.Load(configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	store := newCacheStore(cfg)
	defer store.Stop()

	helpdesk := freshdesk.NewClient(freshdesk.Config{
		Domain:       cfg.Freshdesk.Domain,
		APIKey:       cfg.Freshdesk.APIKey,
		TicketTTL:    cfg.Freshdesk.TicketTTL,
		DirectoryTTL: cfg.Freshdesk.DirectoryTTL,
	}, store)

	contractStore, err := contracts.NewStore(cfg.Contracts.WorkbookPath)
	if err != nil {
		log.Fatalf("Failed to open contract workbook: %v", err)
	}

	classifier := billing.NewClassifier(cfg.Billing.SaaSProducts, cfg.Billing.UnbillableStatuses)
	reconciler := billing.NewReconciler(helpdesk, classifier)

	renderer, err := api.NewRenderer(cfg.Server.TemplateDir)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	server := api.NewServer(api.Options{
		Helpdesk:     helpdesk,
		Contracts:    contractStore,
		Reconciler:   reconciler,
		Users:        auth.NewRegistry(configUsers(cfg)),
		JWTManager:   auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Renderer:     renderer,
		Territories:  cfg.Export.Territories,
		SecureCookie: cfg.App.IsProduction(),
	})

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	server.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting %s on %s", cfg.App.Name, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

func newCacheStore(cfg *config.Config) cache.Store {
	if cfg.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:      cfg.Cache.Redis.Addr,
			Password:  cfg.Cache.Redis.Password,
			DB:        cfg.Cache.Redis.DB,
			KeyPrefix: cfg.Cache.Redis.KeyPrefix,
		}, cache.NewMetrics("redis"))
		if err != nil {
			log.Printf("Redis unavailable, falling back to local cache: %v", err)
		} else {
			return store
		}
	}
	return cache.NewLocalStore(cache.LocalConfig{MaxSize: cfg.Cache.MaxSize}, cache.NewMetrics("local"))
}

func configUsers(cfg *config.Config) []auth.User {
	users := make([]auth.User, 0, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		users = append(users, auth.User{
			Username:     u.Username,
			Name:         u.Name,
			PasswordHash: u.PasswordHash,
			ClientCode:   u.ClientCode,
			Role:         u.Role,
		})
	}
	return users
}
