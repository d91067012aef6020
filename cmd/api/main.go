package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasknest.org/internal/access"
	"tasknest.org/internal/cache"
	"tasknest.org/internal/config"
	"tasknest.org/internal/httpapi"
	"tasknest.org/internal/obs"
	mongostore "tasknest.org/internal/store/mongo"
	"tasknest.org/internal/store/pg"
	"tasknest.org/internal/todo"
	"tasknest.org/internal/workspace"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Relational access store; in-memory fallback for local development.
	var (
		accessStore access.Store
		probe       httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer pgStore.Close()
		accessStore = pgStore
		probe.DB = pgStore.DB()
	} else {
		log.Println("TASKNEST_PG_DSN not set, using in-memory access store")
		accessStore = access.NewInMemory()
	}

	// Document store for lists and items.
	var (
		listStore todo.ListStore
		itemStore todo.ItemStore
	)
	if cfg.MongoURI != "" {
		connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
		docStore, err := mongostore.Open(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		connectCancel()
		if err != nil {
			log.Fatalf("open mongo: %v", err)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = docStore.Close(closeCtx)
		}()
		if err := docStore.EnsureIndexes(ctx); err != nil {
			log.Fatalf("ensure mongo indexes: %v", err)
		}
		listStore = docStore
		itemStore = docStore
		probe.DocPinger = docStore.Ping
	} else {
		log.Println("TASKNEST_MONGO_URI not set, using in-memory document store")
		listStore = todo.NewInMemoryLists()
		itemStore = todo.NewInMemoryItems()
	}

	accessSvc, err := access.NewService(accessStore,
		access.WithAccessTTL(cfg.AccessTokenTTL),
		access.WithRefreshTTL(cfg.RefreshTokenTTL),
	)
	if err != nil {
		log.Fatalf("access service: %v", err)
	}

	listCache := cache.NewTTL[todo.TodoList](cfg.ListCacheTTL)
	listCache.Start(time.Minute)
	defer listCache.Stop()

	facade := workspace.New(
		accessSvc,
		todo.NewListService(listStore),
		todo.NewItemService(itemStore),
		workspace.WithListCache(listCache),
	)

	api := httpapi.New(probe, version, accessSvc, facade)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := httpapi.NewGRPCServer(probe)
	go grpcSrv.WatchReadiness(ctx, 10*time.Second)
	go func() {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		log.Printf("Starting tasknest-api grpc on %s", cfg.GRPCAddr)
		if err := grpcSrv.Server().Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	log.Printf("Starting tasknest-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.Server().GracefulStop()
	log.Println("Stopped")
}
