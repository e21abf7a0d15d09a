package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront.dev/internal/auth"
	"storefront.dev/internal/config"
	"storefront.dev/internal/httpapi"
	"storefront.dev/internal/migrate"
	"storefront.dev/internal/obs"
	"storefront.dev/internal/products"
	"storefront.dev/internal/roles"
	"storefront.dev/internal/store/pg"
	"storefront.dev/internal/users"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

const sessionSweepInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	store, err := pg.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	if cfg.RunMigrations {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrate.NewManager(store.DB(), "migrations", "").Up(ctx); err != nil {
			cancel()
			log.Fatalf("migrate: %v", err)
		}
		cancel()
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.JWTKey), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	userStore := store.Users()
	sessions := auth.NewSessionManager(store.Sessions(), userStore, codec, cfg.RefreshTTL)

	api := httpapi.New(httpapi.Deps{
		Ready:     httpapi.ReadyProbe{DB: store.DB()},
		Sessions:  sessions,
		Evaluator: auth.NewEvaluator(store.Roles()),
		Users:     users.New(userStore),
		Roles:     roles.New(store.Roles(), userStore),
		Products:  products.NewService(store.Products()),
	}, version)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n, err := sessions.Sweep(sweepCtx); err != nil {
					log.Printf("session sweep: %v", err)
				} else if n > 0 {
					log.Printf("session sweep: removed %d expired sessions", n)
				}
			}
		}
	}()

	log.Printf("Starting storefront-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
