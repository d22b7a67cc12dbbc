// README: Entry point; loads config, wires services, starts HTTP server and background jobs.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parcelo/internal/config"
	"parcelo/internal/gateway"
	httptransport "parcelo/internal/http"
	"parcelo/internal/infra"
	"parcelo/internal/maps"
	"parcelo/internal/modules/confirmation"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/modules/notification"
	"parcelo/internal/modules/tracking"
	"parcelo/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("PARCELO_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	var router tracking.Router
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		router = routeSvc
	} else {
		log.Print("PARCELO_MAPS_API_KEY not set; ETAs fall back to straight-line estimates")
	}

	hub := realtime.NewHub(cfg.Realtime)

	deliveryStore := delivery.NewPostgresStore(dbPool)
	deliverySvc := delivery.NewService(deliveryStore)

	confirmationStore := confirmation.NewPostgresStore(dbPool)
	confirmationSvc := confirmation.NewService(confirmationStore, cfg.Code.TTL)

	trackingStore := tracking.NewPostgresStore(dbPool, redisClient)
	trackingSvc := tracking.NewService(trackingStore, deliverySvc, router)

	notificationStore := notification.NewPostgresStore(dbPool)
	notificationSvc := notification.NewService(notificationStore, hub)

	gw := gateway.New(gateway.Deps{
		Delivery:     deliverySvc,
		Confirmation: confirmationSvc,
		Tracking:     trackingSvc,
		Notification: notificationSvc,
		Hub:          hub,
	})

	engine := httptransport.NewRouter(httptransport.RouterDeps{
		Delivery:     deliverySvc,
		Notification: notificationSvc,
		Gateway:      gw,
		Hub:          hub,
		Verifier:     verifier,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: engine}

	go confirmationSvc.RunExpiryJanitor(ctx, time.Hour)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		hub.Shutdown()
	}()

	log.Printf("parcelo-api listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
