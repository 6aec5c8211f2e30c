package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/palletor/ucpwms/internal/config"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/handlers"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/services/composition"
	"github.com/palletor/ucpwms/internal/services/packaging"
	"github.com/palletor/ucpwms/internal/services/picking"
	"github.com/palletor/ucpwms/internal/services/stock"
	"github.com/palletor/ucpwms/internal/services/ucp"
	"github.com/palletor/ucpwms/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// 3. Synchronize schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.PackagingType{},
		&models.Pallet{},
		&models.Position{},
		&models.Ucp{},
		&models.UcpItem{},
		&models.UcpHistory{},
		&models.UcpSequence{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Event feed hub
	hub := websocket.NewHub()
	go hub.Run()

	// 5. Core services
	packagingSvc := packaging.NewService(db)
	stockSvc := stock.NewService(db, packagingSvc)
	pickingSvc := picking.NewService(packagingSvc, stockSvc)
	compositionSvc := composition.NewService(db)
	ucpSvc := ucp.NewService(db, cfg.UcpPrefix, hub)

	// 6. HTTP router
	router := handlers.NewRouter(db, cfg, handlers.Services{
		Packaging:   packagingSvc,
		Stock:       stockSvc,
		Picking:     pickingSvc,
		Composition: compositionSvc,
		Ucp:         ucpSvc,
	}, hub)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 7. Start server with graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
