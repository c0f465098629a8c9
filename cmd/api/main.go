package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ines-sys/real-bank-api-retfull/internal/config"
	"github.com/ines-sys/real-bank-api-retfull/internal/handler"
	"github.com/ines-sys/real-bank-api-retfull/internal/integrations/bancentral"
	"github.com/ines-sys/real-bank-api-retfull/internal/middleware"
	"github.com/ines-sys/real-bank-api-retfull/internal/notify"
	"github.com/ines-sys/real-bank-api-retfull/internal/repository"
	"github.com/ines-sys/real-bank-api-retfull/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	sender := notify.NewSender(cfg, logger)
	svc := service.NewService(repo, sender, logger, cfg)
	h := handler.NewHandler(svc, logger)
	rateClient := bancentral.NewClient(cfg, logger)

	// Daily maturity sweep
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 8 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := svc.SendMaturityReminders(ctx); err != nil {
			logger.Errorf("Maturity sweep failed: %v", err)
		}
	}); err != nil {
		logger.Fatalf("Failed to schedule maturity sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	h.Register(r)
	// Central bank reference rate endpoint
	r.HandleFunc("/reference-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := rateClient.GetReferenceRate()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get reference rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"reference_rate": rate})
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
