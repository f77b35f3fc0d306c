package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"colonial/internal/activity"
	"colonial/internal/api"
	"colonial/internal/config"
	"colonial/internal/coupons"
	"colonial/internal/database"
	"colonial/internal/inventory"
	"colonial/internal/loyalty"
	"colonial/internal/monitoring"
	"colonial/internal/orders"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
	dbPath      = flag.String("db", "", "SQLite database path (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Server.MetricsPort = *metricsPort
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	db, err := database.InitDB(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()

	if err := database.Migrate(db); err != nil {
		logrus.Fatalf("Failed to migrate database: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		logrus.Fatalf("Failed to seed database: %v", err)
	}

	policy := inventory.Policy{
		Enabled:       cfg.Inventory.Enabled,
		AllowNegative: cfg.Inventory.AllowNegativeStock,
	}
	metrics := monitoring.NewMetrics()
	ledger := inventory.NewLedger(db)
	resolver := inventory.NewResolver(db)
	validator := inventory.NewValidator(db, resolver, policy)
	couponEngine := coupons.NewEngine(db)
	loyaltyLedger := loyalty.NewLedger(db)
	activityLog := activity.NewLogger(db)
	orderService := orders.NewService(db, ledger, resolver, validator, couponEngine, loyaltyLedger, metrics)

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.New(db, orderService, ledger, resolver, validator,
			couponEngine, loyaltyLedger, activityLog, metrics).Router,
	}

	go startMetricsServer(cfg.Server.MetricsPort)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logrus.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("API server shutdown error: %v", err)
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":             cfg.Server.Port,
		"inventory":        policy.Enabled,
		"negative_allowed": policy.AllowNegative,
	}).Info("Starting API server")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logrus.Fatalf("API server error: %v", err)
	}
}

func startMetricsServer(port int) {
	metricsRouter := gin.Default()
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	logrus.Infof("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		logrus.Errorf("Metrics server error: %v", err)
	}
}
