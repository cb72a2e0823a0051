package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"

	"report-workflow-service/config"
	"report-workflow-service/database"
	"report-workflow-service/handlers"
	"report-workflow-service/middleware"
	"report-workflow-service/notify"
	"report-workflow-service/rabbitmq"
	"report-workflow-service/retry"
	"report-workflow-service/service"
)

func main() {
	cfg := config.Load()

	db, err := setupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}
	defer db.Close()

	if err := database.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}

	workflowDB := database.NewWorkflowService(db)

	dispatcher, publisher := setupDispatcher(cfg)
	defer dispatcher.Close()
	if publisher != nil {
		defer publisher.Close()
	}

	policy := retry.Policy{
		MaxAttempts: uint64(cfg.RetryMaxAttempts),
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}
	svc := service.New(workflowDB, dispatcher, policy, cfg.BulkWorkers)

	var broker handlers.BrokerStatus
	if publisher != nil {
		broker = publisher
	}
	router := setupRouter(cfg, handlers.NewHandlers(svc, workflowDB, broker))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupDatabase(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	deadline := time.Now().Add(60 * time.Second)
	waitInterval := time.Second
	for {
		pingErr := db.Ping()
		if pingErr == nil {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("database ping timeout: %w", pingErr)
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, pingErr)
		time.Sleep(waitInterval)
		waitInterval *= 2
		if waitInterval > 30*time.Second {
			waitInterval = 30 * time.Second
		}
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return db, nil
}

// setupDispatcher wires the configured notification sinks. Both sinks are
// optional; with neither configured the dispatcher is a no-op and mutations
// proceed without notifications.
func setupDispatcher(cfg *config.Config) (*notify.Dispatcher, *rabbitmq.Publisher) {
	var sinks []notify.Notifier
	var publisher *rabbitmq.Publisher

	if cfg.AMQPURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.NotifyExchange, cfg.NotifyRouting)
		if err != nil {
			log.Warnf("RabbitMQ unavailable, event publishing disabled: %v", err)
		} else {
			publisher = p
			sinks = append(sinks, notify.NewAMQPNotifier(p))
			log.Infof("Publishing status events to exchange %s", cfg.NotifyExchange)
		}
	}

	if cfg.SendGridAPIKey != "" {
		sinks = append(sinks, notify.NewEmailNotifier(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddr))
		log.Info("Email notifications enabled")
	}

	if len(sinks) == 0 {
		log.Warn("No notification sinks configured")
	}

	return notify.NewDispatcher(sinks...), publisher
}

func setupRouter(cfg *config.Config, h *handlers.Handlers) *gin.Engine {
	router := gin.Default()
	if len(cfg.TrustedProxies) > 0 {
		router.SetTrustedProxies(cfg.TrustedProxies)
	}

	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api/v3")
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		api.POST("/reports", h.CreateReport)
		api.GET("/reports/:id", h.GetReport)
		api.GET("/reports/:id/history", h.GetStatusHistory)
		api.GET("/reports/:id/transitions", h.GetAllowedTransitions)
		api.POST("/reports/:id/status", h.UpdateStatus)
		api.PATCH("/reports/:id/priority", h.UpdatePriority)
		api.POST("/reports/:id/assign", h.AssignReport)
		api.DELETE("/reports/:id", h.DeleteReport)
		api.POST("/reports/bulk", h.ExecuteBulk)
	}

	return router
}
