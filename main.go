package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"group-sync-service/internal/config"
	"group-sync-service/internal/db"
	"group-sync-service/internal/handlers"
	"group-sync-service/internal/middleware"
	"group-sync-service/internal/observability"
	"group-sync-service/internal/repositories"
	"group-sync-service/internal/sync"
	"group-sync-service/internal/telegram"
	"group-sync-service/internal/telemetry"
	"group-sync-service/internal/workers"
)

const serviceName = "group-sync-service"

func main() {
	cfg := config.Load()

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}
	tgClient, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("failed to create telegram client: %v", err)
	}

	var audit *telemetry.AuditEmitter
	if cfg.AMQPURL != "" {
		publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("rabbitmq disabled: %v", err)
		} else {
			defer publisher.Close()
			observability.SetPublisher(publisher)
			audit = telemetry.NewAuditEmitter(auditPublisher{publisher}, "audit.telegram-sync", serviceName, cfg.Environment)
		}
	}

	groupRepo := repositories.NewGroupRepo(database)
	mappingRepo := repositories.NewMappingRepo(database)
	adminRepo := repositories.NewAdminRightRepo(database)
	identityRepo := repositories.NewIdentityRepo(database)

	resolver := sync.NewResolver(groupRepo, mappingRepo)
	roleDeriver := sync.NewPGRoleDeriver(database)
	synchronizer := sync.NewSynchronizer(resolver, identityRepo, adminRepo, groupRepo, tgClient, roleDeriver)

	groupHandler := handlers.NewGroupHandler(resolver, synchronizer, mappingRepo, groupRepo, tgClient, audit)

	worker := workers.NewOrgSyncWorker(synchronizer, mappingRepo, identityRepo, cfg.SyncInterval)
	worker.Start()
	defer worker.Stop()

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	router.GET("/orgs/:org_id/telegram-groups", authMiddleware, groupHandler.ListGroups)
	router.POST("/orgs/:org_id/telegram-groups", authMiddleware, groupHandler.AttachGroup)
	router.POST("/orgs/:org_id/telegram-groups/sync", authMiddleware, groupHandler.SyncAdminRights)
	router.DELETE("/orgs/:org_id/telegram-groups/:chat_id", authMiddleware, groupHandler.ArchiveGroup)

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// auditPublisher adapts the AMQP publisher to the audit emitter's interface.
type auditPublisher struct {
	publisher *observability.AMQPPublisher
}

func (a auditPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return a.publisher.PublishJSON(ctx, routingKey, event, nil)
}

func (a auditPublisher) Close() error {
	return a.publisher.Close()
}
