package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/juju/clock"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/bubtconnect/backend/src/broker"
	"github.com/bubtconnect/backend/src/config"
	"github.com/bubtconnect/backend/src/controllers"
	"github.com/bubtconnect/backend/src/lib"
	"github.com/bubtconnect/backend/src/media"
	"github.com/bubtconnect/backend/src/middleware"
	"github.com/bubtconnect/backend/src/notify"
	"github.com/bubtconnect/backend/src/ratelimit"
	"github.com/bubtconnect/backend/src/repository"
	"github.com/bubtconnect/backend/src/repository/memstore"
	"github.com/bubtconnect/backend/src/repository/mongostore"
	"github.com/bubtconnect/backend/src/routes"
	"github.com/bubtconnect/backend/src/services"
	"github.com/bubtconnect/backend/src/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}
	lib.InitLogger(cfg.Local())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OtelEndpoint != "" {
		tp, err := lib.InitTracer(ctx, cfg.OtelEndpoint, cfg.ServiceName, cfg.Env)
		if err != nil {
			slog.Error("❌ Failed to init tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("❌ Failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	clk := clock.WallClock

	// Live broker: NATS fans pushes out across replicas, local otherwise
	var live broker.Broker
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			slog.Error("❌ Unable to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Close()
		nb, err := broker.NewNatsBroker(nc)
		if err != nil {
			slog.Error("❌ Unable to subscribe to live subjects", "error", err)
			os.Exit(1)
		}
		defer nb.Close()
		live = nb
		slog.Info("✅ Connected to NATS", "url", cfg.NatsURL)
	} else {
		live = broker.NewLocalBroker()
	}

	policy := ratelimit.Policy{Limit: cfg.Limits.ConnectionRequests, Window: cfg.Limits.Window}
	var limiter ratelimit.Limiter = ratelimit.NewStoreLimiter(store.Connections, clk, policy)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("❌ Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Error("❌ Failed to instrument Redis", "error", err)
			os.Exit(1)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("❌ Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, clk, policy)
		slog.Info("✅ Connected to Redis")
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTP.Host != "" {
		smtpMailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			Sender:   cfg.SMTP.Sender,
			Timeout:  cfg.SMTP.Timeout,
		})
		if err != nil {
			slog.Error("❌ Invalid SMTP settings", "error", err)
			os.Exit(1)
		}
		mailer = smtpMailer
	}
	dispatcher := notify.NewDispatcher(mailer, cfg.FrontendURL)

	var uploader media.Uploader
	if cfg.ImageKit.PrivateKey != "" {
		uploader = media.NewImageKit(media.ImageKitConfig{
			PrivateKey:  cfg.ImageKit.PrivateKey,
			URLEndpoint: cfg.ImageKit.URLEndpoint,
		})
	}

	engine := workflow.NewEngine(store.Jobs, clk, workflow.Config{
		PollInterval: cfg.Worker.PollInterval,
		Lease:        cfg.Worker.Lease,
		MaxAttempts:  cfg.Worker.MaxAttempts,
		Concurrency:  cfg.Worker.Concurrency,
	})

	notifications := services.NewNotificationService(store, live, clk)
	graph := services.NewGraphService(store, notifications)
	connections := services.NewConnectionService(store, limiter, engine, notifications, clk)
	messages := services.NewMessageService(store, live, uploader, clk)
	identity := services.NewIdentitySync(store, engine, clk)
	notifier := services.NewConnectionNotifier(store, dispatcher, cfg.Limits.ReminderDelay)
	engine.Handle(services.NewJobDispatcher(notifier, identity).Dispatch)

	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("❌ Job engine stopped", "error", err)
		}
	}()

	app := fiber.New(fiber.Config{BodyLimit: 16 * 1024 * 1024})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CorsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.Tracing(cfg.ServiceName))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(lib.MessageResponse("ok"))
	})

	protect := middleware.ProtectRoute(cfg.JWTSecret)
	routes.UserRoutes(app, protect, controllers.NewUserController(graph))
	routes.ConnectionRoutes(app, protect, controllers.NewConnectionController(connections, graph))
	routes.MessageRoutes(app, protect, controllers.NewMessageController(messages, live, 0))
	routes.NotificationRoutes(app, protect, controllers.NewNotificationController(notifications))
	if cfg.WebhookSecret != "" {
		routes.WebhookRoutes(app, controllers.NewWebhookController(identity, cfg.WebhookSecret))
	} else {
		slog.Warn("WEBHOOK_SECRET not set, identity webhooks disabled")
	}

	go func() {
		slog.Info("🚀 Server is running", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("❌ Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("🛑 Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (*repository.Store, func(), error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("Using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	client, db, err := lib.ConnectDB(ctx, cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }
	if err := lib.EnsureIndexes(ctx, db); err != nil {
		closeFn()
		return nil, nil, err
	}
	return mongostore.New(db), closeFn, nil
}
