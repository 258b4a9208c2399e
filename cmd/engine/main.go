package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deadpixel-labs/deathclock/auth"
	"github.com/deadpixel-labs/deathclock/broker"
	"github.com/deadpixel-labs/deathclock/coordinator"
	"github.com/deadpixel-labs/deathclock/db"
	"github.com/deadpixel-labs/deathclock/notification"
	"github.com/deadpixel-labs/deathclock/settings"
	"github.com/deadpixel-labs/deathclock/subscription"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v7"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var environment auth.Environment
	var dotFile string
	var err error

	// Determine running environment and initialize structural logger
	env := os.Getenv("ENV")
	if "production" == env {
		dotFile = ".env.production"
		environment = auth.EnvProduction
		logger, err = zap.NewProduction()
	} else {
		dotFile = ".env.development"
		environment = auth.EnvDevelopment
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Environment: string(environment),
		Debug:       environment == auth.EnvDevelopment,
	}); err != nil {
		log.Fatal("Cannot initialize sentry",
			zap.Error(err),
		)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "engine",
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		log.Fatalf("Cannot initialize zapsentry: %v\n", err)
	}
	logger = zapsentry.AttachCoreToLogger(core, logger)

	defer logger.Sync()

	// Load configurations from dotFile
	if err := godotenv.Load(dotFile); err != nil {
		logger.Fatal("Cannot load configurations from .env",
			zap.Error(err),
		)
	}

	// Initialize backend connections
	db, err := db.New(db.Options{
		URI:    os.Getenv("POSTGRES_URI"),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot connect to Postgres",
			zap.Error(err),
		)
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{os.Getenv("REDIS_URI")},
		Password: os.Getenv("REDIS_PW"),
		DB:       0,
	})
	if _, err := rdb.Ping().Result(); err != nil {
		logger.Fatal("Cannot connect to Redis",
			zap.Error(err),
		)
	}
	defer rdb.Close()

	amqpBroker, err := broker.NewAMQPBroker(os.Getenv("AMQP_URI"))
	if err != nil {
		logger.Fatal("Cannot connect to Broker",
			zap.Error(err),
		)
	}
	defer amqpBroker.Close()

	subscriptionManager, err := subscription.NewManager(subscription.ManagerOptions{
		DB:     db,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize SubscriptionManager",
			zap.Error(err),
		)
	}

	settingsManager, err := settings.NewManager(settings.ManagerOptions{
		DB:     db,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize SettingsManager",
			zap.Error(err),
		)
	}

	ledger, err := notification.NewRedisLedger(rdb, "deathclock")
	if err != nil {
		logger.Fatal("Cannot initialize notification ledger",
			zap.Error(err),
		)
	}

	notifier, err := notification.NewBrokerNotifier(amqpBroker)
	if err != nil {
		logger.Fatal("Cannot initialize notifier",
			zap.Error(err),
		)
	}

	scheduler, err := notification.NewScheduler(notification.SchedulerOptions{
		Settings: settingsManager,
		Ledger:   ledger,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize notification scheduler",
			zap.Error(err),
		)
	}

	lifecycle, err := coordinator.New(coordinator.Options{
		Store:     subscriptionManager,
		Scheduler: scheduler,
		Producer:  amqpBroker,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Cannot initialize lifecycle coordinator",
			zap.Error(err),
		)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	if err := lifecycle.Start(ctx); err != nil {
		logger.Fatal("Cannot start lifecycle coordinator",
			zap.Error(err),
		)
	}

	logger.Info("Lifecycle engine started")

	<-c
	cancel()
	lifecycle.Stop()
}
