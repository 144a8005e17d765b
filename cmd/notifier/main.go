package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/Crhis35/nuber-eats-backend/internal/domain"
	"github.com/Crhis35/nuber-eats-backend/internal/mail"
	"github.com/Crhis35/nuber-eats-backend/internal/messaging"
	"github.com/Crhis35/nuber-eats-backend/internal/notifier"
	"github.com/Crhis35/nuber-eats-backend/internal/telemetry"
	"github.com/Crhis35/nuber-eats-backend/internal/users"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, "notifier", "1.0.0")
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	var sender mail.Sender
	if key := os.Getenv("MAILGUN_API_KEY"); key != "" {
		sender = mail.NewMailgunSender(key, os.Getenv("MAILGUN_DOMAIN"), os.Getenv("MAILGUN_FROM"), nil, logger)
	} else {
		logger.Warn("MAILGUN_API_KEY not set, mail is disabled")
		sender = mail.NopSender{}
	}

	brokers := strings.Split(kafkaBrokers, ",")
	consumer := messaging.NewConsumer(brokers, domain.TopicOrderCreated, "order-notifier")
	defer func() { _ = consumer.Close() }()

	handler := notifier.NewHandler(users.NewRepository(db), sender, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting order notifier", "brokers", brokers)

	if err := consumer.Consume(ctx, handler.HandleOrderCreated); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
