package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/Crhis35/nuber-eats-backend/internal/auth"
	"github.com/Crhis35/nuber-eats-backend/internal/domain"
	"github.com/Crhis35/nuber-eats-backend/internal/mail"
	"github.com/Crhis35/nuber-eats-backend/internal/messaging"
	"github.com/Crhis35/nuber-eats-backend/internal/notify"
	"github.com/Crhis35/nuber-eats-backend/internal/orders"
	"github.com/Crhis35/nuber-eats-backend/internal/payments"
	"github.com/Crhis35/nuber-eats-backend/internal/restaurants"
	"github.com/Crhis35/nuber-eats-backend/internal/telemetry"
	"github.com/Crhis35/nuber-eats-backend/internal/users"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "api", "1.0.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("api", "1.0.0")
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime metrics", "error", err)
		os.Exit(1)
	}

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

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	tokenTTL := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			logger.Error("invalid TOKEN_TTL", "error", err)
			os.Exit(1)
		}
		tokenTTL = ttl
	}
	tokens := auth.NewTokenManager(jwtSecret, tokenTTL)

	var sender mail.Sender
	if key := os.Getenv("MAILGUN_API_KEY"); key != "" {
		sender = mail.NewMailgunSender(key, os.Getenv("MAILGUN_DOMAIN"), os.Getenv("MAILGUN_FROM"), nil, logger)
	} else {
		logger.Warn("MAILGUN_API_KEY not set, mail is disabled")
		sender = mail.NopSender{}
	}

	var broker notify.Broker
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		broker = notify.NewRedisBroker(redisAddr, logger)
		logger.Info("using redis broker", "addr", redisAddr)
	} else {
		memory := notify.NewMemoryBroker()
		defer memory.Close()
		broker = memory
	}

	var producer *messaging.Producer
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer = messaging.NewProducer(strings.Split(kafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
	} else {
		logger.Warn("KAFKA_BROKERS not set, durable order events are disabled")
	}

	userRepo := users.NewRepository(db)
	restaurantRepo := restaurants.NewRepository(db)
	orderRepo := orders.NewOrderRepository(db)
	paymentRepo := payments.NewRepository(db)

	userService := users.NewService(userRepo, tokens, sender, logger)
	restaurantService := restaurants.NewService(restaurantRepo, logger)
	paymentService := payments.NewService(paymentRepo, restaurantRepo, logger)

	var orderService *orders.Service
	if producer != nil {
		orderService = orders.NewService(orderRepo, restaurantRepo, broker, producer, logger)
	} else {
		orderService = orders.NewService(orderRepo, restaurantRepo, broker, nil, logger)
	}

	userHandler := users.NewHandler(userService, logger)
	restaurantHandler := restaurants.NewHandler(restaurantService, logger)
	orderHandler := orders.NewHandler(orderService, logger)
	subscriptionHandler := orders.NewSubscriptionHandler(broker, logger)
	paymentHandler := payments.NewHandler(paymentService, logger)

	authn := auth.NewMiddleware(tokens, userService, logger)

	route := func(h http.HandlerFunc, roles ...domain.UserRole) http.HandlerFunc {
		return telemetry.WithHTTPRoute(auth.RequireRole(h, roles...))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", telemetry.WithHTTPRoute(userHandler.HandleCreateAccount))
	mux.HandleFunc("POST /users/login", telemetry.WithHTTPRoute(userHandler.HandleLogin))
	mux.HandleFunc("POST /users/verify", telemetry.WithHTTPRoute(userHandler.HandleVerifyEmail))
	mux.HandleFunc("GET /users/me", route(userHandler.HandleMe))
	mux.HandleFunc("GET /users/{id}", route(userHandler.HandleProfile))
	mux.HandleFunc("PATCH /users/me", route(userHandler.HandleEditProfile))

	mux.HandleFunc("GET /restaurants", telemetry.WithHTTPRoute(restaurantHandler.HandleList))
	mux.HandleFunc("GET /restaurants/search", telemetry.WithHTTPRoute(restaurantHandler.HandleSearch))
	mux.HandleFunc("GET /restaurants/{id}", telemetry.WithHTTPRoute(restaurantHandler.HandleGet))
	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(restaurantHandler.HandleCategories))
	mux.HandleFunc("GET /categories/{slug}", telemetry.WithHTTPRoute(restaurantHandler.HandleCategory))
	mux.HandleFunc("POST /restaurants", route(restaurantHandler.HandleCreate, domain.RoleOwner))
	mux.HandleFunc("PATCH /restaurants/{id}", route(restaurantHandler.HandleEdit, domain.RoleOwner))
	mux.HandleFunc("DELETE /restaurants/{id}", route(restaurantHandler.HandleDelete, domain.RoleOwner))
	mux.HandleFunc("POST /dishes", route(restaurantHandler.HandleCreateDish, domain.RoleOwner))
	mux.HandleFunc("PATCH /dishes/{id}", route(restaurantHandler.HandleEditDish, domain.RoleOwner))
	mux.HandleFunc("DELETE /dishes/{id}", route(restaurantHandler.HandleDeleteDish, domain.RoleOwner))

	mux.HandleFunc("POST /orders", route(orderHandler.HandleCreate, domain.RoleClient))
	mux.HandleFunc("GET /orders", route(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", route(orderHandler.HandleGet))
	mux.HandleFunc("PATCH /orders/{id}/status", route(orderHandler.HandleEdit, domain.RoleOwner, domain.RoleDelivery))
	mux.HandleFunc("POST /orders/{id}/take", route(orderHandler.HandleTake, domain.RoleDelivery))

	mux.HandleFunc("GET /subscriptions/pending-orders", route(subscriptionHandler.HandlePendingOrders, domain.RoleOwner))
	mux.HandleFunc("GET /subscriptions/cooked-orders", route(subscriptionHandler.HandleCookedOrders, domain.RoleDelivery))
	mux.HandleFunc("GET /subscriptions/orders/{id}", route(subscriptionHandler.HandleOrderUpdates))

	mux.HandleFunc("POST /payments", route(paymentHandler.HandleCreate, domain.RoleOwner))
	mux.HandleFunc("GET /payments", route(paymentHandler.HandleList, domain.RoleOwner))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(authn.Authenticate(mux), "api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: subscription endpoints hold the response open.
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go paymentService.RunPromotionSweeper(sweepCtx, time.Hour)

	go func() {
		logger.Info("starting api service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
