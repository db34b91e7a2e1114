package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/glowbook/appointments/internal/domain"
	"github.com/glowbook/appointments/internal/http/handlers"
	appmw "github.com/glowbook/appointments/internal/http/middleware"
	"github.com/glowbook/appointments/internal/platform/mailer"
	"github.com/glowbook/appointments/internal/repo/postgres"
	"github.com/glowbook/appointments/internal/service"
	"github.com/glowbook/appointments/internal/token"
	"github.com/glowbook/appointments/pkg/config"
	"github.com/glowbook/appointments/pkg/database"
	"github.com/glowbook/appointments/pkg/events"
	"github.com/glowbook/appointments/pkg/logger"
	mw "github.com/glowbook/appointments/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	policy, ok := domain.ParseConflictPolicy(cfg.Booking.Policy)
	if !ok {
		logger.Error("Invalid BOOKING_POLICY, want 'slot' or 'capacity'", "policy", cfg.Booking.Policy)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.NewReservationRepo(pool, policy, cfg.Booking.DailyCapacity)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to ensure schema", "error", err)
		os.Exit(1)
	}

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Mail dispatches are mirrored onto notify.send; consume them here so
	// every outbound notification lands in the structured log as an audit
	// trail.
	if err := eventBus.QueueSubscribe(events.NotifySend, "appointments", func(msg *events.Message) {
		var n events.NotificationEvent
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			logger.Error("Bad notification event", "error", err, "subject", msg.Subject)
			return
		}
		logger.Info("Notification dispatched",
			"type", n.Type, "recipient", n.Recipient, "mail_subject", n.Subject)
	}); err != nil {
		logger.Error("Failed to subscribe to notifications", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	codec := token.NewCodec(cfg.Booking.SigningSecret)
	mailSvc := pickMailer(cfg)
	bookingSvc := service.NewBookingService(store, codec, mailSvc, eventBus, cfg)
	h := handlers.NewBookingsHandler(bookingSvc)

	requestLimiter := appmw.NewRateLimiter(redisClient, appmw.RateLimitConfig{
		Requests: 10,
		Window:   time.Minute,
		KeyFunc:  appmw.BookingRateLimitKeyFunc,
	})

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("appointments"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/bookings", func(r chi.Router) {
		r.With(requestLimiter.Middleware()).Post("/", h.RequestBooking)
		r.Get("/verify/{token}", h.ConfirmBooking)
	})
	r.Get("/admin/bookings", h.ListAppointments)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down appointments service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Appointments service listening",
		"port", cfg.Server.Port, "policy", string(policy))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func pickMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort,
			cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}
