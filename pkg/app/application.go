package app

import (
	"context"
	bookingshandler "courtbook/internal/bookings/handler"
	bookingsrepo "courtbook/internal/bookings/repository"
	bookingsservice "courtbook/internal/bookings/service"
	bookingsvalidator "courtbook/internal/bookings/validator"
	courtshandler "courtbook/internal/courts/handler"
	courtsrepo "courtbook/internal/courts/repository"
	courtsservice "courtbook/internal/courts/service"
	courtsvalidator "courtbook/internal/courts/validator"
	healthhandler "courtbook/internal/health/handler"
	"courtbook/internal/reservations/events"
	reservationshandler "courtbook/internal/reservations/handler"
	reservationsservice "courtbook/internal/reservations/service"
	slotshandler "courtbook/internal/slots/handler"
	slotsrepo "courtbook/internal/slots/repository"
	slotsservice "courtbook/internal/slots/service"
	slotsvalidator "courtbook/internal/slots/validator"
	waitlisthandler "courtbook/internal/waitlist/handler"
	waitlistrepo "courtbook/internal/waitlist/repository"
	waitlistservice "courtbook/internal/waitlist/service"
	"courtbook/pkg/config"
	"courtbook/pkg/contracts"
	"courtbook/pkg/kafka"
	"courtbook/pkg/locks"
	"courtbook/pkg/middleware"
	"courtbook/pkg/payment"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.UserRateLimiter
	sweeper          *reservationsservice.Sweeper
	producer         *kafka.Producer
	healthHandler    http.Handler
	appHttpHandler   http.Handler
}

func NewApplication() *Application {
	return &Application{}
}

// SetApp connects the configured backends and builds every handler. It does
// not start the sweeper or the server; Run does.
func (a *Application) SetApp(cfg *config.Config) {
	a.cfg = cfg
	a.connectBackends()

	handlers := a.buildHandlers()
	a.setHealthHandler()
	a.setAppHandler(handlers...)
	a.setAppServer()
}

func (a *Application) connectBackends() {
	cfg := a.cfg
	if cfg.StorageBackend == config.StorageMongo || cfg.LockBackend == config.LockMongo {
		cfg.SetMongo()
	}
	if cfg.LockBackend == config.LockRedis {
		cfg.SetRedis()
	}
}

type repositories struct {
	courts   courtsrepo.CourtRepository
	slots    slotsrepo.SlotRepository
	waitlist waitlistrepo.WaitlistRepository
	bookings bookingsrepo.BookingRepository
}

func (a *Application) newRepositories() repositories {
	if a.cfg.StorageBackend == config.StorageMongo {
		a.cfg.Log.Info("Using MongoDB storage", "database", a.cfg.MongoDatabaseName)
		return repositories{
			courts:   courtsrepo.NewMongoCourtRepository(a.cfg),
			slots:    slotsrepo.NewMongoSlotRepository(a.cfg),
			waitlist: waitlistrepo.NewMongoWaitlistRepository(a.cfg),
			bookings: bookingsrepo.NewMongoBookingRepository(a.cfg),
		}
	}
	a.cfg.Log.Info("Using in-memory storage")
	return repositories{
		courts:   courtsrepo.NewMemoryCourtRepository(),
		slots:    slotsrepo.NewMemorySlotRepository(),
		waitlist: waitlistrepo.NewMemoryWaitlistRepository(),
		bookings: bookingsrepo.NewMemoryBookingRepository(),
	}
}

func (a *Application) newLocker() locks.Locker {
	switch a.cfg.LockBackend {
	case config.LockRedis:
		a.cfg.Log.Info("Using Redis slot locks", "addr", a.cfg.RedisAddr)
		return locks.NewRedisLocker(a.cfg.Client.Redis)
	case config.LockMongo:
		a.cfg.Log.Info("Using MongoDB slot locks")
		return locks.NewMongoLocker(a.cfg.Client.Mongo.Database(a.cfg.MongoDatabaseName), a.cfg.Clock)
	default:
		a.cfg.Log.Info("Using in-process slot locks")
		return locks.NewMemoryLocker(a.cfg.Clock)
	}
}

func (a *Application) newPaymentGateway() payment.Gateway {
	if a.cfg.PaymentBaseURL == "" {
		a.cfg.Log.Warn("No payment gateway configured, every checkout is approved")
		return payment.Static{}
	}
	return payment.NewHTTPGateway(a.cfg.PaymentBaseURL, a.cfg.PaymentTimeout, a.cfg.Log)
}

func (a *Application) listenerOptions() []reservationsservice.Option {
	logListener := reservationsservice.NewLogListener(a.cfg.Log)
	opts := []reservationsservice.Option{
		reservationsservice.WithPromotionListener(logListener),
		reservationsservice.WithBookingListener(logListener),
	}
	if !a.cfg.KafkaEnabled {
		return opts
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaEventsTopic,
		DLQTopic:     a.cfg.KafkaDLQTopic,
		MaxAttempts:  a.cfg.KafkaMaxAttempts,
		BatchTimeout: a.cfg.KafkaBatchTimeout,
		WriteTimeout: a.cfg.KafkaWriteTimeout,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
		Async:        a.cfg.KafkaAsync,
	}, a.cfg.Log)
	if err != nil {
		a.cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if a.cfg.KafkaLogPublishes {
		producer.Use(kafka.LogPublishes(a.cfg.Log))
	}
	a.producer = producer

	publisher := events.NewPublisher(producer, a.cfg.Log)
	a.cfg.Log.Info("Publishing reservation events", "topic", a.cfg.KafkaEventsTopic)
	return append(opts,
		reservationsservice.WithPromotionListener(publisher),
		reservationsservice.WithBookingListener(publisher),
		reservationsservice.WithPaymentListener(publisher),
	)
}

func (a *Application) buildHandlers() []contracts.Handler {
	cfg := a.cfg
	repos := a.newRepositories()
	lockManager := locks.NewManager(a.newLocker(), locks.Options{
		TTL:           cfg.LockTTL,
		RetryAttempts: cfg.LockRetryAttempts,
		RetryDelay:    cfg.LockRetryDelay,
	}, cfg.Log)

	courts := courtsservice.NewCourtService(repos.courts, courtsvalidator.NewCourtValidator(), cfg)
	slots := slotsservice.NewSlotService(repos.slots, courts, slotsvalidator.NewSlotValidator(cfg.Log), lockManager, cfg)
	waitlist := waitlistservice.NewWaitlistService(repos.waitlist, slots, lockManager, cfg)
	bookings := bookingsservice.NewBookingService(repos.bookings, bookingsvalidator.NewBookingValidator(cfg.Log), cfg)
	reservations := reservationsservice.NewReservationService(
		slots,
		waitlist,
		bookings,
		a.newPaymentGateway(),
		lockManager,
		cfg,
		a.listenerOptions()...,
	)
	a.sweeper = reservationsservice.NewSweeper(reservations, cfg.SweepInterval, cfg.Log)

	return []contracts.Handler{
		courtshandler.NewCourtHandler(courts, cfg.Log),
		slotshandler.NewSlotHandler(slots, cfg.Log),
		waitlisthandler.NewWaitlistHandler(waitlist, cfg.Log),
		bookingshandler.NewBookingHandler(bookings, cfg.Loc(), cfg.Log),
		reservationshandler.NewReservationHandler(reservations, cfg.Log),
	}
}

func (a *Application) setHealthHandler() {
	a.healthHandler = middleware.Chain(
		contracts.Mount(healthhandler.NewHealthHandler(a.cfg.Client, a.cfg.Log)),
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
	)
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(handlers ...contracts.Handler) {
	cfg := a.cfg

	if cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL, cfg.Log)
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)
	}
	a.rateLimiter = middleware.NewUserRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.Log)

	a.appHttpHandler = middleware.Chain(contracts.Mount(handlers...),
		middleware.Recovery(cfg.Log),
		middleware.RequestLogging(cfg.Log),
		middleware.MaxRequestSize(int64(cfg.MaxRequestSize)),
		middleware.ContentTypeValidation(cfg.Log),
		middleware.Identity(cfg.Log),
		middleware.UserRateLimit(a.rateLimiter),
		middleware.RequestTimeout(cfg.RequestTimeout),
		middleware.Idempotency(a.idempotencyStore, middleware.IdempotencyHeader),
	)
	cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler routes /health and /ready around the identity check and
// everything else through the full stack.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)
	return mux
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	a.sweeper.Start()
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.StopWorkers()
	a.cfg.Log.Info("Background workers stopped")

	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Server stopped gracefully")
}

// StopWorkers stops the sweeper, the request stores and the event producer.
func (a *Application) StopWorkers() {
	a.sweeper.Stop()
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
