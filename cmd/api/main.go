package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"smallcrm/cmd/internal/cache"
	"smallcrm/cmd/internal/config"
	"smallcrm/cmd/internal/domain/database"
	"smallcrm/cmd/internal/domain/database/repository"
	"smallcrm/cmd/internal/integration/email"
	"smallcrm/cmd/internal/integration/gcalendar"
	"smallcrm/cmd/internal/integration/notify"
	"smallcrm/cmd/internal/integration/sms"
	"smallcrm/cmd/internal/reminder"
	"smallcrm/cmd/internal/routes"
	"smallcrm/cmd/internal/scheduling"
	"smallcrm/cmd/internal/service"
	"smallcrm/cmd/internal/telemetry"
	"smallcrm/cmd/internal/utils"
	"smallcrm/cmd/internal/utils/validators"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}
	log.SetLevel(parseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.Setup(ctx, cfg.OTEL)
	if err != nil {
		log.Fatal("failed to set up tracing: ", err)
	}

	validate := validator.New()
	validators.Register(validate)

	db, err := database.Init(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal("failed to initialize database: ", err)
	}

	if cfg.SeedFile != "" {
		seed, err := database.LoadSeed(cfg.SeedFile)
		if err != nil {
			log.Fatal("failed to read seed file: ", err)
		}
		if err := seed.Apply(db); err != nil {
			log.Fatal("failed to apply seed file: ", err)
		}
	}

	// Outbound integrations
	var mailer email.Sender = email.NewNoopSender()
	if cfg.SMTP.Enabled() {
		mailer = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	}
	texter, err := sms.New(ctx, cfg.SMS)
	if err != nil {
		log.Fatal("failed to initialize sms provider: ", err)
	}
	calendarClient, err := gcalendar.New(ctx, cfg.GoogleCalendar)
	if err != nil {
		log.Fatal("failed to initialize google calendar client: ", err)
	}
	notifier := notify.New(mailer, texter, calendarClient, cfg.Location)

	var statsCache cache.Cache = cache.NoopCache{}
	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warnf("redis unavailable, dashboard stats will not be cached: %v", err)
		} else {
			defer client.Close()
			statsCache = cache.NewRedisCache(client, "smallcrm:")
		}
	}

	// Getting repositories
	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	apptTypeRepo := repository.NewAppointmentTypeRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)

	scheduler := scheduling.New(repository.NewScheduleStore(apptRepo, availabilityRepo), cfg.Location)

	// Getting services
	userService := service.NewUserService(userRepo, validate)
	catalogService := service.NewCatalogService(segmentRepo, apptTypeRepo, userRepo, validate)
	customerService := service.NewCustomerService(customerRepo, segmentRepo, interactionRepo, purchaseRepo, userRepo, tx, validate, cfg.Location)
	availabilityService := service.NewAvailabilityService(availabilityRepo, userRepo, validate)
	apptService := service.NewAppointmentService(apptRepo, noteRepo, customerRepo, apptTypeRepo, userRepo, tx, scheduler, notifier, validate)
	customerService.Cache = statsCache
	apptService.Cache = statsCache
	apptService.StatsTTL = cfg.StatsCacheTTL
	apptService.SlotDuration = cfg.SlotDuration

	// Getting routes
	userRoutes := routes.NewUserDefault(userService)
	catalogRoutes := routes.NewCatalogDefault(catalogService)
	customerRoutes := routes.NewCustomerDefault(customerService)
	apptRoutes := routes.NewAppointmentDefault(apptService)
	availabilityRoutes := routes.NewAvailabilityDefault(availabilityService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	api := e.Group("/api", utils.JWTMiddleware([]byte(cfg.JWTSecret)))

	// Users
	api.GET("/users", userRoutes.GetUsers)
	api.GET("/users/:id", userRoutes.GetUser)
	api.POST("/users", userRoutes.CreateUser)
	api.GET("/users/:id/availability", availabilityRoutes.GetUserAvailability)

	// Catalog
	api.GET("/segments", catalogRoutes.GetSegments)
	api.POST("/segments", catalogRoutes.CreateSegment)
	api.GET("/appointment-types", catalogRoutes.GetAppointmentTypes)
	api.POST("/appointment-types", catalogRoutes.CreateAppointmentType)

	// Customers
	api.GET("/customers", customerRoutes.ListCustomers)
	api.POST("/customers", customerRoutes.CreateCustomer)
	api.GET("/customers/export", customerRoutes.ExportCSV)
	api.POST("/customers/import", customerRoutes.ImportCSV)
	api.GET("/customers/stats", customerRoutes.GetStats)
	api.GET("/customers/:id", customerRoutes.GetCustomer)
	api.PUT("/customers/:id", customerRoutes.UpdateCustomer)
	api.DELETE("/customers/:id", customerRoutes.DeleteCustomer)
	api.POST("/customers/:id/interactions", customerRoutes.AddInteraction)
	api.POST("/customers/:id/purchases", customerRoutes.AddPurchase)

	// Appointments
	api.GET("/appointments", apptRoutes.GetAppointments)
	api.POST("/appointments", apptRoutes.CreateAppointment)
	api.GET("/appointments/calendar", apptRoutes.GetCalendar)
	api.GET("/appointments/calendar.ics", apptRoutes.GetCalendarFeed)
	api.GET("/appointments/slots", apptRoutes.GetSlots)
	api.GET("/appointments/stats", apptRoutes.GetStats)
	api.GET("/appointments/:id", apptRoutes.GetAppointment)
	api.PUT("/appointments/:id", apptRoutes.UpdateAppointment)
	api.POST("/appointments/:id/cancel", apptRoutes.CancelAppointment)
	api.POST("/appointments/:id/notes", apptRoutes.AddNote)

	// Availability
	api.POST("/availability", availabilityRoutes.CreateAvailability)
	api.PUT("/availability/:id", availabilityRoutes.UpdateAvailability)
	api.DELETE("/availability/:id", availabilityRoutes.DeleteAvailability)

	dispatcher := reminder.New(apptRepo, notifier, cfg.ReminderLead)
	if err := dispatcher.Start(cfg.ReminderCron); err != nil {
		log.Fatal("failed to schedule reminder sweep: ", err)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           otelhttp.NewHandler(e, telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down http server: %v", err)
	}
	select {
	case <-dispatcher.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("reminder sweep still running at shutdown")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Errorf("failed to flush traces: %v", err)
	}
}

func parseLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
