package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/config"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/controller"
	circuitbreaker "github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/circuit-breaker"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/message-queue/kafka"
	paymentgateway "github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/infrastructure/tracing"
	localmiddleware "github.com/alimikegami/ticket-booking/payment-callback-service/internal/middleware"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/repository"
	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/service"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/errs"
	"github.com/alimikegami/ticket-booking/payment-callback-service/pkg/response"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	DB     *sqlx.DB
	Config *config.Config
	Server *echo.Echo

	metricsServer *echo.Echo
	scheduler     gocron.Scheduler
	producer      *kafka.OutcomePublisher
	traceProvider *sdktrace.TracerProvider
}

// Start blocks until the server is shut down by StopServer.
func (app *App) Start() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	traceProvider, err := tracing.InitTracing(app.Config.TracingConfig.CollectorHost)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize tracing")
	}
	app.traceProvider = traceProvider

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	if traceProvider != nil {
		tracer := traceProvider.Tracer(tracing.ServiceName)
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				// span creation and naming
				ctx, span := tracer.Start(c.Request().Context(), fmt.Sprintf("[%s] %s", c.Request().Method, c.Path()))
				defer span.End()

				// add the context to the request
				req := c.Request()
				c.SetRequest(req.WithContext(ctx))

				return next(c)
			}
		})
	}

	// Used empty string so that metrics are not prefixed with the service name making it easier to aggregate across services
	e.Use(echoprometheus.NewMiddleware(""))

	app.metricsServer = echo.New()
	app.metricsServer.HideBanner = true
	app.metricsServer.GET("/metrics", echoprometheus.NewHandler())
	go func() {
		if err := app.metricsServer.Start(fmt.Sprintf(":%s", app.Config.MetricsPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start metrics server")
		}
	}()

	e.Use(localmiddleware.Logger)

	repo, err := app.ledgerRepository()
	if err != nil {
		return err
	}

	var publisher service.OutcomePublisher
	if app.Config.KafkaConfig.BrokerAddress != "" {
		app.producer = kafka.CreateOutcomePublisher(kafka.CreateKafkaWriter(app.Config))
		publisher = app.producer
	}

	gateway := paymentgateway.CreateVNPayClient(app.Config)
	ledgerSvc := service.CreateLedgerService(repo, publisher, app.Config)
	callbackSvc := service.CreateCallbackService(ledgerSvc, gateway)

	g := e.Group("/api/v1")
	controller.CreatePaymentController(g, callbackSvc, ledgerSvc, app.Config.FrontendConfig.ResultURL, localmiddleware.ServiceAuth(app.Config.JWTSecret))

	g.GET("/ping", func(c echo.Context) error {
		return response.WriteSuccessResponse(c, "Hello, World!", nil)
	})
	g.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), app.Config.LedgerConfig.StoreTimeout)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			return response.WriteErrorResponse(c, errs.ErrStorageUnavailable, nil)
		}
		return response.WriteSuccessResponse(c, "ok", nil)
	})

	if err := app.startScheduler(ledgerSvc); err != nil {
		return err
	}

	app.Server = e
	if err := e.Start(fmt.Sprintf(":%s", app.Config.ServicePort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (app *App) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errList []error
	if app.Server != nil {
		errList = append(errList, app.Server.Shutdown(ctx))
	}
	if app.metricsServer != nil {
		errList = append(errList, app.metricsServer.Shutdown(ctx))
	}
	if app.scheduler != nil {
		errList = append(errList, app.scheduler.Shutdown())
	}
	if app.producer != nil {
		errList = append(errList, app.producer.Close())
	}
	if app.traceProvider != nil {
		errList = append(errList, app.traceProvider.Shutdown(ctx))
	}

	return errors.Join(errList...)
}

func (app *App) ledgerRepository() (repository.LedgerRepository, error) {
	var repo repository.LedgerRepository

	switch app.Config.LedgerConfig.Backend {
	case config.LedgerBackendMemory:
		log.Warn().Str("component", "ledgerRepository").Msg("using in-memory ledger, entries are lost on restart")
		repo = repository.CreateInMemoryLedgerRepository()
	default:
		pgRepo := repository.CreateLedgerRepository(app.DB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		repo = pgRepo
	}

	cb := circuitbreaker.CreateCircuitBreaker[any]("ledger-store", 10*time.Second)

	return repository.CreateLedgerRepositoryWithBreaker(repo, cb), nil
}

func (app *App) startScheduler(ledgerSvc service.LedgerService) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	// add a job to the scheduler
	_, err = s.NewJob(
		gocron.DurationJob(
			app.Config.LedgerConfig.OutboxInterval,
		),
		gocron.NewTask(
			ledgerSvc.RepublishPendingOutcomes,
		),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.Start()
	app.scheduler = s

	return nil
}
