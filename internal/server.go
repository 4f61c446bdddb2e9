package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/2beens/gymcoach/internal/auth"
	"github.com/2beens/gymcoach/internal/config"
	"github.com/2beens/gymcoach/internal/db"
	"github.com/2beens/gymcoach/internal/lifecycle"
	"github.com/2beens/gymcoach/internal/middleware"
	"github.com/2beens/gymcoach/internal/notify"
	"github.com/2beens/gymcoach/internal/personalmax"
	"github.com/2beens/gymcoach/internal/routines"
	"github.com/2beens/gymcoach/internal/sessions"
	"github.com/2beens/gymcoach/internal/telemetry/metrics"
	"github.com/2beens/gymcoach/internal/telemetry/tracing"
	"github.com/2beens/gymcoach/internal/workout"
	"github.com/2beens/gymcoach/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const sessionsCleanupInterval = 8 * time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter
	checker     auth.Checker
	authService *auth.Service

	lifecycles *lifecycle.Hub
	scheduler  *notify.RedisScheduler
	devices    *notify.DeviceRegistry
	manager    *workout.Manager

	routinesRepo    *routines.Repo
	sessionsRepo    *sessions.Repo
	personalMaxes   *personalmax.CachedStore
	cancelWorkers   context.CancelFunc
	workersWg       sync.WaitGroup
	allowedOrigins  []string
	metricsManager  *metrics.Manager
	promRegistry    *prometheus.Registry
	otelShutdown    func()
	sentryFlushWait time.Duration
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	PostgresPassword        string
	FCMCredentials          []byte
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("gymcoach", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "gymcoach-backend", rdb)
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	devices := notify.NewDeviceRegistry(rdb, cfg.AlertKeyPrefix)
	sender, err := newAlertSender(ctx, cfg, params.FCMCredentials, devices)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("new alert sender: %w", err)
	}

	scheduler := notify.NewRedisScheduler(notify.SchedulerParams{
		Redis:        rdb,
		Sender:       sender,
		Metrics:      metricsManager,
		KeyPrefix:    cfg.AlertKeyPrefix,
		PollInterval: cfg.AlertPollInterval(),
	})

	routinesRepo := routines.NewRepo(dbPool)
	sessionsRepo := sessions.NewRepo(dbPool)
	personalMaxes := personalmax.NewCachedStore(
		personalmax.NewRepo(dbPool),
		cfg.PersonalMaxCacheMB,
		cfg.PersonalMaxCacheTTL(),
	)
	lifecycles := lifecycle.NewHub()

	manager := workout.NewManager(workout.ManagerParams{
		Routines:           routinesRepo,
		PersonalMaxes:      personalMaxes,
		Sessions:           sessionsRepo,
		Alerts:             scheduler,
		Lifecycles:         lifecycles,
		Metrics:            metricsManager,
		DefaultRestSeconds: cfg.DefaultRestSeconds,
		TickInterval:       cfg.TickInterval(),
		IdleTimeout:        cfg.WorkoutIdleTimeout(),
		EventsBufferSize:   cfg.EventsBufferSize,
	})

	return &Server{
		config:      cfg,
		versionInfo: params.VersionInfo,
		dbPool:      dbPool,
		redisClient: rdb,
		rateLimiter: redis_rate.NewLimiter(rdb),
		checker:     auth.NewTokenChecker(auth.DefaultTTL, rdb),
		authService: auth.NewAuthService(auth.DefaultTTL, rdb),

		lifecycles: lifecycles,
		scheduler:  scheduler,
		devices:    devices,
		manager:    manager,

		routinesRepo:   routinesRepo,
		sessionsRepo:   sessionsRepo,
		personalMaxes:  personalMaxes,
		allowedOrigins: cfg.AllowedOrigins,

		// telemetry
		metricsManager:  metricsManager,
		promRegistry:    promRegistry,
		otelShutdown:    otelShutdown,
		sentryFlushWait: 5 * time.Second,
	}, nil
}

func newAlertSender(
	ctx context.Context,
	cfg *config.Config,
	fcmCredentials []byte,
	devices *notify.DeviceRegistry,
) (notify.Sender, error) {
	switch {
	case cfg.FCMEnabled:
		if len(fcmCredentials) == 0 {
			return nil, errors.New("fcm enabled, but credentials not set")
		}
		log.Debugf("alerts will be pushed via fcm, project [%s]", cfg.FCMProjectID)
		return notify.NewFCMSender(ctx, cfg.FCMProjectID, fcmCredentials, devices)
	case cfg.DesktopAlerts:
		log.Debugln("alerts will be shown as desktop notifications")
		return notify.NewDesktopSender(), nil
	default:
		log.Debugln("alerts will only be logged")
		return notify.NewLogSender(), nil
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "gymcoach")
	}).Methods("GET").Name("root")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSON(w, map[string]any{"ok": true, "activeWorkouts": s.manager.ActiveCount()}, http.StatusOK)
	}).Methods("GET").Name("health")
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	workoutHandler := workout.NewHandler(s.manager, s.lifecycles)
	r.HandleFunc("/workout", workoutHandler.HandleGet).Methods("GET", "OPTIONS").Name("workout-get")
	r.HandleFunc("/workout", workoutHandler.HandleStop).Methods("DELETE", "OPTIONS").Name("workout-stop")
	r.HandleFunc("/workout/start", workoutHandler.HandleStart).Methods("POST", "OPTIONS").Name("workout-start")
	r.HandleFunc("/workout/events", workoutHandler.HandleEvents).Methods("GET", "OPTIONS").Name("workout-events")
	r.HandleFunc("/workout/day", workoutHandler.HandleSelectDay).Methods("POST", "OPTIONS").Name("workout-day")
	r.HandleFunc("/workout/exercise", workoutHandler.HandleSelectExercise).Methods("POST", "OPTIONS").Name("workout-exercise")
	r.HandleFunc("/workout/set/complete", workoutHandler.HandleCompleteSet).Methods("POST", "OPTIONS").Name("workout-set-complete")
	r.HandleFunc("/workout/rest/skip", workoutHandler.HandleSkipRest).Methods("POST", "OPTIONS").Name("workout-rest-skip")
	r.HandleFunc("/workout/back", workoutHandler.HandleBack).Methods("POST", "OPTIONS").Name("workout-back")
	r.HandleFunc("/workout/finish", workoutHandler.HandleFinish).Methods("POST", "OPTIONS").Name("workout-finish")
	r.HandleFunc("/workout/abandon", workoutHandler.HandleAbandon).Methods("POST", "OPTIONS").Name("workout-abandon")
	r.HandleFunc("/workout/summary/{exerciseId}", workoutHandler.HandleSummary).Methods("GET", "OPTIONS").Name("workout-summary")
	r.HandleFunc("/workout/lifecycle", workoutHandler.HandleLifecycle).Methods("POST", "OPTIONS").Name("workout-lifecycle")

	devicesHandler := notify.NewHandler(s.devices)
	r.HandleFunc("/devices", devicesHandler.HandleRegisterDevice).Methods("POST", "OPTIONS").Name("devices-register")

	routinesHandler := routines.NewHandler(s.routinesRepo)
	r.HandleFunc("/routines", routinesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("routines-add")
	r.HandleFunc("/routines/assigned", routinesHandler.HandleListAssigned).Methods("GET", "OPTIONS").Name("routines-assigned")
	r.HandleFunc("/routines/{id}", routinesHandler.HandleGet).Methods("GET", "OPTIONS").Name("routines-get")
	r.HandleFunc("/routines/{id}/assign", routinesHandler.HandleAssign).Methods("POST", "OPTIONS").Name("routines-assign")

	personalMaxHandler := personalmax.NewHandler(s.personalMaxes)
	r.HandleFunc("/personalmax", personalMaxHandler.HandleUpsert).Methods("PUT", "OPTIONS").Name("personalmax-upsert")
	r.HandleFunc("/personalmax/{exerciseId}", personalMaxHandler.HandleGet).Methods("GET", "OPTIONS").Name("personalmax-get")

	sessionsHandler := sessions.NewHandler(s.sessionsRepo)
	r.HandleFunc("/sessions/page/{page}/size/{size}", sessionsHandler.HandleList).Methods("GET", "OPTIONS").Name("sessions-list")
	r.HandleFunc("/sessions/{id}", sessionsHandler.HandleGet).Methods("GET", "OPTIONS").Name("sessions-get")

	// all the rest - unhandled paths
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.checker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.allowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	// needs the user set by the auth check
	r.Use(middleware.RateLimit(s.rateLimiter, s.metricsManager, "api", s.config.RateLimitPerMin))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// startWorkers runs the alert poller, the idle workout janitor and the login sessions cleanup.
func (s *Server) startWorkers(ctx context.Context) {
	ctx, s.cancelWorkers = context.WithCancel(ctx)

	s.workersWg.Add(2)
	go func() {
		defer s.workersWg.Done()
		s.scheduler.Run(ctx)
	}()
	go func() {
		defer s.workersWg.Done()
		s.manager.RunJanitor(ctx)
	}()

	if s.authService != nil {
		s.workersWg.Add(1)
		go func() {
			defer s.workersWg.Done()
			ticker := time.NewTicker(sessionsCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.authService.ScanAndClean(ctx)
				}
			}
		}()
	}
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
	))
	metricsAddr := net.JoinHostPort(s.config.MetricsHost, s.config.MetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	s.startWorkers(ctx)

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests before the workouts go away
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.manager != nil {
		s.manager.Close()
		log.Debugln("workouts closed")
	}

	if s.cancelWorkers != nil {
		s.cancelWorkers()
		s.workersWg.Wait()
		log.Debugln("background workers stopped")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if s.sentryFlushWait > 0 {
		if ok := sentry.Flush(s.sentryFlushWait); ok {
			log.Debugf("sentry flush ok: %t", ok)
		}
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
