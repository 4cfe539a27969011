package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"safedrive/internal/audit"
	"safedrive/internal/auth"
	fatigueapp "safedrive/internal/fatigue/application"
	fatiguerepo "safedrive/internal/fatigue/infrastructure/postgres"
	fatiguehttp "safedrive/internal/fatigue/interfaces/http"
	"safedrive/internal/notify"
	"safedrive/internal/observability/metrics"
	tripsapp "safedrive/internal/trips/application"
	tripsrepo "safedrive/internal/trips/infrastructure/postgres"
	tripshttp "safedrive/internal/trips/interfaces/http"
	usersapp "safedrive/internal/users/application"
	usersrepo "safedrive/internal/users/infrastructure/postgres"
	usershttp "safedrive/internal/users/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	driverChecker := auth.NewDriverChecker(db)
	auditRepo := audit.NewRepository(db)

	alertingCfg, err := fatigueapp.LoadConfig()
	if err != nil {
		logger.Fatalf("alerting config error: %v", err)
	}

	logRepo := fatiguerepo.NewLogRepository(db)
	alertRepo := fatiguerepo.NewAlertRepository(db)
	tripRepo := tripsrepo.NewRepository(db)

	broker := fatiguehttp.NewSSEBroker()
	notifiers := []fatigueapp.AlertNotifier{broker}
	if alertingCfg.Notify.WebhookURL != "" {
		channel, err := notify.NewWebhookChannel(alertingCfg.Notify.WebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		tpl, err := notify.NewTemplate(alertingCfg.Notify.Template)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		webhookNotifier, err := notify.NewNotifier(channel, tpl,
			notify.WithCooldown(cfg.NotifyCooldown),
			notify.WithDedupeWindow(cfg.NotifyDedupeWindow),
			notify.WithRequestTimeout(cfg.NotifyTimeout),
		)
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
		notifiers = append(notifiers, webhookNotifier)
	}

	fatigueService, err := fatigueapp.NewService(logRepo, alertRepo, tripRepo, alertingCfg.Rules,
		fatigueapp.WithNotifier(notify.NewMultiNotifier(notifiers...)))
	if err != nil {
		logger.Fatalf("fatigue service error: %v", err)
	}
	tripService, err := tripsapp.NewService(tripRepo, driverChecker)
	if err != nil {
		logger.Fatalf("trip service error: %v", err)
	}
	userService, err := usersapp.NewService(usersrepo.NewRepository(db), []byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		logger.Fatalf("user service error: %v", err)
	}

	ingestHandler, err := fatiguehttp.NewIngestHandler(fatigueService, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	alertHandler, err := fatiguehttp.NewAlertHandler(fatigueService, driverChecker, auditRepo)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}
	tripHandler, err := tripshttp.NewHandler(tripService, alertRepo, auditRepo, logger)
	if err != nil {
		logger.Fatalf("trip handler error: %v", err)
	}
	userHandler, err := usershttp.NewHandler(userService, logger)
	if err != nil {
		logger.Fatalf("user handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/api/v1/register", "/api/v1/login"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/register", userHandler.Register)
	mux.HandleFunc("/api/v1/login", userHandler.Login)
	mux.HandleFunc("/api/v1/refresh", userHandler.Refresh)
	mux.HandleFunc("/api/v1/me", userHandler.Me)
	mux.Handle("/api/v1/fatigue/logs", ingestHandler)
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/stream", fatiguehttp.NewStreamHandler(broker))
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/api/v1/trips", tripHandler)
	mux.Handle("/api/v1/trips/", tripHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL        string
	HTTPAddr           string
	JWTSecret          string
	TokenTTL           time.Duration
	NotifyCooldown     time.Duration
	NotifyDedupeWindow time.Duration
	NotifyTimeout      time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		TokenTTL:           getenvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		NotifyCooldown:     getenvDuration("ALERT_NOTIFY_COOLDOWN", 0),
		NotifyDedupeWindow: getenvDuration("ALERT_NOTIFY_DEDUP_WINDOW", 0),
		NotifyTimeout:      getenvDuration("ALERT_NOTIFY_TIMEOUT", 5*time.Second),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
