// cmd/directory-server/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"directory-engine/internal/ai"
	"directory-engine/internal/api"
	"directory-engine/internal/common/auth"
	commonaws "directory-engine/internal/common/aws"
	"directory-engine/internal/common/camunda"
	"directory-engine/internal/common/config"
	"directory-engine/internal/common/database"
	commonhttp "directory-engine/internal/common/http"
	"directory-engine/internal/common/logger"
	"directory-engine/internal/common/observability"
	"directory-engine/internal/identity"
	"directory-engine/internal/listing"
	"directory-engine/internal/notify"
	"directory-engine/internal/search"
	"directory-engine/internal/service"
	"directory-engine/internal/store"
	"directory-engine/internal/synthesis"
	"directory-engine/migrations"

	al "directory-engine/internal/workers/directory/autofill-listing"
	cl "directory-engine/internal/workers/directory/create-listing"
	gs "directory-engine/internal/workers/directory/generate-schema"
	sls "directory-engine/internal/workers/directory/set-listing-status"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// pinger is anything /ready should check.
type pinger interface {
	Ping(ctx context.Context) error
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting directory engine...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, log, observability.AsGlobal())

	ctx := context.Background()
	checks := map[string]pinger{}

	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	checks["postgres"] = pg
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		applied, err := pg.Migrate(ctx, migrations.Files)
		if err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied", zap.Strings("files", applied))
	}

	var listings listing.Store = store.NewPostgres(pg.DB)

	if cfg.Database.Redis.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error { return rdb.Ping(ctx) }, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		checks["redis"] = rdb
		ttl := time.Duration(cfg.Database.Redis.SchemaTTL) * time.Second
		listings = store.NewCached(listings, rdb.Client, ttl, log)
		fields := rdb.Stats()
		fields["ttl"] = ttl.String()
		log.Info("redis schema cache enabled", fields)
	}

	httpClient := commonhttp.NewClient(commonhttp.Options{
		Timeout:             config.GetDuration(cfg.AI.Timeout) + 2*time.Second,
		MaxIdleConnsPerHost: 10,
		UserAgent:           cfg.App.Name + "/" + cfg.App.Version,
	})

	gateway := ai.NewUnavailable(log)
	if cfg.AI.Available() {
		gateway, err = ai.FromConfig(ai.Config{
			Provider:    cfg.AI.Provider,
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
			Timeout:     config.GetDuration(cfg.AI.Timeout),
			RateLimit:   cfg.AI.RateLimit,
			RateBurst:   cfg.AI.RateBurst,
		}, httpClient, log)
		if err != nil {
			zapLog.Fatal("ai gateway init failed", zap.Error(err))
		}
	}
	zapLog.Info("AI gateway ready", zap.Bool("available", gateway.Available()), zap.String("provider", cfg.AI.Provider))

	opts := []service.Option{
		service.WithObservability(obs),
		service.WithNotifyTimeout(config.GetDuration(cfg.Notifications.Timeout)),
	}

	if n := buildNotifier(ctx, cfg, log, zapLog); n != nil {
		opts = append(opts, service.WithNotifier(n))
	}

	if cfg.Database.Elasticsearch.Enabled {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		checks["elasticsearch"] = es

		indexer := search.NewIndexer(es.Client, cfg.Database.Elasticsearch.ListingIndex, log)
		if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("listing index setup failed", zap.Error(err))
		}
		opts = append(opts, service.WithIndexer(indexer))
		zapLog.Info("Elasticsearch connected successfully")
	}

	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		checks["zeebe"] = pingFunc(zeebe.HealthCheck)
		opts = append(opts, service.WithNotifier(notify.NewReviewProcess(zeebe, log)))
		zapLog.Info("Zeebe client connected successfully")
	}

	engine := service.New(listings, synthesis.New(gateway, nil, log), gateway, log, opts...)

	var resolver identity.Resolver = identity.HeaderResolver{AdminRole: cfg.Auth.Keycloak.AdminRole}
	if cfg.Auth.Keycloak.Enabled {
		kc := auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
			nil,
		)
		resolver = auth.NewResolver(kc, cfg.Auth.Keycloak.AdminRole)
		zapLog.Info("Keycloak token introspection enabled", zap.String("realm", cfg.Auth.Keycloak.Realm))
	} else if !cfg.Server.TrustedHeaders {
		zapLog.Warn("no identity source configured; every request is anonymous")
		resolver = anonymous{}
	}

	var workers []*camunda.CamundaWorker
	if zeebe != nil {
		workers = startWorkers(zeebe, cfg, engine, log)
		zapLog.Info("Zeebe workers started", zap.Int("count", len(workers)))
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiServer := &http.Server{
		Addr: cfg.Server.Address,
		Handler: api.NewRouter(engine, api.Options{
			Resolver:       resolver,
			RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
			Logger:         log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddress,
		Handler:           healthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}

	for _, srv := range []*http.Server{apiServer, healthServer} {
		go func(srv *http.Server) {
			zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Fatal("HTTP server failed", zap.String("address", srv.Addr), zap.Error(err))
			}
		}(srv)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping API server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Directory engine stopped gracefully")
}

func buildNotifier(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger) *notify.Notifier {
	email, events := cfg.Notifications.Email, cfg.Notifications.Events
	if !email.Enabled && !events.Enabled {
		return nil
	}

	awsCfg, err := commonaws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("aws config load failed", zap.Error(err))
	}

	var (
		mail commonaws.SESAPI
		sns  commonaws.SNSAPI
	)
	if email.Enabled {
		mail = commonaws.NewSESClient(awsCfg)
	}
	if events.Enabled {
		sns = commonaws.NewSNSClient(awsCfg)
	}

	zapLog.Info("Notifications enabled", zap.Bool("email", email.Enabled), zap.Bool("events", events.Enabled))
	return notify.New(mail, sns, notify.Config{
		FromEmail:  email.FromEmail,
		Moderators: email.Moderators,
		TopicARN:   events.TopicARN,
	}, log)
}

func startWorkers(zeebe *camunda.Client, cfg *config.Config, engine *service.Engine, log logger.Logger) []*camunda.CamundaWorker {
	adminRole := cfg.Auth.Keycloak.AdminRole

	regs := []camunda.Registration{}
	add := func(taskType string, build func(wcfg config.WorkerConfig) camunda.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			return
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		regs = append(regs, camunda.Registration{
			TaskType:      taskType,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(wcfg.Timeout),
			Handler:       build(wcfg),
		})
	}

	add(gs.TaskType, func(w config.WorkerConfig) camunda.JobHandler {
		return gs.NewHandler(&gs.Config{MaxJobsActive: w.MaxJobsActive, Timeout: config.GetDuration(w.Timeout)}, engine, log)
	})
	add(al.TaskType, func(w config.WorkerConfig) camunda.JobHandler {
		return al.NewHandler(&al.Config{MaxJobsActive: w.MaxJobsActive, Timeout: config.GetDuration(w.Timeout)}, engine, log)
	})
	add(cl.TaskType, func(w config.WorkerConfig) camunda.JobHandler {
		return cl.NewHandler(&cl.Config{MaxJobsActive: w.MaxJobsActive, Timeout: config.GetDuration(w.Timeout), AdminRole: adminRole}, engine, log)
	})
	add(sls.TaskType, func(w config.WorkerConfig) camunda.JobHandler {
		return sls.NewHandler(&sls.Config{MaxJobsActive: w.MaxJobsActive, Timeout: config.GetDuration(w.Timeout), AdminRole: adminRole}, engine, log)
	})

	workers := make([]*camunda.CamundaWorker, 0, len(regs))
	for _, reg := range regs {
		w := camunda.NewWorker(zeebe.GetClient(), reg, log)
		w.Start()
		workers = append(workers, w)
	}
	return workers
}

func healthMux(checks map[string]pinger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status, code := "ready", http.StatusOK
		results := map[string]string{}
		for name, c := range checks {
			if err := c.Ping(ctx); err != nil {
				results[name] = err.Error()
				status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": results,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// anonymous resolves every request to the anonymous identity.
type anonymous struct{}

func (anonymous) Resolve(context.Context, *http.Request) (identity.Identity, error) {
	return identity.Identity{}, nil
}
