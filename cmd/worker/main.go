package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/database"
	"github.com/docdesk/docdesk/backend/go-services/internal/jobs"
	"github.com/docdesk/docdesk/backend/go-services/internal/mail"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("error", os.Stderr).Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.Log.Level, os.Stdout).With("component", "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Redis.Addr() == "" {
		log.Fatalf("REDIS_HOST is required: the worker consumes the Redis job queue")
	}
	rdb, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	var mdb *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			log.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			log.Fatalf("could not connect to MongoDB: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		mdb = client.Database(cfg.MongoDB.Database)
	}

	store, err := jobs.NewStore(ctx, mdb, rdb, cfg.Jobs, log)
	if err != nil {
		log.Fatalf("failed to initialise job store: %v", err)
	}
	broker, _ := jobs.NewBroker(rdb, cfg.Jobs)

	var sender mail.Sender = mail.NewSMTPSender(cfg.Mail)
	if cfg.Mail.Host == "" {
		log.Warnf("MAIL_HOST not set: emails are logged instead of sent")
		sender = mail.NewLogSender(log)
	}

	registry := jobs.NewRegistry()
	(&jobs.Tasks{
		Mail:         sender,
		From:         cfg.Mail.From,
		SampleDelay:  cfg.Jobs.SampleDelay,
		ProcessDelay: cfg.Jobs.ProcessDelay,
		Log:          log,
	}).Register(registry)

	pool := jobs.NewPool(broker, store, registry, jobs.PoolConfig{Workers: cfg.Jobs.Workers}, log)
	scheduler := jobs.NewScheduler(jobs.NewDispatcher(store, broker, log), jobs.TaskSample, nil, cfg.Jobs.SampleSchedule, log)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	var srv *http.Server
	if addr := cfg.Jobs.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Infof("serving worker metrics on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server failed: %v", err)
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	<-ctx.Done()
	log.Infof("shutting down, waiting for in-flight jobs")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
	wg.Wait()
}
