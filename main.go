package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/docdesk/docdesk/backend/go-services/handlers"
	"github.com/docdesk/docdesk/backend/go-services/internal/config"
	"github.com/docdesk/docdesk/backend/go-services/internal/database"
	"github.com/docdesk/docdesk/backend/go-services/internal/document/handler"
	"github.com/docdesk/docdesk/backend/go-services/internal/document/repository"
	"github.com/docdesk/docdesk/backend/go-services/internal/document/service"
	"github.com/docdesk/docdesk/backend/go-services/internal/jobs"
	"github.com/docdesk/docdesk/backend/go-services/internal/mail"
	"github.com/docdesk/docdesk/backend/go-services/internal/sessions"
	"github.com/docdesk/docdesk/backend/go-services/internal/users"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/metrics"
	"github.com/docdesk/docdesk/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("error", os.Stderr).Fatalf("failed to load config: %v", err)
	}
	log := logger.New(cfg.Log.Level, os.Stdout)
	log.Infof("config loaded: postgres=%v mongo=%v redis=%v", cfg.Postgres.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Addr() != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Addr() != "" {
		rdb, err = database.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warnf("redis unavailable, continuing without it: %v", err)
			rdb = nil
		} else {
			defer func() { _ = rdb.Close() }()
			log.Infof("connected to Redis at %s", cfg.Redis.Addr())
		}
	}

	var db *sql.DB
	if cfg.Postgres.URL != "" {
		db, err = database.ConnectPostgres(ctx, cfg.Postgres.URL, database.PoolOptionsFromConfig(cfg.Postgres))
		if err != nil {
			log.Fatalf("failed to connect to PostgreSQL: %v", err)
		}
		defer func() { _ = db.Close() }()
		if cfg.Postgres.AutoMigrate {
			if err := database.RunMigrations(ctx, db); err != nil {
				log.Fatalf("failed to apply migrations: %v", err)
			}
		}
	}

	var mdb *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, func(attempt int, err error) {
			log.Warnf("attempt %d/5: failed to connect to MongoDB: %v", attempt, err)
		})
		if err != nil {
			log.Warnf("could not connect to MongoDB, continuing without it: %v", err)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			mdb = client.Database(cfg.MongoDB.Database)
		}
	}

	var (
		userRepo users.UserRepository
		docRepo  repository.Repository
	)
	if db != nil {
		userRepo = users.NewPostgresRepository(db)
		docRepo = repository.NewPostgresRepo(db)
	} else {
		log.Warnf("DATABASE_URL not set: users and documents are kept in memory")
		userRepo = users.NewMemoryRepository()
		docRepo = repository.NewMemoryRepo()
	}
	userSvc := users.NewService(userRepo)

	sessionsSvc := newSessions(ctx, rdb, mdb, log)
	blacklist := sessions.NewBlacklist(rdb)

	store, err := jobs.NewStore(ctx, mdb, rdb, cfg.Jobs, log)
	if err != nil {
		log.Fatalf("failed to initialise job store: %v", err)
	}
	broker, inline := jobs.NewBroker(rdb, cfg.Jobs)
	dispatcher := jobs.NewDispatcher(store, broker, log)

	var pool *jobs.Pool
	if inline {
		log.Warnf("no Redis broker: running job workers inside the API process")
		registry := jobs.NewRegistry()
		(&jobs.Tasks{
			Mail:         mailSender(cfg.Mail, log),
			From:         cfg.Mail.From,
			SampleDelay:  cfg.Jobs.SampleDelay,
			ProcessDelay: cfg.Jobs.ProcessDelay,
			Log:          log.With("component", "jobs"),
		}).Register(registry)
		pool = jobs.NewPool(broker, store, registry, jobs.PoolConfig{Workers: cfg.Jobs.Workers}, log.With("component", "jobs"))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.AccessLog(log), middleware.Recovery(log), middleware.CORS(cfg.CORS.AllowedOrigins))

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win, log))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		rctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		deps := map[string]bool{}
		ready := true
		if db != nil {
			deps["postgres"] = db.PingContext(rctx) == nil
			ready = ready && deps["postgres"]
		}
		if rdb != nil {
			deps["redis"] = rdb.Ping(rctx).Err() == nil
			ready = ready && deps["redis"]
		}
		if mdb != nil {
			deps["mongodb"] = mdb.Client().Ping(rctx, nil) == nil
			ready = ready && deps["mongodb"]
		}
		deps["sessions"] = sessionsSvc != nil

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterSwagger(r)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(middleware.NewJWTVerifier(cfg, blacklist), userSvc, log))
	handlers.NewAuthHandler(cfg, userSvc, sessionsSvc, blacklist, log).Register(api)
	handlers.NewTasksHandler(dispatcher, log).Register(api)
	handler.New(service.New(docRepo, userSvc, log.With("component", "documents")), log).RegisterRoutes(api.Group("/documents"))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	poolDone := make(chan struct{})
	if pool != nil {
		go func() {
			defer close(poolDone)
			pool.Run(ctx)
		}()
	} else {
		close(poolDone)
	}

	go func() {
		log.Infof("starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
	}
	<-poolDone
}

// newSessions prefers Redis, then MongoDB. Without either, refresh tokens are
// disabled and login only issues access tokens.
func newSessions(ctx context.Context, rdb *redis.Client, mdb *mongo.Database, log *logger.Logger) *sessions.Service {
	if rdb != nil {
		log.Infof("using Redis for session storage")
		return sessions.NewService(sessions.NewRedisRepository(rdb, "session:"))
	}
	if mdb != nil {
		repo := sessions.NewMongoRepository(mdb.Collection("sessions"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warnf("failed to create session indexes: %v", err)
		}
		log.Infof("using MongoDB for session storage")
		return sessions.NewService(repo)
	}
	log.Warnf("no session store configured: refresh tokens are disabled")
	return nil
}

func mailSender(cfg config.MailConfig, log *logger.Logger) mail.Sender {
	if cfg.Host == "" {
		return mail.NewLogSender(log)
	}
	return mail.NewSMTPSender(cfg)
}
