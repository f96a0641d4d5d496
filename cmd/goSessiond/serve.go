package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/directory"
	"github.com/MrEthical07/goSession/httpapi"
	"github.com/MrEthical07/goSession/internal/config"
	"github.com/MrEthical07/goSession/internal/db"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := newLogger(settings.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := openBackends(ctx, settings, log)
	if err != nil {
		return err
	}
	defer deps.close()

	builder := goSession.New().
		WithConfig(settings.EngineConfig()).
		WithUserDirectory(deps.directory).
		WithLogger(log)
	if deps.redis != nil {
		builder = builder.WithRedis(deps.redis)
	}
	if deps.store != nil {
		builder = builder.WithSessionStore(deps.store)
	}
	if settings.Audit.Enabled {
		builder = builder.WithAuditSink(goSession.NewLogrusSink(log.WithField("component", "audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	for _, w := range report.Warnings {
		log.WithField("backend", report.SessionBackend).Warn("security: " + w)
	}

	handler, err := buildHandler(engine, settings, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         settings.Server.Addr,
		Handler:      handler,
		ReadTimeout:  settings.Server.ReadTimeout,
		WriteTimeout: settings.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    settings.Server.Addr,
			"backend": settings.Store.Backend,
		}).Info("goSessiond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if purger, ok := deps.purger(); ok && settings.Janitor.Enabled {
		j := &janitor{
			purger:  purger,
			log:     log.WithField("component", "janitor"),
			now:     time.Now,
			grace:   settings.JWT.Leeway,
			timeout: time.Minute,
		}
		c, err := j.schedule(settings.Janitor.Schedule)
		if err != nil {
			return fmt.Errorf("janitor schedule: %w", err)
		}
		c.Start()
		g.Go(func() error {
			<-gctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	return g.Wait()
}

func buildHandler(engine *goSession.Engine, settings *config.Settings, log logrus.FieldLogger) (http.Handler, error) {
	handlers := httpapi.NewHandlers(engine, httpapi.NewCookieAdapter(engine.CookieConfig()), log)

	opts := []httpapi.RouterOption{httpapi.WithHealth(engine)}
	var httpMetrics *promexport.HTTPMetrics
	if settings.Server.Metrics {
		registry, err := promexport.NewRegistry(engine)
		if err != nil {
			return nil, err
		}
		httpMetrics = promexport.NewHTTPMetrics(registry)
		opts = append(opts, httpapi.WithHandler("/metrics", promexport.Handler(registry)))
	}

	router := httpapi.NewRouter(handlers, opts...)
	router.Handle("/auth/me", middleware.Guard(engine)(http.HandlerFunc(whoami))).Methods(http.MethodGet)

	var h http.Handler = withStoreDeadline(router, settings.Server.StoreTimeout)
	if httpMetrics != nil {
		h = httpMetrics.Middleware(h)
	}
	return h, nil
}

func whoami(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, "{\"user_id\":%q,\"expires_at\":%q}\n", res.UserID, res.ExpiresAt.UTC().Format(time.RFC3339))
}

// withStoreDeadline bounds the request context so store calls made on its
// behalf give up after d.
func withStoreDeadline(next http.Handler, d time.Duration) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type backends struct {
	redis     redis.UniversalClient
	pool      *pgxpool.Pool
	store     session.Store
	directory goSession.UserDirectory
}

func openBackends(ctx context.Context, s *config.Settings, log logrus.FieldLogger) (*backends, error) {
	b := &backends{}

	if s.NeedsRedis() {
		b.redis = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{s.Redis.Addr},
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := b.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			b.close()
			return nil, fmt.Errorf("redis %s: %w", s.Redis.Addr, err)
		}
	}

	if s.Postgres.URL != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{
			URL:      s.Postgres.URL,
			MaxConns: s.Postgres.MaxConns,
			MinConns: s.Postgres.MinConns,
		})
		if err != nil {
			b.close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.pool = pool
	}

	switch s.Store.Backend {
	case config.BackendPostgres:
		b.store = session.NewPostgresStore(b.pool)
	case config.BackendMemory:
		log.Warn("memory session store: sessions are lost on restart and not shared between instances")
		b.store = session.NewMemoryStore()
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		b.close()
		return nil, err
	}
	if b.pool != nil {
		b.directory = directory.NewPostgres(b.pool, hasher)
	} else {
		log.Warn("postgres.url not set: using an empty in-memory user directory")
		b.directory = directory.NewMemory(hasher)
	}

	return b, nil
}

// purger returns the configured store when it needs periodic purging.
func (b *backends) purger() (session.Purger, bool) {
	if b.store == nil {
		return nil, false
	}
	p, ok := b.store.(session.Purger)
	return p, ok
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
