package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/contacthub/internal/auth"
	"github.com/geocoder89/contacthub/internal/avatar"
	"github.com/geocoder89/contacthub/internal/config"
	"github.com/geocoder89/contacthub/internal/db"
	"github.com/geocoder89/contacthub/internal/domain/user"
	apphttp "github.com/geocoder89/contacthub/internal/http"
	"github.com/geocoder89/contacthub/internal/http/handlers"
	"github.com/geocoder89/contacthub/internal/jobs"
	"github.com/geocoder89/contacthub/internal/notifications"
	"github.com/geocoder89/contacthub/internal/observability"
	"github.com/geocoder89/contacthub/internal/queue/redisclient"
	"github.com/geocoder89/contacthub/internal/repo/memory"
	"github.com/geocoder89/contacthub/internal/repo/postgres"
	"github.com/geocoder89/contacthub/internal/verification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// userStore is satisfied by both the postgres and the in-memory users repo.
type userStore interface {
	apphttp.UserStore
	ConsumeVerificationToken(ctx context.Context, token string) (user.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (user.User, error)
	Ping(ctx context.Context) error
}

type backend struct {
	users      userStore
	contacts   handlers.ContactsStore
	dispatcher verification.Dispatcher
	closers    []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "contacthub-api", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	b, err := openBackend(ctx, cfg, prom, log)
	if err != nil {
		return err
	}
	defer b.close()

	if err := db.EnsureSeedUser(ctx, b.users, cfg.SeedEmail, cfg.SeedPassword); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	avatarStore, avatarDir, err := openAvatarStore(ctx, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.UploadTmpDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	router := apphttp.NewRouter(apphttp.Dependencies{
		Log:             log,
		Env:             cfg.Env,
		Prom:            prom,
		Gatherer:        reg,
		Store:           b.users,
		Users:           b.users,
		Contacts:        b.contacts,
		Tokens:          auth.NewManager(cfg.SigningSecret(), cfg.TokenTTL()),
		Verification:    verification.NewService(b.users, b.dispatcher, log),
		Avatars:         avatar.NewService(b.users, avatarStore, prom, log),
		AvatarDir:       avatarDir,
		UploadTmpDir:    cfg.UploadTmpDir,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		RequireVerified: cfg.RequireVerified,
		CORSOrigins:     cfg.CORSOrigins,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func openBackend(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (*backend, error) {
	if cfg.Store == "memory" {
		notifier, err := notifications.NewForDelivery(cfg.MailDelivery, smtpConfig(cfg), log)
		if err != nil {
			return nil, err
		}

		log.Warn("using in-memory store; data is lost on restart")
		return &backend{
			users:      memory.NewUsersRepo(),
			contacts:   memory.NewContactsRepo(),
			dispatcher: notifications.NewDirectDispatcher(notifier, cfg.PublicBaseURL),
		}, nil
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(pctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}
	b := &backend{closers: []func(){pool.Close}}

	if err := db.Migrate(pctx, pool); err != nil {
		b.close()
		return nil, err
	}

	var waker jobs.Waker
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		b.closers = append(b.closers, func() { _ = rc.Close() })

		if err := rc.Ping(pctx); err != nil {
			// polling still delivers; only the wake-up is lost
			log.Warn("redis unavailable, workers will poll", "addr", cfg.RedisAddr, "err", err)
		}
		waker = rc
	}

	b.users = postgres.NewUsersRepo(pool, prom)
	b.contacts = postgres.NewContactsRepo(pool, prom)
	b.dispatcher = jobs.NewVerificationEnqueuer(postgres.NewJobsRepo(pool, prom), waker, log)

	return b, nil
}

// openAvatarStore returns the store and, for local storage, the directory
// the router serves at /avatars.
func openAvatarStore(ctx context.Context, cfg config.Config) (avatar.Store, string, error) {
	if cfg.AvatarStore == "s3" {
		s, err := avatar.NewS3Store(ctx, avatar.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		return s, "", err
	}

	s, err := avatar.NewLocalStore(cfg.AvatarDir)
	if err != nil {
		return nil, "", err
	}
	return s, cfg.AvatarDir, nil
}

func smtpConfig(cfg config.Config) notifications.SMTPConfig {
	return notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.MailAPIKey,
		From:     cfg.MailFrom,
	}
}
