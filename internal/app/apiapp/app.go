package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/app"
	"github.com/valentina-app/backend/internal/config"
	"github.com/valentina-app/backend/internal/infra/paystack"
	s3infra "github.com/valentina-app/backend/internal/infra/s3"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
	redrepo "github.com/valentina-app/backend/internal/repo/redis"
	authsvc "github.com/valentina-app/backend/internal/services/auth"
	matchessvc "github.com/valentina-app/backend/internal/services/matches"
	mediasvc "github.com/valentina-app/backend/internal/services/media"
	notifysvc "github.com/valentina-app/backend/internal/services/notifications"
	operatorsvc "github.com/valentina-app/backend/internal/services/operators"
	paymentsvc "github.com/valentina-app/backend/internal/services/payments"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	ratesvc "github.com/valentina-app/backend/internal/services/rate"
	sponsorsvc "github.com/valentina-app/backend/internal/services/sponsors"
)

type App struct {
	cfg           config.Config
	logger        *zap.Logger
	server        *http.Server
	postgres      *pgxpool.Pool
	redis         *goredis.Client
	notifications *notifysvc.Service
	httpRouter    http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.Postgres.AutoMigrate {
		if err := pgrepo.Migrate(pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis ping failed, sessions and rate limits will error until it recovers", zap.Error(err))
	}

	s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init s3: %w", err)
	}
	storage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket, cfg.S3.Region)
	if err := storage.EnsureBucket(ctx); err != nil {
		log.Warn("s3 bucket check failed, uploads will fail until storage is reachable", zap.Error(err))
	}
	mediaService := mediasvc.NewService(storage, mediasvc.Config{
		MaxBytes:   cfg.S3.MaxPhotoBytes,
		PresignTTL: cfg.S3.PresignTTL,
	})

	notifications, err := app.NewNotifications(cfg, log)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	profileRepo := pgrepo.NewProfileRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	vipCodeRepo := pgrepo.NewVIPCodeRepo(pool)
	sponsorRepo := pgrepo.NewSponsorRepo(pool)
	operatorRepo := pgrepo.NewOperatorRepo(pool)
	operatorSessionRepo := pgrepo.NewOperatorSessionRepo(pool)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, authsvc.Dependencies{
		Accounts:    profileRepo,
		Sessions:    sessionRepo,
		ResetTokens: sessionRepo,
		Notifier:    notifications,
	}, authsvc.Config{
		RefreshTTL:     cfg.Auth.RefreshTTL,
		ResetURLPrefix: strings.TrimRight(cfg.App.PublicURL, "/") + "/reset-password?token=",
	}, log)

	operatorService := operatorsvc.NewService(operatorsvc.Dependencies{
		Operators: operatorRepo,
		Sessions:  operatorSessionRepo,
	}, operatorsvc.NewTokenManager(cfg.Operators.JWTSecret, cfg.Operators.SessionTTL), operatorsvc.Config{
		SessionIdleTTL:  cfg.Operators.SessionIdleTTL,
		SessionTTL:      cfg.Operators.SessionTTL,
		MaxFailedLogins: cfg.Operators.MaxFailedLogins,
		LockDuration:    cfg.Operators.LockDuration,
	}, log)

	profileService := profilesvc.NewService(profileRepo, mediaService, log)
	sponsorService := sponsorsvc.NewService(sponsorRepo, mediaService, log)

	matchService := matchessvc.NewService(matchessvc.Dependencies{
		Profiles: profileRepo,
		Matches:  matchRepo,
		Codes:    vipCodeRepo,
		Tx:       pgrepo.NewTxManager(pool),
		Limiter:  ratesvc.NewLimiter(rateRepo),
		Notifier: notifications,
	}, matchessvc.Config{
		CodePrefix:     cfg.VIP.CodePrefix,
		CodeLength:     cfg.VIP.CodeLength,
		RedeemAttempts: cfg.VIP.RedeemAttempts,
		RedeemWindow:   cfg.VIP.RedeemWindow,
		RevealAt:       cfg.App.RevealAt,
	}, log)

	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Gateway:  paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.Timeout),
		Profiles: profileRepo,
		Notifier: notifications,
	}, paymentsvc.Config{SignupFeeKobo: cfg.App.SignupFeeKobo}, log)

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)
	RegisterRoutes(r, Dependencies{
		AuthService:     authService,
		OperatorService: operatorService,
		ProfileService:  profileService,
		MatchService:    matchService,
		PaymentService:  paymentService,
		SponsorService:  sponsorService,
		Logger:          log,
		Config:          cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:           cfg,
		logger:        log,
		server:        server,
		postgres:      pool,
		redis:         redisClient,
		notifications: notifications,
		httpRouter:    r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, lets queued emails finish within ctx
// and closes the stores.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	done := make(chan struct{})
	go func() {
		a.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("shutdown deadline reached with emails still sending")
	}

	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
