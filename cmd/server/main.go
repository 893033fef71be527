// Command server runs the Farcasturd mini app backend.
//
//	@title						Farcasturd API
//	@version					1.0
//	@description				Backend for the Farcasturd Farcaster mini app: per-FID artwork, NFT mint, leaderboard, and the mention bot.
//	@BasePath					/api
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@securityDefinitions.apikey	CronSecret
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/farcasturd-backend/docs"
	"github.com/tbourn/farcasturd-backend/internal/auth"
	"github.com/tbourn/farcasturd-backend/internal/blobstore"
	"github.com/tbourn/farcasturd-backend/internal/chain"
	"github.com/tbourn/farcasturd-backend/internal/config"
	"github.com/tbourn/farcasturd-backend/internal/farcaster"
	httpapi "github.com/tbourn/farcasturd-backend/internal/http"
	"github.com/tbourn/farcasturd-backend/internal/http/handlers"
	"github.com/tbourn/farcasturd-backend/internal/imagegen"
	"github.com/tbourn/farcasturd-backend/internal/observability"
	"github.com/tbourn/farcasturd-backend/internal/palette"
	"github.com/tbourn/farcasturd-backend/internal/repo"
	"github.com/tbourn/farcasturd-backend/internal/retry"
	"github.com/tbourn/farcasturd-backend/internal/services"
	"github.com/tbourn/farcasturd-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.ConfigureLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	appVersion := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version)
	log.Info().Str("version", appVersion).Str("db", cfg.DB.Driver).Str("artifacts", cfg.ArtifactBackend).Msg("starting")

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, appVersion)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Storage
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	if err := observability.InstrumentDB(db, cfg.OTEL); err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; cache and nonce calls will fail over")
		}
	}

	var artifacts services.ArtifactStore = repo.NewArtifactStore(db)
	if cfg.ArtifactBackend == "s3" {
		s3, err := blobstore.NewFromConfig(ctx, cfg.S3)
		if err != nil {
			return err
		}
		artifacts = s3
	}

	// Integrations
	fc := farcaster.NewClient(farcaster.Options{
		APIKey:  cfg.Neynar.APIKey,
		BaseURL: cfg.Neynar.BaseURL,
		Timeout: cfg.Neynar.Timeout,
		RPS:     cfg.Neynar.RPS,
	})
	var lookup farcaster.Lookup = fc
	if rdb != nil && cfg.ProfileCacheTTL > 0 {
		lookup = farcaster.NewCachedLookup(fc, rdb, cfg.ProfileCacheTTL)
	}

	images := imagegen.New(imagegen.Options{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Size:    cfg.OpenAI.Size,
		Quality: cfg.OpenAI.Quality,
		Timeout: cfg.OpenAI.Timeout,
		Policy: retry.Policy{
			MaxAttempts:  cfg.OpenAI.Attempts,
			InitialDelay: cfg.OpenAI.BackoffStart,
			MaxDelay:     retry.ImageGenPolicy().MaxDelay,
			Multiplier:   retry.ImageGenPolicy().Multiplier,
		},
	})

	chainClient, err := chain.Dial(ctx, cfg.Chain)
	switch {
	case errors.Is(err, chain.ErrNotConfigured):
		log.Warn().Msg("chain not configured; mint and NFT gating disabled")
	case err != nil:
		return err
	default:
		log.Info().Str("contract", chainClient.Address().Hex()).Bool("can_sign", chainClient.CanSign()).Msg("chain ready")
	}

	// Sign-in
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if secret, err = auth.NewNonce(); err != nil {
			return err
		}
		log.Warn().Msg("AUTH_JWT_SECRET not set; sessions will not survive a restart")
	}
	tokens := auth.NewTokens(secret, cfg.Auth.TokenTTL)

	var nonces auth.NonceStore
	if rdb != nil {
		nonces = auth.NewRedisNonces(rdb, cfg.Auth.NonceTTL)
	} else {
		nonceRepo := repo.NewNonceRepo(db)
		nonces = auth.NewDBNonces(nonceRepo, cfg.Auth.NonceTTL)
		if n, err := nonceRepo.PurgeExpired(ctx, time.Now()); err != nil {
			log.Warn().Err(err).Msg("nonce purge failed")
		} else if n > 0 {
			log.Info().Int64("purged", n).Msg("expired nonces removed")
		}
	}

	// Services
	price := &services.PriceService{Source: cfg.Chain.PriceSource, FixedETH: cfg.Chain.PriceETH}
	mint := &services.MintService{
		Claims:   repo.NewMintClaimRepo(db),
		Price:    price,
		Mode:     cfg.Chain.Mode,
		ClaimTTL: cfg.Chain.ClaimTTL,
	}
	profiles := &services.ProfileService{Profiles: lookup}
	turds := repo.NewTurdRepo(db)
	bot := &services.BotService{
		Turds:      turds,
		Users:      lookup,
		Casts:      fc,
		Limiter:    &services.RateLimitService{Repo: repo.NewRateLimitRepo(db)},
		BotFID:     cfg.Neynar.BotFID,
		BotHandle:  cfg.Neynar.BotHandle,
		SignerUUID: cfg.Neynar.BotSignerUUID,
	}
	if chainClient != nil {
		price.Chain = chainClient
		mint.Chain = chainClient
		profiles.Minted = chainClient
		bot.Minted = chainClient
	}

	svc := handlers.Services{
		Artifacts: &services.GenerationService{
			Store:              artifacts,
			Profiles:           lookup,
			Palettes:           palette.NewExtractor(nil),
			Images:             images,
			PlaceholderProfile: cfg.GenerationPlaceholderProfile,
		},
		Profiles:    profiles,
		Mint:        mint,
		Price:       price,
		Leaderboard: &services.LeaderboardService{Turds: turds, Profiles: lookup},
		Auth:        &services.AuthService{Nonces: nonces, Tokens: tokens, Profiles: lookup, Domain: cfg.Auth.Domain},
		Bot:         bot,
	}

	if cfg.Neynar.WebhookSecret == "" {
		log.Warn().Msg("NEYNAR_WEBHOOK_SECRET not set; webhook signatures are not verified")
	}
	if cfg.Neynar.CronSecret == "" {
		log.Warn().Msg("CRON_SECRET not set; /cron/check-mentions rejects every request")
	}

	// HTTP
	gin.SetMode(cfg.GinMode)
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	docs.SwaggerInfo.Version = appVersion

	r := gin.New()
	// Images are already compressed.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`/image/`, `^/metrics$`})))
	httpapi.RegisterRoutes(r, httpapi.Deps{Services: svc, Sessions: tokens}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	return closeDB(db)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
