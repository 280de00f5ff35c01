package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adapthttp "nutriscan/internal/adapter/http"
	"nutriscan/internal/adapter/memory"
	"nutriscan/internal/adapter/mistral"
	"nutriscan/internal/adapter/postgres"
	"nutriscan/internal/adapter/redisstore"
	"nutriscan/internal/adapter/s3store"
	"nutriscan/internal/adapter/sqlite"
	"nutriscan/internal/app"
	"nutriscan/internal/config"
	"nutriscan/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const sessionSweepInterval = time.Hour

type stores struct {
	entries  domain.AnalysisRepository
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer func() { _ = st.close() }()

	var (
		images      domain.ImageStore
		localImages *memory.ImageStore
	)
	if cfg.S3Bucket != "" {
		images, err = s3store.NewFromConfig(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Printf("S3_BUCKET not set, keeping images in memory")
		localImages = memory.NewImageStore("/images")
		images = localImages
	}

	var handoff domain.HandoffStore
	if cfg.RedisAddr != "" {
		rh, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.HandoffTTL,
		})
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer func() { _ = rh.Close() }()
		handoff = rh
	} else {
		handoff = memory.NewHandoff(cfg.HandoffTTL)
	}

	completer := mistral.New(mistral.Options{
		APIKey:    cfg.MistralAPIKey,
		BaseURL:   cfg.MistralAPIURL,
		Model:     cfg.MistralModel,
		MaxTokens: cfg.MistralMaxTokens,
	})

	analysisSvc := app.NewAnalysisService(completer, st.entries, images, handoff)
	historySvc := app.NewHistoryService(st.entries)
	dashboardSvc := app.NewDashboardService(handoff, st.entries)
	authSvc := app.NewAuthService(st.users, st.sessions)

	srv := adapthttp.New(analysisSvc, historySvc, dashboardSvc, authSvc, cfg.WebDir)
	if localImages != nil {
		srv = srv.WithImages(localImages)
	}
	if cfg.OIDCEnabled() {
		provider, err := oidc.NewProvider(ctx, cfg.OIDCIssuer)
		if err != nil {
			log.Fatalf("oidc provider: %v", err)
		}
		srv = srv.WithOIDC(adapthttp.OIDCConfig{
			Enabled:  true,
			Provider: provider,
			OAuth2Config: &oauth2.Config{
				ClientID:     cfg.OIDCClientID,
				ClientSecret: cfg.OIDCClientSecret,
				RedirectURL:  cfg.OIDCRedirectURL,
				Endpoint:     provider.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			},
		})
		log.Printf("sso enabled via %s", cfg.OIDCIssuer)
	}

	go sweepSessions(ctx, authSvc)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s (store=%s)", cfg.Addr, cfg.Store)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{entries: db, users: db, sessions: sqlite.NewSessionRepo(db), close: db.Close}, nil
	case config.StoreMemory:
		log.Printf("STORE=memory, data is lost on restart")
		db := memory.New()
		return &stores{entries: db, users: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &stores{entries: db, users: db, sessions: postgres.NewSessionRepo(db), close: db.Close}, nil
	}
}

func sweepSessions(ctx context.Context, authSvc *app.AuthService) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authSvc.CleanupExpired(ctx); err != nil {
				log.Printf("session sweep: %v", err)
			}
		}
	}
}
