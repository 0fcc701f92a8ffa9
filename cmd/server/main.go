package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/config"
	"github.com/contactlearncert-blip/prospection/internal/feed"
	"github.com/contactlearncert-blip/prospection/internal/fetch"
	"github.com/contactlearncert-blip/prospection/internal/handler"
	"github.com/contactlearncert-blip/prospection/internal/llm"
	"github.com/contactlearncert-blip/prospection/internal/logging"
	"github.com/contactlearncert-blip/prospection/internal/metrics"
	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/prompt"
	"github.com/contactlearncert-blip/prospection/internal/repository"
	"github.com/contactlearncert-blip/prospection/internal/service"
	"github.com/contactlearncert-blip/prospection/pkg/auth"
	"github.com/contactlearncert-blip/prospection/pkg/identity"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// stores is the persistence backend selected by DATABASE_URL.
type stores struct {
	db        repository.DB
	users     repository.UserRepository
	sessions  repository.SessionRepository
	prospects repository.ProspectRepository
	// watch forwards change notifications to notify until ctx is done.
	watch func(ctx context.Context, notify func(userID string)) error
	close func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsesSQLite() {
		s, err := repository.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		slog.Info("using sqlite store", "path", cfg.SQLitePath())
		return &stores{
			db:        s,
			users:     s.Users(),
			sessions:  s.Sessions(),
			prospects: s.Prospects(),
			watch: func(ctx context.Context, notify func(string)) error {
				s.OnChange(notify)
				<-ctx.Done()
				return nil
			},
			close: func() { _ = s.Close() },
		}, nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("using postgres store")
	return &stores{
		db:        pool,
		users:     repository.NewPgUserRepository(pool),
		sessions:  repository.NewPgSessionRepository(pool),
		prospects: repository.NewPgProspectRepository(pool),
		watch: func(ctx context.Context, notify func(string)) error {
			return repository.NewPgChangeListener(pool, notify).Run(ctx)
		},
		close: pool.Close,
	}, nil
}

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logging.Fatal("failed to open database", "error", err)
	}
	defer st.close()

	broker := feed.NewBroker(st.prospects.ListByUser)
	defer broker.Close()

	// AI flows
	prompts := prompt.MustNew()
	gemini, err := llm.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logging.Fatal("failed to create model", "error", err)
	}
	fetcher := fetch.New(cfg.ContentProxyURL)
	evaluateFlow := mustFlow[model.EvaluateProspectInput, model.EvaluationResult](prompts, "evaluateProspect", gemini, fetcher.Tool())
	messageFlow := mustFlow[model.GenerateMessageInput, model.PersonalizedMessage](prompts, "generatePersonalizedMessage", gemini, fetcher.Tool())

	// Services
	sessionService := service.NewSessionService(st.sessions)
	prospectService := service.NewProspectService(st.prospects, broker)
	assistantService := service.NewAssistantService(evaluateFlow, messageFlow, cfg.ServiceOffering)
	dashboardService := service.NewDashboardService(st.prospects)
	authenticator := service.NewAuthenticator(
		identity.NewClient(cfg.IdentityAPIKey, cfg.IdentityBaseURL),
		st.users,
		sessionService,
	)

	// Handlers
	h := handler.New(st.db, cfg.FrontendURL)
	authHandler := handler.NewAuthHandler(authenticator, handler.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		AppleClientID:      cfg.AppleClientID,
		AppleClientSecret:  cfg.AppleClientSecret,
		BackendURL:         cfg.BackendURL,
		SessionSecret:      cfg.SessionSecret,
		FrontendURL:        cfg.FrontendURL,
		Secure:             cfg.Production(),
	})
	providersHandler := handler.NewProvidersHandler(handler.ProvidersConfig{
		AppleClientID: cfg.AppleClientID,
		EnableEmail:   cfg.EnableEmail,
	})
	meHandler := handler.NewMeHandler(st.users)
	prospectHandler := handler.NewProspectHandler(prospectService)
	assistantHandler := handler.NewAssistantHandler(assistantService, prospectService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	liveHandler := handler.NewLiveHandler(prospectService, cfg.FrontendURL)

	if !cfg.AuthRequired {
		slog.Warn("AUTH_REQUIRED=false: every request runs as the development user")
	}
	wrapAuth := func(next http.Handler) http.Handler {
		if cfg.AuthRequired {
			return auth.RequireAuth(sessionService)(next)
		}
		return auth.DevAuth(next)
	}
	aiLimiter := handler.NewRateLimiter(ctx, cfg.AIRateLimitPerMinute)
	withAI := func(fn http.HandlerFunc) http.Handler {
		return wrapAuth(aiLimiter.Middleware(fn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/auth/providers", providersHandler.Providers)
	mux.HandleFunc("POST /api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/google/login", authHandler.GoogleLoginURL)
	mux.HandleFunc("GET "+handler.GoogleCallbackPath, authHandler.GoogleCallback)
	mux.HandleFunc("GET /api/auth/apple/login", authHandler.AppleLoginURL)
	mux.HandleFunc("POST "+handler.AppleCallbackPath, authHandler.AppleCallback)

	mux.Handle("GET /api/me", wrapAuth(http.HandlerFunc(meHandler.Me)))

	mux.Handle("GET /api/prospects", wrapAuth(http.HandlerFunc(prospectHandler.List)))
	mux.Handle("POST /api/prospects", wrapAuth(http.HandlerFunc(prospectHandler.Create)))
	mux.Handle("GET /api/prospects/{id}", wrapAuth(http.HandlerFunc(prospectHandler.Get)))
	mux.Handle("PATCH /api/prospects/{id}/status", wrapAuth(http.HandlerFunc(prospectHandler.PatchStatus)))
	mux.Handle("POST /api/prospects/{id}/send", wrapAuth(http.HandlerFunc(prospectHandler.Send)))

	mux.Handle("POST /api/prospects/evaluate", withAI(assistantHandler.Evaluate))
	mux.Handle("POST /api/prospects/{id}/message", withAI(assistantHandler.ProspectMessage))
	mux.Handle("POST /api/messages/generate", withAI(assistantHandler.Generate))

	mux.Handle("GET /api/dashboard", wrapAuth(http.HandlerFunc(dashboardHandler.Get)))
	mux.Handle("GET /api/live", wrapAuth(http.HandlerFunc(liveHandler.Serve)))

	g, gctx := errgroup.WithContext(ctx)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.CORS(handler.SecurityHeaders(handler.RequestLogger(metrics.Middleware(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		// Flows may call the model several times.
		WriteTimeout: 90 * time.Second,
		// Live sessions are hijacked connections; they end with ctx.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		slog.Info("server listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return st.watch(gctx, broker.Notify)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped with error", "error", err)
	}
}

func mustFlow[In, Out any](prompts *prompt.Store, name string, model llm.Model, tools ...llm.Tool) *llm.Flow[In, Out] {
	tmpl, err := prompts.Get(name)
	if err != nil {
		logging.Fatal("prompt template missing", "template", name, "error", err)
	}
	f, err := llm.NewFlow[In, Out](tmpl, model, tools...)
	if err != nil {
		logging.Fatal("failed to build flow", "template", name, "error", err)
	}
	return f
}
