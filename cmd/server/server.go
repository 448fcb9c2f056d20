// cmd/server/server.go
package main

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/codr1/leaguehub/internal/api"
	"github.com/codr1/leaguehub/internal/api/account"
	"github.com/codr1/leaguehub/internal/api/admin"
	"github.com/codr1/leaguehub/internal/api/apiutil"
	"github.com/codr1/leaguehub/internal/api/auth"
	"github.com/codr1/leaguehub/internal/api/functions"
	"github.com/codr1/leaguehub/internal/api/leagues"
	"github.com/codr1/leaguehub/internal/catalog"
	"github.com/codr1/leaguehub/internal/config"
	"github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/email"
	"github.com/codr1/leaguehub/internal/invites"
	"github.com/codr1/leaguehub/internal/metrics"
	"github.com/codr1/leaguehub/internal/payments"
	"github.com/codr1/leaguehub/internal/ratelimit"
	"github.com/codr1/leaguehub/internal/scheduler"
)

// functionRequestsPerSecond bounds the shared token bucket in front of the
// function routes.
const functionRequestsPerSecond = 20

type app struct {
	db            *db.DB
	catalog       *catalog.Catalog
	metrics       *metrics.Recorder
	authenticator *auth.Authenticator
	limiter       *ratelimit.Limiter
	scheduler     *scheduler.Service
}

// newApp opens the store and builds every service. Optional integrations
// (Stripe, SES, Clerk) are skipped with a warning when their secrets are
// missing.
func newApp(cfg *config.Config) (*app, error) {
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.Default()
	if cfg.Catalog.Path != "" {
		if cat, err = catalog.Load(cfg.Catalog.Path); err != nil {
			database.Close()
			return nil, err
		}
	}
	log.Info().Int("leagues", cat.Len()).Msg("League catalog loaded")

	var recorder *metrics.Recorder
	if cfg.Features.EnableMetrics {
		recorder = metrics.New()
	}

	var directory auth.Directory
	if auth.InitClerk(cfg.Auth.ClerkSecretKey) {
		directory = auth.ClerkProvider{}
	} else {
		log.Warn().Msg("CLERK_SECRET_KEY not set; authenticated routes are unavailable")
	}
	authenticator := auth.NewAuthenticator(auth.ClerkProvider{}, directory, database.Queries)

	var sender email.EmailSender
	if ses, err := email.NewSESClient(
		os.Getenv("AWS_ACCESS_KEY_ID"),
		os.Getenv("AWS_SECRET_ACCESS_KEY"),
		cfg.Email.Region,
		cfg.Email.Sender,
	); err != nil {
		log.Warn().Err(err).Msg("Email not configured; invites will fail")
	} else {
		sender = ses
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Cooldown:            time.Duration(cfg.Invites.CooldownSeconds) * time.Second,
		MaxPerRecipientHour: cfg.Invites.MaxPerRecipientHour,
		MaxPerIPHour:        cfg.Invites.MaxPerIPHour,
		Clock:               clockwork.NewRealClock(),
	})

	deps := functions.Deps{
		Invites: invites.NewService(database.Queries, sender, limiter, recorder, invites.Config{
			BaseURL: cfg.App.BaseURL,
		}),
		Metrics:    recorder,
		TrustProxy: cfg.Invites.TrustProxy,
	}

	jobs := scheduler.JobsConfig{
		ProductSyncCron:  cfg.Scheduler.ProductSyncCron,
		InviteExpiryCron: cfg.Scheduler.InviteExpiryCron,
		InviteMaxAge:     time.Duration(cfg.Invites.ExpireAfterDays) * 24 * time.Hour,
		Invites:          database.Queries,
	}

	if cfg.Payments.StripeSecretKey != "" {
		processor, err := payments.NewStripeProcessor(cfg.Payments.StripeSecretKey)
		if err != nil {
			database.Close()
			return nil, err
		}
		syncer := payments.NewProductSyncer(processor, database, recorder)
		deps.Intents = payments.NewIntentService(database.Queries, processor, cfg.Payments.Currency)
		deps.Products = syncer
		jobs.Products = syncer
	} else {
		log.Warn().Msg("STRIPE_SECRET_KEY not set; payment functions are disabled")
	}

	sched, err := scheduler.New(recorder)
	if err != nil {
		limiter.Close()
		database.Close()
		return nil, err
	}
	if err := scheduler.RegisterJobs(sched, jobs); err != nil {
		limiter.Close()
		database.Close()
		return nil, err
	}

	leagues.InitHandlers(database, cat)
	account.InitHandlers(database, cat)
	admin.InitHandlers(database)
	functions.InitHandlers(deps)

	return &app{
		db:            database,
		catalog:       cat,
		metrics:       recorder,
		authenticator: authenticator,
		limiter:       limiter,
		scheduler:     sched,
	}, nil
}

func (a *app) Close() {
	if err := a.scheduler.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotInitialized) {
		log.Error().Err(err).Msg("Failed to stop scheduler")
	}
	a.limiter.Close()
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
	log.Info().Msg("Application closed")
}

func newServer(cfg *config.Config, a *app) *http.Server {
	router := http.NewServeMux()
	registerRoutes(router, cfg, a)

	// Setup middleware chain; metrics sits next to the mux to see r.Pattern
	handler := api.ChainMiddleware(
		router,
		api.WithMetrics(a.metrics),
		api.WithRecovery,
		api.WithLogging,
		api.WithRequestID,
	)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config, a *app) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := apiutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write health response")
		}
	})

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	// Public league routes
	mux.HandleFunc("GET /api/v1/leagues", leagues.HandleListLeagues)
	mux.HandleFunc("GET /api/v1/leagues/facets", leagues.HandleFacets)
	mux.HandleFunc("GET /api/v1/leagues/{id}", leagues.HandleLeagueDetail)
	mux.HandleFunc("GET /api/v1/leagues/{id}/standings", leagues.HandleLeagueStandings)
	mux.HandleFunc("GET /api/v1/leagues/{id}/schedule", leagues.HandleLeagueSchedule)
	mux.HandleFunc("GET /api/v1/products", leagues.HandleListProducts)

	bearer := api.WithBearerAuth(a.authenticator)

	// Account routes
	mux.Handle("GET /api/v1/account/teams", bearer(http.HandlerFunc(account.HandleListTeams)))
	mux.Handle("GET /api/v1/account/payments", bearer(http.HandlerFunc(account.HandleListPayments)))
	mux.Handle("PUT /api/v1/account/profile", bearer(http.HandlerFunc(account.HandleUpdateProfile)))

	// Admin routes
	mux.Handle("GET /api/v1/admin/users", bearer(api.WithAdmin(http.HandlerFunc(admin.HandleListUsers))))
	mux.Handle("PATCH /api/v1/admin/users/{id}", bearer(api.WithAdmin(http.HandlerFunc(admin.HandleUpdateUser))))

	// Function routes check their own methods so wrong verbs get a JSON 405;
	// the CORS layer answers preflight before auth runs.
	cors := functions.CORS(cfg.App.AllowedOrigins)
	throttle := api.WithRateLimit(rate.NewLimiter(rate.Limit(functionRequestsPerSecond), functionRequestsPerSecond*2))
	fn := func(h http.HandlerFunc) http.Handler {
		return cors(throttle(bearer(h)))
	}
	mux.Handle("/api/v1/functions/send-invite", fn(functions.HandleSendInvite))
	mux.Handle("/api/v1/functions/create-payment-intent", fn(functions.HandleCreatePaymentIntent))
	mux.Handle("/api/v1/functions/sync-products", fn(functions.HandleSyncProducts))
}
