package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-otp-api/internal/application/flow"
	otpapp "github.com/go-otp-api/internal/application/otp"
	"github.com/go-otp-api/internal/config"
	"github.com/go-otp-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-otp-api/internal/infrastructure/jwt"
	"github.com/go-otp-api/internal/infrastructure/notify"
	"github.com/go-otp-api/internal/transport/http/handler"
	appmiddleware "github.com/go-otp-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo *dynamo.AccountRepo
	OtpRepo     *dynamo.OtpRepo
	Notifier    notify.Notifier
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the code-issuing public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	otpSvc := otpapp.NewService(deps.OtpRepo)
	flowDeps := flow.ServiceDeps{
		AccountRepo:      deps.AccountRepo,
		OtpService:       otpSvc,
		Notifier:         deps.Notifier,
		OTPLength:        cfg.OTPLength,
		VerificationTTL:  cfg.VerificationTTL,
		PasswordResetTTL: cfg.PasswordResetTTL,
	}
	if deps.JWTProvider != nil {
		flowDeps.JWTProvider = deps.JWTProvider
	}
	flowSvc := flow.NewService(flowDeps)

	healthH := handler.NewHealthHandler()
	regH := handler.NewRegistrationHandler(flowSvc)
	loginH := handler.NewLoginHandler(flowSvc)
	pwH := handler.NewPasswordRecoveryHandler(flowSvc)
	adminH := handler.NewOtpAdminHandler(otpSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/register", regH.Register)
		r.With(sensitiveRL.Limit).Post("/register/verify", regH.Verify)
		r.With(sensitiveRL.Limit).Post("/login", loginH.Login)
		r.With(sensitiveRL.Limit).Post("/password-reset/{action}", pwH.Action)

		// ── Authenticated maintenance routes ─────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/otp/stats", adminH.Stats)
			r.Post("/otp/sweep", adminH.Sweep)
		})
	})

	return r
}
