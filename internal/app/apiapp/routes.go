package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/config"
	"github.com/valentina-app/backend/internal/domain/enums"
	"github.com/valentina-app/backend/internal/metrics"
	authsvc "github.com/valentina-app/backend/internal/services/auth"
	matchessvc "github.com/valentina-app/backend/internal/services/matches"
	operatorsvc "github.com/valentina-app/backend/internal/services/operators"
	paymentsvc "github.com/valentina-app/backend/internal/services/payments"
	profilesvc "github.com/valentina-app/backend/internal/services/profiles"
	sponsorsvc "github.com/valentina-app/backend/internal/services/sponsors"
	"github.com/valentina-app/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService     *authsvc.Service
	OperatorService *operatorsvc.Service
	ProfileService  *profilesvc.Service
	MatchService    *matchessvc.Service
	PaymentService  *paymentsvc.Service
	SponsorService  *sponsorsvc.Service
	Logger          *zap.Logger
	Config          config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	publicHandler := handlers.NewPublicHandler(handlers.PublicConfig{
		RevealAt:      deps.Config.App.RevealAt,
		SignupFeeKobo: deps.Config.App.SignupFeeKobo,
	}, deps.SponsorService)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.ProfileService)
	meHandler := handlers.NewMeHandler(deps.ProfileService, deps.Config.S3.MaxPhotoBytes)
	paymentsHandler := handlers.NewPaymentsHandler(deps.PaymentService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, deps.ProfileService, deps.Config.App.RevealAt)
	adminAuthHandler := handlers.NewAdminAuthHandler(deps.OperatorService)
	adminHandler := handlers.NewAdminHandler(
		deps.MatchService,
		deps.ProfileService,
		deps.SponsorService,
		deps.Config.S3.MaxPhotoBytes,
		deps.Logger,
	)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	paidMW := RequirePaid(deps.ProfileService)
	operatorMW := OperatorAuthMiddleware(deps.OperatorService, deps.Logger)
	ownerMW := RequireRole(enums.OperatorRoleOwner)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/public/config", publicHandler.Config)
		r.Get("/public/sponsors", publicHandler.Sponsors)

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.Refresh)
		r.Post("/auth/password-reset", authHandler.PasswordReset)
		r.Post("/auth/password-reset/confirm", authHandler.PasswordResetConfirm)
		r.With(authMW).Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authMW)
			r.Get("/me", meHandler.Get)
			r.Patch("/me", meHandler.Update)
			r.Post("/me/photo", meHandler.UploadPhoto)
			r.Post("/payments/verify", paymentsHandler.Verify)
		})

		r.Group(func(r chi.Router) {
			r.Use(authMW, paidMW)
			r.Get("/matches", matchesHandler.List)
			r.Post("/matches/instant", matchesHandler.Instant)
			r.Post("/vip/redeem", matchesHandler.RedeemVIP)
			r.Get("/vip/status", matchesHandler.VIPStatus)
		})
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Post("/auth/login", adminAuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(operatorMW)
			r.Post("/auth/logout", adminAuthHandler.Logout)
			r.Get("/auth/me", adminAuthHandler.Me)

			r.Get("/overview", adminHandler.Overview)
			r.Post("/matches", adminHandler.CreateMatch)
			r.Delete("/matches/{id}", adminHandler.DeleteMatch)
			r.Post("/vip-codes", adminHandler.IssueVIPCode)
			r.Post("/vip-codes/legacy", adminHandler.IssueLegacyVIPCode)
			r.Delete("/vip-codes/{id}", adminHandler.DeleteVIPCode)
			r.Patch("/users/{id}", adminHandler.UpdateUser)
			r.With(ownerMW).Delete("/users/{id}", adminHandler.DeleteUser)
			r.Post("/sponsors", adminHandler.CreateSponsor)
			r.Post("/sponsors/{id}/logo", adminHandler.UploadSponsorLogo)
			r.With(ownerMW).Delete("/sponsors/{id}", adminHandler.DeleteSponsor)
		})
	})
}
