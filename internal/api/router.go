package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	openapimw "github.com/go-openapi/runtime/middleware"
	"github.com/rs/zerolog"

	"github.com/sp-hack/server/internal/api/handlers"
	"github.com/sp-hack/server/internal/api/middleware"
	"github.com/sp-hack/server/internal/api/procedure"
	"github.com/sp-hack/server/internal/audit"
	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/config"
	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/storage"
)

// Deps are the collaborators the router wires into its procedures.
type Deps struct {
	Config   config.Config
	Logger   zerolog.Logger
	Store    storage.Repository
	Limiter  procedure.Limiter
	Captcha  handlers.CaptchaVerifier
	Mailer   handlers.Mailer
	Sessions *auth.SessionCodec
	Health   *handlers.HealthChecker
	Location *time.Location
	Build    BuildInfo
}

// NewRouter builds the HTTP handler: operational endpoints, the procedures
// under /api, the API docs and the static frontend.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	location := d.Location
	if location == nil {
		location = time.UTC
	}

	pipelines := procedure.NewPipelines(procedure.Options{
		Store:          d.Store,
		Limiter:        d.Limiter,
		Sessions:       d.Sessions,
		Production:     cfg.IsProduction(),
		AllowForbidden: cfg.AllowForbidden,
		Audit:          audit.NewLoggerWithZerolog(d.Logger),
	})

	info := handlers.NewInfoHandler(location)
	admin := handlers.NewAdminAuthHandler(d.Sessions, d.Captcha, cfg.Auth.JWTExpiry, cfg.IsDevelopment())
	content := handlers.NewContentHandler(location)
	feedback := handlers.NewFeedbackHandler(d.Captcha, d.Mailer)
	captchaHandler := handlers.NewCaptchaHandler(d.Captcha)
	applications := handlers.NewApplicationsHandler(d.Captcha, d.Mailer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID(d.Logger))
	r.Use(middleware.RequestLogging)
	r.Use(metrics.HTTPMiddleware)
	r.Use(middleware.Tracing)
	r.Use(middleware.CORS(cfg.CORS, d.Logger))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.RequestSize(middleware.DefaultMaxBodySize))
	r.Use(middleware.NewFingerprinter(cfg.RateLimit.TrustedProxyCIDRs).Middleware)

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz())
		r.Get("/readyz", d.Health.Readyz())
	}
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/version", VersionHandler(d.Build))
	r.Handle("/openapi.json", OpenAPIHandler())
	r.Handle("/api-docs*", openapimw.SwaggerUI(openapimw.SwaggerUIOpts{
		SpecURL: "/openapi.json",
		Path:    "api-docs",
		Title:   "sp-hack API",
	}, http.NotFoundHandler()))

	r.Route("/api", func(r chi.Router) {
		r.Get("/info/eventDate", procedure.Query(pipelines.Public, "info.eventDate", info.EventDate))
		r.Get("/info/eventPlace", procedure.Query(pipelines.Public, "info.eventPlace", info.EventPlace))
		r.Get("/info/schedule", procedure.Query(pipelines.Public, "info.schedule", info.Schedule))

		r.Post("/admin/create", procedure.Mutation(pipelines.Forbidden, "admin.create", admin.Create))
		r.Post("/admin/login", procedure.Mutation(pipelines.RateLimited, "admin.login", admin.Login))
		r.Post("/admin/logout", procedure.Mutation(pipelines.Admin, "admin.logout", admin.Logout))

		r.Patch("/content/changeCommon", procedure.Mutation(pipelines.Admin, "content.changeCommon", content.ChangeCommon))
		r.Put("/content/changeSchedule", procedure.Mutation(pipelines.Admin, "content.changeSchedule", content.ChangeSchedule))

		r.Post("/feedback/create", procedure.Mutation(pipelines.RateLimited, "feedback.create", feedback.Create))
		r.Get("/feedback/get", procedure.Query(pipelines.Admin, "feedback.get", feedback.List))
		r.Delete("/feedback/deleteById", procedure.Mutation(pipelines.Admin, "feedback.deleteById", feedback.DeleteByID))
		r.Post("/feedback/reply", procedure.Mutation(pipelines.Admin, "feedback.reply", feedback.Reply))

		r.Get("/captcha/get", procedure.Query(pipelines.RateLimited, "captcha.get", captchaHandler.Get))

		r.Post("/applications/create", procedure.Mutation(pipelines.RateLimited, "applications.create", applications.Create))
		r.Get("/applications/get", procedure.Query(pipelines.Admin, "applications.get", applications.List))
		r.Delete("/applications/deleteById", procedure.Mutation(pipelines.Admin, "applications.deleteById", applications.DeleteByID))
		r.Post("/applications/reply", procedure.Mutation(pipelines.Admin, "applications.reply", applications.Reply))
	})

	r.Handle("/*", SPAHandler(cfg.Server.StaticDir))

	return r
}
