package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soaringjerry/modern360/internal/middleware"
	"github.com/soaringjerry/modern360/internal/services"
)

type Options struct {
	JWTSecret       []byte
	Admin           services.AdminCredentials
	DefaultLanguage string
	Commit          string
	BuildTime       string
}

// Router owns the services behind the HTTP surface.
type Router struct {
	store        Store
	opts         Options
	auth         *services.AuthService
	identity     *services.IdentityService
	assessments  *services.AssessmentService
	participants *services.ParticipantService
	invitations  *services.InvitationService
	responses    *services.ResponseService
	exports      *services.ExportService
	analytics    *services.AnalyticsService
	templates    *services.TemplateService
	audit        *services.AuditService
}

func NewRouter(store Store, notifier services.Notifier, opts Options) *Router {
	return &Router{
		store:        store,
		opts:         opts,
		auth:         services.NewAuthService(opts.Admin, middleware.NewTokenSigner(opts.JWTSecret)),
		identity:     services.NewIdentityService(store),
		assessments:  services.NewAssessmentService(store, opts.DefaultLanguage),
		participants: services.NewParticipantService(store),
		invitations:  services.NewInvitationService(store, notifier),
		responses:    services.NewResponseService(store),
		exports:      services.NewExportService(store),
		analytics:    services.NewAnalyticsService(store),
		templates:    services.NewTemplateService(store, opts.DefaultLanguage),
		audit:        services.NewAuditService(store),
	}
}

// NewServer builds the echo instance with the middleware chain and all routes.
func NewServer(rt *Router, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		echomw.Recover(),
		middleware.Metrics(),
		echomw.BodyLimit("2M"),
		middleware.SecureHeaders(),
		middleware.CORS(),
		echo.WrapMiddleware(middleware.Locale(rt.opts.DefaultLanguage)),
	)
	rt.Register(e)
	return e
}

// Register mounts the API and system routes. They answer with a locked-down
// content policy and are never cached; the frontend mounted next to them is not.
func (rt *Router) Register(e *echo.Echo) {
	locked := []echo.MiddlewareFunc{middleware.APIContentPolicy(), echo.WrapMiddleware(middleware.NoStore)}
	e.GET("/health", rt.health, locked...)
	e.GET("/version", rt.version, locked...)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), locked...)

	api := e.Group("/api", locked...)
	api.POST("/admin/login", rt.login)
	api.GET("/respond/:token", rt.respondContext)
	api.POST("/respond/:token", rt.submitResponse)

	admin := api.Group("/admin", middleware.RequireAdmin(rt.opts.JWTSecret, rt.adminUsername()))

	admin.GET("/companies", rt.listCompanies)
	admin.POST("/companies", rt.createCompany)
	admin.DELETE("/companies/:id", rt.deleteCompany)
	admin.GET("/companies/:id/users", rt.companyUsers)
	admin.POST("/users", rt.createUser)
	admin.DELETE("/users/:id", rt.deleteUser)

	admin.GET("/assessments", rt.listAssessments)
	admin.POST("/assessments", rt.createAssessment)
	admin.GET("/assessments/:id", rt.getAssessment)
	admin.PUT("/assessments/:id", rt.updateAssessment)
	admin.DELETE("/assessments/:id", rt.deleteAssessment)
	admin.GET("/assessments/:id/participants", rt.listParticipants)
	admin.POST("/assessments/:id/participants", rt.addParticipant)
	admin.DELETE("/assessments/:id/participants/:pid", rt.removeParticipant)
	admin.GET("/assessments/:id/available-assessors/:assesseeId", rt.availableAssessors)
	admin.POST("/assessments/:id/invitations", rt.issueInvitations)
	admin.GET("/assessments/:id/export", rt.exportAssessment)
	admin.GET("/assessments/:id/report", rt.assessmentReport)

	admin.GET("/invitations", rt.listInvitations)
	admin.POST("/invitations/send", rt.sendInvitations)
	admin.POST("/invitations/bulk-delete", rt.bulkDeleteInvitations)
	admin.DELETE("/invitations/:id", rt.deleteInvitation)
	admin.POST("/invitations/:id/reminder", rt.sendReminder)

	admin.GET("/reports", rt.reports)
	admin.GET("/notifications", rt.notifications)
	admin.GET("/templates", rt.listTemplates)
	admin.GET("/audit", rt.listAudit)
}

// adminUsername is empty unless admin login is fully configured.
func (rt *Router) adminUsername() string {
	if !rt.opts.Admin.Enabled() {
		return ""
	}
	return rt.opts.Admin.Username
}
