package router

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	apperrors "conference-webapp/errors"
	"conference-webapp/handlers"
	"conference-webapp/middleware"
)

type Config struct {
	SigningKey      []byte
	CORSOrigins     string
	LoginRateLimit  int
	LoginRateWindow time.Duration
	ProxyHeader     string
	// AccessLog receives one line per request; nil means stdout.
	AccessLog io.Writer
}

// NewApp builds the fiber app with the error handler and shared middleware and mounts every route.
func NewApp(h *handlers.Handler, cfg Config, log *slog.Logger) *fiber.App {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	app := fiber.New(fiber.Config{
		AppName:      "conference-webapp",
		ErrorHandler: apperrors.Handler(log),
		ProxyHeader:  cfg.ProxyHeader,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: cfg.CORSOrigins != "*",
	}))

	SetupRoutes(app, h, cfg)
	return app
}

func SetupRoutes(app *fiber.App, h *handlers.Handler, cfg Config) {
	accessLog := cfg.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}
	app.Get("/health", h.Health)

	api := app.Group("/api", logger.New(logger.Config{
		Format: "${time} | ${locals:requestid} | ${status} | ${latency} | ${method} ${path}\n",
		Output: accessLog,
	}))
	authorize := middleware.Authorize(cfg.SigningKey)
	privileged := middleware.RequirePrivileged()

	//Auth
	auth := api.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", middleware.LoginLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow), h.Login)
	auth.Post("/logout", h.Logout)
	auth.Get("/me", authorize, h.Me)

	//Proposals
	proposals := api.Group("/proposals", authorize)
	proposals.Post("/", h.SubmitProposal)
	proposals.Get("/", privileged, h.GetProposals)
	proposals.Get("/my", h.GetMyProposals)
	proposals.Get("/status/:status", privileged, h.GetProposalsByStatus)
	proposals.Post("/:id/review", privileged, h.ReviewProposal)
	proposals.Delete("/:id", h.DeleteProposal)

	//Sessions
	sessions := api.Group("/sessions", authorize)
	sessions.Post("/", privileged, h.CreateSession)
	sessions.Get("/", h.GetSessions)
	sessions.Get("/upcoming", h.GetUpcomingSessions)
	sessions.Get("/my", h.GetMySessions)
	sessions.Get("/:id", h.GetSession)
	sessions.Put("/:id", privileged, h.UpdateSession)
	sessions.Delete("/:id", privileged, h.DeleteSession)

	//Registrations
	registrations := api.Group("/registrations", authorize)
	registrations.Post("/session/:id", h.JoinSession)
	registrations.Get("/my", h.GetMyRegistrations)
	registrations.Get("/session/:id", privileged, h.GetSessionRegistrations)
	registrations.Delete("/:id", h.CancelRegistration)
	registrations.Post("/:id/attend", privileged, h.MarkAttended)

	//Feedback
	feedback := api.Group("/feedback", authorize)
	feedback.Post("/", h.SubmitFeedback)
	feedback.Get("/my", h.GetMyFeedback)
	feedback.Get("/session/:id", h.GetSessionFeedback)
	feedback.Get("/session/:id/average", h.GetSessionAverageRating)
	feedback.Delete("/:id", privileged, h.DeleteFeedback)

	//Users
	users := api.Group("/users", authorize, middleware.RequireAdmin())
	users.Get("/", h.GetUsers)
	users.Get("/:id", h.GetUser)
	users.Put("/:id/role", h.UpdateUserRole)
	users.Delete("/:id", h.DeleteUser)
}
