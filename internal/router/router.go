package router

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"peerhelp/internal/config"
	"peerhelp/internal/handler"
	guard "peerhelp/internal/middleware"
)

// Handlers groups every HTTP handler the router mounts. Seed is optional
// and only routed outside production.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Question     *handler.QuestionHandler
	Answer       *handler.AnswerHandler
	Vote         *handler.VoteHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Report       *handler.ReportHandler
	Admin        *handler.AdminHandler
	Search       *handler.SearchHandler
	WS           *handler.WSHandler
	Seed         *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, h Handlers, sessions guard.Authenticator, errorHandler echo.HTTPErrorHandler) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
	}))
	e.Use(middleware.BodyLimit("6M"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/uploads", cfg.UploadDir)

	secured := guard.SessionGuard([]byte(cfg.JWTSecret), sessions)
	e.GET("/ws", h.WS.Connect)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)
	api.POST("/auth/logout", h.Auth.Logout)
	api.POST("/auth/forgot-password", h.Auth.ForgotPassword)
	api.POST("/auth/reset-password", h.Auth.ResetPassword)
	api.GET("/users", h.User.ListUsers)
	api.GET("/users/:id", h.User.GetUser)
	api.GET("/search", h.Search.Search)

	// Secured routes
	api.GET("/auth/me", h.Auth.Me, secured)
	api.POST("/users/profile", h.User.UpdateProfile, secured)

	questions := api.Group("/questions", secured)
	questions.GET("", h.Question.List)
	questions.GET("/:id", h.Question.Get)
	questions.POST("", h.Question.Create)
	questions.PUT("/:id", h.Question.Update)
	questions.DELETE("/:id", h.Question.Delete)

	answers := api.Group("/answers", secured)
	answers.GET("", h.Answer.List)
	answers.POST("", h.Answer.Create)
	answers.PUT("/:id", h.Answer.Update)
	answers.DELETE("/:id", h.Answer.Delete)

	votes := api.Group("/votes", secured)
	votes.POST("", h.Vote.Vote)
	votes.GET("/user", h.Vote.UserVotes)

	chats := api.Group("/chats", secured)
	chats.POST("", h.Chat.CreateChat)
	chats.GET("", h.Chat.ListChats)
	chats.GET("/find/:firstId/:secondId", h.Chat.FindChat)

	messages := api.Group("/messages", secured)
	messages.POST("", h.Chat.SendMessage)
	messages.GET("/:chatId", h.Chat.ListMessages)

	notifications := api.Group("/notifications", secured)
	notifications.GET("", h.Notification.List)
	notifications.GET("/unread-count", h.Notification.UnreadCount)
	notifications.PATCH("/read-all", h.Notification.MarkAllRead)
	notifications.PATCH("/chat/:chatId/read", h.Notification.MarkChatRead)
	notifications.PATCH("/:id/read", h.Notification.MarkRead)

	reports := api.Group("/reports", secured)
	reports.POST("", h.Report.Create)
	reports.GET("", h.Report.List, guard.AdminOnly)
	reports.PATCH("/:id", h.Report.Update, guard.AdminOnly)

	admin := api.Group("/admin", secured, guard.AdminOnly)
	admin.GET("/pending", h.Admin.Pending)
	admin.PUT("/approve/:userId", h.Admin.Approve)
	admin.DELETE("/reject/:userId", h.Admin.Reject)
	admin.GET("/users", h.Admin.Users)
	admin.PUT("/user/:id", h.Admin.UpdateUser)
	admin.DELETE("/user/:id", h.Admin.DeleteUser)
	admin.PUT("/block/:id", h.Admin.Block)
	admin.PUT("/unblock/:id", h.Admin.Unblock)
	admin.DELETE("/question/:id", h.Admin.DeleteQuestion)
	admin.DELETE("/answer/:id", h.Admin.DeleteAnswer)

	if h.Seed != nil && !cfg.IsProduction() {
		api.POST("/seed", h.Seed.Seed)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by every handler.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
