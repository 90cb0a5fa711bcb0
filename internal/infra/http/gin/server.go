package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"storeshare/internal/config"
	"storeshare/internal/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	ListMine(c *gin.Context)
}

type ChatHTTP interface {
	Conversations(c *gin.Context)
	Messages(c *gin.Context)
	Send(c *gin.Context)
	MarkRead(c *gin.Context)
}

type NotificationHTTP interface {
	ListMine(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Chat         ChatHTTP
	Notification NotificationHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.GET("/me/bookings", h.Booking.ListMine)
	}
	if h.Chat != nil {
		api.GET("/conversations", h.Chat.Conversations)
		api.GET("/conversations/:id/messages", h.Chat.Messages)
		api.POST("/conversations/:id/messages", h.Chat.Send)
		api.POST("/conversations/:id/read", h.Chat.MarkRead)
	}
	if h.Notification != nil {
		api.GET("/me/notifications", h.Notification.ListMine)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug", "dev":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
