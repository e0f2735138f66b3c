package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mentorchat/handlers"
	"mentorchat/middleware"
)

// SetupRouter wires the HTTP surface. The websocket handler is passed in
// because it authenticates on its own (token query parameter) and must not
// go through the JWT middleware.
func SetupRouter(api *handlers.API, ws http.HandlerFunc) *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "MentorChat API is running",
			"time":    time.Now().Unix(),
			"ws":      "WebSocket available at /ws",
		})
	})

	// CORS configuration with WebSocket support
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://localhost:5500", "http://127.0.0.1:5500", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	router.POST("/api/signup", middleware.RateLimitMiddleware(), api.Signup)
	router.POST("/api/login", middleware.RateLimitMiddleware(), api.Login)
	router.GET("/api/vapid-public-key", api.GetVapidPublicKey)

	// Realtime channel
	router.GET("/ws", gin.WrapF(ws))

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	// Rooms
	protected.GET("/rooms", api.ListRooms)
	protected.POST("/rooms", api.CreateRoom)
	protected.POST("/rooms/:id/archive", api.ArchiveRoom)
	protected.POST("/rooms/:id/participants", api.AddParticipant)
	protected.DELETE("/rooms/:id/participants/:userId", api.RemoveParticipant)

	// Messages
	protected.POST("/rooms/:id/messages", api.SendMessage)
	protected.GET("/rooms/:id/messages", api.GetMessages)
	protected.POST("/rooms/:id/read", api.MarkRead)
	protected.GET("/rooms/:id/unread", api.UnreadCount)
	protected.PATCH("/messages/:id", api.EditMessage)
	protected.DELETE("/messages/:id", api.DeleteMessage)

	// Attachments
	protected.POST("/upload", api.UploadAttachment)

	// Push subscriptions
	protected.POST("/subscribe", api.SubscribePush)

	// Add a catch-all for undefined API routes
	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error":   "Endpoint not found",
				"path":    c.Request.URL.Path,
				"message": "Check the API documentation for available endpoints",
			})
			return
		}
		c.Next()
	})

	return router
}
