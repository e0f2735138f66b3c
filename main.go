package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mentorchat/cache"
	"mentorchat/chat"
	"mentorchat/database"
	"mentorchat/escalation"
	"mentorchat/handlers"
	"mentorchat/middleware"
	"mentorchat/notify"
	"mentorchat/realtime"
	"mentorchat/routes"
	"mentorchat/store"
)

func main() {
	log.Println("🚀 Starting MentorChat Backend Server...")

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// ===== REQUIRED ENV VARIABLES =====
	jwtSecret := os.Getenv("JWT_SECRET")
	mongoURI := os.Getenv("MONGODB_URI")

	if jwtSecret == "" || mongoURI == "" {
		log.Fatal("❌ JWT_SECRET and MONGODB_URI must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ===== CONNECT TO MONGODB WITH RETRY =====
	log.Println("🔌 Connecting to MongoDB...")

	var db *database.DB
	var dbErr error
	for i := 1; i <= 3; i++ {
		db, dbErr = database.Connect(ctx, mongoURI)
		if dbErr != nil {
			log.Printf("❌ MongoDB connection attempt %d failed: %v", i, dbErr)
			time.Sleep(2 * time.Second)
			continue
		}
		break
	}
	if dbErr != nil {
		log.Fatal("❌ Failed to connect to MongoDB:", dbErr)
	}
	log.Println("✅ MongoDB connected successfully")

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal("❌ Failed to ensure indexes:", err)
	}

	// ===== CACHE =====
	var listCache cache.Cache = cache.Noop{}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		rc, err := cache.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, room lists will not be cached: %v", err)
		} else {
			listCache = rc
			log.Println("✅ Redis connected")
		}
	}
	defer listCache.Close()

	// ===== STORES =====
	rooms := store.NewMongoRoomStore(db)
	participants := store.NewMongoParticipantStore(db)
	messages := store.NewMongoMessageStore(db)
	escalations := store.NewMongoEscalationStore(db)
	users := store.NewMongoUserStore(db)
	pushSubs := store.NewMongoPushStore(db)

	// ===== REALTIME =====
	hub := realtime.NewHub()
	feed := realtime.NewFeed(db.Messages, hub, users)
	go feed.Run(ctx)

	// ===== SERVICES =====
	vapidPublic := os.Getenv("VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("VAPID_PRIVATE_KEY")
	if vapidPublic == "" || vapidPrivate == "" {
		publicKey, privateKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Printf("⚠️ Failed to generate VAPID keys: %v", err)
		} else {
			vapidPublic, vapidPrivate = publicKey, privateKey
			log.Println("⚠️ Generated new VAPID keys - for production, set these as environment variables:")
			log.Printf("   VAPID_PUBLIC_KEY: %s", vapidPublic)
			log.Printf("   VAPID_PRIVATE_KEY: %s", vapidPrivate)
		}
	}

	pusher := &notify.Pusher{
		Subs:            pushSubs,
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Subscriber:      "mailto:admin@mentorchat.app",
	}

	projector := &chat.Projector{
		Rooms:        rooms,
		Participants: participants,
		Messages:     messages,
		Users:        users,
		Cache:        listCache,
	}

	dispatcher := &chat.Dispatcher{
		Rooms:        rooms,
		Participants: participants,
		Messages:     messages,
		Users:        users,
		Channel:      hub,
		Notifier:     pusher,
		Invalidator:  projector,
	}

	readState := &chat.ReadState{
		Participants: participants,
		Messages:     messages,
		Channel:      hub,
		Invalidator:  projector,
	}

	roomSvc := &chat.RoomService{
		Rooms:        rooms,
		Participants: participants,
		Users:        users,
		Dispatcher:   dispatcher,
	}

	// ===== ESCALATION SCHEDULER =====
	gateway := &notify.SMTPGateway{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     getenv("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getenv("SMTP_FROM", "no-reply@mentorchat.app"),
		AppURL:   getenv("APP_URL", "http://localhost:3000"),
	}
	scheduler := &escalation.Scheduler{
		Participants: participants,
		Messages:     messages,
		Rooms:        rooms,
		Users:        users,
		Escalations:  escalations,
		Gateway:      gateway,
	}
	if os.Getenv("SMTP_HOST") == "" {
		log.Println("⚠️ SMTP_HOST not set, unread email escalation disabled")
	} else {
		go scheduler.Run(ctx)
		log.Println("✅ Unread escalation scheduler running")
	}

	// ===== GIN MODE =====
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
		log.Println("⚙️ Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("⚙️ Running in DEBUG mode")
	}

	// ===== ROUTER =====
	api := &handlers.API{
		Users:          users,
		Push:           pushSubs,
		Dispatcher:     dispatcher,
		ReadState:      readState,
		Projector:      projector,
		Rooms:          roomSvc,
		VAPIDPublicKey: vapidPublic,
	}

	ws := realtime.ServeWS(hub, wsAuth, wsAccess(participants))
	router := routes.SetupRouter(api, ws)

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "MentorChat Backend Running 🚀",
			"service": "healthy",
		})
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	log.Println("✅ WebSocket endpoint: /ws")

	// ===== SERVER CONFIG =====
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server error:", err)
		}
	}()

	log.Println("✅ Server is ready and accepting connections")

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	cancel() // stops the change feed and the escalation scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown:", err)
	}
	if err := db.Disconnect(shutdownCtx); err != nil {
		log.Println("❌ MongoDB disconnect:", err)
	}

	log.Println("👋 Server stopped gracefully")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// wsAuth validates the websocket token before the upgrade.
func wsAuth(token string) (string, error) {
	claims, err := middleware.ParseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// wsAccess gates room subscriptions on active membership.
func wsAccess(participants store.ParticipantStore) realtime.AccessFunc {
	return func(ctx context.Context, roomID, userID string) bool {
		rid, err := primitive.ObjectIDFromHex(roomID)
		if err != nil {
			return false
		}
		uid, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return false
		}
		p, err := participants.Get(ctx, rid, uid)
		if err != nil {
			return false
		}
		return p.IsActive
	}
}
