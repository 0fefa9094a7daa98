package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"gemchat/controller"
	"gemchat/model"
	"gemchat/platform"
	"gemchat/service"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Client-Security-Token, Accept-Encoding, x-access-token")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

var auth = new(controller.AuthController)

// TokenAuthMiddleware ...
// JWT Authentication middleware attached to each request that needs to be authenitcated to
// validate the access_token in the header
func TokenAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.TokenValid(c)
		c.Next()
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("failed to load the env file")
	}

	platform.InitFile("./log", "gin")

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init database
	db, err := platform.NewDB(platform.ConfigFromEnv())
	if err != nil {
		platform.Logger.Fatalf("failed to init database: %s", err)
	}
	model.InstallDB(db)
	store := model.NewStore(db)

	//init external clients
	gemini, err := platform.NewGeminiClient(context.Background(), os.Getenv("GEMINI_API_KEY"))
	if err != nil {
		platform.Logger.Fatalf("failed to init Gemini client: %s", err)
	}
	blobs := platform.NewSupabaseStorageFromEnv()
	mailer := platform.NewOperatorMailerFromEnv()

	chatService := service.NewChatService(gemini, blobs, store)
	sessionService := service.NewSessionService(store, blobs)
	cleanupService := service.NewCleanupService(blobs, store, mailer)
	userService := &service.UserService{Store: store}

	user := controller.NewUserController(userService)
	chat := controller.NewChatController(chatService, gemini)
	sessions := controller.NewSessionController(sessionService)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", user.Register)
		authGroup.POST("/login", user.Login)
		authGroup.POST("/token/refresh", auth.Refresh)
	}

	api := r.Group("/api")
	{
		api.GET("/models", chat.ListModels)

		authed := api.Group("", TokenAuthMiddleware())
		authed.POST("/chat", chat.HandleChat)
		authed.GET("/sessions", sessions.List)
		authed.POST("/sessions", sessions.Create)
		authed.GET("/sessions/:sessionId/history", sessions.History)
		authed.PUT("/sessions/:sessionId/title", sessions.Rename)
		authed.DELETE("/sessions/:sessionId", sessions.Delete)
	}

	c := cron.New()
	c.AddFunc("15 4 * * *", cleanupService.SweepOrphanArtifacts)
	c.Start()

	port := os.Getenv("PORT")
	r.Run(":" + port)
}
