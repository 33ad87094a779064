package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/assigndesk/task-assignment-api/internal/config"
	"github.com/assigndesk/task-assignment-api/internal/database"
	"github.com/assigndesk/task-assignment-api/internal/handlers"
	"github.com/assigndesk/task-assignment-api/internal/logging"
	"github.com/assigndesk/task-assignment-api/internal/middleware"
	"github.com/assigndesk/task-assignment-api/internal/repository"
	"github.com/assigndesk/task-assignment-api/internal/services"
	"github.com/assigndesk/task-assignment-api/internal/storage"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func main() {
	cfg := config.Load()

	logging.Init(cfg.LogFile)
	log := logging.Logger

	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Info("Database connection established")

	store, err := storage.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	authService := services.NewAuthService(userRepo, cfg.JWTSecret)
	taskService := services.NewTaskService(taskRepo, userRepo, store)

	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService)

	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Assignment API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		// Public auth routes
		users := api.Group("/users")
		{
			users.POST("/register", authHandler.Register)
			users.POST("/login", authHandler.Login)
			users.GET("/me", middleware.RequireAuth(cfg.JWTSecret), authHandler.GetCurrentUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(cfg.JWTSecret))
		{
			tasks.GET("", middleware.RequireAdmin(), taskHandler.List)
			tasks.GET("/users", middleware.RequireAdmin(), authHandler.ListUsers)
			tasks.GET("/admin-tasks", middleware.RequireAdmin(), taskHandler.ListAdminTasks)
			tasks.GET("/user/:userId", taskHandler.ListForUser)
			tasks.GET("/:taskId/documents/:docIndex", taskHandler.DownloadDocument)

			tasks.POST("/create/:userId", middleware.RequireAdmin(), taskHandler.Create)

			tasks.PUT("/status/:taskId", middleware.RequireAdmin(), taskHandler.UpdateStatus)
			tasks.PUT("/user-status/:taskId", taskHandler.UpdateStatus)
			tasks.PUT("/start/:taskId", taskHandler.Start)
			tasks.PUT("/request-review/:taskId", taskHandler.RequestReview)
			tasks.PUT("/approve/:taskId", middleware.RequireAdmin(), taskHandler.Approve)
			tasks.PUT("/reject/:taskId", middleware.RequireAdmin(), taskHandler.Reject)
			tasks.PUT("/:taskId", middleware.RequireAdmin(), taskHandler.Reassign)

			tasks.DELETE("/delete/:taskId", middleware.RequireAdmin(), taskHandler.Delete)
		}
	}

	log.Infof("Server starting on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
