package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"platewise/internal/api"
	"platewise/internal/meal"
	"platewise/internal/platform/vision"
	"platewise/internal/progress"
	"platewise/internal/user"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		panic(fmt.Errorf("DATABASE_URL is not set"))
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to connect to database: %w", err))
	}

	mealStore, err := meal.NewPostgresStore(db)
	if err != nil {
		panic(fmt.Errorf("error creating meal store: %w", err))
	}
	progressStore, err := progress.NewPostgresStore(db)
	if err != nil {
		panic(fmt.Errorf("error creating progress store: %w", err))
	}
	userStore := user.NewPostgresStore(db)

	handler := api.NewHandler(vision.Pipeline{}, mealStore, userStore, progressStore)

	r := gin.Default()

	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:5173"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{allowedOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authed := r.Group("/api", api.RequireUser())
	authed.POST("/meals/analyze", handler.AnalyzeMeal)
	authed.GET("/meals", handler.GetMealHistory)
	authed.GET("/meals/:id", handler.GetMealAnalysis)
	authed.GET("/progress/predictions", handler.PredictWeightTrend)
	authed.POST("/progress", handler.AddProgress)
	authed.GET("/progress", handler.GetProgress)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
