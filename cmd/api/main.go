package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DAVIPRADIPTA/anemia-app/cmd/api/config"
	"github.com/DAVIPRADIPTA/anemia-app/internal/api"
	"github.com/DAVIPRADIPTA/anemia-app/internal/auth"
	"github.com/DAVIPRADIPTA/anemia-app/internal/broker"
	"github.com/DAVIPRADIPTA/anemia-app/internal/database"
	"github.com/DAVIPRADIPTA/anemia-app/internal/payment"
	"github.com/DAVIPRADIPTA/anemia-app/internal/services"
	"github.com/DAVIPRADIPTA/anemia-app/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("Database initialization failed")
	}

	cfg := config.NewConfig()

	// External payment gateway client
	midtransServerKey := os.Getenv("MIDTRANS_SERVER_KEY")
	if midtransServerKey == "" {
		log.Fatal().Msg("MIDTRANS_SERVER_KEY is not set in the environment")
	}
	midtransProduction := os.Getenv("MIDTRANS_PRODUCTION") == "true"
	midtransService := payment.NewMidtransService(midtransServerKey, midtransProduction)

	// Internal services
	messageBroker := broker.NewBroker()
	consultationStore := services.NewConsultationStore(db)
	consultationService := services.NewConsultationService(consultationStore, midtransService, messageBroker)
	userService := services.NewUserService(db)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: restrict to ALLOWED_ORIGINS before exposing publicly
		},
	}

	wsHandler := wsocket.NewHandler(consultationService, messageBroker, upgrader, cfg.StatusCheckInterval)

	api.SetupRoutes(r, consultationService, userService, midtransService)
	auth.SetupRoutes(r, userService)

	r.GET("/ws/consultation/:consultation_id", auth.AuthMiddleware(userService), func(c *gin.Context) {
		consultationID, err := strconv.ParseUint(c.Param("consultation_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid consultation id"})
			return
		}
		wsHandler.HandleWebSocket(c.Writer, c.Request, auth.CurrentUser(c), uint(consultationID))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Info().Str("port", port).Msg("Server starting")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
