package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/DAVIPRADIPTA/anemia-app/internal/auth"
	apperrors "github.com/DAVIPRADIPTA/anemia-app/internal/errors"
	"github.com/DAVIPRADIPTA/anemia-app/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SignatureVerifier authenticates webhook deliveries. The notification
// endpoint carries no bearer identity; the payload's signature is the only
// proof it came from the provider.
type SignatureVerifier interface {
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}

func SetupRoutes(r *gin.Engine, consultationService *services.ConsultationService, userService *services.UserService, verifier SignatureVerifier) {
	consultation := r.Group("/api/consultation")
	{
		consultation.POST("/book", auth.AuthMiddleware(userService), bookHandler(consultationService))
		// Called by the payment provider, not by users.
		consultation.POST("/notification", notificationHandler(consultationService, verifier))
		consultation.POST("/send", auth.AuthMiddleware(userService), sendMessageHandler(consultationService))
		consultation.GET("/:consultation_id/messages", auth.AuthMiddleware(userService), chatHistoryHandler(consultationService))
	}
}

func bookHandler(consultationService *services.ConsultationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			DoctorID uint `json:"doctor_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.NewValidationError("doctor_id is required"))
			return
		}

		result, err := consultationService.Book(c.Request.Context(), auth.CurrentUser(c), request.DoctorID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"consultation_id": result.ConsultationID,
			"payment_id":      result.PaymentID,
			"amount":          result.Amount,
			"status":          result.Status,
			"payment_url":     result.PaymentURL,
			"payment_token":   result.PaymentToken,
		})
	}
}

func notificationHandler(consultationService *services.ConsultationService, verifier SignatureVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var notification struct {
			OrderID           string `json:"order_id"`
			TransactionStatus string `json:"transaction_status"`
			FraudStatus       string `json:"fraud_status"`
			StatusCode        string `json:"status_code"`
			GrossAmount       string `json:"gross_amount"`
			SignatureKey      string `json:"signature_key"`
		}
		if err := c.ShouldBindJSON(&notification); err != nil {
			apperrors.HandleError(c, apperrors.NewValidationError("Invalid notification payload"))
			return
		}

		if !verifier.VerifySignature(notification.OrderID, notification.StatusCode, notification.GrossAmount, notification.SignatureKey) {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Invalid notification signature"))
			return
		}

		log.Info().
			Str("order_id", notification.OrderID).
			Str("transaction_status", notification.TransactionStatus).
			Msg("Payment notification received")

		err := consultationService.HandlePaymentNotification(
			c.Request.Context(),
			notification.OrderID,
			notification.TransactionStatus,
			notification.FraudStatus,
		)
		if err != nil {
			// The provider manages its own retry policy; an unknown order
			// id is reported back and otherwise ignored.
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification processed"})
	}
}

func sendMessageHandler(consultationService *services.ConsultationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			ConsultationID uint   `json:"consultation_id" binding:"required"`
			Message        string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			apperrors.HandleError(c, apperrors.NewValidationError("consultation_id and message are required"))
			return
		}

		user := auth.CurrentUser(c)
		_, err := consultationService.SendMessage(c.Request.Context(), request.ConsultationID, user.ID, request.Message)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Message sent"})
	}
}

func chatHistoryHandler(consultationService *services.ConsultationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		consultationID, err := strconv.ParseUint(c.Param("consultation_id"), 10, 64)
		if err != nil {
			apperrors.HandleError(c, apperrors.NewValidationError("Invalid consultation id"))
			return
		}

		user := auth.CurrentUser(c)
		entries, err := consultationService.GetHistory(c.Request.Context(), uint(consultationID), user.ID)
		if err != nil {
			apperrors.HandleError(c, err)
			return
		}

		messages := make([]gin.H, 0, len(entries))
		for _, entry := range entries {
			messages = append(messages, gin.H{
				"id":        entry.ID,
				"sender_id": entry.SenderID,
				"message":   entry.Message,
				"timestamp": entry.Timestamp.Format(time.RFC3339),
				"is_me":     entry.IsMe,
			})
		}

		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}
