package handlers

import (
	"log/slog"
	"net/http"

	"gatepass/internal/models"

	"github.com/gin-gonic/gin"
)

// Payments handlers

// OnPaymentUpdates - POST /api/payments/notifications
// Принимать уведомления от платежного шлюза
func (h *Handlers) OnPaymentUpdates(c *gin.Context) {
	var notification models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.services.Tickets.HandlePaymentNotification(c.Request.Context(), &notification)
	if err != nil {
		slog.Error("Failed to handle payment notification",
			"error", err,
			"payment_id", notification.PaymentID,
			"registration_id", notification.RegistrationID)
		respondError(c, err)
		return
	}

	// Платежный шлюз ожидает 200 без тела ответа
	c.Status(http.StatusOK)
}
