package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Tickets handlers

// IssueTicket - POST /api/registrations/:id/issue
// Выпустить билет для регистрации с завершенной оплатой
func (h *Handlers) IssueTicket(c *gin.Context) {
	registrationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration id"})
		return
	}

	result, err := h.services.Tickets.IssueTicket(c.Request.Context(), registrationID)
	if err != nil {
		slog.Error("Failed to issue ticket",
			"error", err,
			"registration_id", registrationID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ResendTicket - POST /api/registrations/:id/resend
// Повторно отправить выпущенный билет на email
func (h *Handlers) ResendTicket(c *gin.Context) {
	registrationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration id"})
		return
	}

	result, err := h.services.Tickets.Resend(c.Request.Context(), registrationID)
	if err != nil {
		slog.Warn("Failed to resend ticket",
			"error", err,
			"registration_id", registrationID)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}
