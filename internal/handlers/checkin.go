package handlers

import (
	"log/slog"
	"net/http"

	"gatepass/internal/models"

	"github.com/gin-gonic/gin"
)

// Check-in handlers

// VerifyScan - POST /api/scan/verify
// Проверить отсканированный QR код без изменения состояния
func (h *Handlers) VerifyScan(c *gin.Context) {
	var req models.VerifyScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.CheckIn.VerifyScan(c.Request.Context(), req.QRContent)
	if err != nil {
		slog.Warn("Scan verification rejected", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ConfirmEntry - POST /api/scan/confirm
// Подтвердить вход по билету (одноразово)
func (h *Handlers) ConfirmEntry(c *gin.Context) {
	var req models.ConfirmEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.CheckIn.ConfirmEntry(c.Request.Context(), &req)
	if err != nil {
		slog.Warn("Entry confirmation rejected",
			"error", err,
			"registration_id", req.RegistrationID,
			"ticket_number", req.TicketNumber)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
