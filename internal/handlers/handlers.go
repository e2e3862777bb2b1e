package handlers

import (
	"errors"
	"net/http"

	apperrors "gatepass/internal/errors"
	"gatepass/internal/integrity"
	"gatepass/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services  *service.Services
	validator *integrity.Validator
}

func NewHandlers(services *service.Services, validator *integrity.Validator) *Handlers {
	return &Handlers{
		services:  services,
		validator: validator,
	}
}

// respondError отображает доменные ошибки в HTTP статусы
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidFormat),
		errors.Is(err, apperrors.ErrInvalidTicketData),
		errors.Is(err, apperrors.ErrInvalidEventTicket):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrPaymentNotCompleted),
		errors.Is(err, apperrors.ErrTicketNotIssued):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrResendCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrCorruptIssuanceState):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
