package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Integrity handlers

// IntegrityReport - GET /api/integrity/report
// Запустить сверку данных о билетах и вернуть отчет
func (h *Handlers) IntegrityReport(c *gin.Context) {
	report, err := h.validator.Run(c.Request.Context())
	if err != nil {
		slog.Error("Integrity run failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build integrity report"})
		return
	}

	if !report.Clean() {
		slog.Warn("Integrity findings detected",
			"duplicates", report.DuplicateCount,
			"orphans", report.OrphanCount,
			"corrupt", report.CorruptCount)
	}

	c.JSON(http.StatusOK, report)
}
