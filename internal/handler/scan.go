package handler

import (
	"net/http"

	"qrious/internal/dto"
	"qrious/internal/pkg/response"
	"qrious/internal/service"
	"qrious/internal/telemetry"

	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	trace       *telemetry.Trace
	scanTracker *service.ScanTracker
}

func NewScanHandler(trace *telemetry.Trace, scanTracker *service.ScanTracker) *ScanHandler {
	return &ScanHandler{trace: trace, scanTracker: scanTracker}
}

// Scan 記錄掃描後轉址到原始網址
// @Summary 掃描轉址
// @Tags Scan
// @Param id path string true "QR code ID"
// @Success 302
// @Failure 404 {object} map[string]any
// @Router /scan/{id} [get]
func (h *ScanHandler) Scan(c *gin.Context) {
	ctx, _, end := h.trace.WithSpan(c)

	target, err := h.scanTracker.TrackAndRedirect(ctx, c.Param("id"), dto.ScanRequestMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Referrer:  c.Request.Referer(),
	})
	end(err)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
	c.Abort()
}
