package handler

import (
	"net/http"
	"runtime"
	"time"

	"qrious/config"
	"qrious/internal/service"

	"github.com/gin-gonic/gin"
)

type RuntimeInfo struct {
	Env       string        `json:"env"`
	Name      string        `json:"name"`
	Version   string        `json:"version"`
	GoVersion string        `json:"go_version"`
	StartAt   time.Time     `json:"start_at"`
	Uptime    time.Duration `json:"uptime"`
}

type HealthHandler struct {
	healthStatus *service.HealthService
	info         RuntimeInfo
}

func NewHealthHandler(conf *config.Configuration, status *service.HealthService) *HealthHandler {
	return &HealthHandler{
		healthStatus: status,
		info: RuntimeInfo{
			Env:       conf.App.Env,
			Name:      conf.App.Name,
			Version:   conf.App.Version,
			GoVersion: runtime.Version(),
			StartAt:   time.Now(),
		},
	}
}

// Info 啟動時的版本/環境快照
func (h *HealthHandler) Info() RuntimeInfo {
	return h.info
}

// @Summary Liveness
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/liveness [get]
func (h *HealthHandler) Liveness(c *gin.Context) {
	if h.healthStatus.IsLive() {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down"})
}

// Readiness 啟動完成且 MongoDB、Redis 都能連線才算 ready
// @Summary Readiness
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health/readiness [get]
func (h *HealthHandler) Readiness(c *gin.Context) {
	if !h.healthStatus.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	deps, ok := h.healthStatus.CheckDependencies(c.Request.Context())
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": deps})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "dependencies": deps})
}

// HealthCheck 給負載平衡器用的簡易檢查
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health-check [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "service is alive"})
}

// Version 回傳版本資訊（含 uptime）
// @Summary Version
// @Tags Health
// @Produce json
// @Success 200 {object} handler.RuntimeInfo
// @Router /version [get]
func (h *HealthHandler) Version(c *gin.Context) {
	resp := h.info
	resp.Uptime = time.Since(h.info.StartAt)
	c.JSON(http.StatusOK, resp)
}
