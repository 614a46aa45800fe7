package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"lifequest/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 可檢查連線的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter 可回報統計資訊的依賴（例如記憶體快取）
type StatsReporter interface {
	GetStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Checks    map[string]string      `json:"checks"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

// Handler 健康檢查處理器
type Handler struct {
	version string
	timeout time.Duration
	checks  map[string]Pinger
}

// NewHandler 創建健康檢查處理器，checks 中的 nil 依賴會被略過
func NewHandler(version string, checks map[string]Pinger) *Handler {
	live := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			live[name] = p
		}
	}
	return &Handler{version: version, timeout: 2 * time.Second, checks: live}
}

// runChecks 依名稱順序逐一 ping，回傳結果與是否全部正常
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			results[name] = err.Error()
			healthy = false
			common.LogWarn("依賴檢查失敗", zap.String("check", name), zap.Error(err))
			continue
		}
		results[name] = "ok"
	}
	return results, healthy
}

// HealthCheck GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	checks, healthy := h.runChecks(c.Request.Context())

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Checks: checks,
	}
	if !healthy {
		response.Status = "degraded"
	}
	for name, p := range h.checks {
		if r, ok := p.(StatsReporter); ok {
			if response.Stats == nil {
				response.Stats = make(map[string]interface{})
			}
			response.Stats[name] = r.GetStats()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("status", response.Status),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck GET /ready，任一依賴失敗時 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	checks, healthy := h.runChecks(c.Request.Context())
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"checks": checks,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"checks": checks,
	})
}

// LivenessCheck GET /live
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
