package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundprediction/recall"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	pinger    Pinger
	analyzer  recall.Analyzer
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. analyzer may be nil.
func NewHealthHandler(pinger Pinger, analyzer recall.Analyzer) *HealthHandler {
	return &HealthHandler{
		pinger:    pinger,
		analyzer:  analyzer,
		startedAt: time.Now(),
	}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "recall",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	database := h.checkDatabase(ctx)
	response := gin.H{
		"status":    "ready",
		"service":   "recall",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"database": database,
			"system": gin.H{
				"status": "healthy",
				"uptime": time.Since(h.startedAt).Round(time.Second).String(),
			},
		},
	}

	if database["status"] != "healthy" {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "recall",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed - comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	startTime := time.Now()
	database := h.checkDatabase(ctx)
	systemMetrics := getSystemMetrics()

	checks := gin.H{
		"database": database,
		"system": gin.H{
			"status":       "healthy",
			"memory_usage": systemMetrics.MemoryUsage,
			"goroutines":   systemMetrics.Goroutines,
			"gc_cycles":    systemMetrics.GCCycles,
			"heap_objects": systemMetrics.HeapObjects,
			"stack_usage":  systemMetrics.StackUsage,
		},
	}
	if h.analyzer != nil {
		analytics := h.analyzer.GetSearchAnalytics()
		checks["search"] = gin.H{
			"status":         "healthy",
			"total_searches": analytics.TotalSearches,
			"cache_hit_rate": analytics.CacheHitRate,
			"avg_latency_ms": analytics.AvgLatencyMs,
		}
	}

	response := gin.H{
		"status":  "healthy",
		"service": "recall",
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{
			"go_version": GoVersion,
		},
		"checks": checks,
		"metrics": gin.H{
			"response_time_ms": time.Since(startTime).Milliseconds(),
			"uptime":           time.Since(h.startedAt).Round(time.Second).String(),
		},
	}

	if database["status"] != "healthy" {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) gin.H {
	if h.pinger == nil {
		return gin.H{"status": "unhealthy", "error": "recall client not initialized"}
	}

	start := time.Now()
	err := h.pinger.Ping(ctx)
	status := gin.H{
		"status":      "healthy",
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		status["status"] = "unhealthy"
		if ctx.Err() != nil {
			status["error"] = "database connection timeout"
		} else {
			status["error"] = err.Error()
		}
	}
	return status
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
	StackUsage  string `json:"stack_usage"`
}

// getSystemMetrics collects current system runtime metrics
func getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
		StackUsage:  fmt.Sprintf("%.2f MB", float64(m.StackSys)/(1024*1024)),
	}
}
