package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"beerzone-pos/pkg/response"
)

// StatsProvider reports backend counters for the admin dashboard.
type StatsProvider interface {
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Len() int
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	docStore     StatsProvider
	sessions     SessionCounter
	docType      string // sqlite, mysql or postgres
	realtimeType string // memory, redis or pebble
	startTime    time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	docStore StatsProvider,
	sessions SessionCounter,
	docType string,
	realtimeType string,
) *AdminHandler {
	return &AdminHandler{
		docStore:     docStore,
		sessions:     sessions,
		docType:      docType,
		realtimeType: realtimeType,
		startTime:    time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["docstore_type"] = h.docType
	stats["realtime_type"] = h.realtimeType

	if h.sessions != nil {
		stats["active_sessions"] = h.sessions.Len()
	}

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	if h.docStore != nil {
		docStats, err := h.docStore.Stats(ctx)
		if err == nil {
			docStats["status"] = "connected"
			stats["docstore"] = docStats
		} else {
			stats["docstore"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["docstore"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}
