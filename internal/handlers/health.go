package handlers

import (
	"context"
	"net/http"
	"time"

	applog "foodgram/internal/log"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database"`
	Time     time.Time `json:"time"`
}

// Health reports readiness for infrastructure probes, including whether the
// database answers a ping.
func Health(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "health check requested", "method", r.Method)
	resp := healthResponse{
		Status:   "ok",
		Database: databaseStatus(r.Context()),
		Time:     time.Now().UTC(),
	}

	status := http.StatusOK
	if resp.Database == "down" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
	applog.Debug(r.Context(), "health check responded", "status", resp.Status)
}

func databaseStatus(ctx context.Context) string {
	if database == nil {
		return "unconfigured"
	}
	sqlDB, err := database.DB()
	if err != nil {
		applog.Error(ctx, "health check could not reach database handle", "error", err)
		return "down"
	}

	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		applog.Error(ctx, "database ping failed", "error", err)
		return "down"
	}
	return "up"
}
