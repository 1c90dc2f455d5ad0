package api

import (
	"net/http"
	"time"

	"github.com/clickplanet/clickplanet/internal/buildinfo"
)

// SystemStatus reports operational health for the status endpoint.
type SystemStatus struct {
	StoreReady bool `json:"store_ready"`
}

type systemInfoResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	UptimeSec int64  `json:"uptime_seconds"`
}

// HandleHealthz returns a handler for GET /healthz. No authentication is
// required.
func HandleHealthz(status func() SystemStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := status()
		code := http.StatusOK
		if !s.StoreReady {
			code = http.StatusServiceUnavailable
		}
		WriteJSON(w, code, s)
	}
}

// HandleSystemInfo returns a handler for GET /api/v1/system/info.
func HandleSystemInfo(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, systemInfoResponse{
			Version:   buildinfo.Version,
			GitCommit: buildinfo.GitCommit,
			BuildTime: buildinfo.BuildTime,
			UptimeSec: int64(time.Since(startedAt).Seconds()),
		})
	}
}
