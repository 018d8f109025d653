package controllers

import (
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"time"

	"rewind/internal/models"
)

type HealthController struct {
	run       *models.AnalysisRun
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	RunUser       string  `json:"run_user"`
	RunYear       int     `json:"run_year"`
	TotalMessages int64   `json:"total_messages"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		RunUser:       hc.run.UserID,
		RunYear:       hc.run.Year,
		TotalMessages: hc.run.Summary.TotalMessages,
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(run *models.AnalysisRun) *HealthController {
	return &HealthController{
		run:       run,
		startTime: time.Now(),
	}
}
