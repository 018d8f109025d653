package controllers

import (
	json "github.com/goccy/go-json"
	"net/http"
	"strconv"

	"rewind/internal/models"
	"rewind/internal/providers"
	"rewind/internal/report"
)

// DashboardController serves a committed run over loopback HTTP: the
// rendered report document plus a small JSON API over the same
// aggregates. The run is loaded once at startup and never mutated, so
// every response is cacheable.
type DashboardController struct {
	logger    providers.Logger
	cache     providers.CacheProviderInterface
	metrics   providers.MetricsProviderInterface
	generator report.GeneratorInterface
	run       *models.AnalysisRun
}

func NewDashboardController(logger providers.Logger, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface, generator report.GeneratorInterface, run *models.AnalysisRun) *DashboardController {
	metrics.SetRunTotals(run.Summary.TotalMessages, int64(run.Summary.ChannelsProcessed))
	return &DashboardController{
		logger:    logger,
		cache:     cache,
		metrics:   metrics,
		generator: generator,
		run:       run,
	}
}

func (dc *DashboardController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey, contentType string, compute func() ([]byte, error)) {
	if data, ok := dc.cache.Get(cacheKey); ok {
		dc.metrics.IncCacheHits()
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}
	dc.metrics.IncCacheMisses()

	data, err := compute()
	if err != nil {
		dc.logger.Errorf(providers.TypeHTTP, "Failed to build %s: %s", cacheKey, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	dc.cache.Set(cacheKey, data)

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Dashboard renders the report document.
func (dc *DashboardController) Dashboard(w http.ResponseWriter, r *http.Request) {
	dc.serveFromCacheOrCompute(w, "dashboard", "text/html; charset=utf-8", func() ([]byte, error) {
		return dc.generator.Render(dc.run)
	})
}

type summaryResponse struct {
	UserID  string            `json:"user_id"`
	Year    int               `json:"year"`
	Summary models.RunSummary `json:"summary"`
}

func (dc *DashboardController) GetSummary(w http.ResponseWriter, r *http.Request) {
	dc.serveFromCacheOrCompute(w, "summary", "application/json", func() ([]byte, error) {
		return json.Marshal(summaryResponse{
			UserID:  dc.run.UserID,
			Year:    dc.run.Year,
			Summary: dc.run.Summary,
		})
	})
}

// GetTop returns the ranked entries of one aggregate dimension.
// Query params: bucket (required), n (optional, 0 means all).
func (dc *DashboardController) GetTop(w http.ResponseWriter, r *http.Request) {
	bucket := r.URL.Query().Get("bucket")
	if !validBucket(bucket) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))

	dc.serveFromCacheOrCompute(w, "top:"+bucket+":"+strconv.Itoa(n), "application/json", func() ([]byte, error) {
		entries := dc.run.Bucket(bucket).TopN(n)
		if entries == nil {
			entries = []models.RankedEntry{}
		}
		return json.Marshal(entries)
	})
}

func validBucket(name string) bool {
	for _, known := range models.BucketNames {
		if name == known {
			return true
		}
	}
	return false
}
