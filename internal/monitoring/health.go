package monitoring

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/records"
)

// Version is reported by /status. Overridden at link time.
var Version = "dev"

// HealthStatus represents the health status of a serving instance
type HealthStatus struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version"`
	Uptime    time.Duration `json:"uptime"`
	System    SystemInfo    `json:"system"`
	Model     ModelInfo     `json:"model"`
	Alerts    []Alert       `json:"alerts"`
}

type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	MemoryMB     int    `json:"memory_mb"`
	MemoryUsedMB int    `json:"memory_used_mb"`
}

// ModelInfo describes the record set being served.
type ModelInfo struct {
	Files           []string       `json:"files"`
	Tensors         int            `json:"tensors"`
	MetadataEntries int            `json:"metadata_entries"`
	TotalParameters uint64         `json:"total_parameters"`
	TotalBytes      uint64         `json:"total_bytes"`
	DTypes          map[string]int `json:"dtypes"`
	FlightAddr      string         `json:"flight_addr,omitempty"`
}

// Alert represents a condition worth surfacing, such as a file that
// failed to load.
type Alert struct {
	Level     string    `json:"level"` // info, warning, error
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const maxAlerts = 100

// HealthMonitor serves /healthz, /status and /metrics for lens serve.
type HealthMonitor struct {
	startTime time.Time

	mu      sync.RWMutex
	server  *http.Server
	stopped bool
	model   ModelInfo
	alerts  []Alert
}

func NewHealthMonitor(files []string, set records.Set) *HealthMonitor {
	return &HealthMonitor{
		startTime: time.Now(),
		alerts:    make([]Alert, 0),
		model: ModelInfo{
			Files:           files,
			Tensors:         len(set.Tensors),
			MetadataEntries: len(set.Metadata),
			TotalParameters: set.TotalParameters(),
			TotalBytes:      set.TotalSize(),
			DTypes:          set.DTypes(),
		},
	}
}

// SetFlightAddr records where the Flight server is listening.
func (hm *HealthMonitor) SetFlightAddr(addr string) {
	hm.mu.Lock()
	hm.model.FlightAddr = addr
	hm.mu.Unlock()
}

func (hm *HealthMonitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hm.handleHealth)
	mux.HandleFunc("/healthz", hm.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", hm.handleDetailedStatus)
	mux.HandleFunc("/admin/alerts", hm.handleAlerts)
	mux.HandleFunc("/admin/clear-alerts", hm.handleClearAlerts)
	return mux
}

// Start serves on l until Stop is called.
func (hm *HealthMonitor) Start(l net.Listener) error {
	srv := &http.Server{
		Handler:      hm.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	hm.mu.Lock()
	if hm.stopped {
		hm.mu.Unlock()
		return nil
	}
	hm.server = srv
	hm.mu.Unlock()

	logger.Log.Info("health monitor listening", "addr", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (hm *HealthMonitor) Stop(ctx context.Context) error {
	hm.mu.Lock()
	hm.stopped = true
	srv := hm.server
	hm.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (hm *HealthMonitor) AddAlert(level, component, message string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.alerts = append(hm.alerts, Alert{
		Level:     level,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	})
	if len(hm.alerts) > maxAlerts {
		hm.alerts = hm.alerts[1:]
	}

	logger.Log.Warn("alert raised", "level", level, "component", component, "message", message)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debug("writing response", "error", err)
	}
}

func (hm *HealthMonitor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := hm.getHealthStatus()

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":    status.Status,
		"timestamp": status.Timestamp.Format(time.RFC3339),
	})
}

func (hm *HealthMonitor) handleDetailedStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, hm.getHealthStatus())
}

func (hm *HealthMonitor) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	hm.mu.RLock()
	alerts := make([]Alert, len(hm.alerts))
	copy(alerts, hm.alerts)
	hm.mu.RUnlock()

	writeJSON(w, http.StatusOK, alerts)
}

func (hm *HealthMonitor) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hm.mu.Lock()
	hm.alerts = hm.alerts[:0]
	hm.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "alerts cleared"})
}

// An error alert or an empty record set degrades the instance.
func (hm *HealthMonitor) getHealthStatus() HealthStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := "healthy"
	if hm.model.Tensors == 0 {
		status = "degraded"
	}
	for _, alert := range hm.alerts {
		if alert.Level == "error" {
			status = "degraded"
			break
		}
	}

	alerts := make([]Alert, len(hm.alerts))
	copy(alerts, hm.alerts)

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(hm.startTime),
		System:    getSystemInfo(),
		Model:     hm.model,
		Alerts:    alerts,
	}
}

func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Arch:         runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		MemoryMB:     int(m.Sys / 1024 / 1024),
		MemoryUsedMB: int(m.Alloc / 1024 / 1024),
	}
}
