package debugroutes

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/banshee-data/pulse.report/internal/config"
	"github.com/banshee-data/pulse.report/internal/db"
	"github.com/banshee-data/pulse.report/internal/httputil"
	"github.com/banshee-data/pulse.report/internal/monitoring"
	"github.com/banshee-data/pulse.report/internal/report"
	"github.com/banshee-data/pulse.report/internal/version"
)

// Routes holds what the debug pages read. Only Stats is required.
type Routes struct {
	Stats     *monitoring.Stats
	Config    *config.TuningConfig
	SessionID string
	Tail      *Broadcaster
	// HeartRates loads chart data; it defaults to the Tail history.
	HeartRates func(limit int) ([]db.HeartRateRecord, error)
}

// PipelineStatus is the body of /debug/pipeline.
type PipelineStatus struct {
	Version   string                   `json:"version"`
	SessionID string                   `json:"session_id,omitempty"`
	Config    *config.TuningConfig     `json:"config,omitempty"`
	Stats     monitoring.StatsSnapshot `json:"stats"`
}

// Attach mounts the pipeline pages on mux.
func (rt *Routes) Attach(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("pipeline", "Pipeline counters (JSON)", rt.handlePipeline)
	debug.HandleFunc("hr-chart", "Heart-rate chart", rt.handleChart)
	if rt.Tail != nil {
		debug.HandleSilentFunc("hr-tail", rt.handleTail)
	}
}

func (rt *Routes) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, PipelineStatus{
		Version:   version.String(),
		SessionID: rt.SessionID,
		Config:    rt.Config,
		Stats:     rt.Stats.Snapshot(),
	})
}

func (rt *Routes) heartRates(limit int) ([]db.HeartRateRecord, error) {
	if rt.HeartRates != nil {
		return rt.HeartRates(limit)
	}
	if rt.Tail != nil {
		return rt.Tail.Recent(limit), nil
	}
	return nil, nil
}

func (rt *Routes) handleChart(w http.ResponseWriter, r *http.Request) {
	limit := 300
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", s))
			return
		}
		limit = n
	}
	records, err := rt.heartRates(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	title := "Heart rate"
	if rt.SessionID != "" {
		title = "Session " + rt.SessionID
	}
	var buf bytes.Buffer
	if err := report.HeartRateChart(&buf, title, records); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.Copy(w, &buf)
}

// handleTail streams estimates as server-sent events.
func (rt *Routes) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, c := rt.Tail.Subscribe()
	defer rt.Tail.Unsubscribe(id)

	io.WriteString(w, ": ping\n\n")
	flusher.Flush()

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
