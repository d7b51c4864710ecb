package metrics

import (
	"encoding/json"
	"expvar"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	StatsPath      = "/stats"
	DebugVarsPath  = "/debug/vars"
	EnvPath        = "/admin/env"
	PrometheusPath = "/metrics"

	// SessionCookie carries the anonymous session id issued by the API.
	SessionCookie = "ocf_session"

	// EnvPrefix limits which environment variables /admin/env may read or change.
	EnvPrefix = "OCF_"
)

// Variables whose names contain one of these are never echoed by /admin/env.
var secretMarkers = []string{"PASSWORD", "SECRET", "TOKEN"}

const redacted = "[redacted]"

var (
	componentsMu sync.Mutex
	components   = map[string]func() any{}

	reloadMu       sync.Mutex
	reloadCallback func() error
	initOnce       sync.Once
	st             = newState()
)

// Init publishes expvar variables. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		publish("ocf_started_at", func(s *metricsState) any { return s.startedAt.Format(time.RFC3339) })
		publish("ocf_uptime_seconds", func(s *metricsState) any { return int64(time.Since(s.startedAt).Seconds()) })
		publish("ocf_total_requests", func(s *metricsState) any { return s.totalReq })
		publish("ocf_total_errors", func(s *metricsState) any { return s.totalErr })
		publish("ocf_total_latency_ms", func(s *metricsState) any { return s.totalLatency.Milliseconds() })
		publish("ocf_active_users_5m", func(s *metricsState) any {
			s.pruneLocked(time.Now())
			return int64(len(s.active))
		})
		publish("ocf_requests_by_method_status", func(s *metricsState) any { return s.methodStatusLocked() })
		publish("ocf_requests_by_route", func(s *metricsState) any { return copyCounts(s.byRoute) })
		publish("ocf_request_duration_ms_buckets", func(s *metricsState) any {
			out := make(map[string]map[string]int64, len(s.durationBuckets))
			for m, inner := range s.durationBuckets {
				out[m] = copyCounts(inner)
			}
			return out
		})
		publish("ocf_requests_last_10m", func(s *metricsState) any { return append([]int64(nil), s.perMinute[:]...) })
	})
}

// publish registers an expvar that snapshots the state under its lock on access.
func publish(name string, fn func(s *metricsState) any) {
	expvar.Publish(name, expvar.Func(func() any {
		st.mu.Lock()
		defer st.mu.Unlock()
		return fn(st)
	}))
}

// SetReloadCallback sets the function to call after /admin/env changed variables.
func SetReloadCallback(callback func() error) {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	reloadCallback = callback
}

// RegisterComponent adds a named status snapshot to the /stats output. A later
// registration under the same name replaces the earlier one; nil removes it.
func RegisterComponent(name string, status func() any) {
	componentsMu.Lock()
	defer componentsMu.Unlock()
	if status == nil {
		delete(components, name)
		return
	}
	components[name] = status
}

func componentStatus() map[string]any {
	componentsMu.Lock()
	fns := make(map[string]func() any, len(components))
	for name, fn := range components {
		fns[name] = fn
	}
	componentsMu.Unlock()

	if len(fns) == 0 {
		return nil
	}
	out := make(map[string]any, len(fns))
	for name, fn := range fns {
		out[name] = fn()
	}
	return out
}

func currentReloadCallback() func() error {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	return reloadCallback
}

// Instrument wraps an http.Handler to record request count, status codes, latency
// buckets, requests-per-minute and active users (5m window), and feeds the
// prometheus collectors.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}
		duration := time.Since(start)
		route := routeOf(r)
		st.record(r, route, sw.status, duration)
		observe(r.Method, route, sw.status, duration)
	})
}

// routeOf returns the mux pattern that served r. ServeMux sets it on the request.
func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// StatsHandler returns a compact JSON snapshot, suitable for quick human inspection.
func StatsHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	st.mu.Lock()
	st.pruneLocked(now)
	st.rotateLocked(now)
	avgLatencyMs := float64(0)
	if st.totalReq > 0 {
		avgLatencyMs = float64(st.totalLatency.Milliseconds()) / float64(st.totalReq)
	}
	s := stats{
		StartedAt:                 st.startedAt.Format(time.RFC3339),
		UptimeSeconds:             int64(now.Sub(st.startedAt).Seconds()),
		TotalRequests:             st.totalReq,
		TotalErrors:               st.totalErr,
		AverageLatencyMs:          avgLatencyMs,
		RequestsPerMinuteLast10m:  append([]int64(nil), st.perMinute[:]...),
		ActiveUsers5m:             int64(len(st.active)),
		RequestsByMethodAndStatus: st.methodStatusLocked(),
		RequestsByRoute:           copyCounts(st.byRoute),
	}
	st.mu.Unlock()
	s.Components = componentStatus()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s)
}

// ===== Internals =====

type stats struct {
	StartedAt                 string                      `json:"started_at"`
	UptimeSeconds             int64                       `json:"uptime_seconds"`
	TotalRequests             int64                       `json:"total_requests"`
	TotalErrors               int64                       `json:"total_errors"`
	AverageLatencyMs          float64                     `json:"avg_latency_ms"`
	RequestsPerMinuteLast10m  []int64                     `json:"requests_last_10m_newest_first"`
	ActiveUsers5m             int64                       `json:"active_users_5m"`
	RequestsByMethodAndStatus map[string]map[string]int64 `json:"requests_by_method_status"`
	RequestsByRoute           map[string]int64            `json:"requests_by_route"`
	Components                map[string]any              `json:"components,omitempty"`
}

type metricsState struct {
	mu sync.Mutex

	startedAt time.Time

	totalReq     int64
	totalErr     int64
	totalLatency time.Duration

	// method -> statusCode -> count
	byMethodStatus map[string]map[int]int64
	// method -> bucketLabel -> count
	durationBuckets map[string]map[string]int64
	// mux pattern -> count
	byRoute map[string]int64

	// Newest minute is perMinute[0], oldest is perMinute[9]
	perMinute  [10]int64
	lastMinute time.Time

	// active user key -> last seen time
	active map[string]time.Time
}

func newState() *metricsState {
	return &metricsState{
		startedAt:       time.Now(),
		byMethodStatus:  make(map[string]map[int]int64),
		durationBuckets: make(map[string]map[string]int64),
		byRoute:         make(map[string]int64),
		active:          make(map[string]time.Time),
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (s *metricsState) record(r *http.Request, route string, statusCode int, d time.Duration) {
	now := time.Now()
	method := r.Method
	if method == "" {
		method = "UNKNOWN"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalReq++
	if statusCode >= 400 {
		s.totalErr++
	}
	s.totalLatency += d

	if _, ok := s.byMethodStatus[method]; !ok {
		s.byMethodStatus[method] = make(map[int]int64)
	}
	s.byMethodStatus[method][statusCode]++

	if _, ok := s.durationBuckets[method]; !ok {
		s.durationBuckets[method] = make(map[string]int64)
	}
	s.durationBuckets[method][bucketLabel(d)]++
	s.byRoute[route]++

	s.rotateLocked(now)
	s.perMinute[0]++

	s.active[userKey(r)] = now
	s.pruneLocked(now)
}

// rotateLocked shifts the per-minute ring so perMinute[0] is the current minute.
func (s *metricsState) rotateLocked(now time.Time) {
	curr := now.Truncate(time.Minute)
	if s.lastMinute.IsZero() {
		s.lastMinute = curr
		return
	}
	delta := int(curr.Sub(s.lastMinute) / time.Minute)
	if delta <= 0 {
		return
	}
	n := len(s.perMinute)
	for i := n - 1; i >= 0; i-- {
		if i >= delta {
			s.perMinute[i] = s.perMinute[i-delta]
		} else {
			s.perMinute[i] = 0
		}
	}
	s.lastMinute = curr
}

func (s *metricsState) pruneLocked(now time.Time) {
	cutoff := now.Add(-5 * time.Minute)
	for k, t := range s.active {
		if t.Before(cutoff) {
			delete(s.active, k)
		}
	}
}

func (s *metricsState) methodStatusLocked() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(s.byMethodStatus))
	for m, inner := range s.byMethodStatus {
		o2 := make(map[string]int64, len(inner))
		for code, c := range inner {
			o2[strconv.Itoa(code)] = c
		}
		out[m] = o2
	}
	return out
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var bucketBounds = []time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
	2500 * time.Millisecond,
	5000 * time.Millisecond,
}

func bucketLabel(d time.Duration) string {
	for _, b := range bucketBounds {
		if d <= b {
			return "le_" + strconv.FormatInt(b.Milliseconds(), 10) + "ms"
		}
	}
	return "gt_5000ms"
}

func userKey(r *http.Request) string {
	if uid := strings.TrimSpace(r.Header.Get("X-User-ID")); uid != "" {
		return "uid:" + uid
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return "uid:" + c.Value
	}
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			xff = xff[:idx]
		}
		if xff = strings.TrimSpace(xff); xff != "" {
			return "ip:" + xff
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}

// EnvHandler provides GET/POST access to OCF_* environment variables.
func EnvHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		handleGetEnv(w, r)
	case http.MethodPost, http.MethodPut:
		handleSetEnv(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func handleGetEnv(w http.ResponseWriter, r *http.Request) {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if ok && strings.HasPrefix(key, EnvPrefix) {
			envVars[key] = displayValue(key, value)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"env_vars":  envVars,
	})
}

func handleSetEnv(w http.ResponseWriter, r *http.Request) {
	var request map[string]string
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid JSON request body", http.StatusBadRequest)
		return
	}

	updated := make(map[string]string)
	failures := make(map[string]string)
	for key, value := range request {
		if !strings.HasPrefix(key, EnvPrefix) {
			failures[key] = "Only " + EnvPrefix + "* prefixed environment variables are allowed"
			continue
		}
		if !isValidEnvVarName(key) {
			failures[key] = "Invalid environment variable name format"
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			failures[key] = "Failed to set environment variable: " + err.Error()
			continue
		}
		updated[key] = displayValue(key, value)
	}

	message := "Environment variables updated. Note: Some changes may require component restart to take effect."
	if reload := currentReloadCallback(); len(updated) > 0 && reload != nil {
		if err := reload(); err != nil {
			failures["reload"] = "Component reload failed: " + err.Error()
			message = "Environment variables updated, but component reload failed. Manual restart may be required."
		} else {
			message = "Environment variables updated and components reloaded successfully."
		}
	}

	status := http.StatusOK
	if len(failures) > 0 && len(updated) == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"updated":   updated,
		"errors":    failures,
		"message":   message,
	})
}

func isSecret(key string) bool {
	for _, m := range secretMarkers {
		if strings.Contains(key, m) {
			return true
		}
	}
	return false
}

func displayValue(key, value string) string {
	if isSecret(key) && value != "" {
		return redacted
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// isValidEnvVarName checks if the environment variable name is valid
func isValidEnvVarName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, char := range name {
		if !((char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_') {
			return false
		}
	}
	return true
}
