package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"meetcal/internal/config"
	"meetcal/internal/ics"
	appLog "meetcal/internal/log"
	"meetcal/internal/schedule"
	"meetcal/internal/timetable"
)

// Plan is one completed scheduling run as served by the API.
type Plan struct {
	Result      schedule.Result
	Seed        int64
	Epoch       time.Time
	Location    *time.Location
	GeneratedAt time.Time
	// FailedFeeds counts busy calendars left out of this run.
	FailedFeeds int
}

// Server exposes the current plan over HTTP. The plan is replaced as a
// whole by SetPlan; handlers never see a half-built run.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	mu   sync.RWMutex
	plan *Plan
}

// NewServer constructs a Server with no plan yet; plan endpoints answer
// 503 until SetPlan is called.
func NewServer(cfg *config.Config) *Server {
	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /api/timetable", s.handleTimetable)
	s.mux.HandleFunc("GET /schedule.ics", s.handleICS)
	return s
}

// SetPlan swaps in a new plan.
func (s *Server) SetPlan(p *Plan) {
	s.mu.Lock()
	s.plan = p
	s.mu.Unlock()
}

func (s *Server) current() *Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// Handler returns the routed handler with request logging and, when
// configured, basic auth.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		h = s.basicAuth(h)
	}
	return logRequests(h)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("HTTP server listening", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	return s.cfg != nil && s.cfg.BasicAuth != nil &&
		s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuth guards everything except /health.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	user, pass := s.cfg.BasicAuth.Username, s.cfg.BasicAuth.Password
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, user) || !secureCompare(p, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="meetcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

type entryJSON struct {
	Week       int    `json:"week"`
	Day        string `json:"day"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Minutes    int    `json:"minutes"`
	Recurrence string `json:"recurrence"`
}

type reservationJSON struct {
	Day     string `json:"day"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes int    `json:"minutes"`
}

type outcomeJSON struct {
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	OK    bool    `json:"ok"`
	Error string  `json:"error,omitempty"`
	Class string  `json:"error_kind,omitempty"`
	Day   string  `json:"day,omitempty"`
	Start string  `json:"start,omitempty"`
	Weeks []int   `json:"weeks,omitempty"`
	Score float64 `json:"score,omitempty"`
}

type scheduleResponse struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	Seed         int64              `json:"seed"`
	Epoch        string             `json:"epoch"`
	Entries      []entryJSON        `json:"entries"`
	Reservations []reservationJSON  `json:"reservations"`
	Outcomes     []outcomeJSON      `json:"outcomes"`
	Loads        []schedule.DayLoad `json:"loads"`
	Failed       int                `json:"failed"`
	FailedFeeds  int                `json:"failed_feeds"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	p := s.current()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "no plan yet")
		return
	}
	res := p.Result
	resp := scheduleResponse{
		GeneratedAt:  p.GeneratedAt,
		Seed:         p.Seed,
		Epoch:        p.Epoch.Format(time.DateOnly),
		Entries:      make([]entryJSON, 0, len(res.Entries)),
		Reservations: make([]reservationJSON, 0, len(res.Reservations)),
		Outcomes:     make([]outcomeJSON, 0, len(res.Outcomes)),
		Loads:        res.Loads,
		Failed:       res.Failed(),
		FailedFeeds:  p.FailedFeeds,
	}
	for _, e := range res.Entries {
		resp.Entries = append(resp.Entries, entryJSON{
			Week:       e.Week + 1,
			Day:        e.Day.String(),
			Start:      e.Start.Clock(),
			End:        e.Start.EndClock(e.Duration),
			Name:       e.Name,
			Category:   e.Category.String(),
			Minutes:    e.Minutes(),
			Recurrence: e.Recurrence.String(),
		})
	}
	for _, r := range res.Reservations {
		resp.Reservations = append(resp.Reservations, reservationJSON{
			Day:     r.Day.String(),
			Start:   r.Start.Clock(),
			End:     r.Start.EndClock(r.Duration),
			Minutes: r.Minutes(),
		})
	}
	for _, o := range res.Outcomes {
		oj := outcomeJSON{Kind: string(o.Kind), Name: o.Name, OK: o.OK()}
		if o.Err != nil {
			oj.Error = o.Err.Error()
			oj.Class = schedule.KindOf(o.Err)
		}
		if o.Placement != nil {
			oj.Day = o.Placement.Day.String()
			oj.Start = o.Placement.Start.Clock()
			oj.Score = o.Placement.Score
			for _, wk := range o.Placement.Weeks {
				oj.Weeks = append(oj.Weeks, wk+1)
			}
		}
		resp.Outcomes = append(resp.Outcomes, oj)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimetable(w http.ResponseWriter, _ *http.Request) {
	p := s.current()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "no plan yet")
		return
	}
	var buf bytes.Buffer
	if err := timetable.Render(&buf, p.Result.Entries, p.Result.Reservations); err != nil {
		appLog.Error("timetable render failed", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	p := s.current()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "no plan yet")
		return
	}
	cal, err := ics.Export(p.Result.Entries, p.Result.Reservations, ics.ExportOptions{
		Epoch:    p.Epoch,
		Location: p.Location,
		Now:      p.GeneratedAt,
	})
	if err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body := ics.Serialize(cal)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
