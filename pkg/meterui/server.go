// Package meterui exposes registered measurement roots over a debug HTTP
// surface. A process registers named live values, and the handler serves
// on-demand scans and stored per-type reports as JSON.
//
//	srv := meterui.New(meter.New(), store.NewNullStore(), logger)
//	srv.AddRoot("sessions", sessionStore)
//	http.ListenAndServe(":6067", srv.Handler())
//
// The surface is meant for operators poking at a running process, not for
// exposure to untrusted networks.
package meterui

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
	"github.com/matzehuels/heapmeter/pkg/meter"
	"github.com/matzehuels/heapmeter/pkg/sizer"
	"github.com/matzehuels/heapmeter/pkg/store"
)

// reportTTL bounds how long persisted reports stay retrievable.
const reportTTL = 24 * time.Hour

// Report is the stored outcome of one scan.
type Report struct {
	ID        string           `json:"id"`
	Root      string           `json:"root"`
	Mode      string           `json:"mode"`
	Total     uint64           `json:"total_bytes"`
	TotalText string           `json:"total"`
	Nodes     uint64           `json:"nodes"`
	CreatedAt time.Time        `json:"created_at"`
	Rows      []meter.TypeStat `json:"rows"`
}

// Server holds the registered roots and completed reports. Reports live in
// memory and, when a persistent store is supplied, survive restarts.
type Server struct {
	meter  meter.Meter
	store  store.Store
	logger *log.Logger

	mu      sync.RWMutex
	roots   map[string]any
	reports map[string]*Report
}

// New returns a Server measuring with m. A nil store disables report
// persistence; a nil logger disables logging.
func New(m meter.Meter, st store.Store, logger *log.Logger) *Server {
	if st == nil {
		st = store.NewNullStore()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		meter:   m,
		store:   st,
		logger:  logger,
		roots:   make(map[string]any),
		reports: make(map[string]*Report),
	}
}

// AddRoot registers a live value under name. The value is retained for the
// lifetime of the server and re-scanned on every request against it.
func (s *Server) AddRoot(name string, v any) error {
	if err := herrors.ValidateRootName(name); err != nil {
		return err
	}
	if v == nil {
		return herrors.New(herrors.ErrCodeNilArgument, "cannot register nil root %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots[name] = v
	return nil
}

// Handler returns the HTTP surface:
//
//	GET  /             registered roots
//	POST /scan/{name}  measure one root, store and return a report
//	GET  /report/{id}  previously stored report
//
// Scan accepts optional query parameters: mode (a sizing mode name) and
// full_buffer (false to charge buffers by remaining content only).
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.handleRoots)
	r.Post("/scan/{name}", s.handleScan)
	r.Get("/report/{id}", s.handleReport)
	return r
}

func (s *Server) handleRoots(w http.ResponseWriter, req *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.roots))
	for name := range s.roots {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)

	writeJSON(w, http.StatusOK, map[string]any{"roots": names})
}

func (s *Server) handleScan(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")

	s.mu.RLock()
	root, ok := s.roots[name]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, herrors.New(herrors.ErrCodeRootNotFound, "no root registered as %q", name))
		return
	}

	m, err := s.scanMeter(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rec := meter.NewStatsRecorder()
	total, err := m.WithListenerFactory(rec.Factory()).MeasureDeep(root)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report := &Report{
		ID:        uuid.NewString(),
		Root:      name,
		Mode:      m.Mode().String(),
		Total:     total,
		TotalText: meter.HumanBytes(total),
		Nodes:     rec.Nodes(),
		CreatedAt: time.Now().UTC(),
		Rows:      rec.Rows(),
	}

	s.mu.Lock()
	s.reports[report.ID] = report
	s.mu.Unlock()

	if payload, err := json.Marshal(report); err == nil {
		if err := s.store.Set(req.Context(), report.ID, payload, reportTTL); err != nil {
			s.logger.Warn("persist report", "report", report.ID, "err", err)
		}
	}

	s.logger.Info("scan complete", "root", name, "report", report.ID,
		"total", report.TotalText, "nodes", report.Nodes)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReport(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	s.mu.RLock()
	report, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		report = s.storedReport(req, id)
	}
	if report == nil {
		s.writeError(w, herrors.New(herrors.ErrCodeNotFound, "no report %q", id))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// storedReport fetches a persisted report when it is no longer in memory,
// typically after a restart. Returns nil when none exists.
func (s *Server) storedReport(req *http.Request, id string) *Report {
	payload, hit, err := s.store.Get(req.Context(), id)
	if err != nil || !hit {
		return nil
	}
	var report Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil
	}

	s.mu.Lock()
	s.reports[id] = &report
	s.mu.Unlock()
	return &report
}

// scanMeter derives the per-request meter from the scan query parameters.
func (s *Server) scanMeter(req *http.Request) (meter.Meter, error) {
	m := s.meter
	if name := req.URL.Query().Get("mode"); name != "" {
		mode, err := sizer.ParseMode(name)
		if err != nil {
			return m, err
		}
		m = m.WithMode(mode)
	}
	if req.URL.Query().Get("full_buffer") == "false" {
		m = m.WithFullBufferSize(false)
	}
	return m, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := herrors.GetCode(err)
	s.logger.Error("request failed", "code", code, "err", err)
	writeJSON(w, statusFor(code), map[string]string{
		"code":  string(code),
		"error": herrors.UserMessage(err),
	})
}

func statusFor(code herrors.Code) int {
	switch code {
	case herrors.ErrCodeNilArgument, herrors.ErrCodeInvalidInput,
		herrors.ErrCodeInvalidMode, herrors.ErrCodeInvalidRoot:
		return http.StatusBadRequest
	case herrors.ErrCodeNotFound, herrors.ErrCodeRootNotFound:
		return http.StatusNotFound
	case herrors.ErrCodeUnavailableCapability:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
