package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lawnchairsociety/tilewave/internal/logger"
	"github.com/lawnchairsociety/tilewave/internal/render"
	"github.com/lawnchairsociety/tilewave/internal/sample"
	"github.com/lawnchairsociety/tilewave/internal/store"
	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

// requestLogger logs every request through the logger package.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime":      time.Since(s.StartTime).Round(time.Second).String(),
		"clients":     s.ClientCount(),
		"connections": s.connLimiter.Stats(),
		"recording":   s.archive != nil,
	})
}

type sampleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Fingerprint string `json:"fingerprint"`
}

func (s *Server) handleSamples(w http.ResponseWriter, _ *http.Request) {
	names := s.lib.Names()
	out := make([]sampleInfo, 0, len(names))
	for _, name := range names {
		smp, err := s.lib.Get(name)
		if err != nil {
			continue
		}
		out = append(out, sampleInfo{
			Name:        name,
			Description: s.lib.Describe(name),
			Width:       smp.Width(),
			Height:      smp.Height(),
			Fingerprint: store.Fingerprint(smp),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRender runs a headless generation and returns the result as a PNG.
// Query: sample, seed, steps (0 or absent means until complete).
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	solver := s.cfg.Solver
	name := r.URL.Query().Get("sample")
	if name == "" {
		name = solver.Sample
	}
	smp, err := s.lib.Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	seed := solver.Seed
	if v := r.URL.Query().Get("seed"); v != "" {
		if seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("seed: %q is not an integer", v))
			return
		}
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	steps, err := queryInt(r, "steps", solver.MaxSteps)
	if err != nil || steps < 0 {
		if err == nil {
			err = fmt.Errorf("steps must not be negative")
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if limit := s.cfg.Server.MaxRunSteps; limit > 0 && (steps == 0 || steps > limit) {
		steps = limit
	}

	gen, err := wfc.NewGenerator(&wfc.GeneratorConfig{
		Sample:     smp,
		TileWidth:  solver.TileWidth,
		TileHeight: solver.TileHeight,
		Width:      solver.OutputWidth,
		Height:     solver.OutputHeight,
		Seed:       seed,
		MaxSteps:   steps,
		MaxRetries: solver.MaxRetries,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := gen.Generate()
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, wfc.ErrContradiction) || errors.Is(err, wfc.ErrNoSolution) {
			code = http.StatusUnprocessableEntity
		}
		writeError(w, code, err)
		return
	}

	w.Header().Set("X-Tilewave-Seed", strconv.FormatInt(out.Seed, 10))
	w.Header().Set("X-Tilewave-Attempts", strconv.Itoa(out.Attempts))
	s.writePNG(w, out.Session.Current(), out.Session.Catalog)
}

func (s *Server) writePNG(w http.ResponseWriter, g *wfc.Grid, cat *wfc.Catalog) {
	w.Header().Set("Content-Type", "image/png")
	opts := render.Options{CellPixels: s.cfg.Render.CellPixels, Border: s.cfg.Render.Border}
	if err := render.PNG(w, g, cat, opts); err != nil {
		logger.Error("Failed to render PNG", "error", err)
	}
}

type sessionInfo struct {
	*store.SessionRecord
	Latest int `json:"latest_step"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.URL.Query().Get("fingerprint")
	if name := r.URL.Query().Get("sample"); name != "" && fingerprint == "" {
		smp, err := s.lib.Get(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		fingerprint = store.Fingerprint(smp)
	}

	recs, err := s.archive.ListSessions(fingerprint)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []*store.SessionRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.archive.GetSession(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	latest, err := s.archive.LatestStep(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionInfo{SessionRecord: rec, Latest: latest})
}

// handleSessionStep renders a recorded snapshot as a PNG.
func (s *Server) handleSessionStep(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("step: %q is not an integer", chi.URLParam(r, "step")))
		return
	}

	cat, err := s.archive.LoadCatalog(id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	g, err := s.archive.LoadSnapshot(id, step)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.writePNG(w, g, cat)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrSessionNotFound), errors.Is(err, store.ErrSnapshotNotFound),
		errors.Is(err, sample.ErrUnknownSample):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
