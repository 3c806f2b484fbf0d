package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/apidocs/internal/build"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAggregateYAML(w http.ResponseWriter, r *http.Request) {
	s.serveAggregate(w, "application/yaml", s.builds.LatestYAML)
}

func (s *Server) handleAggregateJSON(w http.ResponseWriter, r *http.Request) {
	s.serveAggregate(w, "application/json", s.builds.LatestJSON)
}

func (s *Server) serveAggregate(w http.ResponseWriter, contentType string, render func() ([]byte, error)) {
	data, err := render()
	if errors.Is(err, build.ErrNoBuild) {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

func (s *Server) handleLatestBuild(w http.ResponseWriter, r *http.Request) {
	b := s.builds.Latest()
	if b == nil {
		s.writeError(w, http.StatusServiceUnavailable, build.ErrNoBuild.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleTriggerBuild(w http.ResponseWriter, r *http.Request) {
	b, err := s.builds.Aggregate(s.opts.Write)
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, b)
		return
	}
	s.writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	report, err := s.builds.Validate()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleBuildEvents streams a build's events. Finished builds replay their
// backlog and end with a done event.
func (s *Server) handleBuildEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		s.writeError(w, http.StatusBadRequest, "build id must be a positive integer")
		return
	}
	if s.events == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("build %d not found", id))
		return
	}
	ch, unsubscribe, known := s.events.Subscribe(id)
	defer unsubscribe()
	if !known {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("build %d not found", id))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	_, _ = fmt.Fprintf(w, "retry: 30000\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				_, _ = fmt.Fprintf(w, "event: done\ndata: build %d complete\n\n", id)
				flusher.Flush()
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
