package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vendite/internal/aggregate"
	"vendite/internal/core"
	"vendite/internal/dashboard"
	"vendite/internal/filter"
	applog "vendite/internal/log"
)

type selectionRequest struct {
	Label string `json:"label"`
}

type selectionResponse struct {
	Generation uint64         `json:"generation"`
	Filter     filterResponse `json:"filter"`
}

type filterResponse struct {
	ActiveCategories []string `json:"active_categories"`
	ActiveRegion     string   `json:"active_region,omitempty"`
}

type viewResponse struct {
	Name       string          `json:"name"`
	Generation uint64          `json:"generation"`
	Dimension  string          `json:"dimension"`
	Measure    string          `json:"measure"`
	Filter     filterResponse  `json:"filter"`
	Rows       json.RawMessage `json:"rows"`
}

type viewListEntry struct {
	Name      string `json:"name"`
	Dimension string `json:"dimension"`
	Measure   string `json:"measure"`
}

func toFilterResponse(fs filter.Snapshot) filterResponse {
	return filterResponse{
		ActiveCategories: fs.ActiveCategories,
		ActiveRegion:     fs.ActiveRegion,
	}
}

func (s *Server) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	s.handleSelection(w, r, s.coord.ToggleCategory)
}

func (s *Server) handleSetRegion(w http.ResponseWriter, r *http.Request) {
	s.handleSelection(w, r, s.coord.SetRegion)
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request body: %w", err))
		return
	}

	if err := apply(ctx, req.Label); err != nil {
		logger := applog.FromContext(ctx)
		switch {
		case errors.Is(err, core.ErrUnknownCategory), errors.Is(err, core.ErrUnknownRegion):
			writeError(w, http.StatusUnprocessableEntity, err)
		case errors.Is(err, core.ErrReentrantUpdate):
			writeError(w, http.StatusConflict, err)
		default:
			logger.ErrorContext(ctx, "selection change failed",
				applog.FieldError, err.Error())
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, selectionResponse{
		Generation: s.coord.Generation(),
		Filter:     toFilterResponse(s.coord.FilterState()),
	})
}

func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := make([]viewListEntry, 0, len(s.views))
	for _, v := range s.views {
		view, err := s.coord.Snapshot(v.Handle)
		if err != nil {
			continue
		}
		entries = append(entries, viewListEntry{
			Name:      v.Name,
			Dimension: string(view.Spec.Dimension),
			Measure:   string(view.Spec.Measure),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/views/")
	h, ok := s.byName[name]
	if !ok {
		writeError(w, http.StatusNotFound, core.ErrUnknownView)
		return
	}

	view, err := s.coord.Snapshot(h)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	rows, err := s.renderRows(name, view)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "failed to render view rows",
			applog.FieldError, err.Error())
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, viewResponse{
		Name:       name,
		Generation: view.Generation,
		Dimension:  string(view.Spec.Dimension),
		Measure:    string(view.Spec.Measure),
		Filter:     toFilterResponse(view.Filter),
		Rows:       rows,
	})
}

// renderRows marshals the view's rows, caching per generation: rows only
// change when a new generation is published, so a hit is always current.
func (s *Server) renderRows(name string, view dashboard.View) (json.RawMessage, error) {
	key := fmt.Sprintf("view:%s:gen:%d", name, view.Generation)
	if cached, ok := s.payloads.Get(key); ok {
		return cached, nil
	}

	rows := view.Rows
	if rows == nil {
		rows = []aggregate.Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}
	s.payloads.Set(key, data)
	return data, nil
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{
		Generation: s.coord.Generation(),
		Filter:     toFilterResponse(s.coord.FilterState()),
	})
}
