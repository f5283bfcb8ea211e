package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/store"
)

// ExerciseHandler serves exercise definitions and their counter thresholds.
// Threshold changes are persisted when a store is configured and applied to
// the live registry, so sessions started afterwards use them.
type ExerciseHandler struct {
	registry *exercise.Registry
	store    *store.Store
}

// NewExerciseHandler creates a new ExerciseHandler. s may be nil.
func NewExerciseHandler(registry *exercise.Registry, s *store.Store) *ExerciseHandler {
	return &ExerciseHandler{registry: registry, store: s}
}

// ServeHTTP routes /api/exercises, /api/exercises/{slug} and
// /api/exercises/{slug}/thresholds.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/exercises")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	parts := strings.Split(path, "/")
	typ, err := exercise.ParseType(parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "Exercise not found")
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.get(w, r, typ)

	case len(parts) == 2 && parts[1] == "thresholds":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, typ)
		case http.MethodPut:
			h.updateThresholds(w, r, typ)
		case http.MethodDelete:
			h.resetThresholds(w, r, typ)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type thresholdsRequest struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

type exerciseResponse struct {
	Type       string              `json:"type"`
	Slug       string              `json:"slug"`
	Classified bool                `json:"classified"`
	Thresholds exercise.Thresholds `json:"thresholds"`
	Defaults   exercise.Thresholds `json:"defaults"`
	Custom     bool                `json:"custom"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

func toExerciseResponse(d exercise.Definition) exerciseResponse {
	defaults, _ := exercise.DefaultThresholds(d.Type)
	return exerciseResponse{
		Type:       string(d.Type),
		Slug:       d.Type.Slug(),
		Classified: d.Classified,
		Thresholds: d.Thresholds,
		Defaults:   defaults,
		Custom:     d.Thresholds != defaults,
	}
}

// list handles GET /api/exercises.
func (h *ExerciseHandler) list(w http.ResponseWriter, r *http.Request) {
	defs := h.registry.List()

	response := listExercisesResponse{
		Exercises: make([]exerciseResponse, 0, len(defs)),
	}
	for _, d := range defs {
		response.Exercises = append(response.Exercises, toExerciseResponse(d))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/exercises/{slug}.
func (h *ExerciseHandler) get(w http.ResponseWriter, r *http.Request, typ exercise.Type) {
	d, ok := h.registry.Lookup(typ)
	if !ok {
		writeError(w, http.StatusNotFound, "Exercise not found")
		return
	}
	writeJSON(w, http.StatusOK, toExerciseResponse(d))
}

// updateThresholds handles PUT /api/exercises/{slug}/thresholds.
func (h *ExerciseHandler) updateThresholds(w http.ResponseWriter, r *http.Request, typ exercise.Type) {
	var req thresholdsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	th := exercise.Thresholds{Upper: req.Upper, Lower: req.Lower}
	if err := th.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		rec := &store.ThresholdRecord{Exercise: typ.Slug(), Upper: th.Upper, Lower: th.Lower}
		if err := h.store.Thresholds().Upsert(rec); err != nil {
			log.WithError(err).Error("Failed to save thresholds")
			writeError(w, http.StatusInternalServerError, "Failed to save thresholds")
			return
		}
	}

	if err := h.registry.SetThresholds(typ, th); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.WithFields(log.Fields{
		"exercise": typ,
		"upper":    th.Upper,
		"lower":    th.Lower,
	}).Info("Thresholds updated")

	h.get(w, r, typ)
}

// resetThresholds handles DELETE /api/exercises/{slug}/thresholds.
func (h *ExerciseHandler) resetThresholds(w http.ResponseWriter, r *http.Request, typ exercise.Type) {
	if h.store != nil {
		err := h.store.Thresholds().Delete(typ.Slug())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "Failed to delete thresholds")
			return
		}
	}

	if err := h.registry.ResetThresholds(typ); err != nil {
		writeError(w, http.StatusNotFound, "Exercise not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
