package stats

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/pkg"
)

type Handler struct {
	analyzer *Analyzer
}

func NewHandler(analyzer *Analyzer) *Handler {
	return &Handler{
		analyzer: analyzer,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/workouts/volume", handler.HandleVolume).Methods("GET", "OPTIONS").Name("volume")
	r.HandleFunc("/workouts/exercises", handler.HandleExercises).Methods("GET", "OPTIONS").Name("exercises")
	r.HandleFunc("/workouts/exercises/stats", handler.HandleExerciseStats).Methods("GET", "OPTIONS").Name("exercise-stats")
	r.HandleFunc("/workouts/exercises/series", handler.HandleExerciseSeries).Methods("GET", "OPTIONS").Name("exercise-series")
	r.HandleFunc("/workouts/exercises/summary", handler.HandleExerciseSummary).Methods("GET", "OPTIONS").Name("exercise-summary")
}

// HandleVolume returns the volume table, optionally filtered by ?exercise=, ?from= and ?to=
func (handler *Handler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.volume")
	defer span.End()

	filter, err := sets.FilterParamsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := handler.analyzer.VolumeTable(ctx, filter)
	if err != nil {
		log.Errorf("failed to get volume table: %s", err)
		http.Error(w, "failed to get volume table", http.StatusInternalServerError)
		return
	}

	writeJSON(w, entries)
}

func (handler *Handler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises")
	defer span.End()

	exercises, err := handler.analyzer.Exercises(ctx)
	if err != nil {
		log.Errorf("failed to get exercises: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	writeJSON(w, exercises)
}

func (handler *Handler) HandleExerciseStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercise_stats")
	defer span.End()

	stats, err := handler.analyzer.ExerciseStats(ctx)
	if err != nil {
		log.Errorf("failed to get exercise stats: %s", err)
		http.Error(w, "failed to get exercise stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, stats)
}

func (handler *Handler) HandleExerciseSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercise_series")
	defer span.End()

	exercise, ok := exerciseFromQuery(w, r)
	if !ok {
		return
	}

	series, err := handler.analyzer.ExerciseSeries(ctx, exercise)
	if err != nil {
		log.Errorf("failed to get series of [%s]: %s", exercise, err)
		http.Error(w, "failed to get exercise series", http.StatusInternalServerError)
		return
	}

	writeJSON(w, series)
}

func (handler *Handler) HandleExerciseSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercise_summary")
	defer span.End()

	exercise, ok := exerciseFromQuery(w, r)
	if !ok {
		return
	}

	summary, found, err := handler.analyzer.ExerciseSummary(ctx, exercise)
	if err != nil {
		log.Errorf("failed to get summary of [%s]: %s", exercise, err)
		http.Error(w, "failed to get exercise summary", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "exercise never logged", http.StatusNotFound)
		return
	}

	writeJSON(w, summary)
}

func exerciseFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	exercise := strings.TrimSpace(r.URL.Query().Get("exercise"))
	if exercise == "" {
		http.Error(w, "error, parameter <exercise> empty", http.StatusBadRequest)
		return "", false
	}
	return exercise, true
}

func writeJSON(w http.ResponseWriter, v any) {
	respJson, err := json.Marshal(v)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}
