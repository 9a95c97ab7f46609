package sets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"

	"github.com/2beens/liftlog/internal/middleware"
	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/csvio"
	"github.com/2beens/liftlog/internal/workouts/volume"
	"github.com/2beens/liftlog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=sets_mocks_test.go -package=sets_test

type setsRepo interface {
	Add(ctx context.Context, sets []volume.LoggedSet) ([]volume.LoggedSet, error)
	Get(ctx context.Context, id int) (*volume.LoggedSet, error)
	Update(ctx context.Context, set volume.LoggedSet) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, params ListParams) (_ []volume.LoggedSet, total int, err error)
	ListAll(ctx context.Context, params FilterParams) ([]volume.LoggedSet, error)
}

// derived views computed from the stored sets, they get stale with every write
type statsCache interface {
	Invalidate()
}

const maxImportBodyBytes = 10 << 20

type AddSetsResponse struct {
	Sets        []volume.LoggedSet `json:"sets"`
	TotalVolume float64            `json:"totalVolume"`
}

type PreviewSet struct {
	volume.LoggedSet
	Volume float64 `json:"volume"`
}

type PreviewResponse struct {
	Sets        []PreviewSet `json:"sets"`
	TotalVolume float64      `json:"totalVolume"`
}

type UpdateSetResponse struct {
	UpdatedID int `json:"updatedId"`
}

type DeleteSetResponse struct {
	DeletedID int `json:"deletedId"`
}

type ImportResponse struct {
	Imported int `json:"imported"`
}

type ListResponse struct {
	Sets  []volume.LoggedSet `json:"sets"`
	Total int                `json:"total"`
}

type Handler struct {
	repo           setsRepo
	stats          statsCache
	metricsManager *metrics.Manager
}

func NewHandler(repo setsRepo, stats statsCache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		stats:          stats,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	r *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	importAllowedPerMin int,
) {
	r.HandleFunc("/workouts/sets", handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-sets")
	r.HandleFunc("/workouts/sets/preview", handler.HandlePreview).Methods("POST", "OPTIONS").Name("preview-sets")
	r.Handle(
		"/workouts/sets/import",
		middleware.RateLimit(rateLimiter, "import", importAllowedPerMin, handler.metricsManager)(
			http.HandlerFunc(handler.HandleImport),
		),
	).Methods("POST", "OPTIONS").Name("import-sets")
	r.HandleFunc("/workouts/sets/export", handler.HandleExport).Methods("GET", "OPTIONS").Name("export-sets")
	r.HandleFunc("/workouts/sets/page/{page}/size/{size}", handler.HandleList).Methods("GET", "OPTIONS").Name("list-sets")
	r.HandleFunc("/workouts/sets/{id:[0-9]+}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-set")
	r.HandleFunc("/workouts/sets/{id:[0-9]+}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-set")
	r.HandleFunc("/workouts/sets/{id:[0-9]+}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-set")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.add")
	defer span.End()

	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	newSets, err := NewSetsFromEntry(entry)
	if err != nil {
		log.Tracef("add sets, invalid entry: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	addedSets, err := handler.repo.Add(ctx, newSets)
	if err != nil {
		if errors.Is(err, ErrInvalidSet) {
			http.Error(w, "invalid set", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to add sets [%s] [%s]: %s", entry.Date, entry.Exercise, err)
		http.Error(w, "error, failed to add sets", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("sets.added", len(addedSets)))

	handler.stats.Invalidate()
	handler.metricsManager.CounterLoggedSets.Add(float64(len(addedSets)))

	resp := AddSetsResponse{
		Sets: addedSets,
	}
	for _, set := range addedSets {
		resp.TotalVolume += volume.Volume(set)
	}

	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal added sets: %s", err)
		http.Error(w, "error, failed to add sets", http.StatusInternalServerError)
		return
	}

	log.Debugf("added %d sets of [%s] on [%s]", len(addedSets), entry.Exercise, entry.Date)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

// HandlePreview shows the volume an entry would add, without storing it.
func (handler *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.preview")
	defer span.End()

	entry, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	newSets, err := NewSetsFromEntry(entry)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := PreviewResponse{
		Sets: make([]PreviewSet, 0, len(newSets)),
	}
	for _, set := range newSets {
		setVolume := volume.Volume(set)
		resp.Sets = append(resp.Sets, PreviewSet{
			LoggedSet: set,
			Volume:    setVolume,
		})
		resp.TotalVolume += setVolume
	}

	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal preview: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.get")
	defer span.End()

	id, ok := idFromPath(w, r)
	if !ok {
		return
	}

	set, err := handler.repo.Get(ctx, id)
	if errors.Is(err, ErrSetNotFound) {
		http.Error(w, "set not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Errorf("failed to get set %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	setJson, err := json.Marshal(set)
	if err != nil {
		log.Errorf("failed to marshal set: %s", err)
		http.Error(w, "failed to marshal set", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, setJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.update")
	defer span.End()

	id, ok := idFromPath(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var set volume.LoggedSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		log.Tracef("update set, unmarshal json: %s", err)
		http.Error(w, "update set failed", http.StatusBadRequest)
		return
	}
	set.ID = id

	if err := Validate(&set); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, set); err != nil {
		switch {
		case errors.Is(err, ErrSetNotFound):
			http.Error(w, "set not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidSet):
			http.Error(w, "invalid set", http.StatusBadRequest)
		default:
			log.Errorf("failed to update set %d: %s", id, err)
			http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		}
		return
	}

	handler.stats.Invalidate()
	handler.metricsManager.CounterUpdatedSets.Inc()

	updateRespJson, err := json.Marshal(UpdateSetResponse{
		UpdatedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	log.Debugf("set updated: %d", id)
	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.delete")
	defer span.End()

	id, ok := idFromPath(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrSetNotFound) {
			http.Error(w, "set not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete set %d: %s", id, err)
		http.Error(w, "set not deleted", http.StatusInternalServerError)
		return
	}

	handler.stats.Invalidate()
	handler.metricsManager.CounterDeletedSets.Inc()

	deleteRespJson, err := json.Marshal(DeleteSetResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.list")
	defer span.End()

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		log.Tracef("handle get sets page, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		log.Tracef("handle get sets page, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	filter, err := FilterParamsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sets, total, err := handler.repo.List(ctx, ListParams{
		FilterParams: filter,
		Page:         page,
		Size:         size,
	})
	if err != nil {
		log.Errorf("list sets error: %s", err)
		http.Error(w, "failed to get sets", http.StatusInternalServerError)
		return
	}

	listRespJson, err := json.Marshal(ListResponse{
		Sets:  sets,
		Total: total,
	})
	if err != nil {
		log.Errorf("marshal sets error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listRespJson)
}

// HandleImport stores all the sets from the CSV body. Either all of them are stored, or none.
func (handler *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.import")
	defer span.End()

	body := http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	importedSets, err := csvio.Read(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "csv too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Tracef("import sets, read csv: %s", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var invalidErrs error
	for i := range importedSets {
		if err := Validate(&importedSets[i]); err != nil {
			// +2: header and 1-based rows
			invalidErrs = multierr.Append(invalidErrs, fmt.Errorf("row %d: %w", i+2, err))
		}
	}
	if invalidErrs != nil {
		http.Error(w, invalidErrs.Error(), http.StatusBadRequest)
		return
	}

	if len(importedSets) == 0 {
		http.Error(w, "no sets to import", http.StatusBadRequest)
		return
	}

	addedSets, err := handler.repo.Add(ctx, importedSets)
	if err != nil {
		log.Errorf("failed to import %d sets: %s", len(importedSets), err)
		http.Error(w, "error, failed to import sets", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("sets.imported", len(addedSets)))

	handler.stats.Invalidate()
	handler.metricsManager.CounterImportedSets.Add(float64(len(addedSets)))

	importRespJson, err := json.Marshal(ImportResponse{
		Imported: len(addedSets),
	})
	if err != nil {
		log.Errorf("failed to marshal import response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	log.Infof("imported %d sets", len(addedSets))
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, importRespJson, http.StatusCreated)
}

func (handler *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.export")
	defer span.End()

	filter, err := FilterParamsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	allSets, err := handler.repo.ListAll(ctx, filter)
	if err != nil {
		log.Errorf("export sets, list all: %s", err)
		http.Error(w, "failed to get sets", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := csvio.Write(&buf, allSets); err != nil {
		log.Errorf("export sets, write csv: %s", err)
		http.Error(w, "failed to export sets", http.StatusInternalServerError)
		return
	}

	fileName := fmt.Sprintf("liftlog-%s.csv", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	pkg.WriteResponseBytesOK(w, pkg.ContentType.CSV, buf.Bytes())
}

// FilterParamsFromQuery reads the exercise, from and to query params.
// Dates are accepted in any of the supported formats.
func FilterParamsFromQuery(r *http.Request) (FilterParams, error) {
	query := r.URL.Query()
	params := FilterParams{
		Exercise: strings.TrimSpace(query.Get("exercise")),
	}

	var err error
	if from := query.Get("from"); from != "" {
		if params.From, err = volume.NormalizeStrict(from); err != nil {
			return FilterParams{}, fmt.Errorf("parameter <from>: %w", err)
		}
	}
	if to := query.Get("to"); to != "" {
		if params.To, err = volume.NormalizeStrict(to); err != nil {
			return FilterParams{}, fmt.Errorf("parameter <to>: %w", err)
		}
	}

	return params, nil
}

func decodeEntry(w http.ResponseWriter, r *http.Request) (Entry, bool) {
	if r.Header.Get("Content-Type") != pkg.ContentType.JSON {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return Entry{}, false
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Tracef("decode entry, unmarshal json: %s", err)
		http.Error(w, "invalid entry json", http.StatusBadRequest)
		return Entry{}, false
	}

	return entry, true
}

func idFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return -1, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return -1, false
	}
	return id, true
}
