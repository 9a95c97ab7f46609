package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/liftlog/internal/telemetry/metrics"
	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/internal/workouts/volume"
)

//go:generate mockgen -source=$GOFILE -destination=stats_mocks_test.go -package=stats_test

type setsRepo interface {
	ListAll(ctx context.Context, params sets.FilterParams) ([]volume.LoggedSet, error)
}

// view names, used in cache keys and as metrics labels
const (
	ViewVolume          = "volume"
	ViewExercises       = "exercises"
	ViewExerciseStats   = "exercise_stats"
	ViewExerciseSeries  = "exercise_series"
	ViewExerciseSummary = "exercise_summary"
)

const megabyte = 1024 * 1024

// Analyzer loads a snapshot of the logged sets and runs the volume engine on it.
// Results are cached until the TTL runs out, or until Invalidate is called.
type Analyzer struct {
	repo            setsRepo
	cache           *freecache.Cache
	cacheTTLSeconds int
	// part of every cache key; results computed before an Invalidate end up under an old generation
	generation     atomic.Uint64
	metricsManager *metrics.Manager
}

func NewAnalyzer(
	repo setsRepo,
	cacheSizeMB int,
	cacheTTL time.Duration,
	metricsManager *metrics.Manager,
) *Analyzer {
	return &Analyzer{
		repo:            repo,
		cache:           freecache.NewCache(cacheSizeMB * megabyte),
		cacheTTLSeconds: int(cacheTTL.Seconds()),
		metricsManager:  metricsManager,
	}
}

// Invalidate drops all the cached views. Called after every write.
func (a *Analyzer) Invalidate() {
	a.generation.Add(1)
	a.cache.Clear()
}

// VolumeTable returns the date x exercise volume table, newest date first.
func (a *Analyzer) VolumeTable(ctx context.Context, filter sets.FilterParams) ([]volume.VolumeEntry, error) {
	return cachedView(ctx, a, ViewVolume, filter, volume.AggregateVolume)
}

// Exercises returns the names of all the exercises ever logged.
func (a *Analyzer) Exercises(ctx context.Context) ([]string, error) {
	return cachedView(ctx, a, ViewExercises, sets.FilterParams{}, volume.Exercises)
}

func (a *Analyzer) ExerciseStats(ctx context.Context) ([]volume.ExerciseStat, error) {
	return cachedView(ctx, a, ViewExerciseStats, sets.FilterParams{}, volume.ExerciseStats)
}

// ExerciseSeries returns the chart points (daily volume, max load) of the exercise, oldest first.
func (a *Analyzer) ExerciseSeries(ctx context.Context, exercise string) ([]volume.SeriesPoint, error) {
	return cachedView(
		ctx, a, ViewExerciseSeries,
		sets.FilterParams{Exercise: exercise},
		func(snapshot []volume.LoggedSet) []volume.SeriesPoint {
			return volume.TimeSeries(snapshot, exercise)
		},
	)
}

type exerciseSummary struct {
	Stat  volume.ExerciseStat `json:"stat"`
	Found bool                `json:"found"`
}

// ExerciseSummary returns the best results so far of the exercise.
// The second return value is false if the exercise was never logged.
func (a *Analyzer) ExerciseSummary(ctx context.Context, exercise string) (volume.ExerciseStat, bool, error) {
	summary, err := cachedView(
		ctx, a, ViewExerciseSummary,
		sets.FilterParams{Exercise: exercise},
		func(snapshot []volume.LoggedSet) exerciseSummary {
			stat, found := volume.ExerciseSummary(snapshot, exercise)
			return exerciseSummary{Stat: stat, Found: found}
		},
	)
	if err != nil {
		return volume.ExerciseStat{}, false, err
	}
	return summary.Stat, summary.Found, nil
}

func cachedView[T any](
	ctx context.Context,
	a *Analyzer,
	view string,
	filter sets.FilterParams,
	compute func(snapshot []volume.LoggedSet) T,
) (_ T, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts."+view)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var result T
	cacheKey := []byte(fmt.Sprintf(
		"%d::%s::%s::%s::%s",
		a.generation.Load(), view, filter.Exercise, filter.From, filter.To,
	))
	if cachedBytes, err := a.cache.Get(cacheKey); err == nil {
		if err := json.Unmarshal(cachedBytes, &result); err == nil {
			a.metricsManager.CounterStatsCacheHits.WithLabelValues(view).Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return result, nil
		} else {
			log.Errorf("failed to unmarshal cached view %s: %s", view, err)
		}
	}
	a.metricsManager.CounterStatsCacheMisses.WithLabelValues(view).Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))

	snapshot, err := a.repo.ListAll(ctx, filter)
	if err != nil {
		return result, fmt.Errorf("load snapshot: %w", err)
	}
	span.SetAttributes(attribute.Int("snapshot.sets", len(snapshot)))

	begin := time.Now()
	result = compute(snapshot)
	a.metricsManager.HistogramEngineDuration.WithLabelValues(view).Observe(time.Since(begin).Seconds())

	resultBytes, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal view %s for cache: %s", view, err)
		return result, nil
	}
	// large views (e.g. the whole volume table) may not fit into a single cache entry, fine
	if err := a.cache.Set(cacheKey, resultBytes, a.cacheTTLSeconds); err != nil {
		log.Debugf("view %s not cached: %s", view, err)
	}

	return result, nil
}
