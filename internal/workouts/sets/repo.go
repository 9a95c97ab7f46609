package sets

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/2beens/liftlog/internal/telemetry/tracing"
	"github.com/2beens/liftlog/internal/workouts/volume"
	"github.com/2beens/liftlog/pkg"
)

var ErrSetNotFound = errors.New("set not found")

//go:embed schema.sql
var schemaSQL string

// FilterParams narrows down the sets. Empty fields match everything.
// From and To are inclusive YYYY-MM-DD dates.
type FilterParams struct {
	Exercise string
	From     string
	To       string
}

type ListParams struct {
	FilterParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// EnsureSchema creates the workout_set table (and its indexes) if missing.
func (r *Repo) EnsureSchema(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.ensureSchema")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := r.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create workout_set table: %w", err)
	}
	return nil
}

// Add stores all the sets in a single transaction, and returns them with their new IDs.
func (r *Repo) Add(ctx context.Context, sets []volume.LoggedSet) (_ []volume.LoggedSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("sets.count", len(sets)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("add sets, rollback: %s", rbErr)
		}
	}()

	added := make([]volume.LoggedSet, 0, len(sets))
	for _, set := range sets {
		var id int
		if err := tx.QueryRow(
			ctx,
			`INSERT INTO workout_set
					(date, weight, exercise, load, reps, sets, comment)
					VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id;`,
			set.Date, set.BodyweightKg, set.Exercise, set.Load, set.Reps, set.SetCount, set.Comment,
		).Scan(&id); err != nil {
			if pkg.IsCheckViolationError(err) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidSet, err)
			}
			return nil, fmt.Errorf("insert set: %w", err)
		}
		set.ID = id
		added = append(added, set)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return added, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *volume.LoggedSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, date, weight, exercise, load, reps, sets, comment
			FROM workout_set
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets, err := rows2sets(rows)
	if err != nil {
		return nil, err
	}

	if len(sets) != 1 {
		return nil, ErrSetNotFound
	}

	return &sets[0], nil
}

func (r *Repo) Update(ctx context.Context, set volume.LoggedSet) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", set.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_set
			SET date = $1, weight = $2, exercise = $3, load = $4, reps = $5, sets = $6, comment = $7
			WHERE id = $8;`,
		set.Date, set.BodyweightKg, set.Exercise, set.Load, set.Reps, set.SetCount, set.Comment, set.ID,
	)
	if err != nil {
		if pkg.IsCheckViolationError(err) {
			return fmt.Errorf("%w: %s", ErrInvalidSet, err)
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout_set WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

// ListAll returns all the sets matching the params, in the order they were logged.
func (r *Repo) ListAll(ctx context.Context, params FilterParams) (_ []volume.LoggedSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	setFilterAttributes(span, params)

	rows, err := r.db.Query(
		ctx,
		`SELECT id, date, weight, exercise, load, reps, sets, comment
			FROM workout_set
			WHERE ($1::text = '' OR exercise = $1)
				AND ($2::text = '' OR date >= $2)
				AND ($3::text = '' OR date <= $3)
			ORDER BY created_at ASC, id ASC;`,
		params.Exercise, params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	sets, err := rows2sets(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2sets: %w", err)
	}
	return sets, nil
}

// List is like ListAll, but returns only the requested page, newest sets first.
// Total is the number of all the sets matching the params.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []volume.LoggedSet, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	setFilterAttributes(span, params.FilterParams)

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	countAll, err := r.Count(ctx, params.FilterParams)
	if err != nil {
		return nil, -1, err
	}

	offset := (params.Page - 1) * params.Size
	span.SetAttributes(attribute.Int("count_all", countAll))
	span.SetAttributes(attribute.Int("offset", offset))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, date, weight, exercise, load, reps, sets, comment
			FROM workout_set
			WHERE ($1::text = '' OR exercise = $1)
				AND ($2::text = '' OR date >= $2)
				AND ($3::text = '' OR date <= $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
			OFFSET $5;`,
		params.Exercise, params.From, params.To,
		params.Size, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	sets, err := rows2sets(rows)
	if err != nil {
		return nil, -1, err
	}
	return sets, countAll, nil
}

func (r *Repo) Count(ctx context.Context, params FilterParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sets.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workout_set
			WHERE ($1::text = '' OR exercise = $1)
				AND ($2::text = '' OR date >= $2)
				AND ($3::text = '' OR date <= $3);`,
		params.Exercise, params.From, params.To,
	).Scan(&count); err != nil {
		return -1, fmt.Errorf("count sets: %w", err)
	}

	return count, nil
}

func rows2sets(rows pgx.Rows) ([]volume.LoggedSet, error) {
	sets := make([]volume.LoggedSet, 0)
	for rows.Next() {
		var set volume.LoggedSet
		if err := rows.Scan(
			&set.ID, &set.Date, &set.BodyweightKg, &set.Exercise,
			&set.Load, &set.Reps, &set.SetCount, &set.Comment,
		); err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

func setFilterAttributes(span trace.Span, params FilterParams) {
	span.SetAttributes(attribute.String("exercise", params.Exercise))
	if params.From != "" {
		span.SetAttributes(attribute.String("from", params.From))
	}
	if params.To != "" {
		span.SetAttributes(attribute.String("to", params.To))
	}
}
