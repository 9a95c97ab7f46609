package sets

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/2beens/liftlog/internal/workouts/volume"
)

var ErrInvalidSet = errors.New("invalid set")

// Detail is one load x reps x sets line of an Entry.
type Detail struct {
	Load     float64 `json:"load"`
	Reps     int     `json:"reps"`
	SetCount int     `json:"sets"`
}

// Entry is what gets logged in one go: an exercise done on a date, possibly with
// different loads (e.g. warmup and working sets), each in its own Detail.
type Entry struct {
	Date         string   `json:"date"`
	BodyweightKg float64  `json:"weight"`
	Exercise     string   `json:"exercise"`
	Comment      string   `json:"comment"`
	Details      []Detail `json:"details"`
}

// NewSetsFromEntry validates the entry and turns each of its details into a LoggedSet.
func NewSetsFromEntry(entry Entry) ([]volume.LoggedSet, error) {
	if len(entry.Details) == 0 {
		return nil, fmt.Errorf("%w: no details (load, reps, sets) given", ErrInvalidSet)
	}

	sets := make([]volume.LoggedSet, 0, len(entry.Details))
	for i, detail := range entry.Details {
		set := volume.LoggedSet{
			Date:         entry.Date,
			BodyweightKg: entry.BodyweightKg,
			Exercise:     entry.Exercise,
			Load:         detail.Load,
			Reps:         detail.Reps,
			SetCount:     detail.SetCount,
			Comment:      entry.Comment,
		}
		if err := Validate(&set); err != nil {
			return nil, fmt.Errorf("detail %d: %w", i+1, err)
		}
		sets = append(sets, set)
	}

	return sets, nil
}

// Validate checks the set before it gets stored, and normalizes it in place:
// the date is turned into YYYY-MM-DD and a missing (zero) bodyweight becomes the default one.
func Validate(set *volume.LoggedSet) error {
	set.Exercise = strings.TrimSpace(set.Exercise)
	if set.Exercise == "" {
		return fmt.Errorf("%w: exercise empty", ErrInvalidSet)
	}

	date, err := volume.NormalizeStrict(set.Date)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}
	set.Date = date

	if !isFinite(set.BodyweightKg) || set.BodyweightKg < 0 {
		return fmt.Errorf("%w: bodyweight must be a non-negative number", ErrInvalidSet)
	}
	if set.BodyweightKg == 0 {
		set.BodyweightKg = volume.DefaultBodyweightKg
	}

	if !isFinite(set.Load) || set.Load < 0 {
		return fmt.Errorf("%w: load must be a non-negative number", ErrInvalidSet)
	}
	if set.Reps < 0 {
		return fmt.Errorf("%w: reps must not be negative", ErrInvalidSet)
	}
	if set.SetCount < 1 {
		return fmt.Errorf("%w: sets must be at least 1", ErrInvalidSet)
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
