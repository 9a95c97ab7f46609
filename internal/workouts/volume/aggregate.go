package volume

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// exerciseNamesLanguage drives the collation of exercise names (they are mostly written in Japanese)
var exerciseNamesLanguage = language.Japanese

// AggregateVolume groups the sets by (normalized date, exercise) and sums their volumes.
// Entries are ordered by date, newest first. Entries of the same date keep the order
// in which they first appeared in sets.
func AggregateVolume(sets []LoggedSet) []VolumeEntry {
	type dateExercise struct {
		date     string
		exercise string
	}

	entries := make([]VolumeEntry, 0)
	key2index := make(map[dateExercise]int)
	for _, set := range sets {
		key := dateExercise{
			date:     Normalize(set.Date),
			exercise: set.Exercise,
		}
		i, ok := key2index[key]
		if !ok {
			i = len(entries)
			key2index[key] = i
			entries = append(entries, VolumeEntry{
				Date:     key.date,
				Exercise: key.exercise,
				Sets:     make([]LoggedSet, 0, 1),
			})
		}
		entries[i].Volume += Volume(set)
		entries[i].Sets = append(entries[i].Sets, set)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date > entries[j].Date
	})

	return entries
}

// TimeSeries returns the daily volume and max load of a single exercise, oldest date first.
func TimeSeries(sets []LoggedSet, exercise string) []SeriesPoint {
	points := make([]SeriesPoint, 0)
	date2index := make(map[string]int)
	for _, set := range sets {
		if set.Exercise != exercise {
			continue
		}

		date := Normalize(set.Date)
		i, ok := date2index[date]
		if !ok {
			i = len(points)
			date2index[date] = i
			points = append(points, SeriesPoint{Date: date})
		}
		points[i].Volume += Volume(set)
		if set.Load > points[i].MaxLoad {
			points[i].MaxLoad = set.Load
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})

	return points
}

// ExerciseStats returns one summary per distinct exercise, ordered by exercise name.
func ExerciseStats(sets []LoggedSet) []ExerciseStat {
	type exerciseAcc struct {
		stat         ExerciseStat
		dailyVolumes map[string]float64
	}

	accs := make([]*exerciseAcc, 0)
	exercise2acc := make(map[string]*exerciseAcc)
	for _, set := range sets {
		acc, ok := exercise2acc[set.Exercise]
		if !ok {
			acc = &exerciseAcc{
				stat:         ExerciseStat{Exercise: set.Exercise},
				dailyVolumes: make(map[string]float64),
			}
			exercise2acc[set.Exercise] = acc
			accs = append(accs, acc)
		}

		date := Normalize(set.Date)
		acc.dailyVolumes[date] += Volume(set)
		if date > acc.stat.LastDate {
			acc.stat.LastDate = date
		}
		if set.Load > acc.stat.MaxLoad {
			acc.stat.MaxLoad = set.Load
		}
	}

	stats := make([]ExerciseStat, 0, len(accs))
	for _, acc := range accs {
		for _, dailyVolume := range acc.dailyVolumes {
			if dailyVolume > acc.stat.MaxDailyVolume {
				acc.stat.MaxDailyVolume = dailyVolume
			}
		}
		acc.stat.WorkoutDays = len(acc.dailyVolumes)
		stats = append(stats, acc.stat)
	}

	c := newExerciseNamesCollator()
	sort.SliceStable(stats, func(i, j int) bool {
		return exerciseNameLess(c, stats[i].Exercise, stats[j].Exercise)
	})

	return stats
}

// Exercises returns the distinct exercise names found in sets, ordered by name.
func Exercises(sets []LoggedSet) []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, set := range sets {
		if seen[set.Exercise] {
			continue
		}
		seen[set.Exercise] = true
		names = append(names, set.Exercise)
	}

	c := newExerciseNamesCollator()
	sort.SliceStable(names, func(i, j int) bool {
		return exerciseNameLess(c, names[i], names[j])
	})

	return names
}

// ExerciseSummary returns the best results so far (max daily volume, max load) of an exercise.
// The second return value is false if the exercise was never logged.
func ExerciseSummary(sets []LoggedSet, exercise string) (ExerciseStat, bool) {
	var exerciseSets []LoggedSet
	for _, set := range sets {
		if set.Exercise == exercise {
			exerciseSets = append(exerciseSets, set)
		}
	}
	if len(exerciseSets) == 0 {
		return ExerciseStat{}, false
	}
	return ExerciseStats(exerciseSets)[0], true
}

// a collator keeps internal buffers, so each call gets its own
func newExerciseNamesCollator() *collate.Collator {
	return collate.New(exerciseNamesLanguage)
}

func exerciseNameLess(c *collate.Collator, a, b string) bool {
	if cmp := c.CompareString(a, b); cmp != 0 {
		return cmp < 0
	}
	// collation-equal names (e.g. full width vs half width) still need a fixed order
	return a < b
}
