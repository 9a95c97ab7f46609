package volume

// DefaultBodyweightKg is used by the entry layer when the bodyweight is not given.
const DefaultBodyweightKg = 60.0

// LoggedSet is one entry of load x reps x sets for one exercise on one date.
// Field names differ from the workout_set table columns, the repo maps them.
type LoggedSet struct {
	ID           int     `json:"id"`
	Date         string  `json:"date"`
	BodyweightKg float64 `json:"weight"`
	Exercise     string  `json:"exercise"`
	Load         float64 `json:"load"` // pounds
	Reps         int     `json:"reps"`
	SetCount     int     `json:"sets"`
	Comment      string  `json:"comment"`
}

// VolumeEntry is the total volume of one exercise on one (normalized) date,
// together with the sets that contributed to it.
type VolumeEntry struct {
	Date     string      `json:"date"`
	Exercise string      `json:"exercise"`
	Volume   float64     `json:"volume"`
	Sets     []LoggedSet `json:"sets"`
}

// SeriesPoint is a single chart point of an exercise trend.
type SeriesPoint struct {
	Date    string  `json:"date"`
	Volume  float64 `json:"volume"`
	MaxLoad float64 `json:"maxLoad"`
}

type ExerciseStat struct {
	Exercise       string  `json:"exercise"`
	LastDate       string  `json:"lastDate"`
	MaxDailyVolume float64 `json:"maxDailyVolume"`
	MaxLoad        float64 `json:"maxLoad"`
	WorkoutDays    int     `json:"workoutDays"`
}
