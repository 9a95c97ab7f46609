package volume

import "strings"

const KgToLb = 2.20462

// Exercise labels and label markers which select a special volume formula.
// Historical records were computed with exactly these, so don't translate them.
const (
	PullUpLabel              = "懸垂"
	AbWheelKneelingMarker    = "アブローラー(膝コロ)"
	AbWheelStandingMarker    = "アブローラー(立ちコロ)"
	BulgarianSplitSquatLabel = "ブルガリアンスクワット(左右)"
	BothSidesMarker          = "(左右)"
)

const (
	abWheelKneelingFactor     = 0.6
	abWheelStandingFactor     = 0.9
	bulgarianSplitSquatFactor = 4
	defaultFactor             = 2
)

// Volume returns the total work of a logged set, in pounds.
// Rules are checked in order, first match wins.
func Volume(set LoggedSet) float64 {
	// the explicit conversion rounds the product before the pull-up addition (no fused multiply-add),
	// results have to match the stored history bit for bit
	bodyweightLb := float64(set.BodyweightKg * KgToLb)
	reps := float64(set.Reps)
	sets := float64(set.SetCount)

	switch {
	case set.Exercise == PullUpLabel:
		return (bodyweightLb + set.Load) * reps * sets
	case strings.Contains(set.Exercise, AbWheelKneelingMarker):
		return bodyweightLb * reps * sets * abWheelKneelingFactor
	case strings.Contains(set.Exercise, AbWheelStandingMarker):
		return bodyweightLb * reps * sets * abWheelStandingFactor
	case set.Exercise == BulgarianSplitSquatLabel:
		return set.Load * reps * sets * bulgarianSplitSquatFactor
	case strings.Contains(set.Exercise, BothSidesMarker):
		// both sides logged as a single entry
		return set.Load * reps * sets * defaultFactor
	default:
		return set.Load * reps * sets * defaultFactor
	}
}
