package utils

import (
	"math"
	"time"
)

type TriageConfig struct {
	Gravity        float64
	WeightUpvote   float64
	WeightDownvote float64
	ScaleFactor    float64
}

var DefaultTriage = TriageConfig{
	Gravity:        1.2,
	WeightUpvote:   1.0,
	WeightDownvote: 0.8,
	ScaleFactor:    100.0,
}

// TriageScore ranks open issues for the "hot" listing. Net support is log
// smoothed so early votes matter most, then decayed by age in hours.
func TriageScore(created time.Time, now time.Time, up, down int) float64 {
	hours := now.Sub(created).Hours()
	if hours < 0 {
		hours = 0
	}

	net := float64(up)*DefaultTriage.WeightUpvote - float64(down)*DefaultTriage.WeightDownvote
	if net < 0 {
		net = 0
	}

	numerator := math.Log10(net+1) * DefaultTriage.ScaleFactor
	return numerator / math.Pow(hours+2, DefaultTriage.Gravity)
}
