// Package reputation scores peers by sync outcome.
package reputation

import (
	"math"

	"github.com/rawblock/axiom-node/pkg/models"
)

// Weights holds the tunable reward/penalty constants.
type Weights struct {
	Initial      float64 // R0, new peer starting reputation
	PenaltyFail  float64 // P_fail
	RewardUptime float64 // R_uptime
	RewardData   float64 // R_data
}

// DefaultWeights are the stock constants a node runs with unless the
// operator overrides them.
var DefaultWeights = Weights{
	Initial:      0.2,
	PenaltyFail:  0.05,
	RewardUptime: 0.001,
	RewardData:   0.01,
}

// Adjust applies the reputation delta for one sync outcome and clamps
// the result to [0,1]. newFacts is only meaningful for
// SyncNewFacts.
func Adjust(w Weights, current float64, outcome models.SyncOutcome, newFacts int) float64 {
	switch outcome {
	case models.SyncConnectionFailed, models.SyncError:
		current -= w.PenaltyFail
	case models.SyncUpToDate:
		current += w.RewardUptime
	case models.SyncNewFacts:
		current += w.RewardUptime + math.Log10(1+float64(newFacts))*w.RewardData
	}
	return clamp(current)
}

func clamp(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
