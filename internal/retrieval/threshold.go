package retrieval

import "math"

// Thresholds are the configured similarity bounds.
type Thresholds struct {
	Min    float64
	Medium float64
	High   float64
}

// EffectiveThreshold adapts the caller's base threshold to the observed
// semantic score distribution. Wide, high-quality distributions tighten
// the cut; tight, middling ones loosen it. The result always lies in
// [Min, High].
func EffectiveThreshold(base float64, scores []float64, t Thresholds) float64 {
	threshold := base

	if len(scores) >= 2 {
		max, min := scores[0], scores[0]
		var sum float64
		for _, s := range scores {
			if s > max {
				max = s
			}
			if s < min {
				min = s
			}
			sum += s
		}
		mean := sum / float64(len(scores))

		var variance float64
		for _, s := range scores {
			variance += (s - mean) * (s - mean)
		}
		stdev := math.Sqrt(variance / float64(len(scores)))

		scoreRange := max - min
		switch {
		case scoreRange > 0.4 && max > t.High:
			threshold = math.Max(threshold, mean+0.5*stdev)
		case scoreRange < 0.2:
			threshold = math.Min(threshold, mean-0.5*stdev)
		}
	}

	if len(scores) > 0 {
		max := scores[0]
		for _, s := range scores {
			if s > max {
				max = s
			}
		}
		if max > t.High {
			threshold = math.Max(threshold, t.Medium)
		}
		if max < t.Min {
			threshold = math.Min(threshold, t.Min)
		}
	}

	return clamp(threshold, t.Min, t.High)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
