package economy

import "github.com/samber/lo"

// NeutralMidpoint is returned when a range collapses to a single value.
const NeutralMidpoint = 0.5

// Normalize maps value from [low, high] onto [0,1]. A degenerate range
// (high <= low, including the empty-economy case) yields NeutralMidpoint.
func Normalize(value, low, high float64) float64 {
	if high <= low {
		return NeutralMidpoint
	}
	return lo.Clamp((value-low)/(high-low), 0, 1)
}
