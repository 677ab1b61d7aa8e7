// Package rating implements the MMR adjustment formula. It is pure
// computation: callers feed it ratings and outcomes and apply the returned
// deltas themselves.
package rating

import (
	"math"

	"github.com/mkrag/matchpoint/internal/match"
)

// Floor is the lowest rating a settlement may leave a player at.
const Floor = 250

// Settings parameterizes the formula for one game mode.
type Settings struct {
	// Base is the unscaled rating delta.
	Base int
	// MinMultiplier and MaxMultiplier bound the scaling factor.
	MinMultiplier float64
	MaxMultiplier float64
	// SwingDivisor scales the outcomes with the larger effect: winning
	// against a stronger opponent, or losing against a weaker one.
	SwingDivisor float64
	// DampDivisor scales the outcomes with the smaller effect: winning
	// against a weaker opponent, or losing against a stronger one.
	DampDivisor float64
}

// SettingsFor returns the formula parameters for the given mode.
func SettingsFor(mode match.Mode) Settings {
	if mode == match.ModeDuel {
		return Settings{
			Base:          30,
			MinMultiplier: 0.1,
			MaxMultiplier: 2.5,
			SwingDivisor:  150,
			DampDivisor:   300,
		}
	}
	return Settings{
		Base:          25,
		MinMultiplier: 0.1,
		MaxMultiplier: 2.0,
		SwingDivisor:  200,
		DampDivisor:   400,
	}
}

// Change computes the signed rating delta for a player against an opponent
// (or opposing team average) rating. The delta is positive for a win and
// negative for a loss.
func (s Settings) Change(playerRating int, opponentRating float64, won bool) int {
	gap := opponentRating - float64(playerRating)

	multiplier := 1.0
	if won {
		switch {
		case gap > 0:
			multiplier = 1 + gap/s.SwingDivisor
		case gap < 0:
			multiplier = 1 + gap/s.DampDivisor
		}
	} else {
		switch {
		case gap > 0:
			multiplier = 1 - gap/s.DampDivisor
		case gap < 0:
			multiplier = 1 - gap/s.SwingDivisor
		}
	}

	multiplier = math.Max(s.MinMultiplier, math.Min(s.MaxMultiplier, multiplier))

	delta := int(math.Round(float64(s.Base) * multiplier))
	if !won {
		delta = -delta
	}
	return delta
}

// Apply adds a delta to a rating, enforcing the floor.
func Apply(current, delta int) int {
	next := current + delta
	if next < Floor {
		return Floor
	}
	return next
}

// TeamAverage is the arithmetic mean of the given ratings.
func TeamAverage(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	return float64(total) / float64(len(ratings))
}
