// Package grid provides the discrete scene grid geometry.
//
// Positions are integer cells. Distances are Euclidean so diagonal movement
// costs more than a straight step but less than two.
package grid

import "math"

// Position is one cell on a scene grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Euclidean distance between two cells.
func Distance(a, b Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// IsOccupied reports whether pos appears in the occupied set.
func IsOccupied(occupied []Position, pos Position) bool {
	for _, p := range occupied {
		if p == pos {
			return true
		}
	}
	return false
}
