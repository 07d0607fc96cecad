// Package order assigns sort keys inside a lane without renumbering the
// lane on every insertion. Keys are spaced by Gap; inserting between two
// neighbours takes their midpoint, so repeated insertions at one spot halve
// the room each time until Compact spreads the lane out again.
package order

import (
	"math"

	"kanban/internal/task"
)

const (
	Base = 100
	Gap  = 100
)

// Compute returns the key for a task placed after prev and before next.
// Either neighbour may be nil.
func Compute(prev, next *task.Task) int {
	switch {
	case prev == nil && next == nil:
		return Base
	case prev == nil:
		return next.Order - Gap
	case next == nil:
		return prev.Order + Gap
	default:
		return int(math.Floor(float64(prev.Order+next.Order)/2 + 0.5))
	}
}

// Between returns the key for inserting at index of a lane sorted by order.
// Out-of-range indexes clamp to the ends.
func Between(lane []task.Task, index int) int {
	if index < 0 {
		index = 0
	}
	if index > len(lane) {
		index = len(lane)
	}
	var prev, next *task.Task
	if index > 0 {
		prev = &lane[index-1]
	}
	if index < len(lane) {
		next = &lane[index]
	}
	return Compute(prev, next)
}

// Crowded reports whether some pair of neighbours has no integer key left
// between them.
func Crowded(lane []task.Task) bool {
	for i := 1; i < len(lane); i++ {
		if lane[i].Order-lane[i-1].Order < 2 {
			return true
		}
	}
	return false
}

// Compact returns a copy of the lane with evenly spaced keys, keeping the
// relative order.
func Compact(lane []task.Task) []task.Task {
	out := make([]task.Task, len(lane))
	for i, t := range lane {
		t.Order = Base + i*Gap
		out[i] = t
	}
	return out
}
