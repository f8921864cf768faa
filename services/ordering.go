package services

import (
	"math"

	"team-collab/backend/models"
)

// NoUpperBound marks a shift range open towards the bottom of the column.
const NoUpperBound = math.MaxInt

// ShiftRange describes one position shift to apply to a column: every task
// in [From, To] within Status moves by Delta.
type ShiftRange struct {
	Status models.TaskStatus
	From   int
	To     int
	Delta  int
}

// PlanReorder computes the position shifts needed to move a task from
// (oldStatus, oldPosition) to (newStatus, newPosition) while keeping both
// columns dense and gap-free.
//
// Cross-column moves close the gap in the source column and open a slot in
// the destination. Same-column moves shift only the tasks between the two
// positions. Moving to the current position is a no-op.
func PlanReorder(oldStatus models.TaskStatus, oldPosition int, newStatus models.TaskStatus, newPosition int) []ShiftRange {
	if oldStatus != newStatus {
		return []ShiftRange{
			{Status: oldStatus, From: oldPosition + 1, To: NoUpperBound, Delta: -1},
			{Status: newStatus, From: newPosition, To: NoUpperBound, Delta: 1},
		}
	}

	switch {
	case newPosition < oldPosition:
		return []ShiftRange{
			{Status: newStatus, From: newPosition, To: oldPosition - 1, Delta: 1},
		}
	case newPosition > oldPosition:
		return []ShiftRange{
			{Status: newStatus, From: oldPosition + 1, To: newPosition, Delta: -1},
		}
	}
	return nil
}
