package services

import (
	"math/rand"
	"sort"
	"testing"

	"team-collab/backend/models"
)

// board is an in-memory kanban model: task id -> (status, position). Moves
// are applied with the same shift plan the persistence layer executes, so
// the density checks below exercise the real reorder arithmetic.
type board map[string]*boardTask

type boardTask struct {
	status   models.TaskStatus
	position int
}

func newBoard(columns map[models.TaskStatus][]string) board {
	b := board{}
	for status, ids := range columns {
		for i, id := range ids {
			b[id] = &boardTask{status: status, position: i}
		}
	}
	return b
}

func (b board) move(id string, newStatus models.TaskStatus, newPosition int) {
	task := b[id]
	shifts := PlanReorder(task.status, task.position, newStatus, newPosition)
	for _, shift := range shifts {
		for other, t := range b {
			if other == id || t.status != shift.Status {
				continue
			}
			if t.position >= shift.From && (shift.To == NoUpperBound || t.position <= shift.To) {
				t.position += shift.Delta
			}
		}
	}
	task.status = newStatus
	task.position = newPosition
}

// column returns task ids top to bottom.
func (b board) column(status models.TaskStatus) []string {
	type row struct {
		id  string
		pos int
	}
	rows := []row{}
	for id, t := range b {
		if t.status == status {
			rows = append(rows, row{id, t.position})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].pos < rows[j].pos })
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids
}

// checkDense fails unless every column is a dense zero-based sequence.
func (b board) checkDense(t *testing.T) {
	t.Helper()
	byStatus := map[models.TaskStatus][]int{}
	for _, task := range b {
		byStatus[task.status] = append(byStatus[task.status], task.position)
	}
	for status, positions := range byStatus {
		sort.Ints(positions)
		for i, pos := range positions {
			if pos != i {
				t.Fatalf("column %s positions not dense: %v", status, positions)
			}
		}
	}
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlanReorderSameColumnMoveDown(t *testing.T) {
	b := newBoard(map[models.TaskStatus][]string{
		models.StatusTodo: {"A", "B", "C", "D"},
	})

	b.move("A", models.StatusTodo, 2)

	b.checkDense(t)
	want := []string{"B", "C", "A", "D"}
	if got := b.column(models.StatusTodo); !equalIDs(got, want) {
		t.Errorf("todo column = %v, want %v", got, want)
	}
}

func TestPlanReorderSameColumnMoveUp(t *testing.T) {
	b := newBoard(map[models.TaskStatus][]string{
		models.StatusTodo: {"A", "B", "C", "D"},
	})

	b.move("D", models.StatusTodo, 0)

	b.checkDense(t)
	want := []string{"D", "A", "B", "C"}
	if got := b.column(models.StatusTodo); !equalIDs(got, want) {
		t.Errorf("todo column = %v, want %v", got, want)
	}
}

func TestPlanReorderSamePositionIsNoop(t *testing.T) {
	if shifts := PlanReorder(models.StatusTodo, 2, models.StatusTodo, 2); len(shifts) != 0 {
		t.Errorf("expected no shifts, got %v", shifts)
	}

	b := newBoard(map[models.TaskStatus][]string{
		models.StatusTodo: {"A", "B", "C"},
	})
	b.move("B", models.StatusTodo, 1)
	b.checkDense(t)
	want := []string{"A", "B", "C"}
	if got := b.column(models.StatusTodo); !equalIDs(got, want) {
		t.Errorf("todo column = %v, want %v", got, want)
	}
}

func TestPlanReorderCrossColumn(t *testing.T) {
	b := newBoard(map[models.TaskStatus][]string{
		models.StatusTodo:       {"A", "B", "C"},
		models.StatusInProgress: {"X", "Y"},
	})

	b.move("B", models.StatusInProgress, 1)

	b.checkDense(t)
	if got, want := b.column(models.StatusTodo), []string{"A", "C"}; !equalIDs(got, want) {
		t.Errorf("todo column = %v, want %v", got, want)
	}
	if got, want := b.column(models.StatusInProgress), []string{"X", "B", "Y"}; !equalIDs(got, want) {
		t.Errorf("inprogress column = %v, want %v", got, want)
	}
}

func TestPlanReorderCrossColumnToEmpty(t *testing.T) {
	b := newBoard(map[models.TaskStatus][]string{
		models.StatusTodo: {"A", "B"},
	})

	b.move("A", models.StatusDone, 0)

	b.checkDense(t)
	if got, want := b.column(models.StatusTodo), []string{"B"}; !equalIDs(got, want) {
		t.Errorf("todo column = %v, want %v", got, want)
	}
	if got, want := b.column(models.StatusDone), []string{"A"}; !equalIDs(got, want) {
		t.Errorf("done column = %v, want %v", got, want)
	}
}

// A move there and back again restores the original board.
func TestPlanReorderRoundTrip(t *testing.T) {
	b := newBoard(map[models.TaskStatus][]string{
		models.StatusTodo:       {"A", "B", "C"},
		models.StatusInProgress: {"X", "Y", "Z"},
	})

	b.move("B", models.StatusInProgress, 1)
	b.move("B", models.StatusTodo, 1)

	b.checkDense(t)
	if got, want := b.column(models.StatusTodo), []string{"A", "B", "C"}; !equalIDs(got, want) {
		t.Errorf("todo column = %v, want %v", got, want)
	}
	if got, want := b.column(models.StatusInProgress), []string{"X", "Y", "Z"}; !equalIDs(got, want) {
		t.Errorf("inprogress column = %v, want %v", got, want)
	}
}

// Random move sequences must never break column density.
func TestPlanReorderRandomSequences(t *testing.T) {
	statuses := []models.TaskStatus{
		models.StatusTodo, models.StatusInProgress, models.StatusReview, models.StatusDone,
	}
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		b := newBoard(map[models.TaskStatus][]string{
			models.StatusTodo:       {"t0", "t1", "t2", "t3", "t4"},
			models.StatusInProgress: {"p0", "p1", "p2"},
			models.StatusReview:     {"r0"},
		})

		ids := make([]string, 0, len(b))
		for id := range b {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for step := 0; step < 40; step++ {
			id := ids[rng.Intn(len(ids))]
			newStatus := statuses[rng.Intn(len(statuses))]

			// Valid targets are 0..len for a foreign column and
			// 0..len-1 within the current one.
			size := len(b.column(newStatus))
			if b[id].status == newStatus {
				if size == 1 {
					continue
				}
				b.move(id, newStatus, rng.Intn(size))
			} else {
				b.move(id, newStatus, rng.Intn(size+1))
			}

			b.checkDense(t)
		}
	}
}
