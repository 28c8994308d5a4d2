package schedule

import (
	"errors"

	"meetcal/internal/model"
)

// Error kinds. Match with errors.Is.
var (
	// ErrInvalidInput covers unresolvable day/time names and bad durations.
	ErrInvalidInput = model.ErrInvalid
	// ErrSlotConflict means a requested span overlaps existing occupancy.
	ErrSlotConflict = errors.New("slot conflict")
	// ErrInfeasible means no day/time reached the required occurrence count.
	ErrInfeasible = errors.New("no consistent slot")
	// ErrPartialCommit means the search succeeded but the commit pass placed
	// fewer weeks than required. The weeks that were placed stay committed.
	ErrPartialCommit = errors.New("partial commit")
)

// KindOf names the error kind for reports: "invalid_input", "slot_conflict",
// "infeasible", "partial_commit", or "" for nil. Infeasible wins over
// slot_conflict when an error carries both.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrPartialCommit):
		return "partial_commit"
	case errors.Is(err, ErrInfeasible):
		return "infeasible"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	default:
		return "error"
	}
}
