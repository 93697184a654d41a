package workflow

import (
	"time"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

const daysPerYear = 365

// Due states derived at read time
const (
	DueStateOverdue     = "OVERDUE"
	DueStateDueSoon     = "DUE_SOON"
	DueStateOK          = "OK"
	DueStateUnscheduled = "UNSCHEDULED"
)

// NextDueAt returns completedAt advanced by the periodicity in calendar days,
// or nil for one-off controls. Whole multiples of 365 days move by calendar
// years so annual controls keep their anniversary across leap years.
func NextDueAt(completedAt time.Time, periodicityDays int) *time.Time {
	if periodicityDays <= 0 {
		return nil
	}
	var next time.Time
	if periodicityDays%daysPerYear == 0 {
		next = completedAt.AddDate(periodicityDays/daysPerYear, 0, 0)
	} else {
		next = completedAt.AddDate(0, 0, periodicityDays)
	}
	return &next
}

// RecomputeAfterCompletion applies a completion to the schedule. It reads no
// clock: the same inputs always give the same next_due_at.
func RecomputeAfterCompletion(s *entity.AssetControlSchedule, completedAt time.Time, periodicityDays int) {
	done := completedAt
	s.LastDoneAt = &done
	if s.StartDate == nil {
		start := completedAt
		s.StartDate = &start
	}
	s.NextDueAt = NextDueAt(completedAt, periodicityDays)
}

// IsOverdue is strict: a control due exactly now is not overdue yet.
func IsOverdue(nextDueAt *time.Time, now time.Time) bool {
	return nextDueAt != nil && nextDueAt.Before(now)
}

// IsDueSoon reports a control not overdue but due within windowDays.
func IsDueSoon(nextDueAt *time.Time, now time.Time, windowDays int) bool {
	if nextDueAt == nil || IsOverdue(nextDueAt, now) {
		return false
	}
	return nextDueAt.Before(now.AddDate(0, 0, windowDays))
}

// DueState classifies a schedule row for display.
func DueState(nextDueAt *time.Time, now time.Time, windowDays int) string {
	switch {
	case nextDueAt == nil:
		return DueStateUnscheduled
	case IsOverdue(nextDueAt, now):
		return DueStateOverdue
	case IsDueSoon(nextDueAt, now, windowDays):
		return DueStateDueSoon
	default:
		return DueStateOK
	}
}
