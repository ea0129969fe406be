package pricing

import (
	"sort"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// LockRegistry answers whether dates and bill periods are frozen. It is built
// from explicit period definitions and locked ids, never from global state.
type LockRegistry struct {
	periods []models.BillPeriod
	locked  map[string]struct{}
}

// NewLockRegistry builds a registry over the given definitions and locked ids.
func NewLockRegistry(periods []models.BillPeriod, lockedIDs []string) *LockRegistry {
	locked := make(map[string]struct{}, len(lockedIDs))
	for _, id := range lockedIDs {
		if id != "" {
			locked[id] = struct{}{}
		}
	}
	return &LockRegistry{periods: periods, locked: locked}
}

// ResolvePeriod maps a date to its bill-period id.
func (r *LockRegistry) ResolvePeriod(date string) string {
	return ResolvePeriod(date, r.periods)
}

// IsPeriodIDLocked reports membership of id in the locked set.
func (r *LockRegistry) IsPeriodIDLocked(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.locked[id]
	return ok
}

// IsDateLocked reports whether the bill period containing date is locked.
// Dates outside every period cannot be locked.
func (r *LockRegistry) IsDateLocked(date string) bool {
	return r.IsPeriodIDLocked(r.ResolvePeriod(date))
}

// IsRangeLocked walks every calendar day of [from, to] and stops at the first
// locked one. Cost is linear in the number of days, so callers bound ranges.
func (r *LockRegistry) IsRangeLocked(from, to string) bool {
	_, locked := r.FirstLockedDate(from, to)
	return locked
}

// FirstLockedDate returns the earliest locked day of [from, to].
func (r *LockRegistry) FirstLockedDate(from, to string) (string, bool) {
	if len(r.locked) == 0 {
		return "", false
	}
	fy, fm, fd, ok := ParseDate(from)
	if !ok {
		return "", false
	}
	ty, tm, td, ok := ParseDate(to)
	if !ok {
		return "", false
	}

	end := civil(ty, tm, td)
	for day := civil(fy, fm, fd); !day.After(end); day = day.AddDate(0, 0, 1) {
		date := day.Format(DateLayout)
		if r.IsDateLocked(date) {
			return date, true
		}
	}
	return "", false
}

// Toggle flips the membership of id and returns the resulting locked set.
func (r *LockRegistry) Toggle(id string) []string {
	if _, ok := r.locked[id]; ok {
		delete(r.locked, id)
	} else if id != "" {
		r.locked[id] = struct{}{}
	}
	return r.LockedIDs()
}

// LockedIDs returns the locked set in sorted order.
func (r *LockRegistry) LockedIDs() []string {
	ids := make([]string, 0, len(r.locked))
	for id := range r.locked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RangeDays counts the calendar days of [from, to]; zero when inverted or unparsable.
func RangeDays(from, to string) int {
	fy, fm, fd, ok := ParseDate(from)
	if !ok {
		return 0
	}
	ty, tm, td, ok := ParseDate(to)
	if !ok {
		return 0
	}
	start, end := civil(fy, fm, fd), civil(ty, tm, td)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
