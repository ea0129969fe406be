/*
Package pricing turns a raw milk collection entry into a payable valuation.

Everything here is a pure function of its arguments: the rate configurations,
the farmer record, the bill-period definitions and the locked-period set are
always passed in by the caller, never read from ambient state. The same
(entry, config, farmer) triple always yields the same valuation, which is what
makes bulk recalculation safe.

Components, leaf to root:
  - IsWindowActive: date+shift containment shared by every validity window
  - ResolvePeriod / LockRegistry: bill-period ids and the locked-period set
  - SelectConfig: the rate configuration applicable to a date and shift
  - ResolveSlab: range-bound overrides of flat category rates
  - ResolveEffective: farmer > config > inert precedence per category
  - Valuate: the three purchase-method algorithms
*/
package pricing

import (
	"strings"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// ShiftOrdinal orders the sessions of a day: 0 for the morning shift, 1 otherwise.
func ShiftOrdinal(shift models.Shift) int {
	s := strings.TrimSpace(string(shift))
	if strings.EqualFold(s, "AM") || strings.EqualFold(s, "Morning") {
		return 0
	}
	return 1
}

// IsWindowActive reports whether date/shift falls inside w, bounds inclusive.
// Dates compare lexically, which is sound for zero-padded YYYY-MM-DD values.
// A window missing either date is always active. A missing FromShift opens at
// the morning shift and a missing ToShift closes after the evening shift.
func IsWindowActive(date string, shift models.Shift, w models.Window) bool {
	if w.FromDate == "" || w.ToDate == "" {
		return true
	}
	if date < w.FromDate || date > w.ToDate {
		return false
	}

	fromShift, toShift := w.FromShift, w.ToShift
	if fromShift == "" {
		fromShift = models.ShiftAM
	}
	if toShift == "" {
		toShift = models.ShiftPM
	}

	if date == w.FromDate && ShiftOrdinal(shift) < ShiftOrdinal(fromShift) {
		return false
	}
	if date == w.ToDate && ShiftOrdinal(shift) > ShiftOrdinal(toShift) {
		return false
	}
	return true
}
