package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

func window(fromDate string, fromShift models.Shift, toDate string, toShift models.Shift) models.Window {
	return models.Window{FromDate: fromDate, FromShift: fromShift, ToDate: toDate, ToShift: toShift}
}

func TestShiftOrdinal(t *testing.T) {
	assert.Equal(t, 0, pricing.ShiftOrdinal("AM"))
	assert.Equal(t, 0, pricing.ShiftOrdinal("Morning"))
	assert.Equal(t, 0, pricing.ShiftOrdinal("am"))
	assert.Equal(t, 1, pricing.ShiftOrdinal("PM"))
	assert.Equal(t, 1, pricing.ShiftOrdinal("Evening"))
	assert.Equal(t, 1, pricing.ShiftOrdinal(""))
}

func TestIsWindowActive(t *testing.T) {
	w := window("2025-05-01", models.ShiftPM, "2025-05-15", models.ShiftAM)

	tests := []struct {
		name  string
		date  string
		shift models.Shift
		w     models.Window
		want  bool
	}{
		{"unbounded window is always active", "1999-01-01", models.ShiftAM, models.Window{}, true},
		{"missing to date is unrestricted", "1999-01-01", models.ShiftAM, models.Window{FromDate: "2025-05-01"}, true},
		{"lower bound inclusive on matching shift", "2025-05-01", models.ShiftPM, w, true},
		{"AM before PM lower bound is rejected", "2025-05-01", models.ShiftAM, w, false},
		{"upper bound inclusive on matching shift", "2025-05-15", models.ShiftAM, w, true},
		{"PM after AM upper bound is rejected", "2025-05-15", models.ShiftPM, w, false},
		{"inside window", "2025-05-08", models.ShiftPM, w, true},
		{"before window", "2025-04-30", models.ShiftPM, w, false},
		{"after window", "2025-05-16", models.ShiftAM, w, false},
		{"missing shifts cover whole days", "2025-05-01", models.ShiftAM, window("2025-05-01", "", "2025-05-01", ""), true},
		{"missing to shift includes evening", "2025-05-01", models.ShiftPM, window("2025-05-01", "", "2025-05-01", ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pricing.IsWindowActive(tt.date, tt.shift, tt.w))
		})
	}
}
