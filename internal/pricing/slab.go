package pricing

import "github.com/mamadbah2/dairy/internal/domain/models"

// ResolveSlab returns the first slab whose [Min, Max] range holds value and
// whose window is active at date/shift. List order is priority order.
func ResolveSlab(value float64, slabs []models.Slab, date string, shift models.Shift) (models.Slab, bool) {
	for _, s := range slabs {
		if value < s.Min || value > s.Max {
			continue
		}
		if !IsWindowActive(date, shift, s.Window) {
			continue
		}
		return s, true
	}
	return models.Slab{}, false
}
