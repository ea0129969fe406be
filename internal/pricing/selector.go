package pricing

import "github.com/mamadbah2/dairy/internal/domain/models"

// SelectConfig picks the rate configuration applicable to date/shift.
//
// Configurations with a dated window are tried in input order and the first
// active one wins; overlapping windows are not detected here. When none
// matches, the first configuration without a FromDate acts as the default.
// The boolean is false when nothing applies, in which case the zero
// configuration is returned and every rate evaluates to zero.
func SelectConfig(date string, shift models.Shift, configs []models.RateConfig) (models.RateConfig, bool) {
	for _, c := range configs {
		if c.FromDate != "" && IsWindowActive(date, shift, c.Window) {
			return c, true
		}
	}
	for _, c := range configs {
		if c.FromDate == "" {
			return c, true
		}
	}
	return models.RateConfig{}, false
}
