package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// DateLayout is the canonical collection date format.
const DateLayout = "2006-01-02"

var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate splits a YYYY-MM-DD string into its civil parts without any time
// zone conversion, falling back to a list of common layouts. Days past the end
// of the month are rejected rather than rolled into the next month.
func ParseDate(value string) (year int, month time.Month, day int, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, 0, false
	}

	if parts := strings.Split(value, "-"); len(parts) == 3 && len(parts[0]) == 4 {
		y, errY := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		d, errD := strconv.Atoi(parts[2])
		if errY == nil && errM == nil && errD == nil && m >= 1 && m <= 12 {
			if d < 1 || d > lastDayOfMonth(y, time.Month(m)) {
				return 0, 0, 0, false
			}
			return y, time.Month(m), d, true
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Year(), t.Month(), t.Day(), true
		}
	}
	return 0, 0, 0, false
}

// NormalizeDate rewrites any accepted date representation as YYYY-MM-DD.
func NormalizeDate(value string) (string, bool) {
	y, m, d, ok := ParseDate(value)
	if !ok {
		return "", false
	}
	return civil(y, m, d).Format(DateLayout), true
}

// ResolvePeriod maps a date to "{monthIndex}-{year}-{periodID}", monthIndex
// being zero based. The first definition whose day range holds the date wins.
// It returns "" when the date is unparsable or no definition matches.
func ResolvePeriod(date string, periods []models.BillPeriod) string {
	p, year, month, ok := matchPeriod(date, periods)
	if !ok {
		return ""
	}
	return PeriodID(year, month, p.ID)
}

// PeriodID formats a bill-period id.
func PeriodID(year int, month time.Month, definitionID string) string {
	return fmt.Sprintf("%d-%d-%s", int(month)-1, year, definitionID)
}

// PeriodBounds returns the id and the first and last calendar day of the bill
// period containing date.
func PeriodBounds(date string, periods []models.BillPeriod) (id, from, to string, ok bool) {
	p, year, month, ok := matchPeriod(date, periods)
	if !ok {
		return "", "", "", false
	}

	last := lastDayOfMonth(year, month)
	end := p.EndDay
	if end == 31 || end > last {
		end = last
	}
	start := p.StartDay
	if start < 1 {
		start = 1
	}

	return PeriodID(year, month, p.ID),
		civil(year, month, start).Format(DateLayout),
		civil(year, month, end).Format(DateLayout),
		true
}

func matchPeriod(date string, periods []models.BillPeriod) (models.BillPeriod, int, time.Month, bool) {
	if len(periods) == 0 {
		return models.BillPeriod{}, 0, 0, false
	}
	year, month, day, ok := ParseDate(date)
	if !ok {
		return models.BillPeriod{}, 0, 0, false
	}

	for _, p := range periods {
		if day >= p.StartDay && (p.EndDay == 31 || day <= p.EndDay) {
			return p, year, month, true
		}
	}
	return models.BillPeriod{}, 0, 0, false
}

func civil(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return civil(year, month+1, 1).AddDate(0, 0, -1).Day()
}
