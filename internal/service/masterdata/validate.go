package masterdata

import (
	"fmt"
	"math"
	"slices"
	"strings"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

// normalizeWindow canonicalizes the dates of w and checks its bounds.
func normalizeWindow(field string, w *models.Window) error {
	for _, d := range []struct {
		name  string
		value *string
	}{{"fromDate", &w.FromDate}, {"toDate", &w.ToDate}} {
		if *d.value == "" {
			continue
		}
		norm, ok := pricing.NormalizeDate(*d.value)
		if !ok {
			return derrors.Invalid(field+"."+d.name, "must be a valid date")
		}
		*d.value = norm
	}

	for _, sh := range []struct {
		name  string
		value *models.Shift
	}{{"fromShift", &w.FromShift}, {"toShift", &w.ToShift}} {
		if *sh.value == "" {
			continue
		}
		shift, ok := NormalizeShift(*sh.value)
		if !ok {
			return derrors.Invalid(field+"."+sh.name, "must be AM or PM")
		}
		*sh.value = shift
	}

	if w.Bounded() && w.FromDate > w.ToDate {
		return derrors.Invalid(field+".toDate", "must not be before fromDate")
	}
	return nil
}

// NormalizeShift maps the accepted spellings of a shift to AM or PM.
func NormalizeShift(shift models.Shift) (models.Shift, bool) {
	switch strings.ToUpper(strings.TrimSpace(string(shift))) {
	case "AM", "MORNING":
		return models.ShiftAM, true
	case "PM", "EVENING":
		return models.ShiftPM, true
	}
	return "", false
}

func validMethod(m models.Method) bool {
	switch m {
	case "", models.MethodKgFat, models.MethodKgSnf, models.MethodLiter, models.MethodShift:
		return true
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normalizeSections validates and canonicalizes every category setting and
// slab list of an override or configuration.
func normalizeSections(in *models.Incentives, slabs *models.SlabSet) error {
	for _, c := range pricing.Categories {
		setting := categorySetting(in, c)
		field := c.String()
		if !finite(setting.Rate) || !finite(setting.Threshold) {
			return derrors.Invalid(field+".rate", "must be a finite number")
		}
		if !validMethod(setting.Method) {
			return derrors.Invalid(field+".method", fmt.Sprintf("unknown method %q", setting.Method))
		}
		if err := normalizeWindow(field, &setting.Window); err != nil {
			return err
		}
	}

	for name, list := range slabLists(slabs) {
		for i := range *list {
			slab := &(*list)[i]
			field := fmt.Sprintf("%s[%d]", name, i)
			if !finite(slab.Min) || !finite(slab.Max) || !finite(slab.Rate) {
				return derrors.Invalid(field, "bounds and rate must be finite numbers")
			}
			if slab.Min > slab.Max {
				return derrors.Invalid(field+".max", "must not be below min")
			}
			if !validMethod(slab.Method) {
				return derrors.Invalid(field+".method", fmt.Sprintf("unknown method %q", slab.Method))
			}
			if err := normalizeWindow(field, &slab.Window); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateRateConfig(cfg *models.RateConfig) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return derrors.Invalid("name", "is required")
	}
	if cfg.PurchaseMethod == "" {
		cfg.PurchaseMethod = models.PurchaseFormula
	}
	if !cfg.PurchaseMethod.Valid() {
		return derrors.Invalid("purchaseMethod", "must be formula, kg_fat or liter")
	}
	for name, v := range map[string]float64{
		"standardRate":         cfg.StandardRate,
		"standardFat":          cfg.StandardFat,
		"standardSnf":          cfg.StandardSnf,
		"cartagePerLiter":      cfg.CartagePerLiter,
		"fixedCartagePerShift": cfg.FixedCartagePerShift,
	} {
		if !finite(v) {
			return derrors.Invalid(name, "must be a finite number")
		}
	}
	if err := normalizeWindow("window", &cfg.Window); err != nil {
		return err
	}
	return normalizeSections(&cfg.Incentives, &cfg.SlabSet)
}

func validateFarmer(f *models.Farmer) error {
	f.Name = strings.TrimSpace(f.Name)
	f.Code = strings.TrimSpace(f.Code)
	if f.Name == "" {
		return derrors.Invalid("name", "is required")
	}
	return normalizeSections(&f.Incentives, &f.SlabSet)
}

func categorySetting(in *models.Incentives, c pricing.Category) *models.CategorySetting {
	switch c {
	case pricing.CategoryFatIncentive:
		return &in.FatIncentive
	case pricing.CategoryFatDeduction:
		return &in.FatDeduction
	case pricing.CategorySnfIncentive:
		return &in.SnfIncentive
	case pricing.CategorySnfDeduction:
		return &in.SnfDeduction
	case pricing.CategoryQtyIncentive:
		return &in.QtyIncentive
	case pricing.CategoryExtra:
		return &in.Extra
	default:
		return &in.Cartage
	}
}

func slabLists(s *models.SlabSet) map[string]*[]models.Slab {
	return map[string]*[]models.Slab{
		"fatIncentiveSlabs": &s.FatIncentiveSlabs,
		"fatDeductionSlabs": &s.FatDeductionSlabs,
		"snfIncentiveSlabs": &s.SnfIncentiveSlabs,
		"snfDeductionSlabs": &s.SnfDeductionSlabs,
		"qtyIncentiveSlabs": &s.QtyIncentiveSlabs,
		"bonusSlabs":        &s.BonusSlabs,
	}
}

// sectionWindows lists the windows of every category setting and slab.
func sectionWindows(in models.Incentives, slabs models.SlabSet) []models.Window {
	var windows []models.Window
	for _, c := range pricing.Categories {
		windows = append(windows, c.Setting(in).Window)
	}
	for _, list := range slabLists(&slabs) {
		for _, slab := range *list {
			windows = append(windows, slab.Window)
		}
	}
	return windows
}

// changedSectionWindows lists the old and new windows of every category
// setting or slab list that differs between the two versions.
func changedSectionWindows(oldIn, newIn models.Incentives, oldSlabs, newSlabs models.SlabSet) []models.Window {
	var windows []models.Window
	for _, c := range pricing.Categories {
		o, n := c.Setting(oldIn), c.Setting(newIn)
		if o != n {
			windows = append(windows, o.Window, n.Window)
		}
	}

	oldLists, newLists := slabLists(&oldSlabs), slabLists(&newSlabs)
	for name, o := range oldLists {
		n := newLists[name]
		if slices.Equal(*o, *n) {
			continue
		}
		for _, slab := range *o {
			windows = append(windows, slab.Window)
		}
		for _, slab := range *n {
			windows = append(windows, slab.Window)
		}
	}
	return windows
}

// pricingChanged reports whether any top-level field that feeds valuation differs.
func pricingChanged(o, n models.RateConfig) bool {
	return o.Window != n.Window ||
		o.PurchaseMethod != n.PurchaseMethod ||
		o.StandardRate != n.StandardRate ||
		o.StandardFat != n.StandardFat ||
		o.StandardSnf != n.StandardSnf ||
		o.CartagePerLiter != n.CartagePerLiter ||
		o.FixedCartagePerShift != n.FixedCartagePerShift ||
		!slices.Equal(o.BaseRates, n.BaseRates)
}
