package pricing

import "github.com/mamadbah2/dairy/internal/domain/models"

// Category enumerates the incentive and deduction sections shared by rate
// configurations and farmers.
type Category int

const (
	CategoryFatIncentive Category = iota
	CategoryFatDeduction
	CategorySnfIncentive
	CategorySnfDeduction
	CategoryQtyIncentive
	CategoryExtra
	CategoryCartage
)

// Categories lists every category in evaluation order.
var Categories = []Category{
	CategoryFatIncentive,
	CategoryFatDeduction,
	CategorySnfIncentive,
	CategorySnfDeduction,
	CategoryQtyIncentive,
	CategoryExtra,
	CategoryCartage,
}

func (c Category) String() string {
	switch c {
	case CategoryFatIncentive:
		return "fatIncentive"
	case CategoryFatDeduction:
		return "fatDeduction"
	case CategorySnfIncentive:
		return "snfIncentive"
	case CategorySnfDeduction:
		return "snfDeduction"
	case CategoryQtyIncentive:
		return "qtyIncentive"
	case CategoryExtra:
		return "extra"
	case CategoryCartage:
		return "cartage"
	default:
		return "unknown"
	}
}

// Setting returns the flat setting of the category within in.
func (c Category) Setting(in models.Incentives) models.CategorySetting {
	switch c {
	case CategoryFatIncentive:
		return in.FatIncentive
	case CategoryFatDeduction:
		return in.FatDeduction
	case CategorySnfIncentive:
		return in.SnfIncentive
	case CategorySnfDeduction:
		return in.SnfDeduction
	case CategoryQtyIncentive:
		return in.QtyIncentive
	case CategoryExtra:
		return in.Extra
	case CategoryCartage:
		return in.Cartage
	default:
		return models.CategorySetting{}
	}
}

// Slabs returns the slab list of the category; extra and cartage have none.
func (c Category) Slabs(s models.SlabSet) []models.Slab {
	switch c {
	case CategoryFatIncentive:
		return s.FatIncentiveSlabs
	case CategoryFatDeduction:
		return s.FatDeductionSlabs
	case CategorySnfIncentive:
		return s.SnfIncentiveSlabs
	case CategorySnfDeduction:
		return s.SnfDeductionSlabs
	case CategoryQtyIncentive:
		return s.QtyIncentiveSlabs
	default:
		return nil
	}
}

// Source tells where an effective rate came from.
type Source string

const (
	SourceInert  Source = "inert"
	SourceConfig Source = "config"
	SourceFarmer Source = "farmer"
	SourceSlab   Source = "slab"
)

// Effective is the rate, method and threshold that apply to a category for
// one entry.
type Effective struct {
	Value     float64
	Method    models.Method
	Threshold float64
	Source    Source
}

var inert = Effective{Method: models.MethodKgFat, Source: SourceInert}

// ResolveEffective applies farmer > config > inert precedence. The farmer wins
// only when its window for the category is active and its rate is non-zero;
// the config wins whenever its window is active, even with a zero rate.
func ResolveEffective(c Category, cfg models.RateConfig, farmer *models.Farmer, date string, shift models.Shift) Effective {
	if farmer != nil {
		fs := c.Setting(farmer.Incentives)
		if fs.Rate != 0 && IsWindowActive(date, shift, fs.Window) {
			return Effective{Value: fs.Rate, Method: fs.Method, Threshold: fs.Threshold, Source: SourceFarmer}
		}
	}

	cs := c.Setting(cfg.Incentives)
	if IsWindowActive(date, shift, cs.Window) {
		return Effective{Value: cs.Rate, Method: cs.Method, Threshold: cs.Threshold, Source: SourceConfig}
	}
	return inert
}

// resolveWithSlab lets a matching slab from the configuration's list replace
// the flat resolution. Farmer slab lists are not consulted for categories.
func resolveWithSlab(c Category, cfg models.RateConfig, farmer *models.Farmer, date string, shift models.Shift, measured float64) (Effective, bool) {
	eff := ResolveEffective(c, cfg, farmer, date, shift)

	slab, ok := ResolveSlab(measured, c.Slabs(cfg.SlabSet), date, shift)
	if !ok {
		return eff, false
	}

	method := slab.Method
	if method == "" {
		method = eff.Method
	}
	return Effective{Value: slab.Rate, Method: method, Threshold: eff.Threshold, Source: SourceSlab}, true
}

// BonusSlabs returns the farmer's bonus slabs when present, otherwise the
// configuration's. The lists are never merged.
func BonusSlabs(cfg models.RateConfig, farmer *models.Farmer) []models.Slab {
	if farmer != nil && len(farmer.BonusSlabs) > 0 {
		return farmer.BonusSlabs
	}
	return cfg.BonusSlabs
}
