package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// KgPerLiter converts collected kilograms to liters when no volume is given.
var KgPerLiter = decimal.RequireFromString("1.03")

var hundred = decimal.NewFromInt(100)

// measures are the normalized quantities of one entry.
type measures struct {
	kgs    decimal.Decimal
	liters decimal.Decimal
	fat    decimal.Decimal
	snf    decimal.Decimal
	kgFat  decimal.Decimal
	kgSnf  decimal.Decimal
}

func normalize(in models.CollectionInput) measures {
	m := measures{
		kgs: decimal.NewFromFloat(in.QtyKg.Value()),
		fat: decimal.NewFromFloat(in.Fat.Value()),
		snf: decimal.NewFromFloat(in.Snf.Value()),
	}

	if qty := in.Qty.Value(); qty > 0 {
		m.liters = decimal.NewFromFloat(qty)
	} else {
		m.liters = m.kgs.Div(KgPerLiter)
	}

	if in.KgFat != nil {
		m.kgFat = decimal.NewFromFloat(in.KgFat.Value())
	} else {
		m.kgFat = m.kgs.Mul(m.fat).Div(hundred)
	}
	if in.KgSnf != nil {
		m.kgSnf = decimal.NewFromFloat(in.KgSnf.Value())
	} else {
		m.kgSnf = m.kgs.Mul(m.snf).Div(hundred)
	}
	return m
}

// rates are the effective category rates for one entry.
type rates struct {
	fatInc, fatDed, snfInc, snfDed, qtyInc, extra, cartage Effective
	qtySlabFound                                           bool
}

func resolveRates(cfg models.RateConfig, farmer *models.Farmer, date string, shift models.Shift, m measures) rates {
	fat, _ := m.fat.Float64()
	snf, _ := m.snf.Float64()
	liters, _ := m.liters.Float64()

	var r rates
	r.fatInc, _ = resolveWithSlab(CategoryFatIncentive, cfg, farmer, date, shift, fat)
	r.fatDed, _ = resolveWithSlab(CategoryFatDeduction, cfg, farmer, date, shift, fat)
	r.snfInc, _ = resolveWithSlab(CategorySnfIncentive, cfg, farmer, date, shift, snf)
	r.snfDed, _ = resolveWithSlab(CategorySnfDeduction, cfg, farmer, date, shift, snf)
	r.qtyInc, r.qtySlabFound = resolveWithSlab(CategoryQtyIncentive, cfg, farmer, date, shift, liters)
	r.extra = ResolveEffective(CategoryExtra, cfg, farmer, date, shift)
	r.cartage = ResolveEffective(CategoryCartage, cfg, farmer, date, shift)
	return r
}

// ledger accumulates the monetary components of a valuation.
type ledger struct {
	rate      decimal.Decimal
	amount    decimal.Decimal
	milkValue decimal.Decimal
	fatInc    decimal.Decimal
	fatDed    decimal.Decimal
	snfInc    decimal.Decimal
	snfDed    decimal.Decimal
	qtyInc    decimal.Decimal
	extra     decimal.Decimal
	cartage   decimal.Decimal
}

// Valuate computes the derived fields of a collection entry under the
// configuration's purchase method. farmer may be nil and cfg may be the zero
// configuration; both degrade to zero or standard values instead of failing.
func Valuate(in models.CollectionInput, farmer *models.Farmer, cfg models.RateConfig) models.Valuation {
	m := normalize(in)
	r := resolveRates(cfg, farmer, in.Date, in.Shift, m)

	var l ledger
	switch cfg.PurchaseMethod {
	case models.PurchaseKgFat:
		l = valuateKgFat(cfg, r, m)
	case models.PurchaseLiter:
		l = valuateLiterChart(cfg, r, m)
		l = finalize(cfg, r, m, l)
	default:
		l = valuateFormula(cfg, r, m)
		l = finalize(cfg, r, m, l)
	}

	bonus := bonusAmount(cfg, farmer, in, m)

	return models.Valuation{
		Fat:                round(m.fat, 1),
		Snf:                round(m.snf, 2),
		Liters:             round(m.liters, 2),
		KgFat:              round(m.kgFat, 3),
		KgSnf:              round(m.kgSnf, 3),
		Rate:               round(l.rate, 2),
		Amount:             round(l.amount, 2),
		MilkValue:          round(l.milkValue, 2),
		FatIncentive:       round(l.fatInc, 2),
		FatDeduction:       round(l.fatDed, 2),
		SnfIncentive:       round(l.snfInc, 2),
		SnfDeduction:       round(l.snfDed, 2),
		ExtraRateAmount:    round(l.extra, 2),
		CartageAmount:      round(l.cartage, 2),
		QtyIncentiveAmount: round(l.qtyInc, 2),
		BonusAmount:        round(bonus, 2),
		RateConfigID:       cfg.ID,
	}
}

// valuateFormula prices liters at the standard rate and moves the rate up or
// down by the fat and SNF component amounts spread over the liters.
func valuateFormula(cfg models.RateConfig, r rates, m measures) ledger {
	standard := decimal.NewFromFloat(cfg.StandardRate)

	l := ledger{milkValue: m.liters.Mul(standard)}
	l.fatInc, l.fatDed = signedComponents(m.fat, cfg.StandardFat, r.fatInc, r.fatDed, m.kgFat, m.liters)
	l.snfInc, l.snfDed = signedComponents(m.snf, cfg.StandardSnf, r.snfInc, r.snfDed, m.kgSnf, m.liters)

	l.rate = standard.
		Add(perLiter(l.fatInc, m.liters)).
		Sub(perLiter(l.fatDed, m.liters)).
		Add(perLiter(l.snfInc, m.liters)).
		Sub(perLiter(l.snfDed, m.liters))
	return l
}

// valuateKgFat prices kilograms of fat and finalizes the amount itself.
func valuateKgFat(cfg models.RateConfig, r rates, m measures) ledger {
	standard := decimal.NewFromFloat(cfg.StandardRate)

	l := ledger{milkValue: m.kgFat.Mul(standard)}
	l.fatInc, l.fatDed = signedComponents(m.fat, cfg.StandardFat, r.fatInc, r.fatDed, m.kgFat, m.liters)
	l.snfInc, l.snfDed = signedComponents(m.snf, cfg.StandardSnf, r.snfInc, r.snfDed, m.kgSnf, m.liters)
	l.qtyInc = qtyIncentive(r, m)

	l.amount = l.milkValue.
		Add(l.fatInc).
		Add(l.snfInc).
		Add(l.qtyInc).
		Sub(l.fatDed).
		Sub(l.snfDed)

	if r.extra.Value > 0 {
		l.extra = decimal.NewFromFloat(r.extra.Value).Mul(m.kgFat)
		l.amount = l.amount.Add(l.extra)
	}
	if r.cartage.Value > 0 {
		l.cartage = cartageAmount(r.cartage, m)
		l.amount = l.amount.Add(l.cartage)
	}
	if m.liters.IsPositive() {
		global := decimal.NewFromFloat(cfg.CartagePerLiter).Mul(m.liters).
			Add(decimal.NewFromFloat(cfg.FixedCartagePerShift))
		l.cartage = l.cartage.Add(global)
		l.amount = l.amount.Add(global)
	}

	l.rate = perLiter(l.amount, m.liters)
	if l.amount.IsNegative() {
		l.amount = decimal.Zero
		l.rate = decimal.Zero
	}
	return l
}

// valuateLiterChart prices liters at the chart rate for the exact fat/SNF
// pair. Every fat and SNF component applies regardless of the standards.
func valuateLiterChart(cfg models.RateConfig, r rates, m measures) ledger {
	chart := chartRate(cfg.BaseRates, m.fat, m.snf)

	l := ledger{milkValue: m.liters.Mul(chart)}
	l.fatInc = component(r.fatInc, m.kgFat, m.liters)
	l.fatDed = component(r.fatDed, m.kgFat, m.liters)
	l.snfInc = component(r.snfInc, m.kgSnf, m.liters)
	l.snfDed = component(r.snfDed, m.kgSnf, m.liters)

	l.rate = chart.
		Add(perLiter(l.fatInc, m.liters)).
		Sub(perLiter(l.fatDed, m.liters)).
		Add(perLiter(l.snfInc, m.liters)).
		Sub(perLiter(l.snfDed, m.liters))
	return l
}

// finalize is the post-processing shared by the formula and liter-chart
// methods. Unlike the kg-fat method it does not add CartagePerLiter.
func finalize(cfg models.RateConfig, r rates, m measures, l ledger) ledger {
	l.qtyInc = qtyIncentive(r, m)

	if l.rate.IsNegative() {
		l.rate = decimal.Zero
	}
	l.amount = m.liters.Mul(l.rate).Add(l.qtyInc)

	if r.extra.Value > 0 {
		l.extra = decimal.NewFromFloat(r.extra.Value).Mul(m.kgFat)
		l.amount = l.amount.Add(l.extra)
		l.rate = perLiter(l.amount, m.liters)
	}
	if r.cartage.Value > 0 {
		l.cartage = cartageAmount(r.cartage, m)
		l.amount = l.amount.Add(l.cartage)
		l.rate = perLiter(l.amount, m.liters)
	}
	if m.liters.IsPositive() {
		fixed := decimal.NewFromFloat(cfg.FixedCartagePerShift)
		l.cartage = l.cartage.Add(fixed)
		l.amount = l.amount.Add(fixed)
		l.rate = perLiter(l.amount, m.liters)
	}
	return l
}

// signedComponents applies either the incentive or the deduction, chosen by
// the sign of measured-standard rounded to 0.1. A zero difference applies neither.
func signedComponents(measured decimal.Decimal, standard float64, inc, ded Effective, basis, liters decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	diff := measured.Sub(decimal.NewFromFloat(standard)).Round(1)
	switch diff.Sign() {
	case 1:
		return component(inc, basis, liters), decimal.Zero
	case -1:
		return decimal.Zero, component(ded, basis, liters)
	default:
		return decimal.Zero, decimal.Zero
	}
}

// component is value*liters for the liter method, value*basis otherwise,
// basis being kg-fat for fat categories and kg-SNF for SNF categories.
func component(e Effective, basis, liters decimal.Decimal) decimal.Decimal {
	v := decimal.NewFromFloat(e.Value)
	if e.Method == models.MethodLiter {
		return v.Mul(liters)
	}
	return v.Mul(basis)
}

// qtyIncentive applies when a quantity slab matched or liters exceed the
// threshold.
func qtyIncentive(r rates, m measures) decimal.Decimal {
	if !r.qtySlabFound && !m.liters.GreaterThan(decimal.NewFromFloat(r.qtyInc.Threshold)) {
		return decimal.Zero
	}
	v := decimal.NewFromFloat(r.qtyInc.Value)
	if r.qtyInc.Method == models.MethodKgFat {
		return v.Mul(m.kgFat)
	}
	return v.Mul(m.liters)
}

func cartageAmount(e Effective, m measures) decimal.Decimal {
	v := decimal.NewFromFloat(e.Value)
	switch e.Method {
	case models.MethodShift:
		return v
	case models.MethodLiter:
		return v.Mul(m.liters)
	default:
		return v.Mul(m.kgFat)
	}
}

// bonusAmount prices liters at the matching bonus slab. Bonus is paid
// separately and never folded into the amount.
func bonusAmount(cfg models.RateConfig, farmer *models.Farmer, in models.CollectionInput, m measures) decimal.Decimal {
	liters, _ := m.liters.Float64()
	slab, ok := ResolveSlab(liters, BonusSlabs(cfg, farmer), in.Date, in.Shift)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(slab.Rate).Mul(m.liters)
}

// chartRate looks up the fat/SNF pair at display precision: fat to 1 decimal,
// SNF to 2. A reading that rounds to no row prices at zero.
func chartRate(chart []models.BaseRate, fat, snf decimal.Decimal) decimal.Decimal {
	fat, snf = fat.Round(1), snf.Round(2)
	for _, row := range chart {
		if decimal.NewFromFloat(row.Fat).Round(1).Equal(fat) && decimal.NewFromFloat(row.Snf).Round(2).Equal(snf) {
			return decimal.NewFromFloat(row.Rate)
		}
	}
	return decimal.Zero
}

func perLiter(amount, liters decimal.Decimal) decimal.Decimal {
	if !liters.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(liters)
}

func round(d decimal.Decimal, places int32) float64 {
	f, _ := d.Round(places).Float64()
	return f
}
