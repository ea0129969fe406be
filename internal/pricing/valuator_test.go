package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func entry(qtyKg, fat, snf float64) models.CollectionInput {
	return models.CollectionInput{
		Date:     "2025-06-10",
		Shift:    models.ShiftAM,
		FarmerID: "f1",
		QtyKg:    models.NewNumber(qtyKg),
		Fat:      models.NewNumber(fat),
		Snf:      models.NewNumber(snf),
	}
}

func withLiters(in models.CollectionInput, liters float64) models.CollectionInput {
	in.Qty = models.NewNumber(liters)
	return in
}

func kgFatConfig() models.RateConfig {
	cfg := models.RateConfig{
		ID:             "cfg-kgfat",
		PurchaseMethod: models.PurchaseKgFat,
		StandardRate:   30,
		StandardFat:    4.0,
		StandardSnf:    8.5,
	}
	cfg.FatIncentive = models.CategorySetting{Rate: 2, Method: models.MethodKgFat}
	return cfg
}

// =============================================================================
// KG-FAT METHOD
// =============================================================================

func TestValuate_KgFat_ReferenceScenario(t *testing.T) {
	// GIVEN: kg_fat config at 30/kg-fat with a 2/kg-fat fat incentive
	// WHEN: 100 kg at 5.0% fat, SNF at standard, is valuated
	// THEN: base 150 + incentive 10 = 160 over 97.09 liters

	v := pricing.Valuate(entry(100, 5.0, 8.5), nil, kgFatConfig())

	assert.Equal(t, 5.0, v.KgFat)
	assert.Equal(t, 8.5, v.KgSnf)
	assert.Equal(t, 97.09, v.Liters)
	assert.Equal(t, 150.0, v.MilkValue)
	assert.Equal(t, 10.0, v.FatIncentive)
	assert.Equal(t, 0.0, v.FatDeduction)
	assert.Equal(t, 160.0, v.Amount)
	assert.Equal(t, 1.65, v.Rate)
	assert.Equal(t, "cfg-kgfat", v.RateConfigID)
}

func TestValuate_KgFat_DeductionSideOnly(t *testing.T) {
	cfg := kgFatConfig()
	cfg.FatDeduction = models.CategorySetting{Rate: 1, Method: models.MethodKgFat}

	v := pricing.Valuate(entry(100, 3.5, 8.5), nil, cfg)

	assert.Equal(t, 105.0, v.MilkValue)
	assert.Equal(t, 0.0, v.FatIncentive, "a negative difference never pays the incentive")
	assert.Equal(t, 3.5, v.FatDeduction)
	assert.Equal(t, 101.5, v.Amount)
}

func TestValuate_KgFat_DifferenceBelowStepIsIgnored(t *testing.T) {
	cfg := kgFatConfig()
	cfg.FatDeduction = models.CategorySetting{Rate: 1, Method: models.MethodKgFat}

	v := pricing.Valuate(entry(100, 4.04, 8.5), nil, cfg)

	assert.Equal(t, 0.0, v.FatIncentive)
	assert.Equal(t, 0.0, v.FatDeduction)
}

func TestValuate_KgFat_AllComponents(t *testing.T) {
	cfg := models.RateConfig{
		PurchaseMethod:       models.PurchaseKgFat,
		StandardRate:         500,
		StandardFat:          4.0,
		StandardSnf:          8.5,
		CartagePerLiter:      0.2,
		FixedCartagePerShift: 5,
	}
	cfg.SnfDeduction = models.CategorySetting{Rate: 10, Method: models.MethodKgSnf}
	cfg.QtyIncentive = models.CategorySetting{Rate: 0.5, Method: models.MethodLiter, Threshold: 50}
	cfg.Extra = models.CategorySetting{Rate: 2}
	cfg.Cartage = models.CategorySetting{Rate: 15, Method: models.MethodShift}

	v := pricing.Valuate(entry(103, 4.0, 8.0), nil, cfg)

	assert.Equal(t, 100.0, v.Liters)
	assert.Equal(t, 4.12, v.KgFat)
	assert.Equal(t, 8.24, v.KgSnf)
	assert.Equal(t, 2060.0, v.MilkValue)
	assert.Equal(t, 82.4, v.SnfDeduction)
	assert.Equal(t, 50.0, v.QtyIncentiveAmount)
	assert.Equal(t, 8.24, v.ExtraRateAmount)
	assert.Equal(t, 40.0, v.CartageAmount, "shift cartage + per-liter + fixed")
	assert.Equal(t, 2075.84, v.Amount)
	assert.Equal(t, 20.76, v.Rate)
}

func TestValuate_KgFat_NegativeAmountClamped(t *testing.T) {
	cfg := kgFatConfig()
	cfg.StandardRate = 1
	cfg.FatDeduction = models.CategorySetting{Rate: 50, Method: models.MethodKgFat}

	v := pricing.Valuate(entry(100, 3.0, 8.5), nil, cfg)

	assert.Equal(t, 0.0, v.Amount)
	assert.Equal(t, 0.0, v.Rate)
	assert.Equal(t, 150.0, v.FatDeduction)
}

func TestValuate_KgFat_QuantityThreshold(t *testing.T) {
	cfg := kgFatConfig()
	cfg.QtyIncentive = models.CategorySetting{Rate: 1, Method: models.MethodLiter, Threshold: 150}

	below := pricing.Valuate(withLiters(entry(103, 4.0, 8.5), 100), nil, cfg)
	above := pricing.Valuate(withLiters(entry(206, 4.0, 8.5), 200), nil, cfg)

	assert.Equal(t, 0.0, below.QtyIncentiveAmount)
	assert.Equal(t, 200.0, above.QtyIncentiveAmount)
}

// =============================================================================
// SLAB AND OVERRIDE PRECEDENCE
// =============================================================================

func TestValuate_SlabOverridesActiveFlatRate(t *testing.T) {
	// GIVEN: an active, non-zero flat fat incentive of 2 and a 4.5-6.0 slab at 3
	// WHEN: fat is 5.0
	// THEN: the slab rate is used
	cfg := kgFatConfig()
	cfg.FatIncentiveSlabs = []models.Slab{{Min: 4.5, Max: 6.0, Rate: 3, Method: models.MethodKgFat}}

	v := pricing.Valuate(entry(100, 5.0, 8.5), nil, cfg)

	assert.Equal(t, 15.0, v.FatIncentive)
}

func TestValuate_SlabOverridesFarmerRate(t *testing.T) {
	cfg := kgFatConfig()
	cfg.FatIncentiveSlabs = []models.Slab{{Min: 4.5, Max: 6.0, Rate: 3, Method: models.MethodLiter}}
	farmer := &models.Farmer{ID: "f1"}
	farmer.FatIncentive = models.CategorySetting{Rate: 4, Method: models.MethodKgFat}

	v := pricing.Valuate(withLiters(entry(100, 5.0, 8.5), 100), farmer, cfg)

	assert.Equal(t, 300.0, v.FatIncentive, "slab rate and method both win")
}

func TestValuate_FarmerOverridePrecedence(t *testing.T) {
	cfg := kgFatConfig()
	farmer := &models.Farmer{ID: "f1"}
	farmer.FatIncentive = models.CategorySetting{Rate: 4, Method: models.MethodKgFat}

	v := pricing.Valuate(entry(100, 5.0, 8.5), farmer, cfg)

	assert.Equal(t, 20.0, v.FatIncentive)
	assert.Equal(t, 170.0, v.Amount)
}

func TestValuate_QuantitySlabBypassesThreshold(t *testing.T) {
	cfg := kgFatConfig()
	cfg.StandardRate = 100
	cfg.QtyIncentive = models.CategorySetting{Rate: 0, Threshold: 1000}
	cfg.QtyIncentiveSlabs = []models.Slab{{Min: 0, Max: 50, Rate: 1, Method: models.MethodLiter}}

	inSlab := pricing.Valuate(withLiters(entry(41.2, 4.0, 8.5), 40), nil, cfg)
	outOfSlab := pricing.Valuate(withLiters(entry(61.8, 4.0, 8.5), 60), nil, cfg)

	assert.Equal(t, 40.0, inSlab.QtyIncentiveAmount)
	assert.Equal(t, 204.8, inSlab.Amount)
	assert.Equal(t, 0.0, outOfSlab.QtyIncentiveAmount)
}

// =============================================================================
// FORMULA METHOD
// =============================================================================

func formulaConfig() models.RateConfig {
	cfg := models.RateConfig{
		ID:             "cfg-formula",
		PurchaseMethod: models.PurchaseFormula,
		StandardRate:   40,
		StandardFat:    4.0,
		StandardSnf:    8.5,
	}
	cfg.FatIncentive = models.CategorySetting{Rate: 0.5, Method: models.MethodLiter}
	return cfg
}

func TestValuate_Formula(t *testing.T) {
	v := pricing.Valuate(withLiters(entry(103, 4.5, 8.5), 100), nil, formulaConfig())

	assert.Equal(t, 4000.0, v.MilkValue)
	assert.Equal(t, 50.0, v.FatIncentive)
	assert.Equal(t, 40.5, v.Rate)
	assert.Equal(t, 4050.0, v.Amount)
}

func TestValuate_Formula_ComponentsSpreadPerLiter(t *testing.T) {
	// GIVEN: a kg_fat fat incentive and a kg_snf SNF deduction on a formula config
	// WHEN: 100 liters at fat 5.0 and SNF 8.0 are valuated
	// THEN: each component is priced on its basis and moves the rate by amount/liters
	cfg := formulaConfig()
	cfg.FatIncentive = models.CategorySetting{Rate: 2, Method: models.MethodKgFat}
	cfg.SnfDeduction = models.CategorySetting{Rate: 0.5, Method: models.MethodKgSnf}

	v := pricing.Valuate(withLiters(entry(103, 5.0, 8.0), 100), nil, cfg)

	assert.Equal(t, 5.15, v.KgFat)
	assert.Equal(t, 8.24, v.KgSnf)
	assert.Equal(t, 10.3, v.FatIncentive, "2 per kg-fat")
	assert.Equal(t, 4.12, v.SnfDeduction, "0.5 per kg-SNF")
	assert.Equal(t, 40.06, v.Rate, "40 + 10.30/100 - 4.12/100")
	assert.Equal(t, 4006.18, v.Amount)
}

func TestValuate_CartagePerLiterAppliedOnlyByKgFat(t *testing.T) {
	// GIVEN: the same per-liter and fixed cartage on a formula and a kg_fat config
	// WHEN: 100 liters are valuated under each
	// THEN: only kg_fat adds the per-liter cartage; both add the fixed cartage
	formula := formulaConfig()
	formula.CartagePerLiter = 1
	formula.FixedCartagePerShift = 10

	kgFat := kgFatConfig()
	kgFat.CartagePerLiter = 1
	kgFat.FixedCartagePerShift = 10

	in := withLiters(entry(103, 4.0, 8.5), 100)
	f := pricing.Valuate(in, nil, formula)
	k := pricing.Valuate(in, nil, kgFat)

	assert.Equal(t, 10.0, f.CartageAmount)
	assert.Equal(t, 4010.0, f.Amount)
	assert.Equal(t, 110.0, k.CartageAmount)
}

// =============================================================================
// LITER-CHART METHOD
// =============================================================================

func literConfig() models.RateConfig {
	cfg := models.RateConfig{
		PurchaseMethod: models.PurchaseLiter,
		StandardFat:    6.0,
		StandardSnf:    9.0,
		BaseRates: []models.BaseRate{
			{Fat: 4.4, Snf: 8.5, Rate: 41},
			{Fat: 4.5, Snf: 8.5, Rate: 42},
		},
	}
	cfg.FatIncentive = models.CategorySetting{Rate: 0.2, Method: models.MethodLiter}
	cfg.FatDeduction = models.CategorySetting{Rate: 0.1, Method: models.MethodLiter}
	return cfg
}

func TestValuate_LiterChart_AppliesBothSides(t *testing.T) {
	v := pricing.Valuate(withLiters(entry(103, 4.5, 8.5), 100), nil, literConfig())

	assert.Equal(t, 4200.0, v.MilkValue)
	assert.Equal(t, 20.0, v.FatIncentive)
	assert.Equal(t, 10.0, v.FatDeduction)
	assert.Equal(t, 42.1, v.Rate)
	assert.Equal(t, 4210.0, v.Amount)
}

func TestValuate_LiterChart_ComponentsSpreadPerLiter(t *testing.T) {
	cfg := literConfig()
	cfg.FatIncentive = models.CategorySetting{Rate: 0.2, Method: models.MethodKgFat}
	cfg.FatDeduction = models.CategorySetting{}
	cfg.SnfDeduction = models.CategorySetting{Rate: 0.5, Method: models.MethodKgSnf}

	v := pricing.Valuate(withLiters(entry(103, 4.5, 8.5), 100), nil, cfg)

	assert.Equal(t, 4200.0, v.MilkValue)
	assert.Equal(t, 0.93, v.FatIncentive, "0.2 * 4.635 kg-fat")
	assert.Equal(t, 4.38, v.SnfDeduction, "0.5 * 8.755 kg-SNF")
	assert.Equal(t, 41.97, v.Rate, "42 + 0.927/100 - 4.3775/100")
	assert.Equal(t, 4196.55, v.Amount)
}

func TestValuate_LiterChart_MatchesAtDisplayPrecision(t *testing.T) {
	// GIVEN: a chart row for fat 4.5 / SNF 8.5 and no components
	// WHEN: readings differ from the row below display precision, or at it
	// THEN: only the former price at the row
	cfg := literConfig()
	cfg.FatIncentive = models.CategorySetting{}
	cfg.FatDeduction = models.CategorySetting{}

	tests := []struct {
		name     string
		fat, snf float64
		rate     float64
	}{
		{"exact", 4.5, 8.5, 42},
		{"fat rounds to row", 4.54, 8.5, 42},
		{"snf rounds to row", 4.5, 8.504, 42},
		{"fat rounds away", 4.56, 8.5, 0},
		{"snf differs at display precision", 4.5, 8.51, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := pricing.Valuate(withLiters(entry(103, tt.fat, tt.snf), 100), nil, cfg)
			assert.Equal(t, tt.rate, v.Rate)
		})
	}
}

func TestValuate_LiterChart_MissingChartRow(t *testing.T) {
	cfg := literConfig()
	cfg.FatIncentive = models.CategorySetting{}
	cfg.FatDeduction = models.CategorySetting{}

	v := pricing.Valuate(withLiters(entry(103, 4.6, 8.5), 100), nil, cfg)

	assert.Equal(t, 0.0, v.MilkValue)
	assert.Equal(t, 0.0, v.Rate)
	assert.Equal(t, 0.0, v.Amount)
}

func TestValuate_LiterChart_RateFlooredAtZero(t *testing.T) {
	cfg := literConfig()
	cfg.FatIncentive = models.CategorySetting{}
	cfg.FatDeduction = models.CategorySetting{Rate: 50, Method: models.MethodLiter}

	v := pricing.Valuate(withLiters(entry(103, 4.5, 8.5), 100), nil, cfg)

	assert.Equal(t, 0.0, v.Rate)
	assert.Equal(t, 0.0, v.Amount)
}

// =============================================================================
// BONUS, NORMALIZATION AND DEGRADATION
// =============================================================================

func TestValuate_BonusTrackedSeparately(t *testing.T) {
	cfg := kgFatConfig()
	cfg.BonusSlabs = []models.Slab{{Min: 0, Max: 50, Rate: 1}, {Min: 50.01, Max: 1000, Rate: 2}}
	in := withLiters(entry(103, 5.0, 8.5), 100)

	v := pricing.Valuate(in, nil, cfg)
	assert.Equal(t, 200.0, v.BonusAmount)
	assert.Equal(t, 164.8, v.Amount, "bonus is not part of the amount")

	farmer := &models.Farmer{ID: "f1"}
	farmer.BonusSlabs = []models.Slab{{Min: 0, Max: 1000, Rate: 0.5}}
	v = pricing.Valuate(in, farmer, cfg)
	assert.Equal(t, 50.0, v.BonusAmount)
}

func TestValuate_GivenKgFatWins(t *testing.T) {
	in := entry(100, 5.0, 8.5)
	in.KgFat = models.NewNumber(6)
	in.KgSnf = models.NewNumber(9)

	v := pricing.Valuate(in, nil, kgFatConfig())

	assert.Equal(t, 6.0, v.KgFat)
	assert.Equal(t, 9.0, v.KgSnf)
	assert.Equal(t, 180.0, v.MilkValue)
}

func TestValuate_Rounding(t *testing.T) {
	v := pricing.Valuate(entry(33.3, 4.14, 8.456), nil, kgFatConfig())

	assert.Equal(t, 4.1, v.Fat)
	assert.Equal(t, 8.46, v.Snf)
	assert.Equal(t, 1.379, v.KgFat)
	assert.Equal(t, 2.816, v.KgSnf)
}

func TestValuate_DegradesWithoutMasterData(t *testing.T) {
	v := pricing.Valuate(entry(100, 4.5, 8.5), nil, models.RateConfig{})

	assert.Equal(t, 0.0, v.Amount)
	assert.Equal(t, 0.0, v.Rate)
	assert.Equal(t, 97.09, v.Liters)
	assert.Empty(t, v.RateConfigID)
}

func TestValuate_MissingNumbersCoerceToZero(t *testing.T) {
	in := models.CollectionInput{Date: "2025-06-10", Shift: models.ShiftPM}

	v := pricing.Valuate(in, nil, kgFatConfig())

	assert.Equal(t, models.Valuation{RateConfigID: "cfg-kgfat"}, v)
}

func TestValuate_IsPure(t *testing.T) {
	cfg := kgFatConfig()
	cfg.BonusSlabs = []models.Slab{{Min: 0, Max: 1000, Rate: 1}}
	cfg.FatIncentiveSlabs = []models.Slab{{Min: 4.5, Max: 6.0, Rate: 3}}
	farmer := &models.Farmer{ID: "f1"}
	farmer.SnfIncentive = models.CategorySetting{Rate: 1, Method: models.MethodKgSnf}
	in := entry(87.5, 5.3, 8.9)

	first := pricing.Valuate(in, farmer, cfg)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, pricing.Valuate(in, farmer, cfg))
	}
}
