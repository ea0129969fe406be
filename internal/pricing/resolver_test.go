package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
)

// =============================================================================
// RATE CONFIG SELECTION
// =============================================================================

func TestSelectConfig_MatchesWindow(t *testing.T) {
	configs := []models.RateConfig{
		{ID: "may", Window: window("2025-05-01", models.ShiftAM, "2025-05-31", models.ShiftPM)},
		{ID: "june", Window: window("2025-06-01", models.ShiftAM, "2025-06-30", models.ShiftPM)},
	}

	cfg, ok := pricing.SelectConfig("2025-06-10", models.ShiftAM, configs)
	require.True(t, ok)
	assert.Equal(t, "june", cfg.ID)
}

func TestSelectConfig_ShiftBoundary(t *testing.T) {
	configs := []models.RateConfig{
		{ID: "old", Window: window("2025-05-01", models.ShiftAM, "2025-06-01", models.ShiftAM)},
		{ID: "new", Window: window("2025-06-01", models.ShiftPM, "2025-06-30", models.ShiftPM)},
	}

	am, _ := pricing.SelectConfig("2025-06-01", models.ShiftAM, configs)
	pm, _ := pricing.SelectConfig("2025-06-01", models.ShiftPM, configs)
	assert.Equal(t, "old", am.ID)
	assert.Equal(t, "new", pm.ID)
}

func TestSelectConfig_OverlapFirstMatchWins(t *testing.T) {
	// GIVEN: two configurations whose windows overlap on 2025-06-10
	// WHEN: selecting for that date
	// THEN: the one listed first is returned
	configs := []models.RateConfig{
		{ID: "first", Window: window("2025-06-01", models.ShiftAM, "2025-06-30", models.ShiftPM)},
		{ID: "second", Window: window("2025-06-05", models.ShiftAM, "2025-06-20", models.ShiftPM)},
	}

	cfg, ok := pricing.SelectConfig("2025-06-10", models.ShiftPM, configs)
	require.True(t, ok)
	assert.Equal(t, "first", cfg.ID)
}

func TestSelectConfig_FallsBackToUndatedConfig(t *testing.T) {
	configs := []models.RateConfig{
		{ID: "may", Window: window("2025-05-01", models.ShiftAM, "2025-05-31", models.ShiftPM)},
		{ID: "default"},
		{ID: "other-default"},
	}

	cfg, ok := pricing.SelectConfig("2025-07-01", models.ShiftAM, configs)
	require.True(t, ok)
	assert.Equal(t, "default", cfg.ID)
}

func TestSelectConfig_NothingApplies(t *testing.T) {
	configs := []models.RateConfig{
		{ID: "may", Window: window("2025-05-01", models.ShiftAM, "2025-05-31", models.ShiftPM)},
	}

	cfg, ok := pricing.SelectConfig("2025-07-01", models.ShiftAM, configs)
	assert.False(t, ok)
	assert.Equal(t, models.RateConfig{}, cfg)
}

// =============================================================================
// SLABS
// =============================================================================

func TestResolveSlab(t *testing.T) {
	slabs := []models.Slab{
		{Min: 3.0, Max: 4.4, Rate: 1},
		{Min: 4.5, Max: 6.0, Rate: 3, Method: models.MethodKgFat},
		{Min: 5.0, Max: 7.0, Rate: 9},
	}

	slab, ok := pricing.ResolveSlab(5.0, slabs, "2025-06-10", models.ShiftAM)
	require.True(t, ok)
	assert.Equal(t, 3.0, slab.Rate, "first listed slab wins on overlap")

	slab, ok = pricing.ResolveSlab(6.0, slabs, "2025-06-10", models.ShiftAM)
	require.True(t, ok)
	assert.Equal(t, 3.0, slab.Rate, "max bound is inclusive")

	_, ok = pricing.ResolveSlab(2.9, slabs, "2025-06-10", models.ShiftAM)
	assert.False(t, ok)
}

func TestResolveSlab_InactiveWindowSkipped(t *testing.T) {
	slabs := []models.Slab{
		{Min: 4.5, Max: 6.0, Rate: 3, Window: window("2025-01-01", models.ShiftAM, "2025-01-31", models.ShiftPM)},
		{Min: 4.5, Max: 6.0, Rate: 2},
	}

	slab, ok := pricing.ResolveSlab(5.0, slabs, "2025-06-10", models.ShiftAM)
	require.True(t, ok)
	assert.Equal(t, 2.0, slab.Rate)
}

// =============================================================================
// OVERRIDE PRECEDENCE
// =============================================================================

func TestResolveEffective_FarmerOverridesConfig(t *testing.T) {
	cfg := models.RateConfig{}
	cfg.FatIncentive = models.CategorySetting{Rate: 2, Method: models.MethodKgFat}
	farmer := &models.Farmer{ID: "f1"}
	farmer.FatIncentive = models.CategorySetting{Rate: 5, Method: models.MethodLiter, Threshold: 1}

	eff := pricing.ResolveEffective(pricing.CategoryFatIncentive, cfg, farmer, "2025-06-10", models.ShiftAM)
	assert.Equal(t, pricing.SourceFarmer, eff.Source)
	assert.Equal(t, 5.0, eff.Value)
	assert.Equal(t, models.MethodLiter, eff.Method)
	assert.Equal(t, 1.0, eff.Threshold)
}

func TestResolveEffective_ZeroFarmerRateFallsThrough(t *testing.T) {
	cfg := models.RateConfig{}
	cfg.SnfDeduction = models.CategorySetting{Rate: 1.5, Method: models.MethodKgSnf}
	farmer := &models.Farmer{ID: "f1"}
	farmer.SnfDeduction = models.CategorySetting{Rate: 0, Method: models.MethodLiter}

	eff := pricing.ResolveEffective(pricing.CategorySnfDeduction, cfg, farmer, "2025-06-10", models.ShiftAM)
	assert.Equal(t, pricing.SourceConfig, eff.Source)
	assert.Equal(t, 1.5, eff.Value)
}

func TestResolveEffective_ExpiredFarmerWindowFallsThrough(t *testing.T) {
	cfg := models.RateConfig{}
	cfg.Extra = models.CategorySetting{Rate: 1}
	farmer := &models.Farmer{ID: "f1"}
	farmer.Extra = models.CategorySetting{Rate: 4, Window: window("2025-01-01", models.ShiftAM, "2025-01-31", models.ShiftPM)}

	eff := pricing.ResolveEffective(pricing.CategoryExtra, cfg, farmer, "2025-06-10", models.ShiftAM)
	assert.Equal(t, pricing.SourceConfig, eff.Source)
	assert.Equal(t, 1.0, eff.Value)
}

func TestResolveEffective_InertWhenNothingActive(t *testing.T) {
	cfg := models.RateConfig{}
	cfg.QtyIncentive = models.CategorySetting{Rate: 1, Threshold: 50, Window: window("2025-01-01", models.ShiftAM, "2025-01-31", models.ShiftPM)}

	eff := pricing.ResolveEffective(pricing.CategoryQtyIncentive, cfg, nil, "2025-06-10", models.ShiftAM)
	assert.Equal(t, pricing.Effective{Method: models.MethodKgFat, Source: pricing.SourceInert}, eff)
}

func TestCategoryAccessorsCoverEveryCategory(t *testing.T) {
	in := models.Incentives{
		FatIncentive: models.CategorySetting{Rate: 1},
		FatDeduction: models.CategorySetting{Rate: 2},
		SnfIncentive: models.CategorySetting{Rate: 3},
		SnfDeduction: models.CategorySetting{Rate: 4},
		QtyIncentive: models.CategorySetting{Rate: 5},
		Extra:        models.CategorySetting{Rate: 6},
		Cartage:      models.CategorySetting{Rate: 7},
	}

	for i, c := range pricing.Categories {
		assert.Equal(t, float64(i+1), c.Setting(in).Rate, c.String())
	}
	assert.Nil(t, pricing.CategoryExtra.Slabs(models.SlabSet{}))
}

func TestBonusSlabs_FarmerListReplacesConfigList(t *testing.T) {
	cfg := models.RateConfig{}
	cfg.BonusSlabs = []models.Slab{{Min: 0, Max: 100, Rate: 1}, {Min: 100, Max: 1000, Rate: 2}}
	farmer := &models.Farmer{}
	farmer.BonusSlabs = []models.Slab{{Min: 50, Max: 60, Rate: 9}}

	assert.Equal(t, farmer.BonusSlabs, pricing.BonusSlabs(cfg, farmer))
	assert.Equal(t, cfg.BonusSlabs, pricing.BonusSlabs(cfg, &models.Farmer{}))
	assert.Equal(t, cfg.BonusSlabs, pricing.BonusSlabs(cfg, nil))
}
