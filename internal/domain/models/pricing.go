package models

import (
	"encoding/json"
	"time"
)

// Shift identifies one of the two daily milk-collection sessions.
type Shift string

const (
	ShiftAM Shift = "AM"
	ShiftPM Shift = "PM"
)

// PurchaseMethod selects the valuation algorithm of a rate configuration.
type PurchaseMethod string

const (
	PurchaseFormula PurchaseMethod = "formula"
	PurchaseKgFat   PurchaseMethod = "kg_fat"
	PurchaseLiter   PurchaseMethod = "liter"
)

// Valid reports whether the purchase method is one of the supported algorithms.
func (m PurchaseMethod) Valid() bool {
	switch m {
	case PurchaseFormula, PurchaseKgFat, PurchaseLiter:
		return true
	}
	return false
}

// Method is the unit basis a per-unit rate is applied to.
type Method string

const (
	MethodKgFat Method = "kg_fat"
	MethodKgSnf Method = "kg_snf"
	MethodLiter Method = "liter"
	MethodShift Method = "shift"
)

// Window bounds a validity span by date (YYYY-MM-DD) and shift. A window
// missing either date is unrestricted.
type Window struct {
	FromDate  string `json:"fromDate,omitempty" bson:"fromDate,omitempty"`
	FromShift Shift  `json:"fromShift,omitempty" bson:"fromShift,omitempty"`
	ToDate    string `json:"toDate,omitempty" bson:"toDate,omitempty"`
	ToShift   Shift  `json:"toShift,omitempty" bson:"toShift,omitempty"`
}

// Bounded reports whether both window dates are configured.
func (w Window) Bounded() bool {
	return w.FromDate != "" && w.ToDate != ""
}

// CategorySetting is the flat rate of one incentive or deduction category.
type CategorySetting struct {
	Rate      float64 `json:"rate" bson:"rate"`
	Method    Method  `json:"method,omitempty" bson:"method,omitempty"`
	Threshold float64 `json:"threshold,omitempty" bson:"threshold,omitempty"`
	Window    `bson:",inline"`
}

// Incentives groups every category a rate configuration or a farmer can set.
type Incentives struct {
	FatIncentive CategorySetting `json:"fatIncentive" bson:"fatIncentive"`
	FatDeduction CategorySetting `json:"fatDeduction" bson:"fatDeduction"`
	SnfIncentive CategorySetting `json:"snfIncentive" bson:"snfIncentive"`
	SnfDeduction CategorySetting `json:"snfDeduction" bson:"snfDeduction"`
	QtyIncentive CategorySetting `json:"qtyIncentive" bson:"qtyIncentive"`
	Extra        CategorySetting `json:"extra" bson:"extra"`
	Cartage      CategorySetting `json:"cartage" bson:"cartage"`
}

// Slab is a range-bound rate that supersedes the flat category rate while the
// measured value lies in [Min, Max] and its window is active.
type Slab struct {
	Min    float64 `json:"min" bson:"min"`
	Max    float64 `json:"max" bson:"max"`
	Rate   float64 `json:"rate" bson:"rate"`
	Method Method  `json:"method,omitempty" bson:"method,omitempty"`
	Window `bson:",inline"`
}

// UnmarshalJSON also accepts the measurement-specific bound names used by
// spreadsheet exports (minFat/maxFat, minSnf/maxSnf, minQty/maxQty).
func (s *Slab) UnmarshalJSON(data []byte) error {
	type plain Slab
	aux := struct {
		*plain
		MinFat *float64 `json:"minFat"`
		MaxFat *float64 `json:"maxFat"`
		MinSnf *float64 `json:"minSnf"`
		MaxSnf *float64 `json:"maxSnf"`
		MinQty *float64 `json:"minQty"`
		MaxQty *float64 `json:"maxQty"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	for _, v := range []*float64{aux.MinFat, aux.MinSnf, aux.MinQty} {
		if v != nil {
			s.Min = *v
		}
	}
	for _, v := range []*float64{aux.MaxFat, aux.MaxSnf, aux.MaxQty} {
		if v != nil {
			s.Max = *v
		}
	}
	return nil
}

// SlabSet holds the slab lists of every slab-capable category.
type SlabSet struct {
	FatIncentiveSlabs []Slab `json:"fatIncentiveSlabs,omitempty" bson:"fatIncentiveSlabs,omitempty"`
	FatDeductionSlabs []Slab `json:"fatDeductionSlabs,omitempty" bson:"fatDeductionSlabs,omitempty"`
	SnfIncentiveSlabs []Slab `json:"snfIncentiveSlabs,omitempty" bson:"snfIncentiveSlabs,omitempty"`
	SnfDeductionSlabs []Slab `json:"snfDeductionSlabs,omitempty" bson:"snfDeductionSlabs,omitempty"`
	QtyIncentiveSlabs []Slab `json:"qtyIncentiveSlabs,omitempty" bson:"qtyIncentiveSlabs,omitempty"`
	BonusSlabs        []Slab `json:"bonusSlabs,omitempty" bson:"bonusSlabs,omitempty"`
}

// BaseRate is one row of the fat/SNF rate chart used by the liter purchase method.
type BaseRate struct {
	Fat  float64 `json:"fat" bson:"fat"`
	Snf  float64 `json:"snf" bson:"snf"`
	Rate float64 `json:"rate" bson:"rate"`
}

// RateConfig is a named, time-boxed pricing policy.
type RateConfig struct {
	ID                   string `json:"id" bson:"_id"`
	Name                 string `json:"name" bson:"name"`
	Window               `bson:",inline"`
	PurchaseMethod       PurchaseMethod `json:"purchaseMethod" bson:"purchaseMethod"`
	StandardRate         float64        `json:"standardRate" bson:"standardRate"`
	StandardFat          float64        `json:"standardFat" bson:"standardFat"`
	StandardSnf          float64        `json:"standardSnf" bson:"standardSnf"`
	Incentives           `bson:",inline"`
	SlabSet              `bson:",inline"`
	CartagePerLiter      float64    `json:"cartagePerLiter" bson:"cartagePerLiter"`
	FixedCartagePerShift float64    `json:"fixedCartagePerShift" bson:"fixedCartagePerShift"`
	BaseRates            []BaseRate `json:"baseRates,omitempty" bson:"baseRates,omitempty"`
	CreatedAt            time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Farmer is a milk supplier. Its incentive and slab sections mirror RateConfig
// and act as per-farmer overrides.
type Farmer struct {
	ID         string `json:"id" bson:"_id"`
	Code       string `json:"code" bson:"code"`
	Name       string `json:"name" bson:"name"`
	Phone      string `json:"phone,omitempty" bson:"phone,omitempty"`
	Village    string `json:"village,omitempty" bson:"village,omitempty"`
	Incentives `bson:",inline"`
	SlabSet    `bson:",inline"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// BillPeriod is a recurring day-of-month range. EndDay 31 means end of month.
type BillPeriod struct {
	ID       string `json:"id" bson:"_id"`
	Name     string `json:"name" bson:"name"`
	StartDay int    `json:"startDay" bson:"startDay"`
	EndDay   int    `json:"endDay" bson:"endDay"`
}
