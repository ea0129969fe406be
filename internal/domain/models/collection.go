package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number is a lenient numeric field: JSON numbers, numeric strings and null are
// accepted, anything unparsable becomes zero.
type Number float64

// UnmarshalJSON never fails on malformed numeric content.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		*n = Number(ParseNumber(s))
		return nil
	}
	*n = Number(ParseNumber(string(data)))
	return nil
}

// NewNumber returns a pointer to v, convenient for optional input fields.
func NewNumber(v float64) *Number {
	n := Number(v)
	return &n
}

// Value returns the float value, treating nil, NaN and infinities as zero.
func (n *Number) Value() float64 {
	if n == nil {
		return 0
	}
	v := float64(*n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseNumber converts spreadsheet or form content to a float, defaulting to zero.
func ParseNumber(value interface{}) float64 {
	var str string
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		str = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return float64(v)
	case string:
		str = v
	default:
		str = fmt.Sprint(v)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CollectionInput is the raw procurement entry as entered or imported. It is
// also used as a partial update, where nil fields keep their stored value.
type CollectionInput struct {
	Date     string  `json:"date"`
	Shift    Shift   `json:"shift"`
	FarmerID string  `json:"farmerId"`
	QtyKg    *Number `json:"qtyKg,omitempty"`
	Qty      *Number `json:"qty,omitempty"`
	Fat      *Number `json:"fat,omitempty"`
	Snf      *Number `json:"snf,omitempty"`
	CLR      *Number `json:"clr,omitempty"`
	KgFat    *Number `json:"kgFat,omitempty"`
	KgSnf    *Number `json:"kgSnf,omitempty"`
}

// Valuation holds the fields derived by the valuation engine. They are never
// user supplied.
type Valuation struct {
	Fat                float64 `json:"fat" bson:"fat"`
	Snf                float64 `json:"snf" bson:"snf"`
	Liters             float64 `json:"liters" bson:"liters"`
	KgFat              float64 `json:"kgFat" bson:"kgFat"`
	KgSnf              float64 `json:"kgSnf" bson:"kgSnf"`
	Rate               float64 `json:"rate" bson:"rate"`
	Amount             float64 `json:"amount" bson:"amount"`
	MilkValue          float64 `json:"milkValue" bson:"milkValue"`
	FatIncentive       float64 `json:"fatIncentive" bson:"fatIncentive"`
	FatDeduction       float64 `json:"fatDeduction" bson:"fatDeduction"`
	SnfIncentive       float64 `json:"snfIncentive" bson:"snfIncentive"`
	SnfDeduction       float64 `json:"snfDeduction" bson:"snfDeduction"`
	ExtraRateAmount    float64 `json:"extraRateAmount" bson:"extraRateAmount"`
	CartageAmount      float64 `json:"cartageAmount" bson:"cartageAmount"`
	QtyIncentiveAmount float64 `json:"qtyIncentiveAmount" bson:"qtyIncentiveAmount"`
	BonusAmount        float64 `json:"bonusAmount" bson:"bonusAmount"`
	RateConfigID       string  `json:"rateConfigId,omitempty" bson:"rateConfigId,omitempty"`
}

// Collection is one persisted procurement transaction: raw inputs plus the
// valuation derived from them.
type Collection struct {
	ID         string   `json:"id" bson:"_id"`
	Date       string   `json:"date" bson:"date"`
	Shift      Shift    `json:"shift" bson:"shift"`
	FarmerID   string   `json:"farmerId" bson:"farmerId"`
	QtyKg      float64  `json:"qtyKg" bson:"qtyKg"`
	Qty        float64  `json:"qty,omitempty" bson:"qty,omitempty"`
	CLR        float64  `json:"clr,omitempty" bson:"clr,omitempty"`
	InputFat   float64  `json:"inputFat" bson:"inputFat"`
	InputSnf   float64  `json:"inputSnf" bson:"inputSnf"`
	InputKgFat *float64 `json:"inputKgFat,omitempty" bson:"inputKgFat,omitempty"`
	InputKgSnf *float64 `json:"inputKgSnf,omitempty" bson:"inputKgSnf,omitempty"`
	Valuation  `bson:",inline"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Input reconstructs the raw entry the collection was valuated from.
func (c Collection) Input() CollectionInput {
	in := CollectionInput{
		Date:     c.Date,
		Shift:    c.Shift,
		FarmerID: c.FarmerID,
		QtyKg:    NewNumber(c.QtyKg),
		Fat:      NewNumber(c.InputFat),
		Snf:      NewNumber(c.InputSnf),
	}
	if c.Qty > 0 {
		in.Qty = NewNumber(c.Qty)
	}
	if c.CLR != 0 {
		in.CLR = NewNumber(c.CLR)
	}
	if c.InputKgFat != nil {
		in.KgFat = NewNumber(*c.InputKgFat)
	}
	if c.InputKgSnf != nil {
		in.KgSnf = NewNumber(*c.InputKgSnf)
	}
	return in
}

// Merge overlays the non-empty fields of patch onto in.
func (in CollectionInput) Merge(patch CollectionInput) CollectionInput {
	if patch.Date != "" {
		in.Date = patch.Date
	}
	if patch.Shift != "" {
		in.Shift = patch.Shift
	}
	if patch.FarmerID != "" {
		in.FarmerID = patch.FarmerID
	}
	for _, f := range []struct{ dst, src **Number }{
		{&in.QtyKg, &patch.QtyKg},
		{&in.Qty, &patch.Qty},
		{&in.Fat, &patch.Fat},
		{&in.Snf, &patch.Snf},
		{&in.CLR, &patch.CLR},
		{&in.KgFat, &patch.KgFat},
		{&in.KgSnf, &patch.KgSnf},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
	return in
}

// CollectionFilter narrows collection listings. Empty fields do not filter.
type CollectionFilter struct {
	FromDate string
	ToDate   string
	FarmerID string
}

// RowError reports a failure for one entry of a bulk operation.
type RowError struct {
	Row     int    `json:"row"`
	ID      string `json:"id,omitempty"`
	Date    string `json:"date,omitempty"`
	Message string `json:"message"`
	Locked  bool   `json:"locked,omitempty"`
}

// ImportSummary is the outcome of a bulk import.
type ImportSummary struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

// RecalcSummary is the outcome of a recalculation sweep. Unchanged counts
// entries whose stored valuation was already current.
type RecalcSummary struct {
	Updated   int        `json:"updated"`
	Unchanged int        `json:"unchanged"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors"`
}
