package procurement

import (
	"strings"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
	"github.com/mamadbah2/dairy/internal/service/masterdata"
)

// normalizeEntry checks the required raw fields (date, shift, farmerId,
// qtyKg, fat) and canonicalizes date and shift.
func normalizeEntry(in models.CollectionInput) (models.CollectionInput, error) {
	date, ok := pricing.NormalizeDate(in.Date)
	if !ok {
		if strings.TrimSpace(in.Date) == "" {
			return in, derrors.Invalid("date", "is required")
		}
		return in, derrors.Invalid("date", "must be a valid date")
	}
	in.Date = date

	if strings.TrimSpace(string(in.Shift)) == "" {
		return in, derrors.Invalid("shift", "is required")
	}
	shift, ok := masterdata.NormalizeShift(in.Shift)
	if !ok {
		return in, derrors.Invalid("shift", "must be AM or PM")
	}
	in.Shift = shift

	in.FarmerID = strings.TrimSpace(in.FarmerID)
	if in.FarmerID == "" {
		return in, derrors.Invalid("farmerId", "is required")
	}

	if in.QtyKg == nil {
		return in, derrors.Invalid("qtyKg", "is required")
	}
	if in.Fat == nil {
		return in, derrors.Invalid("fat", "is required")
	}

	for _, f := range []struct {
		name  string
		value *models.Number
	}{
		{"qtyKg", in.QtyKg},
		{"qty", in.Qty},
		{"fat", in.Fat},
		{"snf", in.Snf},
		{"kgFat", in.KgFat},
		{"kgSnf", in.KgSnf},
	} {
		if f.value.Value() < 0 {
			return in, derrors.Invalid(f.name, "must not be negative")
		}
	}
	return in, nil
}
