package sheets

import (
	"fmt"
	"strings"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// Collection import columns, in sheet order.
const (
	colDate = iota
	colShift
	colFarmerID
	colQtyKg
	colFat
	colSnf
	colQty
	colCLR
)

// ParseCollectionRows maps sheet rows (date, shift, farmerId, qtyKg, fat, snf,
// qty, clr) to collection inputs. Blank rows are dropped; missing trailing
// cells stay nil so validation can report them.
func ParseCollectionRows(rows [][]interface{}) []models.CollectionInput {
	inputs := make([]models.CollectionInput, 0, len(rows))
	for _, row := range rows {
		if blank(row) {
			continue
		}
		inputs = append(inputs, models.CollectionInput{
			Date:     cellString(row, colDate),
			Shift:    models.Shift(strings.ToUpper(cellString(row, colShift))),
			FarmerID: cellString(row, colFarmerID),
			QtyKg:    cellNumber(row, colQtyKg),
			Fat:      cellNumber(row, colFat),
			Snf:      cellNumber(row, colSnf),
			Qty:      cellNumber(row, colQty),
			CLR:      cellNumber(row, colCLR),
		})
	}
	return inputs
}

// StatementRow renders a bill statement as a register row.
func StatementRow(st models.BillStatement) []interface{} {
	return []interface{}{
		st.PeriodID,
		st.FromDate,
		st.ToDate,
		st.FarmerID,
		st.FarmerName,
		st.Liters,
		st.Amount,
		st.BonusAmount,
	}
}

func cellString(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func cellNumber(row []interface{}, i int) *models.Number {
	if cellString(row, i) == "" {
		return nil
	}
	return models.NewNumber(models.ParseNumber(row[i]))
}

func blank(row []interface{}) bool {
	for i := range row {
		if cellString(row, i) != "" {
			return false
		}
	}
	return true
}
