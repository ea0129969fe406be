package procurement

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/events"
	"github.com/mamadbah2/dairy/internal/repository/sheets"
)

// BulkImport records entries one by one against a single master-data
// snapshot. Invalid or locked rows are reported and skipped; they never
// abort the batch. Rows are numbered from 1. No receipts are sent.
func (s *Service) BulkImport(ctx context.Context, inputs []models.CollectionInput) (models.ImportSummary, error) {
	summary := models.ImportSummary{Errors: []models.RowError{}}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return summary, err
	}

	now := s.now().UTC()
	for i, raw := range inputs {
		row := i + 1

		in, err := normalizeEntry(raw)
		if err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RowError{Row: row, Date: raw.Date, Message: err.Error()})
			continue
		}
		if err := snap.checkDate(in.Date); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RowError{Row: row, Date: in.Date, Message: err.Error(), Locked: true})
			continue
		}
		if _, err := s.resolveFarmer(ctx, snap, in.FarmerID); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RowError{Row: row, Date: in.Date, Message: err.Error()})
			continue
		}

		c := newCollection(in, snap.valuate(in))
		c.ID = s.newID()
		c.CreatedAt, c.UpdatedAt = now, now
		if err := s.store.SaveCollection(ctx, c); err != nil {
			summary.Skipped++
			summary.Errors = append(summary.Errors, models.RowError{Row: row, Date: in.Date, Message: fmt.Sprintf("save collection: %v", err)})
			continue
		}
		summary.Imported++
		s.publish(ctx, events.TypeCollectionValuated, c.ID, c)
	}

	s.logger.Info("bulk import finished",
		zap.Int("rows", len(inputs)),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

// ImportFromSheet reads collection rows from the configured spreadsheet and
// bulk imports them. An empty range uses the configured default.
func (s *Service) ImportFromSheet(ctx context.Context, sheetRange string) (models.ImportSummary, error) {
	if s.sheets == nil {
		return models.ImportSummary{}, ErrSheetsDisabled
	}
	if sheetRange == "" {
		sheetRange = s.importRange
	}
	if sheetRange == "" {
		return models.ImportSummary{}, derrors.Invalid("range", "is required")
	}

	rows, err := s.sheets.ReadRange(ctx, sheetRange)
	if err != nil {
		return models.ImportSummary{}, fmt.Errorf("read sheet range %s: %w", sheetRange, err)
	}
	s.logger.Info("importing collections from sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return s.BulkImport(ctx, sheets.ParseCollectionRows(rows))
}

// Recalculate re-valuates every collection dated within [from, to] from its
// stored raw inputs against the current rate configurations and farmer
// overrides. Collections in locked periods are skipped untouched.
func (s *Service) Recalculate(ctx context.Context, from, to string) (models.RecalcSummary, error) {
	summary := models.RecalcSummary{Errors: []models.RowError{}}

	from, to, err := s.master.NormalizeRange(from, to)
	if err != nil {
		return summary, err
	}

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return summary, err
	}
	collections, err := s.store.ListCollections(ctx, models.CollectionFilter{FromDate: from, ToDate: to})
	if err != nil {
		return summary, fmt.Errorf("list collections: %w", err)
	}

	now := s.now().UTC()
	for i, c := range collections {
		if snap.reg.IsDateLocked(c.Date) {
			summary.Skipped++
			continue
		}

		in := c.Input()
		if _, err := s.resolveFarmer(ctx, snap, in.FarmerID); err != nil {
			summary.Errors = append(summary.Errors, models.RowError{Row: i + 1, ID: c.ID, Date: c.Date, Message: err.Error()})
			continue
		}

		v := snap.valuate(in)
		if v == c.Valuation {
			summary.Unchanged++
			continue
		}

		c.Valuation = v
		c.UpdatedAt = now
		if err := s.store.SaveCollection(ctx, c); err != nil {
			summary.Errors = append(summary.Errors, models.RowError{Row: i + 1, ID: c.ID, Date: c.Date, Message: fmt.Sprintf("save collection: %v", err)})
			continue
		}
		summary.Updated++
		s.publish(ctx, events.TypeCollectionValuated, c.ID, c)
	}

	s.logger.Info("recalculation finished",
		zap.String("from", from),
		zap.String("to", to),
		zap.Int("updated", summary.Updated),
		zap.Int("unchanged", summary.Unchanged),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}
