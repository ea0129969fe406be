// Package repository declares the storage ports of the procurement service.
// Adapters live in the mongodb and sqlite subpackages; both return
// errors.ErrNotFound (wrapped) for missing records.
package repository

import (
	"context"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// FarmerStore persists farmer master data.
type FarmerStore interface {
	GetFarmer(ctx context.Context, id string) (*models.Farmer, error)
	ListFarmers(ctx context.Context) ([]models.Farmer, error)
	SaveFarmer(ctx context.Context, farmer models.Farmer) error
	DeleteFarmer(ctx context.Context, id string) error
}

// RateConfigStore persists rate configurations. ListRateConfigs returns them
// in creation order, which is the order config selection depends on.
type RateConfigStore interface {
	GetRateConfig(ctx context.Context, id string) (*models.RateConfig, error)
	ListRateConfigs(ctx context.Context) ([]models.RateConfig, error)
	SaveRateConfig(ctx context.Context, cfg models.RateConfig) error
	DeleteRateConfig(ctx context.Context, id string) error
}

// CollectionStore persists procurement entries. ListCollections orders by
// date, shift (AM first) and creation time.
type CollectionStore interface {
	GetCollection(ctx context.Context, id string) (*models.Collection, error)
	ListCollections(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, error)
	SaveCollection(ctx context.Context, c models.Collection) error
	DeleteCollection(ctx context.Context, id string) error
}

// PeriodStore persists the bill-period definitions in evaluation order and
// the set of locked period ids.
type PeriodStore interface {
	ListBillPeriods(ctx context.Context) ([]models.BillPeriod, error)
	SaveBillPeriods(ctx context.Context, periods []models.BillPeriod) error
	LockedPeriodIDs(ctx context.Context) ([]string, error)
	SetLockedPeriodIDs(ctx context.Context, ids []string) error
}

// SummaryStore persists generated bill statements.
type SummaryStore interface {
	SaveStatement(ctx context.Context, st models.BillStatement) error
	ListStatements(ctx context.Context, periodID string) ([]models.BillStatement, error)
}

// Store is the full persistence surface implemented by every adapter.
type Store interface {
	FarmerStore
	RateConfigStore
	CollectionStore
	PeriodStore
	SummaryStore
	Close(ctx context.Context) error
}
