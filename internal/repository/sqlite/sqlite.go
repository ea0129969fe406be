/*
Package sqlite provides a single-file implementation of repository.Store.

Records are stored as JSON documents next to the few columns queries need:
collections carry date, shift ordinal and creation time for ordering and range
filters; rate configs and bill periods carry a sequence so listings keep
insertion order.

Use ":memory:" for an in-memory database in tests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/pricing"
	"github.com/mamadbah2/dairy/internal/repository"
)

const lockedPeriodsKey = "locked_periods"

var _ repository.Store = (*Store)(nil)

// Store implements repository.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens the database at dbPath and migrates the schema.
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS farmers (
		id TEXT PRIMARY KEY,
		code TEXT,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rate_configs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		shift_order INTEGER NOT NULL,
		farmer_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		doc TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collections_date
		ON collections(date, shift_order, created_at);
	CREATE INDEX IF NOT EXISTS idx_collections_farmer_date
		ON collections(farmer_id, date);

	CREATE TABLE IF NOT EXISTS bill_periods (
		position INTEGER PRIMARY KEY,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS statements (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL,
		farmer_id TEXT NOT NULL,
		doc TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_statements_period
		ON statements(period_id, farmer_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FARMERS
// =============================================================================

// GetFarmer returns the farmer with the given id.
func (s *Store) GetFarmer(ctx context.Context, id string) (*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var farmer models.Farmer
	if err := s.getDoc(ctx, `SELECT doc FROM farmers WHERE id = ?`, &farmer, id); err != nil {
		return nil, fmt.Errorf("farmer %s: %w", id, err)
	}
	return &farmer, nil
}

// ListFarmers returns every farmer ordered by code.
func (s *Store) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	farmers := []models.Farmer{}
	err := s.listDocs(ctx, `SELECT doc FROM farmers ORDER BY code, id`, nil, func(raw []byte) error {
		var f models.Farmer
		if err := json.Unmarshal(raw, &f); err != nil {
			return err
		}
		farmers = append(farmers, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	return farmers, nil
}

// SaveFarmer inserts or replaces a farmer.
func (s *Store) SaveFarmer(ctx context.Context, farmer models.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(farmer)
	if err != nil {
		return fmt.Errorf("failed to marshal farmer: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO farmers (id, code, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET code = excluded.code, doc = excluded.doc
	`, farmer.ID, farmer.Code, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save farmer: %w", err)
	}
	return nil
}

// DeleteFarmer removes a farmer.
func (s *Store) DeleteFarmer(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteByID(ctx, "farmers", id)
}

// =============================================================================
// RATE CONFIGS
// =============================================================================

// GetRateConfig returns the rate configuration with the given id.
func (s *Store) GetRateConfig(ctx context.Context, id string) (*models.RateConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cfg models.RateConfig
	if err := s.getDoc(ctx, `SELECT doc FROM rate_configs WHERE id = ?`, &cfg, id); err != nil {
		return nil, fmt.Errorf("rate config %s: %w", id, err)
	}
	return &cfg, nil
}

// ListRateConfigs returns every rate configuration in insertion order.
func (s *Store) ListRateConfigs(ctx context.Context) ([]models.RateConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	configs := []models.RateConfig{}
	err := s.listDocs(ctx, `SELECT doc FROM rate_configs ORDER BY seq`, nil, func(raw []byte) error {
		var cfg models.RateConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return err
		}
		configs = append(configs, cfg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rate configs: %w", err)
	}
	return configs, nil
}

// SaveRateConfig inserts or replaces a rate configuration. Replacing keeps
// the original position in the listing.
func (s *Store) SaveRateConfig(ctx context.Context, cfg models.RateConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal rate config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rate_configs (id, doc) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, cfg.ID, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save rate config: %w", err)
	}
	return nil
}

// DeleteRateConfig removes a rate configuration.
func (s *Store) DeleteRateConfig(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteByID(ctx, "rate_configs", id)
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// GetCollection returns the collection with the given id.
func (s *Store) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c models.Collection
	if err := s.getDoc(ctx, `SELECT doc FROM collections WHERE id = ?`, &c, id); err != nil {
		return nil, fmt.Errorf("collection %s: %w", id, err)
	}
	return &c, nil
}

// ListCollections returns the collections matching filter ordered by date,
// shift and creation time.
func (s *Store) ListCollections(ctx context.Context, filter models.CollectionFilter) ([]models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []interface{}
	)
	if filter.FromDate != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.ToDate)
	}
	if filter.FarmerID != "" {
		where = append(where, "farmer_id = ?")
		args = append(args, filter.FarmerID)
	}

	query := `SELECT doc FROM collections`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date, shift_order, created_at, id`

	collections := []models.Collection{}
	err := s.listDocs(ctx, query, args, func(raw []byte) error {
		var c models.Collection
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		collections = append(collections, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

// SaveCollection inserts or replaces a collection.
func (s *Store) SaveCollection(ctx context.Context, c models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collections (id, date, shift_order, farmer_id, created_at, doc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			shift_order = excluded.shift_order,
			farmer_id = excluded.farmer_id,
			doc = excluded.doc
	`, c.ID, c.Date, pricing.ShiftOrdinal(c.Shift), c.FarmerID, c.CreatedAt.UTC().Format(time.RFC3339Nano), string(doc))
	if err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

// DeleteCollection removes a collection.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteByID(ctx, "collections", id)
}

// =============================================================================
// BILL PERIODS AND LOCKS
// =============================================================================

// ListBillPeriods returns the period definitions in their saved order.
func (s *Store) ListBillPeriods(ctx context.Context) ([]models.BillPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	periods := []models.BillPeriod{}
	err := s.listDocs(ctx, `SELECT doc FROM bill_periods ORDER BY position`, nil, func(raw []byte) error {
		var p models.BillPeriod
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		periods = append(periods, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bill periods: %w", err)
	}
	return periods, nil
}

// SaveBillPeriods replaces every period definition.
func (s *Store) SaveBillPeriods(ctx context.Context, periods []models.BillPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bill_periods`); err != nil {
		return fmt.Errorf("failed to clear bill periods: %w", err)
	}
	for i, p := range periods {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal bill period: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO bill_periods (position, doc) VALUES (?, ?)`, i, string(doc)); err != nil {
			return fmt.Errorf("failed to save bill period %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// LockedPeriodIDs returns the stored set of locked period ids.
func (s *Store) LockedPeriodIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, lockedPeriodsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load locked periods: %w", err)
	}

	ids := []string{}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode locked periods: %w", err)
	}
	return ids, nil
}

// SetLockedPeriodIDs replaces the stored set of locked period ids.
func (s *Store) SetLockedPeriodIDs(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode locked periods: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lockedPeriodsKey, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save locked periods: %w", err)
	}
	return nil
}

// =============================================================================
// STATEMENTS
// =============================================================================

// SaveStatement inserts or replaces a bill statement.
func (s *Store) SaveStatement(ctx context.Context, st models.BillStatement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal statement: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO statements (id, period_id, farmer_id, doc) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc
	`, st.ID, st.PeriodID, st.FarmerID, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save statement: %w", err)
	}
	return nil
}

// ListStatements returns the statements of a period ordered by farmer.
func (s *Store) ListStatements(ctx context.Context, periodID string) ([]models.BillStatement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statements := []models.BillStatement{}
	err := s.listDocs(ctx, `SELECT doc FROM statements WHERE period_id = ? ORDER BY farmer_id`, []interface{}{periodID}, func(raw []byte) error {
		var st models.BillStatement
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		statements = append(statements, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	return statements, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) getDoc(ctx context.Context, query string, dst interface{}, args ...interface{}) error {
	var raw string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return derrors.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dst)
}

func (s *Store) listDocs(ctx context.Context, query string, args []interface{}, fn func([]byte) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn([]byte(raw)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, derrors.ErrNotFound)
	}
	return nil
}
