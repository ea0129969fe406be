package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/mamadbah2/dairy/internal/domain/errors"
	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository/sqlite"
	"github.com/mamadbah2/dairy/internal/service/masterdata"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fakeRegister struct {
	sheetRange string
	rows       [][]interface{}
}

func (f *fakeRegister) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	f.sheetRange = sheetRange
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeNotifier struct {
	statements []string
}

func (f *fakeNotifier) CollectionReceipt(context.Context, models.Farmer, models.Collection) error {
	return nil
}

func (f *fakeNotifier) StatementReady(_ context.Context, farmer models.Farmer, st models.BillStatement) error {
	f.statements = append(f.statements, farmer.ID+"@"+st.PeriodID)
	return nil
}

func (f *fakeNotifier) SendOutbound(context.Context, models.OutboundMessageRequest) error {
	return nil
}

type fixture struct {
	svc      *Service
	master   *masterdata.Service
	store    *sqlite.Store
	register *fakeRegister
	notifier *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	f := &fixture{store: store, register: &fakeRegister{}, notifier: &fakeNotifier{}}
	f.master = masterdata.NewService(store, nil, 0, nil)
	f.svc = NewService(store, f.master, Options{
		Notifier:      f.notifier,
		Register:      f.register,
		RegisterRange: "Register!A:H",
	})
	f.svc.now = func() time.Time { return time.Date(2025, 6, 16, 2, 30, 0, 0, time.UTC) }

	_, err = f.master.SaveBillPeriods(ctx, []models.BillPeriod{
		{ID: "P1", StartDay: 1, EndDay: 15},
		{ID: "P2", StartDay: 16, EndDay: 31},
	})
	require.NoError(t, err)

	require.NoError(t, store.SaveFarmer(ctx, models.Farmer{ID: "f1", Name: "Lakshmi", Phone: "919845000001"}))
	require.NoError(t, store.SaveFarmer(ctx, models.Farmer{ID: "f2", Name: "Ravi"}))

	for _, c := range []models.Collection{
		collection("c1", "2025-06-02", "f1", 100, 97.09, 5, 8.5, 160, 0),
		collection("c2", "2025-06-03", "f1", 50, 48.54, 1.5, 4.25, 45, 5),
		collection("c3", "2025-06-03", "f2", 20, 19.42, 0.8, 1.7, 24, 0),
		collection("c4", "2025-06-20", "f1", 10, 9.71, 0.4, 0.85, 12, 0),
	} {
		require.NoError(t, store.SaveCollection(ctx, c))
	}
	return f
}

func collection(id, date, farmerID string, qtyKg, liters, kgFat, kgSnf, amount, bonus float64) models.Collection {
	c := models.Collection{ID: id, Date: date, Shift: models.ShiftAM, FarmerID: farmerID, QtyKg: qtyKg}
	c.Liters = liters
	c.KgFat = kgFat
	c.KgSnf = kgSnf
	c.Amount = amount
	c.BonusAmount = bonus
	return c
}

// =============================================================================
// STATEMENTS
// =============================================================================

func TestStatement_SumsFarmerPeriod(t *testing.T) {
	// GIVEN: two P1 collections and one P2 collection for f1
	// WHEN: the statement for a P1 date is computed
	// THEN: only the P1 collections are totalled, with quantity-weighted averages
	f := newFixture(t)

	st, err := f.svc.Statement(context.Background(), "f1", "2025-06-10")
	require.NoError(t, err)

	assert.Equal(t, "5-2025-P1:f1", st.ID)
	assert.Equal(t, "Lakshmi", st.FarmerName)
	assert.Equal(t, "2025-06-01", st.FromDate)
	assert.Equal(t, "2025-06-15", st.ToDate)
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 145.63, st.Liters)
	assert.Equal(t, 6.5, st.KgFat)
	assert.Equal(t, 205.0, st.Amount)
	assert.Equal(t, 5.0, st.BonusAmount)
	assert.Equal(t, 4.33, st.AverageFat)
	assert.Equal(t, 8.5, st.AverageSnf)
	assert.Equal(t, 1.41, st.AverageRate)
	assert.False(t, st.Locked)
}

func TestStatement_ReportsLockedPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.master.ToggleLock(ctx, "5-2025-P1")
	require.NoError(t, err)

	st, err := f.svc.Statement(ctx, "f1", "2025-06-10")
	require.NoError(t, err)
	assert.True(t, st.Locked)
}

func TestStatement_EmptyPeriod(t *testing.T) {
	f := newFixture(t)

	st, err := f.svc.Statement(context.Background(), "f2", "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Entries)
	assert.Equal(t, 0.0, st.AverageRate)
}

func TestStatement_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Statement(context.Background(), "", "2025-06-10")
	assert.True(t, derrors.IsValidation(err))

	_, err = f.svc.Statement(context.Background(), "f1", "someday")
	assert.True(t, derrors.IsValidation(err))
}

func TestGenerateStatements_StoresRegistersAndNotifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	statements, err := f.svc.GenerateStatements(ctx, "2025-06-15", true)
	require.NoError(t, err)
	require.Len(t, statements, 2)
	assert.Equal(t, "f1", statements[0].FarmerID)
	assert.Equal(t, "f2", statements[1].FarmerID)

	stored, err := f.svc.Statements(ctx, "5-2025-P1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	assert.Equal(t, "Register!A:H", f.register.sheetRange)
	require.Len(t, f.register.rows, 2)
	assert.Equal(t, "5-2025-P1", f.register.rows[0][0])

	assert.Equal(t, []string{"f1@5-2025-P1", "f2@5-2025-P1"}, f.notifier.statements)
}

func TestCloseDay_OnlyOnLastDayOfPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	generated, err := f.svc.CloseDay(ctx, "2025-06-14")
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Empty(t, f.register.rows)

	generated, err = f.svc.CloseDay(ctx, "2025-06-15")
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, f.register.rows, 2)
}
