package ucp

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/database/dbtest"
	"github.com/palletor/ucpwms/internal/models"
)

func seedPallet(t *testing.T, db *database.DB, name string) models.Pallet {
	t.Helper()
	p := models.Pallet{Name: name, WidthCm: 100, LengthCm: 120, MaxHeightCm: 180, MaxWeightKg: 1500}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedProduct(t *testing.T, db *database.DB, sku string) models.Product {
	t.Helper()
	p := models.Product{SKU: sku, Name: sku}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func historyRows(t *testing.T, db *database.DB, ucpID uint, action string) []models.UcpHistory {
	t.Helper()
	var rows []models.UcpHistory
	require.NoError(t, db.Where("ucp_id = ? AND action = ?", ucpID, action).
		Order("id ASC").Find(&rows).Error)
	return rows
}

func TestLifecycle(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, "UCP", nil)
	ctx := context.Background()

	pallet := seedPallet(t, db, "PBR-1")

	t.Run("create issues sequential codes", func(t *testing.T) {
		first, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
		require.NoError(t, err)
		assert.Equal(t, "UCP000001", first.Code)
		assert.Equal(t, models.UcpStatusActive, first.Status)

		second, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
		require.NoError(t, err)
		assert.Equal(t, "UCP000002", second.Code)

		rows := historyRows(t, db, first.ID, models.UcpActionCreated)
		require.Len(t, rows, 1)
		assert.Equal(t, "alice", rows[0].PerformedBy)
	})

	t.Run("create rejects duplicate code", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{Code: "UCP000001", CreatedBy: "alice"})
		assert.True(t, apperr.IsConflict(err), "got %v", err)
	})

	t.Run("pallet exclusivity", func(t *testing.T) {
		holder, err := svc.Create(ctx, CreateRequest{PalletID: &pallet.ID, CreatedBy: "alice"})
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateRequest{PalletID: &pallet.ID, CreatedBy: "bob"})
		assert.True(t, apperr.IsConflict(err), "got %v", err)

		// Dismantling the holder releases the pallet
		_, err = svc.Dismantle(ctx, holder.ID, "empty", "alice")
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateRequest{PalletID: &pallet.ID, CreatedBy: "bob"})
		require.NoError(t, err)
	})

	t.Run("move records old and new position", func(t *testing.T) {
		position := models.Position{Code: "A-01-01"}
		require.NoError(t, db.Create(&position).Error)

		u, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
		require.NoError(t, err)

		moved, err := svc.Move(ctx, u.ID, &position.ID, "bob")
		require.NoError(t, err)
		require.NotNil(t, moved.PositionID)
		assert.Equal(t, position.ID, *moved.PositionID)

		rows := historyRows(t, db, u.ID, models.UcpActionMoved)
		require.Len(t, rows, 1)
		assert.Equal(t, "bob", rows[0].PerformedBy)
		assert.NotEmpty(t, rows[0].OldValue)
		assert.NotEmpty(t, rows[0].NewValue)
	})

	t.Run("dismantle guarded by active items", func(t *testing.T) {
		product := seedProduct(t, db, "GUARD-1")
		u, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
		require.NoError(t, err)

		item, err := svc.AddItem(ctx, AddItemRequest{
			UcpID: u.ID, ProductID: product.ID, Quantity: 5, AddedBy: "alice",
		})
		require.NoError(t, err)

		_, err = svc.Dismantle(ctx, u.ID, "should fail", "alice")
		assert.True(t, apperr.IsConflict(err), "got %v", err)

		// Status must be untouched after the failed dismantle
		reloaded, err := svc.Get(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, models.UcpStatusActive, reloaded.Status)
		assert.Empty(t, historyRows(t, db, u.ID, models.UcpActionDismantled))

		require.NoError(t, svc.RemoveItem(ctx, item.ID, "consumed", "alice"))

		dismantled, err := svc.Dismantle(ctx, u.ID, "now empty", "alice")
		require.NoError(t, err)
		assert.Equal(t, models.UcpStatusArchived, dismantled.Status)
		assert.Nil(t, dismantled.PalletID)
		assert.Nil(t, dismantled.PositionID)
	})

	t.Run("reactivate", func(t *testing.T) {
		u, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
		require.NoError(t, err)

		_, err = svc.Reactivate(ctx, u.ID, "alice")
		assert.True(t, apperr.IsConflict(err), "active ucp cannot be reactivated, got %v", err)

		_, err = svc.Dismantle(ctx, u.ID, "", "alice")
		require.NoError(t, err)

		back, err := svc.Reactivate(ctx, u.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, models.UcpStatusActive, back.Status)

		rows := historyRows(t, db, u.ID, models.UcpActionReactivated)
		require.Len(t, rows, 1)
	})

	t.Run("history is ordered and complete", func(t *testing.T) {
		u, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
		require.NoError(t, err)
		_, err = svc.Dismantle(ctx, u.ID, "", "alice")
		require.NoError(t, err)
		_, err = svc.Reactivate(ctx, u.ID, "alice")
		require.NoError(t, err)

		history, err := svc.History(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, models.UcpActionCreated, history[0].Action)
		assert.Equal(t, models.UcpActionDismantled, history[1].Action)
		assert.Equal(t, models.UcpActionReactivated, history[2].Action)
	})

	t.Run("unknown ucp", func(t *testing.T) {
		_, err := svc.Get(ctx, 99999)
		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})
}

func TestCreateConcurrentPalletClaim(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, "UCP", nil)
	ctx := context.Background()

	pallet := seedPallet(t, db, "PBR-RACE")

	// Two creates race for the same pallet; the row lock serializes them
	// and exactly one wins.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, CreateRequest{PalletID: &pallet.ID, CreatedBy: "alice"})
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case apperr.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, conflicts)

	var claimed int64
	require.NoError(t, db.Model(&models.Ucp{}).
		Where("pallet_id = ? AND status = ?", pallet.ID, models.UcpStatusActive).
		Count(&claimed).Error)
	assert.Equal(t, int64(1), claimed)
}

func TestAddItemResolvesPackaging(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, "UCP", nil)
	ctx := context.Background()

	product := seedProduct(t, db, "SODA-350")
	casePkg := models.PackagingType{ProductID: product.ID, Name: "Case 24", BaseUnitQuantity: 24, Level: 1}
	require.NoError(t, db.Create(&casePkg).Error)

	u, err := svc.Create(ctx, CreateRequest{CreatedBy: "alice"})
	require.NoError(t, err)

	item, err := svc.AddItem(ctx, AddItemRequest{
		UcpID: u.ID, ProductID: product.ID, Quantity: 3,
		PackagingTypeID: &casePkg.ID, Lot: "L1", AddedBy: "alice",
	})
	require.NoError(t, err)

	// 3 cases of 24 stored as 72 base units, provenance kept
	assert.Equal(t, int64(72), item.Quantity)
	require.NotNil(t, item.PackagingQuantity)
	assert.Equal(t, int64(3), *item.PackagingQuantity)
}
