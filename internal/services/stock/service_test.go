package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/database/dbtest"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/services/packaging"
)

type fixture struct {
	product models.Product
	casePkg models.PackagingType
	unitPkg models.PackagingType
	ucpA    models.Ucp
	ucpB    models.Ucp
}

func seed(t *testing.T, db *database.DB) fixture {
	t.Helper()
	ctx := context.Background()
	pkgSvc := packaging.NewService(db)

	var f fixture
	f.product = models.Product{SKU: "RICE-5KG", Name: "Rice bag"}
	require.NoError(t, db.Create(&f.product).Error)

	root, err := pkgSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: f.product.ID, Name: "Case 24", BaseUnitQuantity: 24,
	})
	require.NoError(t, err)
	f.casePkg = *root

	unit, err := pkgSvc.AddPackagingType(ctx, packaging.AddPackagingTypeRequest{
		ProductID: f.product.ID, Name: "Bag", BaseUnitQuantity: 1, IsBaseUnit: true, ParentID: &root.ID,
	})
	require.NoError(t, err)
	f.unitPkg = *unit

	pallet := models.Pallet{Name: "STD", WidthCm: 100, LengthCm: 120, MaxHeightCm: 180, MaxWeightKg: 1500}
	require.NoError(t, db.Create(&pallet).Error)
	position := models.Position{Code: "A-01-01"}
	require.NoError(t, db.Create(&position).Error)

	f.ucpA = models.Ucp{Code: "UCP000001", Status: models.UcpStatusActive, PalletID: &pallet.ID, PositionID: &position.ID, CreatedBy: "test"}
	f.ucpB = models.Ucp{Code: "UCP000002", Status: models.UcpStatusActive, CreatedBy: "test"}
	require.NoError(t, db.Create(&f.ucpA).Error)
	require.NoError(t, db.Create(&f.ucpB).Error)
	return f
}

func TestConsolidate(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, packaging.NewService(db))
	ctx := context.Background()
	f := seed(t, db)

	items := []models.UcpItem{
		{UcpID: f.ucpA.ID, ProductID: f.product.ID, Quantity: 50, IsActive: true, AddedBy: "test"},
		{UcpID: f.ucpB.ID, ProductID: f.product.ID, Quantity: 7, IsActive: true, AddedBy: "test"},
		// Inactive rows never count
		{UcpID: f.ucpB.ID, ProductID: f.product.ID, Quantity: 100, IsActive: false, AddedBy: "test"},
	}
	for i := range items {
		require.NoError(t, db.Create(&items[i]).Error)
	}

	summary, err := svc.Consolidate(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(57), summary.TotalBaseUnits)
	assert.Equal(t, int64(2), summary.ItemsCount)
	// ucpA sits on (pallet, position), ucpB floats unplaced: two locations
	assert.Equal(t, int64(2), summary.LocationsCount)

	t.Run("archived ucps are excluded", func(t *testing.T) {
		require.NoError(t, db.Model(&models.Ucp{}).
			Where("id = ?", f.ucpB.ID).
			Update("status", models.UcpStatusArchived).Error)

		summary, err := svc.Consolidate(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), summary.TotalBaseUnits)
		assert.Equal(t, int64(1), summary.ItemsCount)

		require.NoError(t, db.Model(&models.Ucp{}).
			Where("id = ?", f.ucpB.ID).
			Update("status", models.UcpStatusActive).Error)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.Consolidate(ctx, 99999)
		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})

	t.Run("stock by packaging", func(t *testing.T) {
		rows, err := svc.StockByPackaging(ctx, f.product.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		// 57 units: 2 cases of 24 with 9 left over, or 57 bags
		assert.Equal(t, f.casePkg.ID, rows[0].PackagingType.ID)
		assert.Equal(t, int64(2), rows[0].AvailablePackages)
		assert.Equal(t, int64(9), rows[0].RemainingBaseUnits)

		assert.Equal(t, f.unitPkg.ID, rows[1].PackagingType.ID)
		assert.Equal(t, int64(57), rows[1].AvailablePackages)
		assert.Equal(t, int64(0), rows[1].RemainingBaseUnits)
	})
}
