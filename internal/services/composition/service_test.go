package composition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/database/dbtest"
	"github.com/palletor/ucpwms/internal/models"
)

func seedCatalog(t *testing.T, db *database.DB) (models.Pallet, models.Product, models.PackagingType) {
	t.Helper()

	pallet := models.Pallet{Name: "STD 100x100", WidthCm: 100, LengthCm: 100, MaxHeightCm: 180, MaxWeightKg: 500}
	require.NoError(t, db.Create(&pallet).Error)

	product := models.Product{
		SKU: "BOX-4KG", Name: "Boxed goods",
		WeightKg: 4, LengthCm: 50, WidthCm: 20, HeightCm: 10,
		TemperatureClass: models.TempAmbient,
	}
	require.NoError(t, db.Create(&product).Error)

	casePkg := models.PackagingType{ProductID: product.ID, Name: "Case 10", BaseUnitQuantity: 10, Level: 1}
	require.NoError(t, db.Create(&casePkg).Error)
	unitPkg := models.PackagingType{ProductID: product.ID, Name: "Box", BaseUnitQuantity: 1, IsBaseUnit: true, ParentID: &casePkg.ID, Level: 2}
	require.NoError(t, db.Create(&unitPkg).Error)

	return pallet, product, unitPkg
}

func TestValidateResolvesPackaging(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db)
	ctx := context.Background()

	pallet, product, _ := seedCatalog(t, db)

	var casePkg models.PackagingType
	require.NoError(t, db.Where("product_id = ? AND name = ?", product.ID, "Case 10").First(&casePkg).Error)

	// 5 cases of 10 and 50 loose boxes must score identically
	byCase, err := svc.Validate(ctx, Request{
		PalletID: pallet.ID,
		Lines:    []Line{{ProductID: product.ID, Quantity: 5, PackagingTypeID: &casePkg.ID}},
	})
	require.NoError(t, err)
	loose, err := svc.Validate(ctx, Request{
		PalletID: pallet.ID,
		Lines:    []Line{{ProductID: product.ID, Quantity: 50}},
	})
	require.NoError(t, err)

	assert.Equal(t, byCase.Metrics, loose.Metrics)
	assert.True(t, byCase.IsValid)
}

func TestValidateErrors(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db)
	ctx := context.Background()

	pallet, product, _ := seedCatalog(t, db)

	t.Run("empty request", func(t *testing.T) {
		_, err := svc.Validate(ctx, Request{PalletID: pallet.ID})
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("unknown pallet", func(t *testing.T) {
		_, err := svc.Validate(ctx, Request{
			PalletID: 99999,
			Lines:    []Line{{ProductID: product.ID, Quantity: 1}},
		})
		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.Validate(ctx, Request{
			PalletID: pallet.ID,
			Lines:    []Line{{ProductID: 99999, Quantity: 1}},
		})
		assert.True(t, apperr.IsNotFound(err), "got %v", err)
	})

	t.Run("foreign packaging type", func(t *testing.T) {
		other := models.Product{SKU: "OTHER-1", Name: "Other"}
		require.NoError(t, db.Create(&other).Error)
		otherPkg := models.PackagingType{ProductID: other.ID, Name: "Case 6", BaseUnitQuantity: 6, Level: 1}
		require.NoError(t, db.Create(&otherPkg).Error)

		_, err := svc.Validate(ctx, Request{
			PalletID: pallet.ID,
			Lines:    []Line{{ProductID: product.ID, Quantity: 1, PackagingTypeID: &otherPkg.ID}},
		})
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})
}

func TestOptimize(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db)
	ctx := context.Background()

	pallet, product, unitPkg := seedCatalog(t, db)

	bigger := models.Pallet{Name: "XL 120x120", WidthCm: 120, LengthCm: 120, MaxHeightCm: 200, MaxWeightKg: 1500}
	require.NoError(t, db.Create(&bigger).Error)

	t.Run("overloaded request yields a reduction", func(t *testing.T) {
		// 200 boxes weigh 800 kg on a 500 kg pallet
		res, err := svc.Optimize(ctx, Request{
			PalletID: pallet.ID,
			Lines:    []Line{{ProductID: product.ID, Quantity: 200}},
		})
		require.NoError(t, err)

		assert.False(t, res.Original.IsValid)
		require.NotEmpty(t, res.Alternatives)
		for _, alt := range res.Alternatives {
			assert.True(t, alt.Result.IsValid, "alternative %q must fit", alt.Rationale)
		}
	})

	t.Run("repack keeps metrics and fits", func(t *testing.T) {
		// 50 loose boxes repack into 5 cases of 10
		res, err := svc.Optimize(ctx, Request{
			PalletID: pallet.ID,
			Lines:    []Line{{ProductID: product.ID, Quantity: 50, PackagingTypeID: &unitPkg.ID}},
		})
		require.NoError(t, err)

		var repacked *Alternative
		for i := range res.Alternatives {
			if res.Alternatives[i].Request.Lines[0].PackagingTypeID != nil &&
				*res.Alternatives[i].Request.Lines[0].PackagingTypeID != unitPkg.ID {
				repacked = &res.Alternatives[i]
			}
		}
		require.NotNil(t, repacked, "expected a repack alternative, got %d alternatives", len(res.Alternatives))
		assert.Equal(t, int64(5), repacked.Request.Lines[0].Quantity)
		assert.Equal(t, res.Original.Metrics, repacked.Result.Metrics)
	})

	t.Run("never more than five alternatives", func(t *testing.T) {
		res, err := svc.Optimize(ctx, Request{
			PalletID: pallet.ID,
			Lines:    []Line{{ProductID: product.ID, Quantity: 50}},
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Alternatives), 5)
	})
}
