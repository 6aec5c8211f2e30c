// Package stock consolidates active unit-load items into per-product views.
package stock

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/services/packaging"
)

// Service provides read-only stock consolidation.
type Service struct {
	db        *database.DB
	packaging *packaging.Service
}

// NewService creates a stock service.
func NewService(db *database.DB, pkg *packaging.Service) *Service {
	return &Service{db: db, packaging: pkg}
}

// Summary is the consolidated stock of one product.
type Summary struct {
	ProductID      uint  `json:"productId"`
	TotalBaseUnits int64 `json:"totalBaseUnits"`
	LocationsCount int64 `json:"locationsCount"`
	ItemsCount     int64 `json:"itemsCount"`
}

// PackagingStock is a what-if view of the total stock expressed in one
// packaging level. Rows are independent; none commits an allocation.
type PackagingStock struct {
	PackagingType      models.PackagingType `json:"packagingType"`
	AvailablePackages  int64                `json:"availablePackages"`
	RemainingBaseUnits int64                `json:"remainingBaseUnits"`
}

// Consolidate sums the active items of a product across all active Ucps.
func (s *Service) Consolidate(ctx context.Context, productID uint) (*Summary, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("product %d not found", productID)
		}
		return nil, apperr.Storage("load product", err)
	}

	activeItems := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.UcpItem{}).
			Joins("JOIN ucps ON ucps.id = ucp_items.ucp_id").
			Where("ucp_items.product_id = ? AND ucp_items.is_active = true AND ucp_items.quantity > 0", productID).
			Where("ucps.status = ?", models.UcpStatusActive)
	}

	summary := Summary{ProductID: productID}

	var total struct{ Total int64 }
	if err := activeItems().
		Select("COALESCE(SUM(ucp_items.quantity), 0) AS total").
		Scan(&total).Error; err != nil {
		return nil, apperr.Storage("sum stock", err)
	}
	summary.TotalBaseUnits = total.Total

	if err := activeItems().Count(&summary.ItemsCount).Error; err != nil {
		return nil, apperr.Storage("count items", err)
	}

	// Distinct (pallet, position) pairs reachable through the owning Ucps
	if err := s.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT DISTINCT u.pallet_id, u.position_id
			FROM ucp_items i
			JOIN ucps u ON u.id = i.ucp_id
			WHERE i.product_id = ? AND i.is_active = true AND i.quantity > 0
			  AND u.status = ?
		) locations`, productID, models.UcpStatusActive).
		Scan(&summary.LocationsCount).Error; err != nil {
		return nil, apperr.Storage("count locations", err)
	}

	return &summary, nil
}

// StockByPackaging expresses the consolidated total in every packaging level
// of the product, independently per level.
func (s *Service) StockByPackaging(ctx context.Context, productID uint) ([]PackagingStock, error) {
	summary, err := s.Consolidate(ctx, productID)
	if err != nil {
		return nil, err
	}

	types, err := s.packaging.BuildHierarchy(ctx, productID)
	if err != nil {
		return nil, err
	}

	rows := make([]PackagingStock, 0, len(types))
	for _, pt := range types {
		rows = append(rows, PackagingStock{
			PackagingType:      pt,
			AvailablePackages:  summary.TotalBaseUnits / pt.BaseUnitQuantity,
			RemainingBaseUnits: summary.TotalBaseUnits % pt.BaseUnitQuantity,
		})
	}
	return rows, nil
}
