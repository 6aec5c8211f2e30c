// Package packaging manages the per-product packaging hierarchy and its
// base-unit conversion rules.
package packaging

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/models"
)

// Service provides packaging hierarchy operations.
type Service struct {
	db *database.DB
}

// NewService creates a packaging service.
func NewService(db *database.DB) *Service {
	return &Service{db: db}
}

// ResolveBaseUnits converts a quantity expressed in the given packaging type
// into base units.
func ResolveBaseUnits(pt models.PackagingType, packagingQuantity int64) int64 {
	return packagingQuantity * pt.BaseUnitQuantity
}

// AddPackagingTypeRequest carries the input for AddPackagingType. Level is
// always derived from the parent chain and cannot be supplied.
type AddPackagingTypeRequest struct {
	ProductID        uint   `json:"productId"`
	Name             string `json:"name"`
	BaseUnitQuantity int64  `json:"baseUnitQuantity"`
	IsBaseUnit       bool   `json:"isBaseUnit"`
	ParentID         *uint  `json:"parentId,omitempty"`
}

// AddPackagingType creates a new packaging level for a product.
func (s *Service) AddPackagingType(ctx context.Context, req AddPackagingTypeRequest) (*models.PackagingType, error) {
	if req.Name == "" {
		return nil, apperr.Validationf("packaging name is required")
	}
	if req.BaseUnitQuantity <= 0 {
		return nil, apperr.Validationf("baseUnitQuantity must be positive, got %d", req.BaseUnitQuantity)
	}
	if req.IsBaseUnit && req.BaseUnitQuantity != 1 {
		return nil, apperr.Validationf("base unit packaging must have baseUnitQuantity = 1")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("product %d not found", req.ProductID)
		}
		return nil, apperr.Storage("load product", err)
	}

	var created models.PackagingType
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var nameCount int64
		if err := tx.Model(&models.PackagingType{}).
			Where("product_id = ? AND name = ?", req.ProductID, req.Name).
			Count(&nameCount).Error; err != nil {
			return apperr.Storage("check name uniqueness", err)
		}
		if nameCount > 0 {
			return apperr.Conflictf("packaging %q already exists for product %d", req.Name, req.ProductID)
		}

		if req.IsBaseUnit {
			var baseCount int64
			if err := tx.Model(&models.PackagingType{}).
				Where("product_id = ? AND is_base_unit = true", req.ProductID).
				Count(&baseCount).Error; err != nil {
				return apperr.Storage("check base unit uniqueness", err)
			}
			if baseCount > 0 {
				return apperr.Conflictf("product %d already has a base unit packaging", req.ProductID)
			}
		}

		level := 1
		if req.ParentID != nil {
			var parent models.PackagingType
			if err := tx.First(&parent, *req.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("parent packaging %d not found", *req.ParentID)
				}
				return apperr.Storage("load parent packaging", err)
			}
			if parent.ProductID != req.ProductID {
				return apperr.Validationf("parent packaging %d belongs to a different product", *req.ParentID)
			}
			// Keeps the exact-division invariant: every ancestor's quantity
			// stays an integer multiple of this node's quantity.
			if parent.BaseUnitQuantity%req.BaseUnitQuantity != 0 {
				return apperr.Validationf(
					"baseUnitQuantity %d does not divide parent quantity %d",
					req.BaseUnitQuantity, parent.BaseUnitQuantity)
			}
			level = parent.Level + 1
		}

		created = models.PackagingType{
			ProductID:        req.ProductID,
			Name:             req.Name,
			BaseUnitQuantity: req.BaseUnitQuantity,
			IsBaseUnit:       req.IsBaseUnit,
			ParentID:         req.ParentID,
			Level:            level,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperr.Storage("create packaging type", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RemovePackagingType removes a packaging level. Base units, levels with
// children, and levels still referenced by active items cannot be removed.
func (s *Service) RemovePackagingType(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pt models.PackagingType
		if err := tx.First(&pt, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("packaging type %d not found", id)
			}
			return apperr.Storage("load packaging type", err)
		}
		if pt.IsBaseUnit {
			return apperr.Conflictf("cannot remove the base unit packaging of product %d", pt.ProductID)
		}

		var children int64
		if err := tx.Model(&models.PackagingType{}).
			Where("parent_id = ?", id).
			Count(&children).Error; err != nil {
			return apperr.Storage("count children", err)
		}
		if children > 0 {
			return apperr.Conflictf("packaging type %d has %d child levels", id, children)
		}

		var refs int64
		if err := tx.Model(&models.UcpItem{}).
			Where("packaging_type_id = ? AND is_active = true", id).
			Count(&refs).Error; err != nil {
			return apperr.Storage("count item references", err)
		}
		if refs > 0 {
			return apperr.Conflictf("packaging type %d is referenced by %d active items", id, refs)
		}

		if err := tx.Delete(&pt).Error; err != nil {
			return apperr.Storage("delete packaging type", err)
		}
		return nil
	})
}

// BuildHierarchy returns the packaging tree of a product ordered by level
// ascending, root first.
func (s *Service) BuildHierarchy(ctx context.Context, productID uint) ([]models.PackagingType, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("product %d not found", productID)
		}
		return nil, apperr.Storage("load product", err)
	}

	var types []models.PackagingType
	if err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("level ASC, base_unit_quantity DESC").
		Find(&types).Error; err != nil {
		return nil, apperr.Storage("load packaging hierarchy", err)
	}
	return types, nil
}
