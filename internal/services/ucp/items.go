package ucp

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/services/packaging"
)

// AddItemRequest carries the input for AddItem. Quantity is expressed in
// the given packaging type when PackagingTypeID is set, otherwise in base
// units; it is always stored in base units.
type AddItemRequest struct {
	UcpID           uint       `json:"ucpId"`
	ProductID       uint       `json:"productId"`
	Quantity        int64      `json:"quantity"`
	Lot             string     `json:"lot"`
	ExpiryDate      *time.Time `json:"expiryDate,omitempty"`
	InternalCode    string     `json:"internalCode"`
	PackagingTypeID *uint      `json:"packagingTypeId,omitempty"`
	AddedBy         string     `json:"addedBy"`
}

// AddItem places product quantity onto an active Ucp.
func (s *Service) AddItem(ctx context.Context, req AddItemRequest) (*models.UcpItem, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Validationf("quantity must be positive, got %d", req.Quantity)
	}
	if req.AddedBy == "" {
		return nil, apperr.Validationf("addedBy is required")
	}

	var created models.UcpItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUcp(tx, req.UcpID)
		if err != nil {
			return err
		}
		if u.Status != models.UcpStatusActive {
			return apperr.Conflictf("ucp %s is archived", u.Code)
		}

		if err := tx.First(&models.Product{}, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("product %d not found", req.ProductID)
			}
			return apperr.Storage("load product", err)
		}

		baseUnits := req.Quantity
		var packagingQty *int64
		if req.PackagingTypeID != nil {
			var pt models.PackagingType
			if err := tx.First(&pt, *req.PackagingTypeID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("packaging type %d not found", *req.PackagingTypeID)
				}
				return apperr.Storage("load packaging type", err)
			}
			if pt.ProductID != req.ProductID {
				return apperr.Validationf("packaging type %d belongs to a different product", pt.ID)
			}
			baseUnits = packaging.ResolveBaseUnits(pt, req.Quantity)
			qty := req.Quantity
			packagingQty = &qty
		}

		created = models.UcpItem{
			UcpID:             u.ID,
			ProductID:         req.ProductID,
			Quantity:          baseUnits,
			Lot:               req.Lot,
			ExpiryDate:        req.ExpiryDate,
			InternalCode:      req.InternalCode,
			PackagingTypeID:   req.PackagingTypeID,
			PackagingQuantity: packagingQty,
			IsActive:          true,
			AddedBy:           req.AddedBy,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperr.Storage("create ucp item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// RemoveItem deactivates an item in full. The row stays for traceability;
// only transfers mutate quantities.
func (s *Service) RemoveItem(ctx context.Context, itemID uint, reason, removedBy string) error {
	if removedBy == "" {
		return apperr.Validationf("removedBy is required")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.UcpItem
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("ucp item %d not found", itemID)
			}
			return apperr.Storage("load ucp item", err)
		}
		if !item.IsActive {
			return apperr.Conflictf("ucp item %d is already removed", itemID)
		}

		now := time.Now().UTC()
		res := tx.Model(&models.UcpItem{}).
			Where("id = ? AND is_active = true", itemID).
			Updates(map[string]interface{}{
				"is_active":      false,
				"removed_by":     removedBy,
				"removed_at":     now,
				"removal_reason": reason,
			})
		if res.Error != nil {
			return apperr.Storage("remove ucp item", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflictf("ucp item %d was removed concurrently", itemID)
		}
		return nil
	})
}
