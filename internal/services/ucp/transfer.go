package ucp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/models"
)

// TransferRequest carries the input for Transfer. Quantity is in base units.
type TransferRequest struct {
	SourceItemID uint   `json:"sourceItemId"`
	TargetUcpID  uint   `json:"targetUcpId"`
	Quantity     int64  `json:"quantity"`
	PerformedBy  string `json:"performedBy"`
	Reason       string `json:"reason"`
}

// TransferResult reports the outcome of a transfer.
type TransferResult struct {
	TransferID string          `json:"transferId"`
	SourceItem *models.UcpItem `json:"sourceItem,omitempty"`
	TargetItem *models.UcpItem `json:"targetItem"`
	FullMove   bool            `json:"fullMove"`
}

// Transfer moves quantity from a source item to a target Ucp as one atomic
// unit. A full-quantity transfer reassigns the item; a partial transfer
// decrements the source and clones a new item on the target. The decrement
// is conditioned on the quantity read at transfer start, so the losing side
// of a concurrent race observes ConflictError and must retry from its
// precondition checks.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.PerformedBy == "" {
		return nil, apperr.Validationf("performedBy is required")
	}

	var source models.UcpItem
	if err := s.db.WithContext(ctx).First(&source, req.SourceItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("ucp item %d not found", req.SourceItemID)
		}
		return nil, apperr.Storage("load source item", err)
	}
	if !source.IsActive {
		return nil, apperr.NotFoundf("ucp item %d is no longer active", req.SourceItemID)
	}
	var sourceUcp models.Ucp
	if err := s.db.WithContext(ctx).First(&sourceUcp, source.UcpID).Error; err != nil {
		return nil, apperr.Storage("load source ucp", err)
	}
	if req.Quantity < 1 || req.Quantity > source.Quantity {
		return nil, apperr.Validationf(
			"transfer quantity must be between 1 and %d, got %d", source.Quantity, req.Quantity)
	}
	if req.TargetUcpID == source.UcpID {
		return nil, apperr.Validationf("target ucp must differ from the source ucp")
	}

	var target models.Ucp
	if err := s.db.WithContext(ctx).First(&target, req.TargetUcpID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("ucp %d not found", req.TargetUcpID)
		}
		return nil, apperr.Storage("load target ucp", err)
	}
	if target.Status != models.UcpStatusActive {
		return nil, apperr.Conflictf("ucp %s is archived and cannot receive items", target.Code)
	}

	transferID := uuid.NewString()
	result := &TransferResult{TransferID: transferID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The precondition read ran outside this transaction; re-check the
		// target under lock so a concurrent dismantle cannot archive it
		// between the read and the commit.
		lockedTarget, err := lockUcp(tx, target.ID)
		if err != nil {
			return err
		}
		if lockedTarget.Status != models.UcpStatusActive {
			return apperr.Conflictf("ucp %s is archived and cannot receive items", lockedTarget.Code)
		}

		fullMove := req.Quantity == source.Quantity
		result.FullMove = fullMove

		if fullMove {
			// Reassign the item wholesale; identity, lot and expiry stay
			res := tx.Model(&models.UcpItem{}).
				Where("id = ? AND quantity = ? AND is_active = true", source.ID, source.Quantity).
				Update("ucp_id", target.ID)
			if res.Error != nil {
				return apperr.Storage("reassign item", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.Conflictf("item %d changed concurrently, retry the transfer", source.ID)
			}
			moved := source
			moved.UcpID = target.ID
			result.TargetItem = &moved
		} else {
			// Conditional decrement: fails when a concurrent transfer won
			res := tx.Model(&models.UcpItem{}).
				Where("id = ? AND quantity = ? AND is_active = true", source.ID, source.Quantity).
				Update("quantity", source.Quantity-req.Quantity)
			if res.Error != nil {
				return apperr.Storage("decrement source item", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.Conflictf("item %d changed concurrently, retry the transfer", source.ID)
			}

			clone := models.UcpItem{
				UcpID:             target.ID,
				ProductID:         source.ProductID,
				Quantity:          req.Quantity,
				Lot:               source.Lot,
				ExpiryDate:        source.ExpiryDate,
				InternalCode:      source.InternalCode,
				PackagingTypeID:   source.PackagingTypeID,
				PackagingQuantity: source.PackagingQuantity,
				IsActive:          true,
				AddedBy:           req.PerformedBy,
			}
			if err := tx.Create(&clone).Error; err != nil {
				return apperr.Storage("create target item", err)
			}

			remaining := source
			remaining.Quantity = source.Quantity - req.Quantity
			result.SourceItem = &remaining
			result.TargetItem = &clone
		}

		description := fmt.Sprintf("%d base units of product %d", req.Quantity, source.ProductID)
		if req.Reason != "" {
			description = fmt.Sprintf("%s (%s)", description, req.Reason)
		}

		out := models.UcpHistory{
			UcpID:       source.UcpID,
			Action:      models.UcpActionTransferOut,
			Description: fmt.Sprintf("Transferred out %s to ucp %d", description, target.ID),
			OldValue:    snapshot(map[string]interface{}{"itemId": source.ID, "quantity": source.Quantity}),
			NewValue:    snapshot(map[string]interface{}{"itemId": source.ID, "quantity": source.Quantity - req.Quantity}),
			PerformedBy: req.PerformedBy,
			TransferID:  &transferID,
		}
		if err := tx.Create(&out).Error; err != nil {
			return apperr.Storage("write transfer-out history", err)
		}

		in := models.UcpHistory{
			UcpID:       target.ID,
			Action:      models.UcpActionTransferIn,
			Description: fmt.Sprintf("Transferred in %s from ucp %d", description, source.UcpID),
			NewValue:    snapshot(map[string]interface{}{"itemId": result.TargetItem.ID, "quantity": req.Quantity}),
			PerformedBy: req.PerformedBy,
			TransferID:  &transferID,
		}
		if err := tx.Create(&in).Error; err != nil {
			return apperr.Storage("write transfer-in history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.UcpActionTransferOut, sourceUcp.Code, req.PerformedBy)
	s.publish(models.UcpActionTransferIn, target.Code, req.PerformedBy)
	return result, nil
}
