// Package ucp implements the unit-load lifecycle and inter-Ucp item
// transfers. Every mutation appends to the Ucp's audit history inside the
// same transaction; history rows are never updated or deleted.
package ucp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/palletor/ucpwms/internal/apperr"
	"github.com/palletor/ucpwms/internal/database"
	"github.com/palletor/ucpwms/internal/models"
	"github.com/palletor/ucpwms/internal/utils"
)

// EventSink receives lifecycle notifications. Delivery is best-effort; the
// core never depends on it.
type EventSink interface {
	Broadcast(v interface{})
}

// Event is the payload published after a successful mutation.
type Event struct {
	Action      string    `json:"action"`
	UcpCode     string    `json:"ucpCode"`
	PerformedBy string    `json:"performedBy"`
	Timestamp   time.Time `json:"timestamp"`
}

// Service provides Ucp lifecycle and transfer operations.
type Service struct {
	db     *database.DB
	prefix string
	events EventSink
}

// NewService creates a Ucp service. events may be nil.
func NewService(db *database.DB, codePrefix string, events EventSink) *Service {
	if codePrefix == "" {
		codePrefix = "UCP"
	}
	return &Service{db: db, prefix: codePrefix, events: events}
}

func (s *Service) publish(action, code, performedBy string) {
	if s.events == nil {
		return
	}
	s.events.Broadcast(Event{
		Action:      action,
		UcpCode:     code,
		PerformedBy: performedBy,
		Timestamp:   time.Now().UTC(),
	})
}

func snapshot(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// CreateRequest carries the input for Create.
type CreateRequest struct {
	Code         string `json:"code,omitempty"`
	PalletID     *uint  `json:"palletId,omitempty"`
	PositionID   *uint  `json:"positionId,omitempty"`
	Observations string `json:"observations"`
	CreatedBy    string `json:"createdBy"`
}

// Create opens a new active Ucp. When no code is supplied one is issued
// from the sequence; the sequence may leave gaps after failed creates.
// A pallet may only be claimed by one active Ucp at a time.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Ucp, error) {
	if req.CreatedBy == "" {
		return nil, apperr.Validationf("createdBy is required")
	}

	var created models.Ucp
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code := req.Code
		if code == "" {
			next, err := s.nextCode(tx)
			if err != nil {
				return err
			}
			code = next
		} else {
			var count int64
			if err := tx.Model(&models.Ucp{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return apperr.Storage("check code uniqueness", err)
			}
			if count > 0 {
				return apperr.Conflictf("ucp code %q already exists", code)
			}
		}

		if req.PalletID != nil {
			// Row lock serializes competing creates, so the exclusivity
			// count below cannot miss a concurrent claim.
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&models.Pallet{}, *req.PalletID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("pallet %d not found", *req.PalletID)
				}
				return apperr.Storage("load pallet", err)
			}
			var claimed int64
			if err := tx.Model(&models.Ucp{}).
				Where("pallet_id = ? AND status = ?", *req.PalletID, models.UcpStatusActive).
				Count(&claimed).Error; err != nil {
				return apperr.Storage("check pallet exclusivity", err)
			}
			if claimed > 0 {
				return apperr.Conflictf("pallet %d is already claimed by an active ucp", *req.PalletID)
			}
		}

		created = models.Ucp{
			Code:         code,
			PalletID:     req.PalletID,
			PositionID:   req.PositionID,
			Status:       models.UcpStatusActive,
			Observations: req.Observations,
			CreatedBy:    req.CreatedBy,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperr.Storage("create ucp", err)
		}

		history := models.UcpHistory{
			UcpID:       created.ID,
			Action:      models.UcpActionCreated,
			Description: fmt.Sprintf("Ucp %s created", code),
			NewValue:    snapshot(created),
			PerformedBy: req.CreatedBy,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Storage("write history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.UcpActionCreated, created.Code, req.CreatedBy)
	return &created, nil
}

// nextCode bumps the sequence row under an exclusive lock and formats the
// new code.
func (s *Service) nextCode(tx *gorm.DB) (string, error) {
	var seq models.UcpSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = models.UcpSequence{LastNumber: 0}
		if err := tx.Create(&seq).Error; err != nil {
			return "", apperr.Storage("init ucp sequence", err)
		}
	} else if err != nil {
		return "", apperr.Storage("lock ucp sequence", err)
	}

	seq.LastNumber++
	if err := tx.Model(&models.UcpSequence{}).
		Where("id = ?", seq.ID).
		Update("last_number", seq.LastNumber).Error; err != nil {
		return "", apperr.Storage("bump ucp sequence", err)
	}
	return utils.FormatUcpCode(s.prefix, seq.LastNumber), nil
}

// Get loads a Ucp with its pallet, position and items.
func (s *Service) Get(ctx context.Context, id uint) (*models.Ucp, error) {
	var u models.Ucp
	err := s.db.WithContext(ctx).
		Preload("Pallet").
		Preload("Position").
		Preload("Items", "is_active = true").
		First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("ucp %d not found", id)
		}
		return nil, apperr.Storage("load ucp", err)
	}
	return &u, nil
}

// List returns Ucps filtered by status ("" for all).
func (s *Service) List(ctx context.Context, status string) ([]models.Ucp, error) {
	q := s.db.WithContext(ctx).Order("code ASC")
	if status != "" {
		if status != models.UcpStatusActive && status != models.UcpStatusArchived {
			return nil, apperr.Validationf("unknown status %q", status)
		}
		q = q.Where("status = ?", status)
	}
	var ucps []models.Ucp
	if err := q.Find(&ucps).Error; err != nil {
		return nil, apperr.Storage("list ucps", err)
	}
	return ucps, nil
}

// Move updates the position of an active Ucp.
func (s *Service) Move(ctx context.Context, ucpID uint, positionID *uint, performedBy string) (*models.Ucp, error) {
	var moved models.Ucp
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUcp(tx, ucpID)
		if err != nil {
			return err
		}
		if u.Status != models.UcpStatusActive {
			return apperr.Conflictf("ucp %s is archived and cannot be moved", u.Code)
		}
		if positionID != nil {
			if err := tx.First(&models.Position{}, *positionID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("position %d not found", *positionID)
				}
				return apperr.Storage("load position", err)
			}
		}

		oldValue := snapshot(map[string]interface{}{"positionId": u.PositionID})
		u.PositionID = positionID
		if err := tx.Model(&models.Ucp{}).
			Where("id = ?", u.ID).
			Update("position_id", positionID).Error; err != nil {
			return apperr.Storage("move ucp", err)
		}

		history := models.UcpHistory{
			UcpID:       u.ID,
			Action:      models.UcpActionMoved,
			Description: fmt.Sprintf("Ucp %s moved", u.Code),
			OldValue:    oldValue,
			NewValue:    snapshot(map[string]interface{}{"positionId": positionID}),
			PerformedBy: performedBy,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Storage("write history", err)
		}
		moved = *u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.UcpActionMoved, moved.Code, performedBy)
	return &moved, nil
}

// Dismantle archives an empty Ucp and releases its pallet and position.
// A Ucp still holding active items cannot be dismantled. This is the only
// "delete" the system offers; rows are never hard-deleted.
func (s *Service) Dismantle(ctx context.Context, ucpID uint, reason, performedBy string) (*models.Ucp, error) {
	var dismantled models.Ucp
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUcp(tx, ucpID)
		if err != nil {
			return err
		}
		if u.Status != models.UcpStatusActive {
			return apperr.Conflictf("ucp %s is already archived", u.Code)
		}

		hasItems, err := hasActiveItems(tx, u.ID)
		if err != nil {
			return err
		}
		if hasItems {
			return apperr.Conflictf("ucp %s still holds active items", u.Code)
		}

		oldValue := snapshot(map[string]interface{}{
			"status":     u.Status,
			"palletId":   u.PalletID,
			"positionId": u.PositionID,
		})
		if err := tx.Model(&models.Ucp{}).Where("id = ?", u.ID).Updates(map[string]interface{}{
			"status":      models.UcpStatusArchived,
			"pallet_id":   nil,
			"position_id": nil,
		}).Error; err != nil {
			return apperr.Storage("dismantle ucp", err)
		}
		u.Status = models.UcpStatusArchived
		u.PalletID = nil
		u.PositionID = nil

		description := fmt.Sprintf("Ucp %s dismantled", u.Code)
		if reason != "" {
			description = fmt.Sprintf("%s: %s", description, reason)
		}
		history := models.UcpHistory{
			UcpID:       u.ID,
			Action:      models.UcpActionDismantled,
			Description: description,
			OldValue:    oldValue,
			NewValue:    snapshot(map[string]interface{}{"status": models.UcpStatusArchived}),
			PerformedBy: performedBy,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Storage("write history", err)
		}
		dismantled = *u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.UcpActionDismantled, dismantled.Code, performedBy)
	return &dismantled, nil
}

// Reactivate returns an archived Ucp to the active state.
func (s *Service) Reactivate(ctx context.Context, ucpID uint, performedBy string) (*models.Ucp, error) {
	var reactivated models.Ucp
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := lockUcp(tx, ucpID)
		if err != nil {
			return err
		}
		if u.Status != models.UcpStatusArchived {
			return apperr.Conflictf("ucp %s is not archived", u.Code)
		}

		if err := tx.Model(&models.Ucp{}).
			Where("id = ?", u.ID).
			Update("status", models.UcpStatusActive).Error; err != nil {
			return apperr.Storage("reactivate ucp", err)
		}
		u.Status = models.UcpStatusActive

		history := models.UcpHistory{
			UcpID:       u.ID,
			Action:      models.UcpActionReactivated,
			Description: fmt.Sprintf("Ucp %s reactivated", u.Code),
			OldValue:    snapshot(map[string]interface{}{"status": models.UcpStatusArchived}),
			NewValue:    snapshot(map[string]interface{}{"status": models.UcpStatusActive}),
			PerformedBy: performedBy,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Storage("write history", err)
		}
		reactivated = *u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(models.UcpActionReactivated, reactivated.Code, performedBy)
	return &reactivated, nil
}

// History returns the audit ledger of a Ucp, oldest first.
func (s *Service) History(ctx context.Context, ucpID uint) ([]models.UcpHistory, error) {
	if _, err := s.Get(ctx, ucpID); err != nil {
		return nil, err
	}
	var rows []models.UcpHistory
	if err := s.db.WithContext(ctx).
		Where("ucp_id = ?", ucpID).
		Order("timestamp ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Storage("load history", err)
	}
	return rows, nil
}

// HasActiveItems reports whether a Ucp still holds any active item with a
// positive quantity.
func (s *Service) HasActiveItems(ctx context.Context, ucpID uint) (bool, error) {
	return hasActiveItems(s.db.WithContext(ctx), ucpID)
}

// hasActiveItems is the storage-agnostic emptiness predicate shared by
// dismantle and callers.
func hasActiveItems(tx *gorm.DB, ucpID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.UcpItem{}).
		Where("ucp_id = ? AND is_active = true AND quantity > 0", ucpID).
		Count(&count).Error; err != nil {
		return false, apperr.Storage("count active items", err)
	}
	return count > 0, nil
}

// lockUcp loads a Ucp under FOR UPDATE so concurrent writers serialize.
func lockUcp(tx *gorm.DB, id uint) (*models.Ucp, error) {
	var u models.Ucp
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("ucp %d not found", id)
		}
		return nil, apperr.Storage("load ucp", err)
	}
	return &u, nil
}
