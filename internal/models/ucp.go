package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ucp status values
const (
	UcpStatusActive   = "active"
	UcpStatusArchived = "archived"
)

// Ucp history actions
const (
	UcpActionCreated     = "CREATED"
	UcpActionMoved       = "MOVED"
	UcpActionDismantled  = "DISMANTLED"
	UcpActionReactivated = "REACTIVATED"
	UcpActionTransferIn  = "TRANSFER_IN"
	UcpActionTransferOut = "TRANSFER_OUT"
)

// Ucp is a unit load: a logical container grouping goods on one pallet at
// one position. At most one active Ucp may claim a given pallet.
// Ucps are never hard-deleted; dismantling archives them.
type Ucp struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"unique;not null" json:"code"`
	PalletID     *uint     `gorm:"index" json:"palletId,omitempty"`
	PositionID   *uint     `gorm:"index" json:"positionId,omitempty"`
	Status       string    `gorm:"type:varchar(20);default:'active';index" json:"status"`
	Observations string    `json:"observations"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Pallet   *Pallet   `gorm:"foreignKey:PalletID" json:"pallet,omitempty"`
	Position *Position `gorm:"foreignKey:PositionID" json:"position,omitempty"`
	Items    []UcpItem `gorm:"foreignKey:UcpID" json:"items,omitempty"`
}

// TableName specifies the table name for Ucp model
func (Ucp) TableName() string {
	return "ucps"
}

// IsActiveStatus reports whether the Ucp is in the active state.
func (u Ucp) IsActiveStatus() bool {
	return u.Status == UcpStatusActive
}

// UcpItem is a quantity of one product held by a Ucp, in base units.
// Items are never physically deleted: a full removal or transfer-out
// deactivates the row instead. PackagingTypeID/PackagingQuantity record how
// the goods arrived (provenance) and are never used to recompute Quantity.
type UcpItem struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UcpID             uint       `gorm:"index;not null" json:"ucpId"`
	ProductID         uint       `gorm:"index;not null" json:"productId"`
	Quantity          int64      `gorm:"not null" json:"quantity"`
	Lot               string     `json:"lot"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	InternalCode      string     `json:"internalCode"`
	PackagingTypeID   *uint      `gorm:"index" json:"packagingTypeId,omitempty"`
	PackagingQuantity *int64     `json:"packagingQuantity,omitempty"`
	IsActive          bool       `gorm:"default:true;index" json:"isActive"`
	AddedBy           string     `json:"addedBy"`
	AddedAt           time.Time  `gorm:"autoCreateTime" json:"addedAt"`
	RemovedBy         *string    `json:"removedBy,omitempty"`
	RemovedAt         *time.Time `json:"removedAt,omitempty"`
	RemovalReason     *string    `json:"removalReason,omitempty"`

	Ucp     *Ucp     `gorm:"foreignKey:UcpID" json:"-"`
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName specifies the table name for UcpItem model
func (UcpItem) TableName() string {
	return "ucp_items"
}

// UcpHistory is the append-only audit ledger of a Ucp. Rows are never
// updated or deleted. Paired TRANSFER_OUT/TRANSFER_IN rows share TransferID.
type UcpHistory struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UcpID       uint           `gorm:"index;not null" json:"ucpId"`
	Action      string         `gorm:"type:varchar(20);not null;index" json:"action"`
	Description string         `json:"description"`
	OldValue    datatypes.JSON `gorm:"type:jsonb" json:"oldValue,omitempty"`
	NewValue    datatypes.JSON `gorm:"type:jsonb" json:"newValue,omitempty"`
	PerformedBy string         `json:"performedBy"`
	TransferID  *string        `gorm:"type:uuid;index" json:"transferId,omitempty"`
	Timestamp   time.Time      `gorm:"autoCreateTime;index" json:"timestamp"`
}

// TableName specifies the table name for UcpHistory model
func (UcpHistory) TableName() string {
	return "ucp_histories"
}

// UcpSequence backs Ucp code generation. A single row holds the last issued
// number; it is bumped under a row lock so codes stay unique. Gaps after
// failed creates are acceptable.
type UcpSequence struct {
	ID         uint  `gorm:"primaryKey" json:"id"`
	LastNumber int64 `gorm:"not null;default:0" json:"lastNumber"`
}

// TableName specifies the table name for UcpSequence model
func (UcpSequence) TableName() string {
	return "ucp_sequences"
}
