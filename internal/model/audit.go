package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateComponent     = "CREATE_COMPONENT"
	ActionUpdateComponent     = "UPDATE_COMPONENT"
	ActionDeactivateComponent = "DEACTIVATE_COMPONENT"
	ActionCreateTransaction   = "CREATE_TRANSACTION"
	ActionUpdateTransaction   = "UPDATE_TRANSACTION"
	ActionDeleteTransaction   = "DELETE_TRANSACTION"
	ActionOverwriteInitial    = "OVERWRITE_INITIAL_BALANCE"
	ActionCreateSKU           = "CREATE_SKU"
	ActionUpdateSKU           = "UPDATE_SKU"
	ActionCreateBOMVersion    = "CREATE_BOM_VERSION"
	ActionUpdateBOMVersion    = "UPDATE_BOM_VERSION"
	ActionActivateBOMVersion  = "ACTIVATE_BOM_VERSION"
	ActionImportComponents    = "IMPORT_COMPONENTS"
)

// AuditLog tracks Who, What, and When for critical system changes.
// Rows are written inside the same database transaction as the change they
// record.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated sync
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
