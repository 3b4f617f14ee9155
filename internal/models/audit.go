package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records a workflow event against a sheet, such as a submission or
// an HOD decision. Entries are append-only.
type AuditLog struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	ActorID   uint              `gorm:"not null" json:"actor_id"`
	ActorRole string            `gorm:"size:16;not null" json:"actor_role"`
	Action    string            `gorm:"size:64;not null" json:"action"`
	SheetID   *uint             `gorm:"index" json:"sheet_id"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}
