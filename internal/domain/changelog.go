package domain

import "time"

// Actions recorded in the change log.
const (
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionRestore     = "restore"
	ActionForceDelete = "force_delete"
)

// ChangeLog is one audit record for a mutation against a managed resource.
// OldData and NewData hold JSON snapshots of the record around the write;
// flag-only mutations (soft delete, restore) record the action without
// snapshots since the row itself is unchanged apart from the flag.
//
// Log rows are append-only: they are never updated or deleted, so they do not
// carry the soft-delete machinery of BaseModel.
type ChangeLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TableName string    `gorm:"size:64;index" json:"table_name"`
	RecordID  uint      `gorm:"index" json:"record_id"`
	Action    string    `gorm:"size:16" json:"action"`
	OldData   string    `json:"old_data,omitempty"`
	NewData   string    `json:"new_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
