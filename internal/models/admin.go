package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB for PostgreSQL JSON support
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("type assertion to []byte failed")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, j)
}

// AdminLog records admin actions for audit trail. Rows are append-only:
// every reviewed task, withdrawal transition and portal toggle gets one,
// capturing the before/after state.
type AdminLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AdminID      uint      `gorm:"not null;index" json:"admin_id"`
	Admin        *User     `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
	Action       string    `gorm:"size:100;not null" json:"action"`
	ResourceType string    `gorm:"size:50" json:"resource_type"`
	RecordID     *uint     `json:"record_id"`
	OldValues    JSONB     `gorm:"type:jsonb" json:"old_values"`
	NewValues    JSONB     `gorm:"type:jsonb" json:"new_values"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for AdminLog model
func (AdminLog) TableName() string {
	return "admin_logs"
}
