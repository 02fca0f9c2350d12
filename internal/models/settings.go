package models

import (
	"time"
)

// SystemSetting is an externally supplied key/value configuration row,
// read at call time by the settings provider.
type SystemSetting struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SettingKey   string    `gorm:"size:100;uniqueIndex;not null" json:"setting_key"`
	SettingValue string    `gorm:"size:255;not null" json:"setting_value"`
	Description  string    `gorm:"type:text" json:"description"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for SystemSetting model
func (SystemSetting) TableName() string {
	return "system_settings"
}
