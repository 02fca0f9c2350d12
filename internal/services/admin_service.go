package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"nulex/internal/models"
)

// logAdminAction appends an audit entry inside the caller's transaction.
// The entry is part of the same unit of work as the mutation it describes,
// so a failed audit write rolls the whole operation back.
func logAdminAction(tx *gorm.DB, adminID uint, action, resourceType string, recordID uint, oldValues, newValues models.JSONB) error {
	entry := models.AdminLog{
		AdminID:      adminID,
		Action:       action,
		ResourceType: resourceType,
		OldValues:    oldValues,
		NewValues:    newValues,
	}
	if recordID != 0 {
		entry.RecordID = &recordID
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write admin log: %w", err)
	}
	return nil
}

// AdminService covers the user-management side of the admin surface
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// IsAdmin checks whether the user holds the admin flag
func (s *AdminService) IsAdmin(userID uint) bool {
	var user models.User
	if err := s.db.Select("is_admin").First(&user, "id = ?", userID).Error; err != nil {
		return false
	}
	return user.IsAdmin
}

// GetUsers lists users, optionally filtered by a username/email search term
func (s *AdminService) GetUsers(search string, page, limit int) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// SetUserBlocked soft-blocks or unblocks a user. Blocked users cannot log
// in and every ledger posting against them fails; their rows are never
// deleted.
func (s *AdminService) SetUserBlocked(userID uint, blocked bool, adminID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := lockForUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if user.IsBlocked == blocked {
			return nil
		}

		if err := tx.Model(&user).Update("is_blocked", blocked).Error; err != nil {
			return err
		}

		return logAdminAction(tx, adminID, "SET_USER_BLOCKED", "users", user.ID,
			models.JSONB{"is_blocked": user.IsBlocked},
			models.JSONB{"is_blocked": blocked})
	})
}

// GetAdminLogs returns the audit trail, newest first
func (s *AdminService) GetAdminLogs(page, limit int) ([]models.AdminLog, int64, error) {
	var total int64
	if err := s.db.Model(&models.AdminLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AdminLog
	if err := s.db.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
