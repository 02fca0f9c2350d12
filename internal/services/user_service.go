package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"nulex/internal/models"
)

// UserService serves profile and dashboard reads
type UserService struct {
	db          *gorm.DB
	referrals   *ReferralService
	frontendURL string
}

func NewUserService(db *gorm.DB, referrals *ReferralService, frontendURL string) *UserService {
	return &UserService{db: db, referrals: referrals, frontendURL: frontendURL}
}

// Profile bundles the user record with their referral standing
type Profile struct {
	User         *models.User   `json:"user"`
	ReferralLink string         `json:"referral_link"`
	Referrals    *ReferralStats `json:"referrals"`
}

// GetProfile returns the user's account, referral link and referral stats
func (s *UserService) GetProfile(userID uint) (*Profile, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	stats, err := s.referrals.GetReferralStats(user.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:         &user,
		ReferralLink: fmt.Sprintf("%s/register?ref=%s", s.frontendURL, user.Username),
		Referrals:    stats,
	}, nil
}

// GetTransactions returns the user's ledger history, newest first,
// optionally filtered by kind.
func (s *UserService) GetTransactions(userID uint, kind models.TransactionKind, page, limit int) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}
