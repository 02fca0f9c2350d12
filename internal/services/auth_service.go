package services

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"nulex/internal/auth"
	"nulex/internal/models"
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	phoneRegex    = regexp.MustCompile(`^[0]\d{10}$`)
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// AuthService handles registration and login
type AuthService struct {
	db *gorm.DB
}

func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// RegisterRequest carries a new account's details
type RegisterRequest struct {
	Username         string `json:"username" binding:"required"`
	Email            string `json:"email" binding:"required"`
	Phone            string `json:"phone" binding:"required"`
	Password         string `json:"password" binding:"required"`
	ReferrerUsername string `json:"referrer,omitempty"`
}

// validPassword requires at least 8 characters with a lowercase letter, an
// uppercase letter and a digit.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLower && hasUpper && hasDigit
}

// Register validates the request, resolves the optional referrer by
// username, and creates the account with a hashed password.
func (s *AuthService) Register(req RegisterRequest) (*models.User, string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	if !usernameRegex.MatchString(req.Username) ||
		!emailRegex.MatchString(req.Email) ||
		!phoneRegex.MatchString(req.Phone) ||
		!validPassword(req.Password) {
		return nil, "", ErrRegistrationInvalid
	}

	var existing models.User
	err := s.db.Where("username = ? OR email = ?", req.Username, req.Email).First(&existing).Error
	if err == nil {
		return nil, "", ErrUserAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	var referrerID *uint
	if req.ReferrerUsername != "" {
		var referrer models.User
		err := s.db.Where("username = ?", req.ReferrerUsername).First(&referrer).Error
		if err == nil {
			referrerID = &referrer.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
		// Unknown referrer usernames are silently ignored so stale
		// referral links do not block signup
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		PackageType:  models.TierNone,
		ReferrerID:   referrerID,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, "", err
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// Login authenticates by username or email and issues a JWT
func (s *AuthService) Login(identifier, password string) (*models.User, string, error) {
	identifier = strings.TrimSpace(identifier)

	var user models.User
	err := s.db.Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if user.IsBlocked {
		return nil, "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}
