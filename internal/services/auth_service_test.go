package services

import (
	"errors"
	"testing"

	"nulex/internal/auth"
	"nulex/internal/models"
)

func init() {
	auth.InitJWT("test-secret")
}

func validRegistration(username string) RegisterRequest {
	return RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Phone:    "08012345678",
		Password: "Sup3rSecret",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db)

	user, token, err := svc.Register(validRegistration("newuser"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if user.PackageType != models.TierNone {
		t.Errorf("new users start without a package, got %s", user.PackageType)
	}
	if user.PasswordHash == "Sup3rSecret" {
		t.Error("password must be hashed")
	}

	// Login by username
	if _, _, err := svc.Login("newuser", "Sup3rSecret"); err != nil {
		t.Errorf("login by username failed: %v", err)
	}
	// Login by email
	if _, _, err := svc.Login("newuser@example.com", "Sup3rSecret"); err != nil {
		t.Errorf("login by email failed: %v", err)
	}
	// Wrong password
	if _, _, err := svc.Login("newuser", "WrongPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db)

	cases := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{"short password", func(r *RegisterRequest) { r.Password = "Ab1" }},
		{"no uppercase", func(r *RegisterRequest) { r.Password = "alllower123" }},
		{"no digit", func(r *RegisterRequest) { r.Password = "NoDigitsHere" }},
		{"bad phone", func(r *RegisterRequest) { r.Phone = "12345" }},
		{"phone not starting with 0", func(r *RegisterRequest) { r.Phone = "18012345678" }},
		{"bad email", func(r *RegisterRequest) { r.Email = "not-an-email" }},
		{"short username", func(r *RegisterRequest) { r.Username = "ab" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegistration("candidate")
			tc.mutate(&req)
			if _, _, err := svc.Register(req); !errors.Is(err, ErrRegistrationInvalid) {
				t.Errorf("expected ErrRegistrationInvalid, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db)

	if _, _, err := svc.Register(validRegistration("taken")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, _, err := svc.Register(validRegistration("taken")); !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestRegisterWithReferrer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db)

	referrer := createTestUser(t, db, "sponsor")

	req := validRegistration("invitee")
	req.ReferrerUsername = "sponsor"

	user, _, err := svc.Register(req)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ReferrerID == nil || *user.ReferrerID != referrer.ID {
		t.Errorf("expected referrer %d, got %v", referrer.ID, user.ReferrerID)
	}

	// Unknown referrers are ignored, not fatal
	req = validRegistration("orphan")
	req.ReferrerUsername = "ghost"
	user, _, err = svc.Register(req)
	if err != nil {
		t.Fatalf("Register with unknown referrer failed: %v", err)
	}
	if user.ReferrerID != nil {
		t.Errorf("expected no referrer, got %v", user.ReferrerID)
	}
}

func TestLoginBlockedUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAuthService(db)

	if _, _, err := svc.Register(validRegistration("banned")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	db.Model(&models.User{}).Where("username = ?", "banned").Update("is_blocked", true)

	if _, _, err := svc.Login("banned", "Sup3rSecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for blocked user, got %v", err)
	}
}
