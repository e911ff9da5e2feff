package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")

	// ErrValidation wraps rejected input. Handlers map it to 400; anything
	// not carrying it is an infrastructure fault, not the client's.
	ErrValidation = errors.New("validation failed")
)

// IdentityClient is the upstream OAuth boundary: exchange an authorization
// code for a token, then fetch the account email behind it.
type IdentityClient interface {
	Exchange(ctx context.Context, code string) (string, error)
	FetchEmail(ctx context.Context, accessToken string) (string, error)
}

// AuthService drives a login or signup attempt to completion: local
// credentials or the upstream OAuth exchange, the optional 2FA challenge,
// and finally session issuance.
type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	identity IdentityClient
	verifier *VerificationService
	sessions *SessionIssuer
}

func NewAuthService(db *gorm.DB, cfg *config.Config, identity IdentityClient, verifier *VerificationService, sessions *SessionIssuer) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		identity: identity,
		verifier: verifier,
		sessions: sessions,
	}
}

// SignupLocal creates a password account. It returns the created profile
// only; the client still has to log in.
func (s *AuthService) SignupLocal(username, email, password string) (*dto.UserResponse, error) {
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username: &username,
		Email:    email,
		Password: string(hash),
		Provider: models.ProviderLocal,
		Language: "EN",
		IsActive: true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.signupConflict(email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp := UserToResponse(&user)
	return &resp, nil
}

// SignupOAuth creates an account from an upstream authorization code. The
// email comes from the provider profile; no local username or password is
// set.
func (s *AuthService) SignupOAuth(ctx context.Context, code string) (*dto.UserResponse, error) {
	email, err := s.exchangeForEmail(ctx, code)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:    email,
		Provider: models.ProviderIntra,
		Language: "EN",
		IsActive: true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp := UserToResponse(&user)
	return &resp, nil
}

// LoginLocal authenticates a password account. Accounts with 2FA enabled get
// a mailed challenge instead of a session; the client must follow up with
// VerifyChallenge.
func (s *AuthService) LoginLocal(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.finishLogin(ctx, &user)
}

// LoginOAuth authenticates through the upstream provider. The account must
// already exist: an unknown email surfaces as not-found so the client can
// redirect to signup.
func (s *AuthService) LoginOAuth(ctx context.Context, code string) (*dto.LoginResponse, error) {
	email, err := s.exchangeForEmail(ctx, code)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return s.finishLogin(ctx, &user)
}

// VerifyChallenge completes a pending 2FA login. The code is single-use: the
// record is consumed with a compare-and-delete so two concurrent attempts
// with the same code cannot both mint sessions.
func (s *AuthService) VerifyChallenge(email, code string) (*dto.SessionResponse, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	valid, expired, err := s.verifier.Validate(email, code)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, ErrInvalidCode
	}
	if expired {
		return nil, ErrExpiredCode
	}

	consumed, err := s.verifier.Consume(user.ID, code)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// A concurrent verification got there first.
		return nil, ErrInvalidCode
	}

	return s.sessions.Issue(&user)
}

// Refresh rotates a refresh token and mints a new session pair.
func (s *AuthService) Refresh(refreshToken string) (*dto.SessionResponse, error) {
	tokenHash := hashToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ? AND revoked = false", tokenHash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.Model(&stored).Update("revoked", true)
		return nil, ErrInvalidToken
	}

	s.db.Model(&stored).Update("revoked", true)

	var user models.User
	if err := s.db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return s.sessions.Issue(&user)
}

// Logout revokes a refresh token.
func (s *AuthService) Logout(refreshToken string) error {
	tokenHash := hashToken(refreshToken)
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

// DeleteAccount removes the account and everything hanging off it: refresh
// tokens, the live verification code and all friend edges, in one
// transaction so a partial cascade cannot happen.
func (s *AuthService) DeleteAccount(userID uint, password string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	if user.Provider == models.ProviderLocal {
		if password == "" {
			return fmt.Errorf("%w: password is required", ErrValidation)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.EmailVerification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("requester_id = ? OR recipient_id = ?", userID, userID).Delete(&models.Friend{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// RequestPasswordReset mails a reset code to the account behind email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.verifier.Issue(ctx, email, models.PurposePasswordReset)
}

// ResetPassword consumes a reset code and replaces the password hash. All
// outstanding refresh tokens are revoked.
func (s *AuthService) ResetPassword(email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	valid, expired, err := s.verifier.Validate(email, code)
	if err != nil {
		return err
	}
	if !valid {
		return ErrInvalidCode
	}
	if expired {
		return ErrExpiredCode
	}

	consumed, err := s.verifier.Consume(user.ID, code)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password", string(hash)).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", user.ID).
			Update("revoked", true).Error
	})
}

func (s *AuthService) finishLogin(ctx context.Context, user *models.User) (*dto.LoginResponse, error) {
	if !user.TwoFactor {
		session, err := s.sessions.Issue(user)
		if err != nil {
			return nil, err
		}
		return &dto.LoginResponse{Session: session}, nil
	}

	if err := s.verifier.Issue(ctx, user.Email, models.PurposeLogin); err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Challenge: &dto.ChallengeResponse{TwoFactor: true, Email: user.Email},
	}, nil
}

func (s *AuthService) exchangeForEmail(ctx context.Context, code string) (string, error) {
	token, err := s.identity.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	return s.identity.FetchEmail(ctx, token)
}

// signupConflict resolves which unique index a failed insert hit.
func (s *AuthService) signupConflict(email string) error {
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}
