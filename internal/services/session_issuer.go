package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/models"
	"gorm.io/gorm"
)

// SessionIssuer mints access/refresh token pairs for an authenticated
// account. Access tokens are short-lived HS256 JWTs; refresh tokens are
// random opaque values stored hashed.
type SessionIssuer struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewSessionIssuer(db *gorm.DB, cfg *config.Config) *SessionIssuer {
	return &SessionIssuer{db: db, cfg: cfg}
}

func (s *SessionIssuer) Issue(user *models.User) (*dto.SessionResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &dto.SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         UserToResponse(user),
	}, nil
}

func (s *SessionIssuer) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *SessionIssuer) generateRefreshToken(user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)
	tokenHash := hashToken(rawToken)

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

// UserToResponse maps an account to its public profile shape.
func UserToResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		TwoFactor: user.TwoFactor,
		Language:  user.Language,
		Image:     user.ImageOrDefault(),
	}
}
