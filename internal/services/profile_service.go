package services

import (
	"errors"
	"fmt"

	"github.com/pongarena/backend/internal/dto"
	"github.com/pongarena/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidLanguage = errors.New("unsupported language")

// ProfileService covers profile reads and mutations outside the auth flow.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// GetByUsername is the public profile lookup.
func (s *ProfileService) GetByUsername(username string) (*dto.UserResponse, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	resp := UserToResponse(&user)
	return &resp, nil
}

func (s *ProfileService) ChangeUsername(userID uint, username string) (*dto.UserResponse, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	user, err := s.byID(userID)
	if err != nil {
		return nil, err
	}

	user.Username = &username
	if err := s.db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to update username: %w", err)
	}

	resp := UserToResponse(user)
	return &resp, nil
}

func (s *ProfileService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	user, err := s.byID(userID)
	if err != nil {
		return err
	}

	if user.Password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Model(user).Update("password", string(hash)).Error
}

func (s *ProfileService) UpdateImage(userID uint, image string) (*dto.UserResponse, error) {
	user, err := s.byID(userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(user).Update("image", image).Error; err != nil {
		return nil, fmt.Errorf("failed to update image: %w", err)
	}
	user.Image = image

	resp := UserToResponse(user)
	return &resp, nil
}

func (s *ProfileService) SetLanguage(userID uint, lang string) error {
	if !models.ValidLanguage(lang) {
		return ErrInvalidLanguage
	}

	user, err := s.byID(userID)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("language", lang).Error
}

func (s *ProfileService) SetTwoFactor(userID uint, enabled bool) error {
	user, err := s.byID(userID)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("two_factor", enabled).Error
}

func (s *ProfileService) byID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}
