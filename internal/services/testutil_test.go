package services

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.EmailVerification{},
		&models.Friend{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
		VerifyCodeTTL:    5 * time.Minute,
		MailTimeout:      time.Second,
	}
}

func createUser(t *testing.T, db *gorm.DB, username, email, password string) *models.User {
	t.Helper()

	user := models.User{
		Email:    email,
		Provider: models.ProviderLocal,
		Language: "EN",
		IsActive: true,
	}
	if username != "" {
		user.Username = &username
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		user.Password = string(hash)
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

// stubMail records outbound messages instead of talking to SMTP.
type stubMail struct {
	sent []stubMessage
	err  error
}

type stubMessage struct {
	To      string
	Subject string
	Body    string
}

func (m *stubMail) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, stubMessage{To: to, Subject: subject, Body: body})
	return nil
}

// stubIdentity fakes the upstream OAuth provider.
type stubIdentity struct {
	email string
	err   error
}

func (s *stubIdentity) Exchange(_ context.Context, code string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "stub-access-token", nil
}

func (s *stubIdentity) FetchEmail(_ context.Context, accessToken string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.email, nil
}

func storedCode(t *testing.T, db *gorm.DB, userID uint) models.EmailVerification {
	t.Helper()

	var record models.EmailVerification
	require.NoError(t, db.Where("user_id = ?", userID).First(&record).Error)
	return record
}
