package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/pongarena/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidCode = errors.New("invalid verification code")
	ErrExpiredCode = errors.New("verification code expired")
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// MailChannel dispatches outbound mail. Send must block until the message is
// handed to the server or the context expires.
type MailChannel interface {
	Send(ctx context.Context, to, subject, body string) error
}

// VerificationService issues and validates the short-lived one-time codes
// used for 2FA login and password resets. An account has at most one live
// code: issuing a new one overwrites the previous row, whatever its purpose.
type VerificationService struct {
	db          *gorm.DB
	mail        MailChannel
	ttl         time.Duration
	mailTimeout time.Duration
}

func NewVerificationService(db *gorm.DB, mail MailChannel, ttl, mailTimeout time.Duration) *VerificationService {
	return &VerificationService{db: db, mail: mail, ttl: ttl, mailTimeout: mailTimeout}
}

// TTL returns the configured validity window.
func (s *VerificationService) TTL() time.Duration {
	return s.ttl
}

// Issue generates a fresh code for the account behind email, upserts its
// verification row and mails the code. The code never travels back to the
// caller. A mail failure is a hard error: the client would otherwise wait
// for a code that never arrives.
func (s *VerificationService) Issue(ctx context.Context, email, purpose string) error {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	record := models.EmailVerification{
		UserID:  user.ID,
		Code:    code,
		Purpose: purpose,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"code":       code,
			"purpose":    purpose,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.mailTimeout)
	defer cancel()

	subject := "Your login code"
	if purpose == models.PurposePasswordReset {
		subject = "Your password reset code"
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %s.", code, s.ttl)

	if err := s.mail.Send(mailCtx, email, subject, body); err != nil {
		return fmt.Errorf("failed to deliver verification code: %w", err)
	}
	return nil
}

// Validate is a read-only check of the supplied code against the live
// record. It reports whether the code matches and whether the record has
// outlived the validity window; consuming the record is the caller's job so
// the delete can stay atomic with session issuance. A code exactly at the
// window boundary counts as expired.
func (s *VerificationService) Validate(email, code string) (valid bool, expired bool, err error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, ErrUserNotFound
		}
		return false, false, fmt.Errorf("failed to look up user: %w", err)
	}

	var record models.EmailVerification
	if err := s.db.Where("user_id = ?", user.ID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to look up verification code: %w", err)
	}

	valid = record.Code == code
	expired = time.Now().UTC().Sub(record.UpdatedAt.UTC()) >= s.ttl
	return valid, expired, nil
}

// Consume deletes the record only if it still holds the expected code. The
// compare-and-delete makes concurrent verifications race safely: exactly one
// caller observes the delete.
func (s *VerificationService) Consume(userID uint, code string) (bool, error) {
	result := s.db.Where("user_id = ? AND code = ?", userID, code).
		Delete(&models.EmailVerification{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
