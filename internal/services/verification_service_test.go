package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pongarena/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationIssue(t *testing.T) {
	db := newTestDB(t)
	mail := &stubMail{}
	svc := NewVerificationService(db, mail, 5*time.Minute, time.Second)

	user := createUser(t, db, "alice", "a@x.com", "password1")

	t.Run("issues and mails a six char code", func(t *testing.T) {
		require.NoError(t, svc.Issue(context.Background(), "a@x.com", models.PurposeLogin))

		record := storedCode(t, db, user.ID)
		assert.Len(t, record.Code, 6)
		assert.Equal(t, models.PurposeLogin, record.Purpose)

		require.Len(t, mail.sent, 1)
		assert.Equal(t, "a@x.com", mail.sent[0].To)
		assert.Contains(t, mail.sent[0].Body, record.Code)
	})

	t.Run("reissue overwrites instead of duplicating", func(t *testing.T) {
		first := storedCode(t, db, user.ID)

		require.NoError(t, svc.Issue(context.Background(), "a@x.com", models.PurposePasswordReset))

		var count int64
		db.Model(&models.EmailVerification{}).Where("user_id = ?", user.ID).Count(&count)
		assert.EqualValues(t, 1, count)

		second := storedCode(t, db, user.ID)
		assert.Equal(t, models.PurposePasswordReset, second.Purpose)
		assert.NotEqual(t, first.Code, second.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		err := svc.Issue(context.Background(), "nobody@x.com", models.PurposeLogin)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("mail failure surfaces", func(t *testing.T) {
		failing := NewVerificationService(db, &stubMail{err: errors.New("smtp down")}, 5*time.Minute, time.Second)
		err := failing.Issue(context.Background(), "a@x.com", models.PurposeLogin)
		assert.ErrorContains(t, err, "failed to deliver")
	})
}

func TestVerificationValidate(t *testing.T) {
	db := newTestDB(t)
	mail := &stubMail{}
	svc := NewVerificationService(db, mail, 5*time.Minute, time.Second)

	user := createUser(t, db, "bob", "b@x.com", "password1")
	require.NoError(t, svc.Issue(context.Background(), "b@x.com", models.PurposeLogin))
	record := storedCode(t, db, user.ID)

	t.Run("correct code validates", func(t *testing.T) {
		valid, expired, err := svc.Validate("b@x.com", record.Code)
		require.NoError(t, err)
		assert.True(t, valid)
		assert.False(t, expired)
	})

	t.Run("validate does not mutate", func(t *testing.T) {
		var count int64
		db.Model(&models.EmailVerification{}).Where("user_id = ?", user.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("wrong code", func(t *testing.T) {
		valid, _, err := svc.Validate("b@x.com", "zzzzzz")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("expired when window elapsed", func(t *testing.T) {
		past := time.Now().UTC().Add(-6 * time.Minute)
		require.NoError(t, db.Model(&models.EmailVerification{}).
			Where("user_id = ?", user.ID).
			UpdateColumn("updated_at", past).Error)

		valid, expired, err := svc.Validate("b@x.com", record.Code)
		require.NoError(t, err)
		assert.True(t, valid)
		assert.True(t, expired)
	})

	t.Run("elapsed exactly equal to window counts as expired", func(t *testing.T) {
		zeroTTL := NewVerificationService(db, mail, 0, time.Second)
		require.NoError(t, db.Model(&models.EmailVerification{}).
			Where("user_id = ?", user.ID).
			UpdateColumn("updated_at", time.Now().UTC()).Error)

		_, expired, err := zeroTTL.Validate("b@x.com", record.Code)
		require.NoError(t, err)
		assert.True(t, expired)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Validate("nobody@x.com", record.Code)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestVerificationConsume(t *testing.T) {
	db := newTestDB(t)
	svc := NewVerificationService(db, &stubMail{}, 5*time.Minute, time.Second)

	user := createUser(t, db, "carol", "c@x.com", "password1")
	require.NoError(t, svc.Issue(context.Background(), "c@x.com", models.PurposeLogin))
	record := storedCode(t, db, user.ID)

	t.Run("consume succeeds exactly once", func(t *testing.T) {
		ok, err := svc.Consume(user.ID, record.Code)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = svc.Consume(user.ID, record.Code)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("consume with stale code is a no-op", func(t *testing.T) {
		require.NoError(t, svc.Issue(context.Background(), "c@x.com", models.PurposeLogin))

		ok, err := svc.Consume(user.ID, "stale1")
		require.NoError(t, err)
		assert.False(t, ok)

		// The live record survives a failed compare-and-delete.
		fresh := storedCode(t, db, user.ID)
		assert.NotEmpty(t, fresh.Code)
	})
}
