package services

import (
	"context"
	"testing"
	"time"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/models"
	"github.com/pongarena/backend/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T, db *gorm.DB, cfg *config.Config, identity IdentityClient, mail MailChannel) *AuthService {
	t.Helper()

	sessions := NewSessionIssuer(db, cfg)
	verifier := NewVerificationService(db, mail, cfg.VerifyCodeTTL, cfg.MailTimeout)
	return NewAuthService(db, cfg, identity, verifier, sessions)
}

func TestSignupLocal(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, testConfig(), &stubIdentity{}, &stubMail{})

	t.Run("creates profile without session", func(t *testing.T) {
		resp, err := svc.SignupLocal("alice", "a@x.com", "password1")
		require.NoError(t, err)
		require.NotNil(t, resp.Username)
		assert.Equal(t, "alice", *resp.Username)
		assert.Equal(t, "a@x.com", resp.Email)
		assert.False(t, resp.TwoFactor)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := svc.SignupLocal("alice", "other@x.com", "password1")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := svc.SignupLocal("alice2", "a@x.com", "password1")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := svc.SignupLocal("", "b@x.com", "password1")
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.SignupLocal("bob", "b@x.com", "short")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestSignupOAuth(t *testing.T) {
	db := newTestDB(t)

	t.Run("creates account from provider email", func(t *testing.T) {
		svc := newAuthService(t, db, testConfig(), &stubIdentity{email: "oauth@x.com"}, &stubMail{})

		resp, err := svc.SignupOAuth(context.Background(), "auth-code")
		require.NoError(t, err)
		assert.Equal(t, "oauth@x.com", resp.Email)
		assert.Nil(t, resp.Username)
	})

	t.Run("conflicts when email already registered", func(t *testing.T) {
		svc := newAuthService(t, db, testConfig(), &stubIdentity{email: "oauth@x.com"}, &stubMail{})

		_, err := svc.SignupOAuth(context.Background(), "auth-code")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("upstream failure surfaces without retry", func(t *testing.T) {
		svc := newAuthService(t, db, testConfig(), &stubIdentity{err: oauth.ErrUpstream}, &stubMail{})

		_, err := svc.SignupOAuth(context.Background(), "auth-code")
		assert.ErrorIs(t, err, oauth.ErrUpstream)
	})
}

func TestLoginLocal(t *testing.T) {
	db := newTestDB(t)
	mail := &stubMail{}
	svc := newAuthService(t, db, testConfig(), &stubIdentity{}, mail)

	_, err := svc.SignupLocal("alice", "a@x.com", "password1")
	require.NoError(t, err)

	t.Run("unknown username", func(t *testing.T) {
		_, err := svc.LoginLocal(context.Background(), "nobody", "password1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.LoginLocal(context.Background(), "alice", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("two factor disabled returns session directly", func(t *testing.T) {
		resp, err := svc.LoginLocal(context.Background(), "alice", "password1")
		require.NoError(t, err)
		require.NotNil(t, resp.Session)
		assert.Nil(t, resp.Challenge)
		assert.NotEmpty(t, resp.Session.AccessToken)
		assert.NotEmpty(t, resp.Session.RefreshToken)
		assert.Empty(t, mail.sent)
	})

	t.Run("two factor enabled returns challenge, then verify mints session", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).
			Where("email = ?", "a@x.com").
			Update("two_factor", true).Error)

		resp, err := svc.LoginLocal(context.Background(), "alice", "password1")
		require.NoError(t, err)
		assert.Nil(t, resp.Session)
		require.NotNil(t, resp.Challenge)
		assert.Equal(t, "a@x.com", resp.Challenge.Email)
		require.Len(t, mail.sent, 1)

		var user models.User
		require.NoError(t, db.Where("email = ?", "a@x.com").First(&user).Error)
		record := storedCode(t, db, user.ID)

		session, err := svc.VerifyChallenge("a@x.com", record.Code)
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)

		// Single use: the same code cannot be verified twice.
		_, err = svc.VerifyChallenge("a@x.com", record.Code)
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestLoginOAuth(t *testing.T) {
	db := newTestDB(t)
	mail := &stubMail{}

	t.Run("unknown email requires signup first", func(t *testing.T) {
		svc := newAuthService(t, db, testConfig(), &stubIdentity{email: "new@x.com"}, mail)

		_, err := svc.LoginOAuth(context.Background(), "auth-code")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("existing account logs in", func(t *testing.T) {
		createUser(t, db, "", "oauth@x.com", "")
		svc := newAuthService(t, db, testConfig(), &stubIdentity{email: "oauth@x.com"}, mail)

		resp, err := svc.LoginOAuth(context.Background(), "auth-code")
		require.NoError(t, err)
		require.NotNil(t, resp.Session)
	})

	t.Run("two factor branch issues challenge", func(t *testing.T) {
		require.NoError(t, db.Model(&models.User{}).
			Where("email = ?", "oauth@x.com").
			Update("two_factor", true).Error)
		svc := newAuthService(t, db, testConfig(), &stubIdentity{email: "oauth@x.com"}, mail)

		resp, err := svc.LoginOAuth(context.Background(), "auth-code")
		require.NoError(t, err)
		assert.Nil(t, resp.Session)
		require.NotNil(t, resp.Challenge)
	})
}

func TestVerifyChallenge(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	mail := &stubMail{}
	svc := newAuthService(t, db, cfg, &stubIdentity{}, mail)

	user := createUser(t, db, "dave", "d@x.com", "password1")
	require.NoError(t, db.Model(user).Update("two_factor", true).Error)

	issue := func(t *testing.T) models.EmailVerification {
		t.Helper()
		_, err := svc.LoginLocal(context.Background(), "dave", "password1")
		require.NoError(t, err)
		return storedCode(t, db, user.ID)
	}

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.VerifyChallenge("nobody@x.com", "abc123")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong code", func(t *testing.T) {
		issue(t)
		_, err := svc.VerifyChallenge("d@x.com", "zzzzzz")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("expired code rejected even when correct", func(t *testing.T) {
		record := issue(t)
		past := time.Now().UTC().Add(-cfg.VerifyCodeTTL)
		require.NoError(t, db.Model(&models.EmailVerification{}).
			Where("user_id = ?", user.ID).
			UpdateColumn("updated_at", past).Error)

		_, err := svc.VerifyChallenge("d@x.com", record.Code)
		assert.ErrorIs(t, err, ErrExpiredCode)
	})

	t.Run("success consumes the record", func(t *testing.T) {
		record := issue(t)

		session, err := svc.VerifyChallenge("d@x.com", record.Code)
		require.NoError(t, err)
		assert.NotEmpty(t, session.AccessToken)

		var count int64
		db.Model(&models.EmailVerification{}).Where("user_id = ?", user.ID).Count(&count)
		assert.EqualValues(t, 0, count)
	})
}

func TestRefreshAndLogout(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, testConfig(), &stubIdentity{}, &stubMail{})

	_, err := svc.SignupLocal("erin", "e@x.com", "password1")
	require.NoError(t, err)
	resp, err := svc.LoginLocal(context.Background(), "erin", "password1")
	require.NoError(t, err)
	refreshToken := resp.Session.RefreshToken

	t.Run("refresh rotates the token", func(t *testing.T) {
		next, err := svc.Refresh(refreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, refreshToken, next.RefreshToken)

		// Old token is revoked.
		_, err = svc.Refresh(refreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)

		refreshToken = next.RefreshToken
	})

	t.Run("logout revokes", func(t *testing.T) {
		require.NoError(t, svc.Logout(refreshToken))

		_, err := svc.Refresh(refreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		_, err := svc.Refresh("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

// Storage faults must surface as wrapped errors, not as the client-facing
// sentinels the handlers turn into 4xx responses.
func TestStorageFaultsAreNotClientErrors(t *testing.T) {
	t.Run("refresh with broken token storage", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAuthService(t, db, testConfig(), &stubIdentity{}, &stubMail{})

		require.NoError(t, db.Migrator().DropTable(&models.RefreshToken{}))

		_, err := svc.Refresh("whatever")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("login with broken user storage", func(t *testing.T) {
		db := newTestDB(t)
		svc := newAuthService(t, db, testConfig(), &stubIdentity{}, &stubMail{})

		require.NoError(t, db.Migrator().DropTable(&models.User{}))

		_, err := svc.LoginLocal(context.Background(), "alice", "password1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserNotFound)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
		assert.NotErrorIs(t, err, ErrValidation)
	})
}

func TestDeleteAccountCascade(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, testConfig(), &stubIdentity{}, &stubMail{})
	friends := NewFriendService(db)

	_, err := svc.SignupLocal("frank", "f@x.com", "password1")
	require.NoError(t, err)
	var frank models.User
	require.NoError(t, db.Where("email = ?", "f@x.com").First(&frank).Error)

	grace := createUser(t, db, "grace", "g@x.com", "password1")

	_, err = friends.Request(frank.ID, grace.ID)
	require.NoError(t, err)

	_, err = svc.LoginLocal(context.Background(), "frank", "password1")
	require.NoError(t, err)

	verifier := NewVerificationService(db, &stubMail{}, 5*time.Minute, time.Second)
	require.NoError(t, verifier.Issue(context.Background(), "f@x.com", models.PurposeLogin))

	t.Run("wrong password blocks deletion", func(t *testing.T) {
		err := svc.DeleteAccount(frank.ID, "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deletes user and all dependent rows", func(t *testing.T) {
		require.NoError(t, svc.DeleteAccount(frank.ID, "password1"))

		var users, tokens, codes, edges int64
		db.Model(&models.User{}).Where("id = ?", frank.ID).Count(&users)
		db.Model(&models.RefreshToken{}).Where("user_id = ?", frank.ID).Count(&tokens)
		db.Model(&models.EmailVerification{}).Where("user_id = ?", frank.ID).Count(&codes)
		db.Model(&models.Friend{}).
			Where("requester_id = ? OR recipient_id = ?", frank.ID, frank.ID).Count(&edges)

		assert.Zero(t, users)
		assert.Zero(t, tokens)
		assert.Zero(t, codes)
		assert.Zero(t, edges)
	})

	t.Run("missing account", func(t *testing.T) {
		err := svc.DeleteAccount(frank.ID, "password1")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestPasswordReset(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(t, db, testConfig(), &stubIdentity{}, &stubMail{})

	_, err := svc.SignupLocal("henry", "h@x.com", "password1")
	require.NoError(t, err)
	var henry models.User
	require.NoError(t, db.Where("email = ?", "h@x.com").First(&henry).Error)

	t.Run("request mails a reset code", func(t *testing.T) {
		require.NoError(t, svc.RequestPasswordReset(context.Background(), "h@x.com"))

		record := storedCode(t, db, henry.ID)
		assert.Equal(t, models.PurposePasswordReset, record.Purpose)
	})

	t.Run("confirm replaces the password", func(t *testing.T) {
		record := storedCode(t, db, henry.ID)
		require.NoError(t, svc.ResetPassword("h@x.com", record.Code, "password2"))

		_, err := svc.LoginLocal(context.Background(), "henry", "password1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		resp, err := svc.LoginLocal(context.Background(), "henry", "password2")
		require.NoError(t, err)
		assert.NotNil(t, resp.Session)
	})

	t.Run("code is single use", func(t *testing.T) {
		err := svc.ResetPassword("h@x.com", "stale1", "password3")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}
