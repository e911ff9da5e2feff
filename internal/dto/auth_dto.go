package dto

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type OAuthRequest struct {
	Code string `json:"code"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// SessionResponse is an issued access/refresh token pair.
type SessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// ChallengeResponse signals that a second factor is required before a
// session is issued. The client must follow up with POST /auth/verify-2fa.
type ChallengeResponse struct {
	TwoFactor bool   `json:"two_factor"`
	Email     string `json:"email"`
}

// LoginResponse is the union returned by the login operations: exactly one
// of Session or Challenge is set.
type LoginResponse struct {
	Session   *SessionResponse   `json:"session,omitempty"`
	Challenge *ChallengeResponse `json:"challenge,omitempty"`
}

type UserResponse struct {
	ID        uint    `json:"id"`
	Username  *string `json:"username"`
	Email     string  `json:"email"`
	TwoFactor bool    `json:"two_factor"`
	Language  string  `json:"language"`
	Image     string  `json:"image"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
